// Package observability provides Prometheus metrics and tracing helpers
// for the ingestion engine.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the engine. It carries its
// own registry so tests never trip duplicate registration on the default
// one.
type Collector struct {
	registry *prometheus.Registry

	// Graph metrics
	NodesCreated prometheus.Counter
	EdgesCreated prometheus.Counter

	// Clustering metrics
	ClustersCreated prometheus.Counter
	ClusterJoins    prometheus.Counter

	// Placement metrics
	PlacementDecisions *prometheus.CounterVec
	PlacementFallbacks prometheus.Counter

	// Pipeline metrics
	ChunksProcessed    prometheus.Counter
	ExtractionFailures prometheus.Counter
	EmbeddingFailures  prometheus.Counter
	PipelineDuration   prometheus.Histogram

	// Embedding cache metrics
	EmbedCacheHits   prometheus.Counter
	EmbedCacheMisses prometheus.Counter
}

// NewCollector creates the metrics collector for the given namespace.
// A process-wide singleton is returned on repeated calls so tests and
// multiple construction paths never register twice.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	nodesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nodes_created_total",
		Help:      "Total number of idea nodes inserted into the graph",
	})
	edgesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "edges_created_total",
		Help:      "Total number of parent edges created",
	})
	clustersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clusters_created_total",
		Help:      "Total number of clusters created",
	})
	clusterJoins := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cluster_joins_total",
		Help:      "Total number of nodes routed into an existing cluster",
	})
	placementDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "placement_decisions_total",
		Help:      "Placement decisions accepted from the oracle, by type",
	}, []string{"decision"})
	placementFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "placement_fallbacks_total",
		Help:      "Placements resolved by the fallback chain instead of the oracle",
	})
	chunksProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_processed_total",
		Help:      "Transcript chunks run through the pipeline",
	})
	extractionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_failures_total",
		Help:      "Chunks whose concept extraction failed",
	})
	embeddingFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_failures_total",
		Help:      "Ideas dropped because embedding failed",
	})
	pipelineDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "End-to-end duration of one chunk ingestion",
		Buckets:   prometheus.DefBuckets,
	})
	embedCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embed_cache_hits_total",
		Help:      "Embedding requests served from the cache",
	})
	embedCacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embed_cache_misses_total",
		Help:      "Embedding requests that went to the provider",
	})

	registry.MustRegister(
		nodesCreated,
		edgesCreated,
		clustersCreated,
		clusterJoins,
		placementDecisions,
		placementFallbacks,
		chunksProcessed,
		extractionFailures,
		embeddingFailures,
		pipelineDuration,
		embedCacheHits,
		embedCacheMisses,
	)

	globalCollector = &Collector{
		registry:           registry,
		NodesCreated:       nodesCreated,
		EdgesCreated:       edgesCreated,
		ClustersCreated:    clustersCreated,
		ClusterJoins:       clusterJoins,
		PlacementDecisions: placementDecisions,
		PlacementFallbacks: placementFallbacks,
		ChunksProcessed:    chunksProcessed,
		ExtractionFailures: extractionFailures,
		EmbeddingFailures:  embeddingFailures,
		PipelineDuration:   pipelineDuration,
		EmbedCacheHits:     embedCacheHits,
		EmbedCacheMisses:   embedCacheMisses,
	}
	return globalCollector
}

// ResetForTesting discards the singleton so a test can build a fresh
// collector.
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// Registry returns the collector's Prometheus registry, for exposition.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

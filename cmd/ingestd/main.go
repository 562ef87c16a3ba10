// Command ingestd reads transcript chunks as JSON lines, feeds them
// through the ingestion pipeline and writes one graph diff per chunk to
// stdout. Chunks of the same tenant are processed in input order;
// distinct tenants run in parallel.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ideagraph-backend/internal/app"
	"ideagraph-backend/internal/config"
	"ideagraph-backend/internal/domain"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (optional, watched for tunable changes)")
		inputPath  = flag.String("input", "-", "JSONL chunk stream, - for stdin")
		snapshot   = flag.Bool("snapshot", false, "print the full graph per tenant after the stream ends")
	)
	flag.Parse()

	if err := run(*configPath, *inputPath, *snapshot); err != nil {
		fmt.Fprintln(os.Stderr, "ingestd:", err)
		os.Exit(1)
	}
}

func run(configPath, inputPath string, snapshot bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	container, err := app.New(cfg, configPath)
	if err != nil {
		return err
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := os.Stdin
	if inputPath != "" && inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	tenants, err := ingest(ctx, container, in)
	if err != nil {
		return err
	}

	if snapshot {
		out := json.NewEncoder(os.Stdout)
		for _, tenant := range tenants {
			snap := container.Pipeline.Snapshot(tenant)
			if err := out.Encode(map[string]any{"tenant_id": tenant, "graph": snap}); err != nil {
				return err
			}
		}
	}
	return nil
}

// ingest fans chunks out to one worker per tenant and returns the
// tenants seen, sorted for stable snapshot output.
func ingest(ctx context.Context, container *app.Container, in io.Reader) ([]string, error) {
	var stdout sync.Mutex
	out := json.NewEncoder(os.Stdout)

	group, ctx := errgroup.WithContext(ctx)
	feeds := make(map[string]chan domain.TranscriptChunk)

	feed := func(tenant string) chan domain.TranscriptChunk {
		ch, ok := feeds[tenant]
		if !ok {
			ch = make(chan domain.TranscriptChunk, 16)
			feeds[tenant] = ch
			group.Go(func() error {
				for chunk := range ch {
					diff, err := container.Pipeline.Process(ctx, chunk)
					if err != nil {
						return err
					}
					if diff.Empty() {
						continue
					}
					stdout.Lock()
					err = out.Encode(diff)
					stdout.Unlock()
					if err != nil {
						return err
					}
				}
				return nil
			})
		}
		return ch
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
scan:
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var chunk domain.TranscriptChunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			container.Logger.Warn("skipping malformed line",
				zap.Int("line", line),
				zap.Error(err))
			continue
		}
		select {
		case feed(chunk.TenantID) <- chunk:
		case <-ctx.Done():
			break scan
		}
	}

	for _, ch := range feeds {
		close(ch)
	}
	err := group.Wait()
	if err == nil {
		err = scanner.Err()
	}

	tenants := make([]string, 0, len(feeds))
	for tenant := range feeds {
		tenants = append(tenants, tenant)
	}
	sort.Strings(tenants)
	return tenants, err
}

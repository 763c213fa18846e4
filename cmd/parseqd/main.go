// Command parseqd is a small demo binary: it builds a sample ParSeq task
// graph, runs it to completion on a real engine.Engine, prints the
// resulting trace, and optionally serves that trace over tracesvc.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/parseq/parseq/config"
	"github.com/parseq/parseq/engine"
	"github.com/parseq/parseq/task"
	"github.com/parseq/parseq/tracesvc"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to engine config JSON file (optional)")
		listen     = flag.String("listen", "", "Address to serve the trace service on (optional, e.g. :8080)")
		workers    = flag.Int("workers", -1, "Override the engine's worker count (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.DefaultEngineConfig()
	if *configFile != "" {
		loaded, err := config.LoadJSON(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *workers >= 0 {
		cfg.Workers = *workers
	}

	eng := engine.New(cfg)
	defer eng.Close()

	registry := tracesvc.NewRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *listen != "" {
		server := tracesvc.NewServer(registry)
		mux := http.NewServeMux()
		mux.Handle(server.Handler())
		go func() {
			if err := http.ListenAndServe(*listen, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("tracesvc: %v", err)
			}
		}()
	}

	root := buildSampleGraph(registry)

	if err := eng.Run(ctx, root); err != nil {
		fmt.Printf("run failed: %v\n", err)
	} else {
		v, _ := root.Get()
		fmt.Printf("result: %d\n", v)
	}

	printTrace(root.Trace())
}

// buildSampleGraph wires value -> map -> flatMap -> par2 -> withTimeout,
// registering every constructed task with registry so its trace is
// queryable by ID through tracesvc.
func buildSampleGraph(registry *tracesvc.Registry) *task.Task[int] {
	seed := task.Value("seed", 21)
	registry.Register(seed)

	doubled := task.Map(seed, "double", func(n int) (int, error) { return n * 2, nil })
	registry.Register(doubled)

	widened := task.FlatMap(doubled, "widen", func(n int) *task.Task[int] {
		inner := task.Callable("inner-add-one", func() (int, error) { return n + 1, nil })
		registry.Register(inner)
		return inner
	})
	registry.Register(widened)

	left := task.Callable("left", func() (int, error) { return 1, nil })
	right := task.Callable("right", func() (int, error) { return 2, nil })
	registry.Register(left)
	registry.Register(right)

	pair := task.Par2("sum-siblings", left, right)
	registry.Register(pair)

	combined := task.FlatMap(widened, "combine", func(w int) *task.Task[int] {
		sum := task.Map(pair, "sum", func(p task.Tuple2[int, int]) (int, error) {
			return w + p.V1 + p.V2, nil
		})
		registry.Register(sum)
		return sum
	})
	registry.Register(combined)

	combined.WithTimeout(5 * time.Second)
	return combined
}

func printTrace(tr *task.Trace) {
	fmt.Printf("trace root=%s\n", tr.Root)
	for id, node := range tr.Nodes {
		if node.SystemHidden {
			continue
		}
		fmt.Printf("  %s %-20s state=%-9s succeeded=%v\n", id, node.Name, node.State, node.Succeeded)
	}
}

/*
 * Crawls a stateful web application and exports its abstract navigation
 * graph: the distinct application states discovered and the actions that
 * move between them.
 */
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/trace"
	"sync/atomic"
	"syscall"

	"github.com/waxwing/abscrawl/internal/cluster"
	"github.com/waxwing/abscrawl/internal/crawl"
	"github.com/waxwing/abscrawl/internal/export"
	"github.com/waxwing/abscrawl/internal/fetch"
	"github.com/waxwing/abscrawl/internal/formfill"
	"github.com/waxwing/abscrawl/internal/graph"
	"github.com/waxwing/abscrawl/internal/history"
	"github.com/waxwing/abscrawl/internal/pagemap"
	"github.com/waxwing/abscrawl/internal/siteconfig"
)

// Action flags
var startURL = flag.String("url", "", "Root URL to crawl, in addition to any positional URL arguments.")
var configFile = flag.String("site", "", "A YAML file defining site parameters: start URLs, domain aliases, aggregation tuning, and form values.")

// Output flags
var dbTarget = flag.String("db", "", `Scheme and path to store the exported graph, e.g. "bbolt:/path/to/db:bucket" or "s3:region:bucket". If empty, the graph is written to stdout as DOT.`)

// Crawl tuning flags
var insecureSkipVerify = flag.Bool("insecure", false, "Skip TLS certificate verification.")
var joinThreshold = flag.Int("threshold", 0, "Override the similarity-join threshold for deciding a family of pages is one aggregated state. 0 uses the default (or the site config's value).")

// Development and debug flags
var traceFile = flag.String("trace", "", "Write a Go execution trace file.")

func main() {
	os.Exit(run())
}

func run() int {
	log.SetOutput(os.Stderr)
	flag.Parse()

	if *traceFile != "" {
		tf, err := os.OpenFile(*traceFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0664)
		if err != nil {
			log.Fatalf("Could not open trace file %q: %v", *traceFile, err)
		}
		trace.Start(tf)
		defer trace.Stop()
	}

	var cfg *siteconfig.Config
	if *configFile != "" {
		cfg = mustLoadSiteConfig(*configFile)
	}

	urls := flag.Args()
	if *startURL != "" {
		urls = append(urls, *startURL)
	}
	if cfg != nil {
		urls = append(urls, cfg.StartURLs...)
	}
	if len(urls) == 0 {
		log.Println("Nothing to do. Please specify start URLs as arguments, --url, or a --site config with startURLs.")
		return 1
	}

	insecure := *insecureSkipVerify
	threshold := *joinThreshold
	var filler *formfill.Filler
	if cfg != nil {
		insecure = insecure || cfg.InsecureSkipVerify
		if threshold == 0 {
			threshold = cfg.JoinThreshold(0)
		}
		filler = cfg.Filler()
	}

	fetcher := fetch.New(insecure)
	pm := pagemap.New(threshold, log.Default())

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	var interrupted atomic.Bool
	go func() {
		if _, ok := <-sig; ok {
			interrupted.Store(true)
			log.Println("crawl: interrupted, finishing current step and exporting what was found")
			cancel()
		}
	}()
	defer signal.Stop(sig)

	// Each start URL gets its own history (a fresh browser session), but the
	// Page Map and HTTP client are shared for the whole run, so states
	// discovered from one entry point carry over to the next. A crawl that
	// runs out of history to back through has simply exhausted that entry
	// point; the remaining URLs are still tried.
	var logs []*history.Log
	failed := false
	for _, url := range urls {
		hist := history.New()
		driver := crawl.New(fetcher, pm, hist, filler, log.Default())
		_, runErr := driver.Run(ctx, url)
		if hist.Head() != nil {
			logs = append(logs, hist)
		}
		switch {
		case runErr == nil:
		case errors.Is(runErr, history.ErrEmptyHistory):
			log.Printf("crawl: %s exhausted, moving to the next start URL", url)
		case errors.Is(runErr, context.Canceled):
			// fall through to export what was found
		default:
			log.Printf("crawl: %s: %v", url, runErr)
			failed = true
		}
		if ctx.Err() != nil {
			break
		}
	}

	exportErr := exportGraph(pm, logs, *dbTarget)
	if exportErr != nil {
		log.Printf("export: %v", exportErr)
	}

	switch {
	case interrupted.Load():
		return 130
	case failed || exportErr != nil:
		return 1
	default:
		return 0
	}
}

// exportGraph reduces each crawl's history into an application graph and
// writes a DOT rendering of the canonical page map, regardless of whether
// the crawl finished cleanly or was interrupted -- a partial graph is
// still useful.
func exportGraph(pm *pagemap.Map, logs []*history.Log, target string) error {
	for _, hist := range logs {
		records := allRecords(hist)
		groups := cluster.SimplePass(records)
		cluster.LevelPass(log.Default(), records)

		_, clusters := graph.BuildPageClusters(groups)
		g, err := graph.NewBuilder().Build(hist, clusters)
		if err != nil {
			return fmt.Errorf("building application graph: %w", err)
		}

		finalState, err := graph.NewReducer().Reduce(g)
		if err != nil {
			log.Printf("graph: state reduction incomplete: %v", err)
		} else {
			log.Printf("graph: reduced to state %d (of %d)", finalState, g.MaxState)
		}
	}

	dot := export.BuildGraph(pm.All())
	content := []byte(dot.String())

	if target == "" {
		fmt.Println(string(content))
		return nil
	}
	store := export.New(target)
	defer store.Close()
	return store.Write("graph", export.Artifact{ContentType: "text/vnd.graphviz", Content: content})
}

func allRecords(hist *history.Log) []*history.Record {
	var out []*history.Record
	for r := hist.Head(); r != nil; r = r.Next {
		out = append(out, r)
	}
	return out
}

func mustLoadSiteConfig(path string) *siteconfig.Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Could not open site config file %q: %v", path, err)
	}
	cfg, err := siteconfig.Load(data)
	if err != nil {
		log.Fatalf("Could not parse site config file %q: %v", path, err)
	}
	log.Printf("Loaded site config %q: %d start URL(s), %d domain alias(es)", cfg.Name, len(cfg.StartURLs), len(cfg.Domains))
	return cfg
}

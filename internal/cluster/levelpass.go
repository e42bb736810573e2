package cluster

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/waxwing/abscrawl/internal/history"
	"github.com/waxwing/abscrawl/internal/page"
	"github.com/waxwing/abscrawl/internal/vector"
)

// LevelPass is the diagnostic companion to SimplePass: it groups the same
// records by their overall link "shape" and logs the median cluster size.
// Its output is advisory only -- nothing downstream reads it, and
// SimplePass remains the sole authoritative clustering.
func LevelPass(logger *log.Logger, records []*history.Record) {
	if logger == nil {
		logger = log.Default()
	}
	shapes := make(map[string][]*history.Record)
	order := make([]string, 0)
	for _, r := range records {
		sig := linkShape(r.Response.Page)
		if _, ok := shapes[sig]; !ok {
			order = append(order, sig)
		}
		shapes[sig] = append(shapes[sig], r)
	}

	sizes := make([]int, 0, len(shapes))
	for _, v := range shapes {
		sizes = append(sizes, len(v))
	}
	med := median(sizes)
	logger.Printf("cluster: %d distinct link shapes across %d pages, median cluster size %.1f", len(shapes), len(records), med)
	for _, sig := range order {
		n := len(shapes[sig])
		ratio := 0.0
		if med > 0 {
			ratio = float64(n) / med
		}
		logger.Printf("cluster:   shape %q -> %d pages (%.2fx median)", sig, n, ratio)
	}
}

// linkShape summarizes a page's anchors and forms as a single string: each
// anchor contributes its DOM path and URL vector, each form its method and
// action. Pages with no links at all collapse to one shared bin.
func linkShape(p *page.Page) string {
	if len(p.Links.Anchors) == 0 && len(p.Links.Forms) == 0 {
		return "<EMPTY>"
	}
	var b strings.Builder
	for _, a := range p.Links.Anchors {
		fmt.Fprintf(&b, "%s:%v;", vector.DOMPath(a.DOMPath), vector.URLVector(a.Href))
	}
	for _, f := range p.Links.Forms {
		fmt.Fprintf(&b, "F:%s:%s;", f.Method, f.Action)
	}
	return b.String()
}

func median(nums []int) float64 {
	if len(nums) == 0 {
		return 0
	}
	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return float64(sorted[n/2-1]+sorted[n/2]) / 2
	}
	return float64(sorted[n/2])
}

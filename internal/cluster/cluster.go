// Package cluster groups the concrete pages recorded in a crawl's history
// into equivalence classes for the abstract graph builder: an
// authoritative pass by exact link shape, and a diagnostic pass that only
// logs how well that clustering is doing.
package cluster

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/waxwing/abscrawl/internal/history"
	"github.com/waxwing/abscrawl/internal/page"
	"github.com/waxwing/abscrawl/internal/vector"
)

// Group is a set of history records whose response pages share the same
// request path and link shape -- the unit SimplePass produces and the
// Abstract Graph Builder turns into one AbstractPage.
type Group struct {
	Records []*history.Record
}

// SimplePass is the authoritative clustering: pages hash-bucketed by
// request path plus a fingerprint of their anchors and forms. Group order
// is the order each bucket was first seen, for deterministic output.
func SimplePass(records []*history.Record) []*Group {
	order := make([]uint64, 0, len(records))
	buckets := make(map[uint64]*Group, len(records))
	for _, r := range records {
		h := simpleHash(r)
		g, ok := buckets[h]
		if !ok {
			g = &Group{}
			buckets[h] = g
			order = append(order, h)
		}
		g.Records = append(g.Records, r)
	}
	out := make([]*Group, 0, len(order))
	for _, h := range order {
		out = append(out, buckets[h])
	}
	return out
}

// simpleHash keys a record by its query-free request path plus the link
// fingerprint of its response page, so query-param siblings of the same
// template land in the same bucket.
func simpleHash(r *history.Record) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s,%s", r.Request.Path, linksFingerprint(r.Response.Page))
	return h.Sum64()
}

func linksFingerprint(p *page.Page) string {
	var b strings.Builder
	for _, a := range p.Links.Anchors {
		fmt.Fprintf(&b, "A(%s,%s);", a.Href, vector.DOMPath(a.DOMPath))
	}
	for _, f := range p.Links.Forms {
		fmt.Fprintf(&b, "F(%s,%s,%v,%v,%v);", f.Method, f.Action, f.Inputs, f.Textareas, f.Selects)
	}
	return b.String()
}

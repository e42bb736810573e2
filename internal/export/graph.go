package export

import (
	"fmt"

	"github.com/emicklei/dot"
	"github.com/waxwing/abscrawl/internal/page"
)

// edgeKey groups the parallel edges a single dot.Edge should represent:
// same endpoints, same color/style.
type edgeKey struct {
	from, to     *page.Page
	color, style string
}

// BuildGraph renders the Page Map's canonical pages into a dot.Graph: one
// node per page whose aggregation is resolved (AGGREG_PENDING pages are
// still in flux and excluded), coloured by aggregation outcome, with one
// edge per distinct (source, target, color, style) combination, labelled
// with how many concrete links collapsed onto it.
func BuildGraph(pages []*page.Page) *dot.Graph {
	g := dot.NewGraph(dot.Directed)

	// Node ids are assigned per page *instance*: a status split leaves two
	// pages with equal content keys that must stay separate nodes.
	nodes := make(map[*page.Page]dot.Node, len(pages))
	for _, p := range pages {
		if p.Aggregation == page.AggregPending {
			continue
		}
		if _, ok := nodes[p]; ok {
			continue
		}
		n := g.Node(fmt.Sprintf("p%d", len(nodes))).Label(p.URL)
		switch p.Aggregation {
		case page.Aggregated:
			n.Attr("color", "green").Attr("style", "filled")
		case page.AggregImposs:
			n.Attr("color", "red").Attr("style", "filled")
		}
		nodes[p] = n
	}

	counts := make(map[edgeKey]int)
	order := make([]edgeKey, 0)
	for p := range nodes {
		for _, a := range p.Links.Anchors {
			addEdgeCount(nodes, counts, &order, p, a, "black")
		}
		for _, f := range p.Links.Forms {
			color := "blue"
			if f.Method == "post" {
				color = "purple"
			}
			addEdgeCount(nodes, counts, &order, p, f, color)
		}
	}

	for _, k := range order {
		from, to := nodes[k.from], nodes[k.to]
		e := g.Edge(from, to)
		e.Attr("color", k.color)
		e.Attr("style", k.style)
		e.Label(fmt.Sprintf("%d", counts[k]))
	}

	return g
}

func addEdgeCount(nodes map[*page.Page]dot.Node, counts map[edgeKey]int, order *[]edgeKey, from *page.Page, l page.Link, color string) {
	target := l.Target()
	if target == nil {
		return
	}
	if _, ok := nodes[target]; !ok {
		return
	}
	style := "solid"
	if l.NVisits() == 0 {
		style = "dotted"
	}
	k := edgeKey{from: from, to: target, color: color, style: style}
	if _, ok := counts[k]; !ok {
		*order = append(*order, k)
	}
	counts[k]++
}

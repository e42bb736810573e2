package graph

import (
	"errors"
	"fmt"

	"github.com/waxwing/abscrawl/internal/cluster"
	"github.com/waxwing/abscrawl/internal/history"
	"github.com/waxwing/abscrawl/internal/page"
)

// ErrEmptyHistory is returned by Build when handed a history log with no
// recorded navigation at all.
var ErrEmptyHistory = errors.New("graph: history is empty")

// PageClusters maps a concrete page to the AbstractPage its cluster.Group
// was turned into.
type PageClusters map[*page.Page]*AbstractPage

// BuildPageClusters turns cluster.SimplePass's groups into AbstractPages,
// one per group, and returns the lookup Build needs to resolve a history
// record's concrete page to its cluster.
func BuildPageClusters(groups []*cluster.Group) ([]*AbstractPage, PageClusters) {
	pages := make([]*AbstractPage, 0, len(groups))
	lookup := make(PageClusters)
	for _, g := range groups {
		if len(g.Records) == 0 {
			continue
		}
		ap := newAbstractPage(g.Records[0].Response.Page)
		for _, r := range g.Records {
			lookup[r.Response.Page] = ap
		}
		pages = append(pages, ap)
	}
	return pages, lookup
}

// Builder constructs the application graph from a crawl's History Log.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

func requestSignature(req history.Request) string {
	return req.Method + " " + req.FullPath()
}

// Build walks the log from its head, assigning every navigation step a
// fresh state number and linking AbstractRequests to AbstractPages and
// back. clusters must already map every page reachable from the log to an
// AbstractPage (see BuildPageClusters).
func (b *Builder) Build(log *history.Log, clusters PageClusters) (*Graph, error) {
	head := log.Head()
	if head == nil {
		return nil, ErrEmptyHistory
	}

	reqmap := make(map[string]*AbstractRequest)
	getRequest := func(req history.Request) *AbstractRequest {
		sig := requestSignature(req)
		ar, ok := reqmap[sig]
		if !ok {
			ar = newAbstractRequest(req.Method, req.FullPath())
			reqmap[sig] = ar
		}
		return ar
	}

	curr := head
	currAbsReq := getRequest(curr.Request)
	headAbsReq := currAbsReq
	state := 0

	for curr != nil {
		currPage := curr.Response.Page
		if currPage == nil {
			return nil, fmt.Errorf("graph: history record for %q has no page", curr.Request.FullPath())
		}
		currAbsPage, ok := clusters[currPage]
		if !ok {
			return nil, fmt.Errorf("graph: no cluster found for page %s", currPage.URL)
		}

		currAbsReq.SetTarget(state, &Target{Node: currAbsPage, Transition: state + 1})
		state++

		if curr.Next != nil {
			refPage := currPage
			refAbsPage := currAbsPage
			if curr.Next.BackTo != nil {
				refPage = curr.Next.BackTo.Response.Page
				refAbsPage, ok = clusters[refPage]
				if !ok {
					return nil, fmt.Errorf("graph: no cluster found for page %s", refPage.URL)
				}
			}
			// The next hop's recorded departure page is normally refPage
			// itself, but an aggregation merge or status split can have
			// replaced it with a canonical sibling of identical link shape;
			// that sibling's own cluster wins when it has one.
			if from := curr.Next.FromPage; from != nil && from != refPage {
				if ap, ok := clusters[from]; ok {
					refAbsPage = ap
				}
			}
			ref := curr.Next.FromRef
			nextAbsReq := getRequest(curr.Next.Request)

			link := refAbsPage.Link(ref)
			link.SetTarget(state, &Target{Node: nextAbsReq, Transition: state})
			refAbsPage.StateLinkMap[state] = link

			currAbsReq = nextAbsReq
		}

		curr = curr.Next
	}

	pages := make([]*AbstractPage, 0, len(clusters))
	seen := make(map[*AbstractPage]bool)
	for _, ap := range clusters {
		if !seen[ap] {
			seen[ap] = true
			pages = append(pages, ap)
		}
	}

	return &Graph{HeadRequest: headAbsReq, RequestMap: reqmap, Pages: pages, MaxState: state}, nil
}

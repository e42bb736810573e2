package cluster

import (
	"testing"

	"github.com/waxwing/abscrawl/internal/history"
	"github.com/waxwing/abscrawl/internal/page"
)

func rec(path string, p *page.Page) *history.Record {
	return &history.Record{
		Request:  history.Request{Method: "get", Path: path},
		Response: history.Response{Code: 200, Page: p},
	}
}

func TestSimplePassGroupsByPathAndLinkShape(t *testing.T) {
	a1 := page.New("/item?id=1", []*page.Anchor{page.NewAnchor("/", "/html/body/a")}, nil, nil)
	a2 := page.New("/item?id=2", []*page.Anchor{page.NewAnchor("/", "/html/body/a")}, nil, nil)
	b := page.New("/other", []*page.Anchor{page.NewAnchor("/x", "/html/body/a")}, nil, nil)

	groups := SimplePass([]*history.Record{
		rec("/item", a1),
		rec("/item", a2),
		rec("/other", b),
	})

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	sizes := map[int]bool{}
	for _, g := range groups {
		sizes[len(g.Records)] = true
	}
	if !sizes[2] || !sizes[1] {
		t.Fatalf("expected group sizes {2,1}, got groups %v", groups)
	}
}

func TestSimplePassSeparatesDifferentLinkShapes(t *testing.T) {
	withAnchor := page.New("/p", []*page.Anchor{page.NewAnchor("/x", "/html/body/a")}, nil, nil)
	withoutAnchor := page.New("/p", nil, nil, nil)

	groups := SimplePass([]*history.Record{rec("/p", withAnchor), rec("/p", withoutAnchor)})
	if len(groups) != 2 {
		t.Fatalf("expected pages with different link shapes to land in separate groups, got %d", len(groups))
	}
}

func TestSimplePassCollapsesPositionalDOMPathSiblings(t *testing.T) {
	first := page.New("/list?page=1", []*page.Anchor{page.NewAnchor("/", "/html/body/ul/li[1]/a")}, nil, nil)
	second := page.New("/list?page=2", []*page.Anchor{page.NewAnchor("/", "/html/body/ul/li[2]/a")}, nil, nil)

	groups := SimplePass([]*history.Record{rec("/list", first), rec("/list", second)})
	if len(groups) != 1 {
		t.Fatalf("expected pages differing only in positional DOM indices to share a group, got %d", len(groups))
	}
}

func TestLevelPassDoesNotPanicOnEmptyPages(t *testing.T) {
	empty := page.New("/empty", nil, nil, nil)
	LevelPass(nil, []*history.Record{rec("/empty", empty)})
}

package crawl

import (
	"context"
	"errors"
	"log"
	"testing"

	"github.com/waxwing/abscrawl/internal/fetch"
	"github.com/waxwing/abscrawl/internal/history"
	"github.com/waxwing/abscrawl/internal/page"
	"github.com/waxwing/abscrawl/internal/pagemap"
)

func newTestDriver(ff *fetch.FakeFetcher) *Driver {
	pm := pagemap.New(0, log.New(discard{}, "", 0))
	hist := history.New()
	return New(ff, pm, hist, nil, log.New(discard{}, "", 0))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRunVisitsEveryLinkAndBacksUpBetweenBranches(t *testing.T) {
	ff := fetch.NewFake()

	pageA := page.New("/a", []*page.Anchor{
		page.NewAnchor("/b", "/html/body/a[1]"),
		page.NewAnchor("/c", "/html/body/a[2]"),
	}, nil, nil)
	pageB := page.New("/b", nil, nil, nil)
	pageC := page.New("/c", nil, nil, nil)

	ff.Set("GET", "/a", fetch.Result{StatusCode: 200, Page: pageA})
	ff.Set("GET", "/b", fetch.Result{StatusCode: 200, Page: pageB})
	ff.Set("GET", "/c", fetch.Result{StatusCode: 200, Page: pageC})

	d := newTestDriver(ff)
	final, err := d.Run(context.Background(), "/a")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final.URL != "/c" {
		t.Fatalf("expected crawl to end on /c, got %s", final.URL)
	}
	if !d.PageMap().Unvisited.Empty() {
		t.Fatalf("expected every link resolved")
	}

	head := d.History().Head()
	if head.Response.Page.URL != "/a" {
		t.Fatalf("expected history to start at /a, got %s", head.Response.Page.URL)
	}
	if head.Next == nil || head.Next.Response.Page.URL != "/b" {
		t.Fatalf("expected second record at /b")
	}
	third := head.Next.Next
	if third == nil || third.Response.Page.URL != "/c" {
		t.Fatalf("expected third record at /c")
	}
	if third.BackTo == nil || third.BackTo.Response.Page.URL != "/a" {
		t.Fatalf("expected third record to carry a BackTo pointing at /a")
	}
	if third.FromPage != pageA {
		t.Fatalf("expected third record's FromPage to be page A")
	}
}

func TestRunSkipsUnsubmittableFormAndFinishes(t *testing.T) {
	ff := fetch.NewFake()

	form := page.NewForm("post", "/submit", []string{"q"}, nil, nil)
	pageA := page.New("/a", nil, []*page.Form{form}, nil)
	ff.Set("GET", "/a", fetch.Result{StatusCode: 200, Page: pageA})

	d := newTestDriver(ff)
	final, err := d.Run(context.Background(), "/a")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final.URL != "/a" {
		t.Fatalf("expected crawl to end on /a, got %s", final.URL)
	}
	if !form.Ignored() {
		t.Fatalf("expected the unsubmittable form to be marked ignored")
	}
	if !d.PageMap().Unvisited.Empty() {
		t.Fatalf("expected the worklist to be empty after the only link was ignored")
	}
}

func TestRunPropagatesFetchErrors(t *testing.T) {
	ff := fetch.NewFake()
	ff.SetError("GET", "/a", errors.New("connection refused"))

	d := newTestDriver(ff)
	_, err := d.Run(context.Background(), "/a")
	if err == nil {
		t.Fatalf("expected Run to surface the fetch error")
	}
}

func TestRunSplitsRequestPathAndCanonicalizesQuery(t *testing.T) {
	ff := fetch.NewFake()

	pageA := page.New("/a", []*page.Anchor{
		page.NewAnchor("/item?sort=asc&id=3", "/html/body/a[1]"),
	}, nil, nil)
	item := page.New("/item?sort=asc&id=3", nil, nil, nil)

	ff.Set("GET", "/a", fetch.Result{StatusCode: 200, Page: pageA})
	ff.Set("GET", "/item?sort=asc&id=3", fetch.Result{StatusCode: 200, Page: item})

	d := newTestDriver(ff)
	if _, err := d.Run(context.Background(), "/a"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec := d.History().Head().Next
	if rec == nil {
		t.Fatalf("expected a second history record for the anchor hop")
	}
	if rec.Request.Path != "/item" {
		t.Fatalf("expected a query-free request path, got %q", rec.Request.Path)
	}
	if rec.Request.Query != "id=3&sort=asc" {
		t.Fatalf("expected a key-sorted query, got %q", rec.Request.Query)
	}
}

func TestRunRecordsHTTPErrorAsPlaceholderPage(t *testing.T) {
	ff := fetch.NewFake()

	pageA := page.New("/a", []*page.Anchor{
		page.NewAnchor("/missing", "/html/body/a[1]"),
		page.NewAnchor("/b", "/html/body/a[2]"),
	}, nil, nil)
	pageB := page.New("/b", nil, nil, nil)

	ff.Set("GET", "/a", fetch.Result{StatusCode: 200, Page: pageA})
	ff.Set("GET", "/b", fetch.Result{StatusCode: 200, Page: pageB})
	// "/missing" is not registered; the fake answers 404.

	d := newTestDriver(ff)
	if _, err := d.Run(context.Background(), "/a"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	target := pageA.Links.Anchors[0].Target()
	if target == nil || target.URL != "404" {
		t.Fatalf("expected the dead anchor to resolve to a placeholder page named 404, got %v", target)
	}
	if !d.PageMap().Unvisited.Empty() {
		t.Fatalf("expected the crawl to continue past the 404 and drain the worklist")
	}
	if pageA.Links.Anchors[1].Target() != pageB {
		t.Fatalf("expected the remaining anchor to still be explored after the 404")
	}
}

func TestSplitPageClonesAndEntersStatusSplit(t *testing.T) {
	pm := pagemap.New(0, log.New(discard{}, "", 0))
	d := &Driver{pagemap: pm, logger: log.New(discard{}, "", 0)}

	root := page.New("/", []*page.Anchor{page.NewAnchor("/admin", "/html/body/a[1]")}, nil, nil)
	admin := page.New("/admin", []*page.Anchor{page.NewAnchor("/secret", "/html/body/a[1]")}, nil, nil)
	denied := page.New("/denied", nil, nil, nil)
	panel := page.New("/panel", nil, nil, nil)
	for _, p := range []*page.Page{root, admin, denied, panel} {
		pm.Insert(p)
	}

	rootRef := page.Ref{Kind: page.KindAnchor, Index: 0}
	root.Histories = [][]page.Step{{}}
	root.LinkTo(rootRef, admin)
	pm.Unvisited.Remove(root, rootRef)

	adminRef := page.Ref{Kind: page.KindAnchor, Index: 0}
	admin.Histories = [][]page.Step{{{Page: root, Link: rootRef}}}
	admin.LinkTo(adminRef, denied)
	pm.Unvisited.Remove(admin, adminRef)

	// the same anchor now leads to the admin panel instead: the single
	// identity assumed for /admin covered two server states.
	clone, err := d.splitPage(admin, adminRef, panel)
	if err != nil {
		t.Fatalf("splitPage: %v", err)
	}
	if clone == admin {
		t.Fatalf("expected a distinct page instance for the second state")
	}
	if root.Links.Anchors[0].Target() != clone {
		t.Fatalf("expected the single-visit predecessor link to be retargeted at the clone")
	}
	if admin.Links.Anchors[0].Target() != denied {
		t.Fatalf("expected the original page to keep its old resolution")
	}
	if clone.Links.Anchors[0].Target() != panel {
		t.Fatalf("expected the clone's link to resolve to the newly observed page")
	}
	if admin.Aggregation != page.StatusSplit || clone.Aggregation != page.StatusSplit {
		t.Fatalf("expected both identities to be marked STATUS_SPLIT, got %v / %v",
			admin.Aggregation, clone.Aggregation)
	}

	// re-inserting a page with /admin's content now canonicalizes to the
	// bucket's latest identity, the clone.
	again := page.New("/admin", []*page.Anchor{page.NewAnchor("/secret", "/html/body/a[1]")}, nil, nil)
	if got := pm.Insert(again); got != clone {
		t.Fatalf("expected a status-split bucket to canonicalize to its latest identity")
	}
}

func TestBFSToUnvisitedFindsShortestAnchorPath(t *testing.T) {
	pageA := page.New("/a", []*page.Anchor{page.NewAnchor("/b", "/html/body/a[1]")}, nil, nil)
	pageB := page.New("/b", []*page.Anchor{page.NewAnchor("/c", "/html/body/a[1]")}, nil, nil)
	pageC := page.New("/c", []*page.Anchor{page.NewAnchor("/d", "/html/body/a[1]")}, nil, nil)
	pageA.Histories = [][]page.Step{{}}
	pageA.LinkTo(page.Ref{Kind: page.KindAnchor, Index: 0}, pageB)
	pageB.LinkTo(page.Ref{Kind: page.KindAnchor, Index: 0}, pageC)

	d := &Driver{}
	path := d.bfsToUnvisited(pageA, page.KindAnchor, page.KindAnchor)
	if len(path) != 2 || path[0] != pageB || path[1] != pageC {
		t.Fatalf("expected path [B, C], got %v", path)
	}
}

func TestBFSToUnvisitedReturnsNilWhenUnreachable(t *testing.T) {
	pageA := page.New("/a", nil, nil, nil)

	d := &Driver{}
	path := d.bfsToUnvisited(pageA, page.KindAnchor, page.KindAnchor)
	if path != nil {
		t.Fatalf("expected no path from an isolated page, got %v", path)
	}
}

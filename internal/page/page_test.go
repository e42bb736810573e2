package page

import "testing"

func mkPage(url string, hrefs ...string) *Page {
	anchors := make([]*Anchor, len(hrefs))
	for i, h := range hrefs {
		anchors[i] = NewAnchor(h, "/html/body/a")
	}
	return New(url, anchors, nil, nil)
}

func TestTemplatizedKeyIgnoresQueryString(t *testing.T) {
	a := mkPage("/item?id=1", "/item?id=1")
	b := mkPage("/item?id=2", "/item?id=2")
	if a.TemplatizedKey() != b.TemplatizedKey() {
		t.Fatalf("expected equal templatized keys for query-variant pages, got %v vs %v",
			a.TemplatizedKey(), b.TemplatizedKey())
	}
	if a.ContentKey() == b.ContentKey() {
		t.Fatalf("expected distinct content keys for pages with different anchor hrefs")
	}
}

func TestLinkToSetsBackLinkAndNVisitsInvariant(t *testing.T) {
	p := mkPage("/a", "/b")
	q := mkPage("/b")
	p.Histories = [][]Step{{}}
	ref := Ref{KindAnchor, 0}

	if p.Links.Anchors[0].NVisits() != 0 || p.Links.Anchors[0].Target() != nil {
		t.Fatalf("unresolved link should have zero visits and nil target")
	}

	p.LinkTo(ref, q)

	if p.Links.Anchors[0].NVisits() == 0 {
		t.Fatalf("expected NVisits > 0 after LinkTo")
	}
	if p.Links.Anchors[0].Target() != q {
		t.Fatalf("expected target == q after LinkTo")
	}
	if _, ok := q.BackLinks[BackLink{Pred: p, Ref: ref}]; !ok {
		t.Fatalf("expected back-link (p, ref) registered on q")
	}
	// invariant: for every back-link (pred, ref) on q, pred.Links[ref].Target == q
	for bl := range q.BackLinks {
		if bl.Pred.Links.Get(bl.Ref).Target() != q {
			t.Fatalf("back-link invariant violated")
		}
	}
}

func TestCloneResetsLinkState(t *testing.T) {
	p := mkPage("/a", "/b", "/c")
	q := mkPage("/b")
	p.Histories = [][]Step{{}}
	p.LinkTo(Ref{KindAnchor, 0}, q)

	clone := p.Clone()
	if clone.Links.Anchors[0].NVisits() != 0 || clone.Links.Anchors[0].Target() != nil {
		t.Fatalf("expected clone to have fresh, unresolved links")
	}
	if len(clone.BackLinks) != 0 {
		t.Fatalf("expected clone to start with no back-links")
	}
	if clone.ContentKey() != p.ContentKey() {
		t.Fatalf("clone should retain the same content key")
	}
}

func TestUnvisitedTracksLinkResolution(t *testing.T) {
	p := mkPage("/a", "/b", "/c")
	u := NewUnvisited()
	u.AddPage(p)
	if u.Len(KindAnchor) != 2 {
		t.Fatalf("expected 2 unvisited anchors, got %d", u.Len(KindAnchor))
	}
	u.Remove(p, Ref{KindAnchor, 0})
	if u.Len(KindAnchor) != 1 {
		t.Fatalf("expected 1 unvisited anchor after remove, got %d", u.Len(KindAnchor))
	}
	// removing again is a no-op, not an error
	u.Remove(p, Ref{KindAnchor, 0})
	if u.Len(KindAnchor) != 1 {
		t.Fatalf("expected remove of an already-removed entry to be a no-op")
	}
}

package crawl

import (
	"context"
	"fmt"

	"github.com/waxwing/abscrawl/internal/page"
)

// findPathToUnvisited searches for a route from p to some page bearing an
// unvisited link, trying four passes in priority order: unvisited anchors
// reachable via anchors, then via anchors-or-forms; then the same two passes
// for unvisited forms. It returns nil if none of the four passes find one.
func (d *Driver) findPathToUnvisited(p *page.Page) []*page.Page {
	if d.pagemap.Unvisited.Len(page.KindAnchor) > 0 {
		if path := d.bfsToUnvisited(p, page.KindAnchor, page.KindAnchor); path != nil {
			return path
		}
		d.logger.Printf("crawl: unvisited anchors not reachable via anchors, trying forms too")
		if path := d.bfsToUnvisited(p, page.KindAnchor, page.KindForm); path != nil {
			return path
		}
		d.logger.Printf("crawl: unvisited anchors not reachable at all")
	}
	if d.pagemap.Unvisited.Len(page.KindForm) > 0 {
		if path := d.bfsToUnvisited(p, page.KindForm, page.KindAnchor); path != nil {
			return path
		}
		d.logger.Printf("crawl: unvisited forms not reachable via anchors, trying forms too")
		if path := d.bfsToUnvisited(p, page.KindForm, page.KindForm); path != nil {
			return path
		}
		d.logger.Printf("crawl: unvisited forms not reachable at all")
	}
	return nil
}

// bfsToUnvisited runs a breadth-first search from start, following only
// anchors when how is KindAnchor and anchors and forms when how is
// KindForm, until it reaches a page with an unvisited link of kind what. It returns the path of pages to walk through (excluding start,
// including the page the unvisited link was found on), or nil.
func (d *Driver) bfsToUnvisited(start *page.Page, what, how page.Kind) []*page.Page {
	visited := map[*page.Page]bool{start: true}
	parent := map[*page.Page]*page.Page{}
	queue := []*page.Page{start}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		if curr != start {
			if _, ok := unvisitedOfKind(curr, what); ok {
				return reconstructPath(parent, start, curr)
			}
		}

		for _, l := range curr.Links.Iter(how) {
			t := l.Target()
			if t == nil || visited[t] {
				continue
			}
			visited[t] = true
			parent[t] = curr
			queue = append(queue, t)
		}
	}
	return nil
}

func reconstructPath(parent map[*page.Page]*page.Page, start, end *page.Page) []*page.Page {
	var path []*page.Page
	for n := end; n != start; n = parent[n] {
		path = append([]*page.Page{n}, path...)
	}
	return path
}

func unvisitedOfKind(p *page.Page, what page.Kind) (page.Ref, bool) {
	if what == page.KindAnchor {
		for i, a := range p.Links.Anchors {
			if a.Target() == nil && !a.Ignored() {
				return page.Ref{Kind: page.KindAnchor, Index: i}, true
			}
		}
		return page.Ref{}, false
	}
	for i, f := range p.Links.Forms {
		if f.Target() == nil && !f.Ignored() {
			return page.Ref{Kind: page.KindForm, Index: i}, true
		}
	}
	return page.Ref{}, false
}

// navigatePath re-walks a path of already-resolved links discovered earlier
// in the crawl. Most of the time every hop lands where expected and this is
// just replaying clicks; but the live site can drift (a session expiring
// mid-crawl, server-side state the Page Map has no visibility into), so each
// hop is checked against the page the path predicted. A single-use link that
// now leads somewhere else is simply repointed; a link visited this way more
// than once diverging means the page needs to be split into two states.
func (d *Driver) navigatePath(ctx context.Context, start *page.Page, path []*page.Page) (*page.Page, error) {
	curr := start
	for _, target := range path {
		ref, ok := findLinkTo(curr, target)
		if !ok {
			return nil, fmt.Errorf("crawl: %s has no resolved link to %s", curr.URL, target.URL)
		}
		link := curr.Links.Get(ref)

		newp, err := d.doAction(ctx, curr, ref)
		if err != nil {
			return nil, err
		}

		if newp == target {
			link.Visit()
			curr = newp
			continue
		}

		if link.NVisits() == 1 {
			d.logger.Printf("crawl: %s now leads to %s instead of %s, repointing", curr.URL, newp.URL, target.URL)
			link.Reset()
			d.updateOutLinks(curr, ref, newp)
			return newp, nil
		}

		d.logger.Printf("crawl: %s unexpectedly leads to %s instead of %s, splitting", curr.URL, newp.URL, target.URL)
		cloned, err := d.splitPage(curr, ref, newp)
		if err != nil {
			return nil, err
		}
		d.current = append(append([]page.Step{}, cloned.Histories[len(cloned.Histories)-1]...), page.Step{Page: cloned, Link: ref})
		newp.Histories[len(newp.Histories)-1] = append([]page.Step(nil), d.current...)
		return newp, nil
	}
	return curr, nil
}

func findLinkTo(curr, target *page.Page) (page.Ref, bool) {
	for _, e := range curr.Links.Enumerate() {
		if e.Link.Target() == target {
			return e.Ref, true
		}
	}
	return page.Ref{}, false
}

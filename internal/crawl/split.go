package crawl

import (
	"fmt"

	"github.com/waxwing/abscrawl/internal/page"
)

// splitPage recovers from a Page Map assumption that turned out wrong: curr
// was treated as a single state, but following ref from curr can now lead to
// newp as well as whatever it already led to. It manufactures (or reuses) a
// distinct page instance for this route, repoints the single predecessor
// link that brought us to curr along this route to the new instance instead,
// and recurses backward if that predecessor link was itself shared across
// more than one route -- the whole chain of assumed-identical pages back to
// the nearest fork has to be split, not just curr.
func (d *Driver) splitPage(curr *page.Page, ref page.Ref, newp *page.Page) (*page.Page, error) {
	d.logger.Printf("crawl: splitting %s", curr.URL)

	cloned := d.pagemap.FindClone(curr, ref, newp)
	if cloned == nil {
		cloned = curr.Clone()
	}

	route, err := lastRoute(curr)
	if err != nil {
		return nil, err
	}
	prev := route[len(route)-1]
	prevLink := prev.Page.Links.Get(prev.Link)
	if prevLink.NVisits() == 0 {
		panic("crawl: splitPage predecessor link was never visited")
	}

	if prevLink.NVisits() > 1 {
		clonedPrev, err := d.splitPage(prev.Page, prev.Link, cloned)
		if err != nil {
			return nil, err
		}
		prevRoute, err := lastRoute(clonedPrev)
		if err != nil {
			return nil, err
		}
		cloned.Histories = append(cloned.Histories, append(append([]page.Step{}, prevRoute...), page.Step{Page: clonedPrev, Link: prev.Link}))
	} else {
		prevLink.SetTarget(cloned)
		cloned.Histories = append(cloned.Histories, append([]page.Step(nil), route...))
	}

	if link := cloned.Links.Get(ref); link.NVisits() > 0 {
		if link.Target() != newp {
			return nil, fmt.Errorf("crawl: clone of %s already has a conflicting target for this link", cloned.URL)
		}
		link.Visit()
	} else {
		cloned.LinkTo(ref, newp)
	}

	d.pagemap.SetLatest(cloned)
	return cloned, nil
}

func lastRoute(p *page.Page) ([]page.Step, error) {
	if len(p.Histories) == 0 {
		return nil, fmt.Errorf("crawl: %s has no recorded route to split from", p.URL)
	}
	route := p.Histories[len(p.Histories)-1]
	if len(route) == 0 {
		return nil, fmt.Errorf("crawl: %s has an empty recorded route", p.URL)
	}
	return route, nil
}

// Package crawl implements the Crawl Driver: the outer loop that walks the
// live site one navigation at a time, consulting the Page Map to decide what
// is still unexplored, and reconciling the Page Map's aggregation guesses
// against what actually happens when two supposedly-identical pages turn out
// to diverge.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/waxwing/abscrawl/internal/fetch"
	"github.com/waxwing/abscrawl/internal/formfill"
	"github.com/waxwing/abscrawl/internal/history"
	"github.com/waxwing/abscrawl/internal/page"
	"github.com/waxwing/abscrawl/internal/pagemap"
	"github.com/waxwing/abscrawl/internal/vector"
)

// Driver owns one crawl from a start URL to exhaustion (or cancellation):
// fetching, canonicalizing through the Page Map, recording the doubly-linked
// navigation history, and recovering from aggregation mistakes via splits.
type Driver struct {
	fetcher fetch.Fetcher
	pagemap *pagemap.Map
	history *history.Log
	filler  *formfill.Filler
	logger  *log.Logger

	// current is the route walked so far in this crawl, appended to on
	// every action regardless of intervening backtracking; only its last
	// hop is ever consulted (by processPage and splitPage), so staleness further back
	// never surfaces as a bug.
	current []page.Step
}

// New builds a Driver. filler and logger may be nil; a nil filler leaves
// every form submitted with no values, a nil logger uses log.Default().
func New(fetcher fetch.Fetcher, pm *pagemap.Map, hist *history.Log, filler *formfill.Filler, logger *log.Logger) *Driver {
	if filler == nil {
		filler = formfill.New()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{fetcher: fetcher, pagemap: pm, history: hist, filler: filler, logger: logger}
}

func (d *Driver) PageMap() *pagemap.Map { return d.pagemap }
func (d *Driver) History() *history.Log { return d.history }

// Run drives the crawl from startURL until the Page Map has nothing left
// unvisited or ctx is cancelled. It returns the last page the crawl was at.
func (d *Driver) Run(ctx context.Context, startURL string) (*page.Page, error) {
	p, err := d.open(ctx, startURL)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return p, err
		}

		ref, np, done, err := d.findNextStep(ctx, p)
		if err != nil {
			return p, err
		}
		if done {
			return np, nil
		}
		p = np

		newp, doErr := d.doAction(ctx, p, ref)
		if doErr != nil {
			if errors.Is(doErr, fetch.ErrUnsubmittableForm) {
				d.logger.Printf("crawl: form at %s has no submit control, ignoring", p.URL)
				p.Links.Get(ref).SetIgnored(true)
				d.pagemap.Unvisited.Remove(p, ref)
			} else {
				return p, doErr
			}
		} else {
			d.updateOutLinks(p, ref, newp)
			d.pagemap.CheckAggregatable(p)
			p = newp
		}
	}
}

func (d *Driver) open(ctx context.Context, rawurl string) (*page.Page, error) {
	result, err := d.fetcher.Fetch(ctx, "GET", rawurl, nil)
	if err != nil {
		return nil, err
	}
	start := pageFromResult(result)
	start = d.pagemap.Insert(start)
	start.Histories = append(start.Histories, []page.Step{})
	d.current = nil

	d.history.Append(requestFor("get", rawurl), history.Response{Code: result.StatusCode, Page: start})
	return start, nil
}

// requestFor splits rawurl into a query-free path and a canonicalized
// (key-sorted) query string, the request shape the clusterer and the
// abstract graph builder key on.
func requestFor(method, rawurl string) history.Request {
	path, query, _ := strings.Cut(rawurl, "?")
	return history.Request{Method: method, Path: path, Query: vector.CanonicalQuery(query)}
}

// pageFromResult turns a fetch outcome into the page the rest of the system
// sees: the parsed page on success, or a placeholder page named after the
// status code when the response wasn't HTML or wasn't a success code, so a
// failing response becomes an ordinary (if linkless) page in the crawl
// rather than aborting it.
func pageFromResult(r fetch.Result) *page.Page {
	if r.StatusCode < 200 || r.StatusCode >= 300 || r.Page == nil {
		return page.New(fmt.Sprintf("%d", r.StatusCode), nil, nil, nil)
	}
	return r.Page
}

// processPage reports the next unresolved link to explore on p, or false if
// there is none. A bucket still AGGREG_PENDING is left alone -- exploring it
// further would only produce more members to aggregate -- and the link that
// led to it is marked ignored so the Crawl Driver doesn't try to reach it
// again via the same route.
func (d *Driver) processPage(p *page.Page) (page.Ref, bool) {
	if p.Aggregation == page.AggregPending {
		d.logger.Printf("crawl: not exploring further into pending bucket at %s", p.URL)
		if len(p.Histories) > 0 {
			last := p.Histories[len(p.Histories)-1]
			if len(last) > 0 {
				prev := last[len(last)-1]
				prev.Page.Links.Get(prev.Link).SetIgnored(true)
			}
		}
		return page.Ref{}, false
	}
	return p.GetUnvisitedLink()
}

// doAction performs the fetch for ref, canonicalizes the result through the
// Page Map, records it in the navigation history (both the doubly-linked
// Abstract Graph Builder input and the per-page route bookkeeping used by
// splitPage), and returns the resulting page. It does not resolve the link
// itself -- that's updateOutLinks's job, called separately so a failed
// action can be distinguished from a successful one before any link state
// changes.
func (d *Driver) doAction(ctx context.Context, curr *page.Page, ref page.Ref) (*page.Page, error) {
	link := curr.Links.Get(ref)

	var result fetch.Result
	var err error
	var method, rawurl string

	switch ref.Kind {
	case page.KindAnchor:
		a := link.(*page.Anchor)
		method, rawurl = "get", a.Href
		result, err = d.fetcher.Fetch(ctx, "GET", a.Href, nil)
	case page.KindForm:
		f := link.(*page.Form)
		if !f.Submittable() {
			return nil, fetch.ErrUnsubmittableForm
		}
		values := url.Values{}
		if filled, ferr := d.filler.Fill(f.FormKeys()); ferr == nil {
			for k, v := range filled {
				values.Set(k, v)
			}
		}
		method, rawurl = f.Method, f.Action
		result, err = d.fetcher.Fetch(ctx, strings.ToUpper(f.Method), f.Action, values)
	}
	if err != nil {
		return nil, err
	}

	newp := pageFromResult(result)
	newp = d.pagemap.Insert(newp)

	rec := d.history.Append(requestFor(method, rawurl), history.Response{Code: result.StatusCode, Page: newp})
	rec.FromPage = curr
	rec.FromRef = ref

	d.current = append(append([]page.Step{}, d.current...), page.Step{Page: curr, Link: ref})
	newp.Histories = append(newp.Histories, append([]page.Step(nil), d.current...))

	return newp, nil
}

// updateOutLinks resolves ref on curr to newp and drops it from the
// worklist -- called after a successful doAction, never after a failed one.
func (d *Driver) updateOutLinks(curr *page.Page, ref page.Ref, newp *page.Page) {
	curr.LinkTo(ref, newp)
	d.pagemap.Unvisited.Remove(curr, ref)
}

// findNextStep decides what to do once processPage on p has nothing left:
// look for a path to some other page with an unvisited link and walk there,
// or back up if none can be found. It loops until processPage finds an
// action, the worklist empties (done), or an error interrupts the search.
func (d *Driver) findNextStep(ctx context.Context, p *page.Page) (page.Ref, *page.Page, bool, error) {
	for {
		if ref, ok := d.processPage(p); ok {
			return ref, p, false, nil
		}

		if d.pagemap.Unvisited.Empty() {
			d.logger.Printf("crawl: nothing left unvisited")
			return page.Ref{}, p, true, nil
		}

		var path []*page.Page
		if p.Aggregation != page.AggregPending {
			path = d.findPathToUnvisited(p)
		}

		if path != nil {
			d.logger.Printf("crawl: found path of length %d from %s", len(path), p.URL)
			newp, err := d.navigatePath(ctx, p, path)
			if err != nil {
				return page.Ref{}, nil, false, err
			}
			p = newp
			continue
		}

		d.logger.Printf("crawl: no path to an unvisited link, stepping back")
		rec, err := d.history.Back()
		if err != nil {
			return page.Ref{}, nil, false, err
		}
		p = d.pagemap.Insert(rec.Response.Page)
	}
}

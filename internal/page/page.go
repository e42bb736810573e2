package page

import (
	"fmt"
	"hash/fnv"
)

// Aggregation is the label carried by a page-map bucket and mirrored onto
// its member pages. NOT_AGGREG may move to AGGREG_PENDING or STATUS_SPLIT;
// AGGREG_PENDING resolves to AGGREGATED or AGGREG_IMPOSS; all other
// transitions are illegal.
type Aggregation int

const (
	NotAggreg Aggregation = iota
	AggregPending
	Aggregated
	AggregImposs
	StatusSplit
)

func (a Aggregation) String() string {
	switch a {
	case AggregPending:
		return "AGGREG_PENDING"
	case Aggregated:
		return "AGGREGATED"
	case AggregImposs:
		return "AGGREG_IMPOSS"
	case StatusSplit:
		return "STATUS_SPLIT"
	default:
		return "NOT_AGGREG"
	}
}

// ContentKey is the content-derived identity of a concrete Page: a hash over
// the URL, the ordered anchor/form hashes, and cookies. Two Page values with
// the same ContentKey are treated as the same page.
type ContentKey uint64

// TemplatizedKey groups concrete pages by link template: it is a hash over
// the query-stripped anchor hrefs, the form hashes and the cookies. The
// page's own URL is not part of it, so pages whose links differ only in
// query string collapse into the same Inner bucket.
type TemplatizedKey uint64

// BackLink is a reverse edge: q.BackLinks holds (p, ref) for every resolved
// link p.Links[ref] whose target is q.
type BackLink struct {
	Pred *Page
	Ref  Ref
}

// Page is a concrete, content-hashed page in the crawl.
type Page struct {
	URL     string
	Links   Links
	Cookies []string

	contentKey     ContentKey
	templatizedKey TemplatizedKey

	// Histories is the list of routes by which this page has been reached;
	// each route is itself an ordered sequence of (page, ref) hops. It grows
	// monotonically as new paths to the page are discovered.
	Histories [][]Step

	// BackLinks is the unordered set of (predecessor, ref) pairs currently
	// resolving to this page.
	BackLinks map[BackLink]struct{}

	Aggregation Aggregation
}

// New builds a concrete Page and computes its content/templatized keys.
// anchors and forms must already have their Href/DOMPath (or
// Method/Action/field lists) populated; Target/NVisits/Ignore/History start
// zero-valued.
func New(url string, anchors []*Anchor, forms []*Form, cookies []string) *Page {
	p := &Page{
		URL:       url,
		Links:     Links{Anchors: anchors, Forms: forms},
		Cookies:   cookies,
		BackLinks: make(map[BackLink]struct{}),
	}
	p.contentKey = hashString(fmt.Sprintf("Page(%s,%s,%v)", p.URL, p.Links.hashData(), p.Cookies))
	p.templatizedKey = TemplatizedKey(hashString(fmt.Sprintf("TemplatizedPage(%s,%v)", p.Links.strippedHashData(), p.Cookies)))
	return p
}

func hashString(s string) ContentKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return ContentKey(h.Sum64())
}

// ContentKey returns the page's content-derived identity.
func (p *Page) ContentKey() ContentKey { return p.contentKey }

// TemplatizedKey returns the page's link-template identity (anchor query
// strings stripped, page URL excluded).
func (p *Page) TemplatizedKey() TemplatizedKey { return p.templatizedKey }

// SameContent reports content-hash equality.
func (p *Page) SameContent(o *Page) bool { return p.contentKey == o.contentKey }

// LinkTo resolves the link at ref to point at target, records the
// back-link on target, and snapshots the page's most recent history onto
// the link.
func (p *Page) LinkTo(ref Ref, target *Page) {
	l := p.Links.Get(ref)
	if l.NVisits() != 0 {
		panic("page: LinkTo called on an already-resolved link")
	}
	l.Visit()
	l.SetTarget(target)
	if len(p.Histories) > 0 {
		l.SetHistory(p.Histories[len(p.Histories)-1])
	}
	target.BackLinks[BackLink{Pred: p, Ref: ref}] = struct{}{}
}

// GetUnvisitedLink returns the first unresolved link on the page, if any.
func (p *Page) GetUnvisitedLink() (Ref, bool) {
	return p.Links.GetUnvisited(KindForm)
}

// Clone deep-copies the page for a status split: fresh link state (no
// targets, zero visits), empty back-links and histories, same content key
// (it denotes the same URL template and link shape) but a distinct pointer
// identity, which is what a status-split bucket keys its members by.
func (p *Page) Clone() *Page {
	c := &Page{
		URL:            p.URL,
		Links:          p.Links.Clone(),
		Cookies:        append([]string(nil), p.Cookies...),
		contentKey:     p.contentKey,
		templatizedKey: p.templatizedKey,
		BackLinks:      make(map[BackLink]struct{}),
		Aggregation:    p.Aggregation,
	}
	return c
}

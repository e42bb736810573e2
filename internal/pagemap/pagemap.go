// Package pagemap implements the page map and aggregation engine: the
// concrete-to-equivalence-class index that decides when a family of
// templatized-URL pages may be collapsed into one, performs that merge and
// its back-link rewrite, and recovers via a status split when the identity
// assumption turns out to be wrong.
package pagemap

import (
	"fmt"
	"log"

	"github.com/waxwing/abscrawl/internal/page"
)

// DefaultSimilarityJoinThreshold is the bucket size at which a freshly-seen
// family of same-template pages becomes a candidate for aggregation.
const DefaultSimilarityJoinThreshold = 3

// inner is the per-templatized-key bucket: the set of concrete pages seen
// under that template, plus aggregation metadata.
type inner struct {
	byContent map[page.ContentKey]*page.Page
	byExact   map[*page.Page]*page.Page

	original    *page.Page
	merged      *page.Page
	latest      *page.Page
	aggregation page.Aggregation
}

func newInner(p *page.Page) *inner {
	return &inner{
		byContent:   map[page.ContentKey]*page.Page{p.ContentKey(): p},
		original:    p,
		aggregation: page.NotAggreg,
	}
}

// members returns every concrete page currently tracked by the bucket,
// regardless of which representation (content-keyed or exact-keyed) is
// active.
func (in *inner) members() []*page.Page {
	if in.aggregation == page.StatusSplit {
		out := make([]*page.Page, 0, len(in.byExact))
		for _, p := range in.byExact {
			out = append(out, p)
		}
		return out
	}
	out := make([]*page.Page, 0, len(in.byContent))
	for _, p := range in.byContent {
		out = append(out, p)
	}
	return out
}

// Map is the Page Map: the central ingest index keyed by templatized URL.
type Map struct {
	logger    *log.Logger
	threshold int
	buckets   map[page.TemplatizedKey]*inner
	Unvisited *page.Unvisited
}

// New creates an empty Page Map. threshold <= 0 selects
// DefaultSimilarityJoinThreshold.
func New(threshold int, logger *log.Logger) *Map {
	if threshold <= 0 {
		threshold = DefaultSimilarityJoinThreshold
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Map{
		logger:    logger,
		threshold: threshold,
		buckets:   make(map[page.TemplatizedKey]*inner),
		Unvisited: page.NewUnvisited(),
	}
}

// Insert is the Page Map's central operation: it canonicalizes p against
// the bucket for its templatized key and returns the page the rest of the
// system should actually use in p's place.
func (m *Map) Insert(p *page.Page) *page.Page {
	tkey := p.TemplatizedKey()
	in, ok := m.buckets[tkey]
	if !ok {
		m.logger.Printf("pagemap: new page %s", p.URL)
		m.buckets[tkey] = newInner(p)
		m.Unvisited.AddPage(p)
		return p
	}

	if in.aggregation == page.StatusSplit {
		m.logger.Printf("pagemap: known status-split page %s", p.URL)
		return in.latest
	}

	existing, known := in.byContent[p.ContentKey()]
	switch in.aggregation {
	case page.Aggregated:
		if known {
			m.logger.Printf("pagemap: known aggregated page %s", p.URL)
			return in.merged
		}
		m.logger.Printf("pagemap: new aggregated page %s", p.URL)
		in.byContent[p.ContentKey()] = p
		return in.merged
	case page.AggregPending, page.AggregImposs:
		if known {
			m.logger.Printf("pagemap: known aggregatable page %s", p.URL)
			return existing
		}
		m.logger.Printf("pagemap: new aggregatable page %s", p.URL)
		in.byContent[p.ContentKey()] = p
		p.Aggregation = page.AggregPending
		return p
	default: // NotAggreg
		if known {
			m.logger.Printf("pagemap: known page %s", p.URL)
			return existing
		}
		m.logger.Printf("pagemap: new similar page %s", p.URL)
		in.byContent[p.ContentKey()] = p
		if len(in.byContent) >= m.threshold {
			m.logger.Printf("pagemap: bucket reached join threshold, marking AGGREG_PENDING")
			in.aggregation = page.AggregPending
		}
		m.Unvisited.AddPage(p)
		return p
	}
}

// CheckAggregatable is invoked after every successful navigation from p. It
// only acts when p's bucket is AGGREG_PENDING and every non-pending member
// has no unvisited links left; otherwise it is a no-op.
func (m *Map) CheckAggregatable(p *page.Page) {
	in := m.buckets[p.TemplatizedKey()]
	if in.aggregation != page.AggregPending {
		return
	}
	for _, member := range in.members() {
		if member.Aggregation == page.AggregPending {
			continue
		}
		if _, ok := member.GetUnvisitedLink(); ok {
			return
		}
	}

	if m.aggregatable(in) {
		m.logger.Printf("pagemap: aggregating bucket for %s", in.original.URL)
		in.merged = in.original
		in.aggregation = page.Aggregated
		in.merged.Aggregation = page.Aggregated
		for _, member := range in.members() {
			member.Aggregation = page.Aggregated
			for bl := range member.BackLinks {
				link := bl.Pred.Links.Get(bl.Ref)
				if link.Target() != member {
					panic(fmt.Sprintf("pagemap: back-link invariant violated for %s", bl.Pred.URL))
				}
				link.SetTarget(in.merged)
			}
		}
	} else {
		m.logger.Printf("pagemap: impossible to aggregate bucket for %s", in.original.URL)
		in.aggregation = page.AggregImposs
		for _, member := range in.members() {
			if member.Aggregation != page.AggregPending {
				member.Aggregation = page.AggregImposs
			}
		}
	}
}

// aggregatable implements the per-position target-set test: for every link
// position in the template, either every resolved target across non-pending
// members agrees, or every distinct target is itself a bucket member
// (self-loops among the equivalence class are tolerated).
func (m *Map) aggregatable(in *inner) bool {
	for _, entry := range in.original.Links.Enumerate() {
		targets := make(map[*page.Page]struct{})
		for _, member := range in.members() {
			if member.Aggregation == page.AggregPending {
				continue
			}
			targets[member.Links.Get(entry.Ref).Target()] = struct{}{}
		}
		if len(targets) > 1 {
			for t := range targets {
				if t == nil {
					return false
				}
				if _, ok := in.byContent[t.ContentKey()]; !ok {
					return false
				}
			}
		}
	}
	return true
}

// SetLatest is the status-split entry point. It is legal only when the
// bucket is NOT_AGGREG (exactly one existing member) or already
// STATUS_SPLIT.
func (m *Map) SetLatest(p *page.Page) {
	in := m.buckets[p.TemplatizedKey()]
	if in.aggregation != page.NotAggreg && in.aggregation != page.StatusSplit {
		panic("pagemap: mixing aggregation and status splitting is not supported")
	}
	in.latest = p
	if in.aggregation == page.StatusSplit {
		if in.byExact == nil {
			in.byExact = make(map[*page.Page]*page.Page)
		}
		in.byExact[p] = p
		p.Aggregation = page.StatusSplit
		return
	}
	if len(in.byContent) != 1 {
		panic(fmt.Sprintf("pagemap: expected exactly one member before status split, got %d", len(in.byContent)))
	}
	var oldpage *page.Page
	for _, v := range in.byContent {
		oldpage = v
	}
	if oldpage == p {
		panic("pagemap: status split requires a distinct page instance")
	}
	in.byContent = map[page.ContentKey]*page.Page{}
	in.byExact = map[*page.Page]*page.Page{oldpage: oldpage, p: p}
	in.aggregation = page.StatusSplit
	oldpage.Aggregation = page.StatusSplit
	p.Aggregation = page.StatusSplit
}

// FindClone searches p's bucket for a sibling page whose link at ref
// already resolves to target (or to target's exact identity), for reuse
// instead of cloning p again.
func (m *Map) FindClone(p *page.Page, ref page.Ref, target *page.Page) *page.Page {
	in := m.buckets[p.TemplatizedKey()]
	for _, member := range in.members() {
		if member == p {
			continue
		}
		mtarget := member.Links.Get(ref).Target()
		if mtarget == nil {
			continue
		}
		if (mtarget.Aggregation != page.StatusSplit && mtarget.SameContent(target)) || mtarget == target {
			return member
		}
	}
	return nil
}

// All iterates every page the map currently considers canonical: the merged
// representative for an AGGREGATED bucket, or every tracked member
// otherwise.
func (m *Map) All() []*page.Page {
	var out []*page.Page
	for _, in := range m.buckets {
		if in.merged != nil {
			out = append(out, in.merged)
			continue
		}
		out = append(out, in.members()...)
	}
	return out
}

// Package graph implements the abstract graph builder and state reducer:
// the pass that turns a crawl's concrete history log plus its page
// clustering into a labelled state machine, and then collapses states that
// turned out to be behaviorally identical.
package graph

import "github.com/waxwing/abscrawl/internal/page"

// Node is either an *AbstractPage or an *AbstractRequest: the two node
// kinds the application graph alternates between (request -> page ->
// request -> ...).
type Node interface {
	isGraphNode()
}

// Target is one outgoing edge, labelled by the state it was taken in: the
// node it leads to, the state the graph transitions to, and how many times
// the concrete crawl actually took it.
type Target struct {
	Node       Node
	Transition int
	NVisits    int
}

// AbstractLink is the shared shape of AbstractAnchor and AbstractForm: a
// link position on an AbstractPage, carrying one Target per state in which
// it was followed.
type AbstractLink interface {
	Kind() page.Kind
	Index() int
	Targets() map[int]*Target
	SetTarget(state int, t *Target)
}

type abstractLink struct {
	kind    page.Kind
	index   int
	targets map[int]*Target
}

func (l *abstractLink) Kind() page.Kind          { return l.kind }
func (l *abstractLink) Index() int               { return l.index }
func (l *abstractLink) Targets() map[int]*Target { return l.targets }

func (l *abstractLink) SetTarget(state int, t *Target) {
	if _, ok := l.targets[state]; ok {
		panic("graph: target already set for this state")
	}
	l.targets[state] = t
}

// AbstractAnchor is the abstract counterpart of page.Anchor: one per anchor
// position shared by every concrete page in an AbstractPage's cluster.
type AbstractAnchor struct{ abstractLink }

// AbstractForm is the abstract counterpart of page.Form.
type AbstractForm struct{ abstractLink }

func newAbstractAnchor(i int) *AbstractAnchor {
	return &AbstractAnchor{abstractLink{kind: page.KindAnchor, index: i, targets: map[int]*Target{}}}
}

func newAbstractForm(i int) *AbstractForm {
	return &AbstractForm{abstractLink{kind: page.KindForm, index: i, targets: map[int]*Target{}}}
}

// AbstractPage is one node of the application graph's page side: the
// equivalence class a cluster.Group collapsed to, carrying one
// AbstractAnchor/AbstractForm per link position and a map from state to
// whichever link was actually followed while the graph was in that state.
type AbstractPage struct {
	Anchors []*AbstractAnchor
	Forms   []*AbstractForm

	// StateLinkMap records, for every state this page was entered in and
	// then left via a link, which link that was.
	StateLinkMap map[int]AbstractLink

	// Sample is a representative concrete page from the cluster, whose link
	// lists size Anchors and Forms -- never consulted for identity.
	Sample *page.Page
}

func (*AbstractPage) isGraphNode() {}

func newAbstractPage(sample *page.Page) *AbstractPage {
	ap := &AbstractPage{StateLinkMap: map[int]AbstractLink{}, Sample: sample}
	for i := range sample.Links.Anchors {
		ap.Anchors = append(ap.Anchors, newAbstractAnchor(i))
	}
	for i := range sample.Links.Forms {
		ap.Forms = append(ap.Forms, newAbstractForm(i))
	}
	return ap
}

// Link resolves a concrete Ref to this AbstractPage's corresponding link --
// valid because every member of a cluster shares the same link shape.
func (ap *AbstractPage) Link(ref page.Ref) AbstractLink {
	if ref.Kind == page.KindAnchor {
		return ap.Anchors[ref.Index]
	}
	return ap.Forms[ref.Index]
}

// Links returns every anchor and form link on the page, anchors first.
func (ap *AbstractPage) Links() []AbstractLink {
	out := make([]AbstractLink, 0, len(ap.Anchors)+len(ap.Forms))
	for _, a := range ap.Anchors {
		out = append(out, a)
	}
	for _, f := range ap.Forms {
		out = append(out, f)
	}
	return out
}

// AbstractRequest is one node of the application graph's request side: a
// distinct (method, path plus canonical query) signature, carrying one Target per state the
// crawl issued that request in.
type AbstractRequest struct {
	Method string
	Path   string

	targets map[int]*Target
}

func (*AbstractRequest) isGraphNode() {}

func newAbstractRequest(method, path string) *AbstractRequest {
	return &AbstractRequest{Method: method, Path: path, targets: map[int]*Target{}}
}

func (r *AbstractRequest) Targets() map[int]*Target { return r.targets }

func (r *AbstractRequest) SetTarget(state int, t *Target) {
	if _, ok := r.targets[state]; ok {
		panic("graph: request target already set for this state")
	}
	r.targets[state] = t
}

// Graph is the full application graph produced by Builder.Build.
type Graph struct {
	HeadRequest *AbstractRequest
	RequestMap  map[string]*AbstractRequest
	Pages       []*AbstractPage
	MaxState    int
}

// Package page implements the concrete page model: anchors, forms, the
// content-derived Page identity, and the worklist of unresolved links.
package page

// Kind distinguishes the two link variants a Page can hold, so callers can
// dispatch on a small tag instead of a type switch.
type Kind int

const (
	KindAnchor Kind = iota
	KindForm
)

func (k Kind) String() string {
	if k == KindForm {
		return "form"
	}
	return "anchor"
}

// Ref identifies one link's position within a Page's Links.
type Ref struct {
	Kind  Kind
	Index int
}

// Step is one hop of a navigation route: the page the hop departs from, and
// the link followed.
type Step struct {
	Page *Page
	Link Ref
}

// Link is the behavior shared by Anchor and Form: the parts of the model the
// Page Map and Crawl Driver manipulate without caring which kind of link
// they're looking at.
type Link interface {
	Target() *Page
	SetTarget(*Page)
	NVisits() int
	Visit()
	Ignored() bool
	SetIgnored(bool)
	History() []Step
	SetHistory([]Step)
	// Reset clears a link's resolution (target and visit count) so it can
	// be pointed at a different page -- used when the Crawl Driver
	// discovers that a link's target assumption was wrong and overrides
	// it rather than splitting the page.
	Reset()
	hashData() string
}

// Anchor is a link candidate extracted from a page: an <a href=...>.
type Anchor struct {
	Href    string
	DOMPath string

	target  *Page
	nvisits int
	ignore  bool
	history []Step
}

func NewAnchor(href, dompath string) *Anchor {
	return &Anchor{Href: href, DOMPath: dompath}
}

func (a *Anchor) Target() *Page       { return a.target }
func (a *Anchor) SetTarget(p *Page)   { a.target = p }
func (a *Anchor) NVisits() int        { return a.nvisits }
func (a *Anchor) Visit()              { a.nvisits++ }
func (a *Anchor) Ignored() bool       { return a.ignore }
func (a *Anchor) SetIgnored(b bool)   { a.ignore = b }
func (a *Anchor) History() []Step     { return a.history }
func (a *Anchor) SetHistory(h []Step) { a.history = h }
func (a *Anchor) Reset()              { a.target = nil; a.nvisits = 0 }
func (a *Anchor) hashData() string    { return a.Href }

// strippedHashData drops the query string, the basis for the templatized key.
func (a *Anchor) strippedHashData() string {
	for i, c := range a.Href {
		if c == '?' {
			return a.Href[:i]
		}
	}
	return a.Href
}

// Form is a link candidate extracted from a <form>.
type Form struct {
	Method    string
	Action    string
	Inputs    []string
	Textareas []string
	Selects   []string

	target    *Page
	nvisits   int
	ignore    bool
	history   []Step
	hasSubmit bool
}

func NewForm(method, action string, inputs, textareas, selects []string) *Form {
	return &Form{
		Method:    lower(method),
		Action:    action,
		Inputs:    inputs,
		Textareas: textareas,
		Selects:   selects,
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (f *Form) Target() *Page       { return f.target }
func (f *Form) SetTarget(p *Page)   { f.target = p }
func (f *Form) NVisits() int        { return f.nvisits }
func (f *Form) Visit()              { f.nvisits++ }
func (f *Form) Ignored() bool       { return f.ignore }
func (f *Form) SetIgnored(b bool)   { f.ignore = b }
func (f *Form) History() []Step     { return f.history }
func (f *Form) SetHistory(h []Step) { f.history = h }
func (f *Form) Reset()              { f.target = nil; f.nvisits = 0 }

// Submittable reports whether a submit control (input[type=submit],
// input[type=image], or button[type=submit]) was found for this form; a
// form with none cannot be navigated, and the Crawl Driver returns
// fetch.ErrUnsubmittableForm instead of submitting it.
func (f *Form) Submittable() bool     { return f.hasSubmit }
func (f *Form) SetSubmittable(b bool) { f.hasSubmit = b }

// FormKeys returns the ordered field names across all three input kinds --
// the key the form-value oracle is consulted with.
func (f *Form) FormKeys() []string {
	keys := make([]string, 0, len(f.Inputs)+len(f.Textareas)+len(f.Selects))
	keys = append(keys, f.Inputs...)
	keys = append(keys, f.Textareas...)
	keys = append(keys, f.Selects...)
	return keys
}

func (f *Form) hashData() string {
	return "(" + f.Action + "," + join(f.Inputs) + "," + join(f.Textareas) + "," + join(f.Selects) + ")"
}

// strippedHashData for a Form is identical to hashData: only anchor hrefs
// get their query string dropped when templatizing.
func (f *Form) strippedHashData() string { return f.hashData() }

func join(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

package page

// Links holds one page's anchors and forms together, and provides the
// position-addressed access (Ref) the rest of the system uses instead of
// reaching into .Anchors/.Forms directly.
type Links struct {
	Anchors []*Anchor
	Forms   []*Form
}

func (l Links) NAnchors() int { return len(l.Anchors) }
func (l Links) NForms() int   { return len(l.Forms) }

func (l Links) Len(kind Kind) int {
	if kind == KindAnchor {
		return l.NAnchors()
	}
	return l.NForms()
}

// Get resolves a Ref to the underlying Link.
func (l Links) Get(ref Ref) Link {
	if ref.Kind == KindAnchor {
		return l.Anchors[ref.Index]
	}
	return l.Forms[ref.Index]
}

// hashData combines every anchor and form hash into one string, the input
// to the concrete Page content hash.
func (l Links) hashData() string {
	return "([" + joinLinks(l.Anchors) + "], [" + joinLinks(l.Forms) + "])"
}

// strippedHashData is the templatizing variant: anchors contribute their
// query-stripped href, forms contribute their normal hash (forms are never
// templatized across query variants).
func (l Links) strippedHashData() string {
	annames := make([]string, len(l.Anchors))
	for i, a := range l.Anchors {
		annames[i] = a.strippedHashData()
	}
	return "([" + joinStrings(annames) + "], [" + joinLinks(l.Forms) + "])"
}

func joinLinks[T Link](links []T) string {
	out := ""
	for i, l := range links {
		if i > 0 {
			out += ","
		}
		out += l.hashData()
	}
	return out
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// GetUnvisited returns the first anchor ref with no target and not ignored;
// if what is KindForm, forms are also considered once anchors are exhausted.
func (l Links) GetUnvisited(what Kind) (Ref, bool) {
	for i, a := range l.Anchors {
		if a.Target() == nil && !a.Ignored() {
			return Ref{Kind: KindAnchor, Index: i}, true
		}
	}
	if what == KindForm {
		for i, f := range l.Forms {
			if f.Target() == nil && !f.Ignored() {
				return Ref{Kind: KindForm, Index: i}, true
			}
		}
	}
	return Ref{}, false
}

// Iter yields the non-ignored links, anchors first; what == KindAnchor
// restricts iteration to anchors only, what == KindForm includes forms too.
func (l Links) Iter(what Kind) []Link {
	out := make([]Link, 0, len(l.Anchors)+len(l.Forms))
	for _, a := range l.Anchors {
		if !a.Ignored() {
			out = append(out, a)
		}
	}
	if what == KindForm {
		for _, f := range l.Forms {
			if !f.Ignored() {
				out = append(out, f)
			}
		}
	}
	return out
}

// Enumerate yields (Ref, Link) pairs for every non-ignored link.
func (l Links) Enumerate() []struct {
	Ref  Ref
	Link Link
} {
	out := make([]struct {
		Ref  Ref
		Link Link
	}, 0, len(l.Anchors)+len(l.Forms))
	for i, a := range l.Anchors {
		if !a.Ignored() {
			out = append(out, struct {
				Ref  Ref
				Link Link
			}{Ref{KindAnchor, i}, a})
		}
	}
	for i, f := range l.Forms {
		if !f.Ignored() {
			out = append(out, struct {
				Ref  Ref
				Link Link
			}{Ref{KindForm, i}, f})
		}
	}
	return out
}

// Clone deep-copies the anchors and forms with fresh link state (zero
// visits, no target, no history, not ignored) -- used when a page is split.
func (l Links) Clone() Links {
	anchors := make([]*Anchor, len(l.Anchors))
	for i, a := range l.Anchors {
		c := *a
		c.target = nil
		c.nvisits = 0
		c.ignore = false
		c.history = nil
		anchors[i] = &c
	}
	forms := make([]*Form, len(l.Forms))
	for i, f := range l.Forms {
		c := *f
		c.target = nil
		c.nvisits = 0
		c.ignore = false
		c.history = nil
		forms[i] = &c
	}
	return Links{Anchors: anchors, Forms: forms}
}

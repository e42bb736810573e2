package fetch

import (
	"net/url"
	"strings"
	"testing"
)

func mustBase(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("bad base url: %v", err)
	}
	return u
}

func TestParsePageExtractsLocalAnchorsAndForms(t *testing.T) {
	html := `<html><body>
		<a href="/a">a</a>
		<a href="mailto:x@example.com">mail</a>
		<a href="javascript:void(0)">js</a>
		<form method="POST" action="/submit">
			<input type="text" name="q">
			<input type="hidden" name="token">
			<textarea name="notes"></textarea>
			<select name="opt"></select>
			<input type="submit" value="Go">
		</form>
	</body></html>`

	p, err := parsePage(mustBase(t, "http://example.com/start"), strings.NewReader(html), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Links.NAnchors(); got != 1 {
		t.Fatalf("expected mailto/javascript links to be dropped, got %d anchors", got)
	}
	if p.Links.Anchors[0].Href != "/a" {
		t.Fatalf("expected root-relative href, got %q", p.Links.Anchors[0].Href)
	}
	if got := p.Links.NForms(); got != 1 {
		t.Fatalf("expected 1 form, got %d", got)
	}
	f := p.Links.Forms[0]
	if f.Method != "post" {
		t.Fatalf("expected lowercased method, got %q", f.Method)
	}
	if f.Action != "/submit" {
		t.Fatalf("expected resolved action, got %q", f.Action)
	}
	if len(f.Inputs) != 2 || f.Inputs[0] != "q" || f.Inputs[1] != "token" {
		t.Fatalf("expected [q token] inputs, got %v", f.Inputs)
	}
	if len(f.Textareas) != 1 || f.Textareas[0] != "notes" {
		t.Fatalf("expected [notes] textareas, got %v", f.Textareas)
	}
	if len(f.Selects) != 1 || f.Selects[0] != "opt" {
		t.Fatalf("expected [opt] selects, got %v", f.Selects)
	}
	if !f.Submittable() {
		t.Fatalf("expected form with input[type=submit] to be submittable")
	}
}

func TestParsePageFormWithoutSubmitControlIsUnsubmittable(t *testing.T) {
	html := `<html><body><form action="/x"><input type="text" name="q"></form></body></html>`
	p, err := parsePage(mustBase(t, "http://example.com/"), strings.NewReader(html), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Links.Forms[0].Submittable() {
		t.Fatalf("expected form with no submit control to be unsubmittable")
	}
}

func TestDOMPathDistinguishesSiblingsByTagIndex(t *testing.T) {
	html := `<html><body><ul><li><a href="/1">1</a></li><li><a href="/2">2</a></li></ul></body></html>`
	p, err := parsePage(mustBase(t, "http://example.com/"), strings.NewReader(html), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Links.Anchors) != 2 {
		t.Fatalf("expected 2 anchors, got %d", len(p.Links.Anchors))
	}
	if p.Links.Anchors[0].DOMPath == p.Links.Anchors[1].DOMPath {
		t.Fatalf("expected distinct DOM paths for the two <li> siblings, got %q twice", p.Links.Anchors[0].DOMPath)
	}
}

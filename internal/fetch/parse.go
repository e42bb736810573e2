package fetch

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/waxwing/abscrawl/internal/page"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parsePage walks the HTML document read from body and builds the concrete
// Page it represents: every <a href> becomes an Anchor candidate and every
// <form> an unresolved Form candidate, addressed relative to base.
func parsePage(base *url.URL, body io.Reader, cookies []string) (*page.Page, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, err
	}

	var anchors []*page.Anchor
	var forms []*page.Form

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.A:
				if a := buildAnchor(base, n); a != nil {
					anchors = append(anchors, a)
				}
			case atom.Form:
				forms = append(forms, buildForm(base, n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return page.New(rootRelative(base), anchors, forms, cookies), nil
}

// buildAnchor resolves an <a> tag's href against base and discards
// non-navigable schemes (mailto, tel, javascript) and fragment-only links.
func buildAnchor(base *url.URL, n *html.Node) *page.Anchor {
	href, ok := attr(n, "href")
	if !ok {
		return nil
	}
	u, err := url.Parse(href)
	if err != nil {
		return nil
	}
	switch strings.ToLower(u.Scheme) {
	case "mailto", "tel", "javascript":
		return nil
	}
	if u.Scheme == "" && u.Host == "" && u.Path == "" && u.RawQuery == "" && u.Fragment != "" {
		return nil
	}
	resolved := base.ResolveReference(u)
	return page.NewAnchor(rootRelative(resolved), domPath(n))
}

// buildForm collects a <form>'s method/action and its input/textarea/select
// field names, and records whether a submit control was found, probing in
// order: input[type=submit], input[type=image], then button[type=submit].
func buildForm(base *url.URL, n *html.Node) *page.Form {
	method := "get"
	if m, ok := attr(n, "method"); ok && m != "" {
		method = m
	}
	action := rootRelative(base)
	if a, ok := attr(n, "action"); ok {
		if u, err := url.Parse(a); err == nil {
			action = rootRelative(base.ResolveReference(u))
		}
	}

	var inputs, textareas, selects []string
	var submitInput, imageInput, submitButton bool
	for d := range n.Descendants() {
		if d.Type != html.ElementNode {
			continue
		}
		switch d.DataAtom {
		case atom.Input:
			typ := strings.ToLower(attrOr(d, "type", "text"))
			switch typ {
			case "submit":
				submitInput = true
				continue
			case "image":
				imageInput = true
				continue
			case "button", "reset":
				continue
			}
			if name, ok := attr(d, "name"); ok && name != "" {
				inputs = append(inputs, name)
			}
		case atom.Textarea:
			if name, ok := attr(d, "name"); ok && name != "" {
				textareas = append(textareas, name)
			}
		case atom.Select:
			if name, ok := attr(d, "name"); ok && name != "" {
				selects = append(selects, name)
			}
		case atom.Button:
			if strings.ToLower(attrOr(d, "type", "submit")) == "submit" {
				submitButton = true
			}
		}
	}

	f := page.NewForm(method, action, inputs, textareas, selects)
	f.SetSubmittable(submitInput || imageInput || submitButton)
	return f
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func attrOr(n *html.Node, name, def string) string {
	if v, ok := attr(n, name); ok {
		return v
	}
	return def
}

// rootRelative strips scheme and host, leaving a site-relative path and
// query -- the form the rest of the system addresses pages by.
func rootRelative(u *url.URL) string {
	v := *u
	v.Scheme = ""
	v.Host = ""
	v.Fragment = ""
	return v.String()
}

// domPath renders an XPath-like address for n, counting same-tag siblings
// (1-based) so repeated elements (e.g. rows of a table) get distinct,
// stable-but-collapsible paths -- see vector.DOMPath for the collapsing
// step.
func domPath(n *html.Node) string {
	var segs []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		segs = append([]string{fmt.Sprintf("%s[%d]", cur.Data, siblingIndex(cur))}, segs...)
	}
	return "/" + strings.Join(segs, "/")
}

func siblingIndex(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			idx++
		}
	}
	return idx
}

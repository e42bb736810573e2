// Package vector implements the URL and link vectorizer: pure functions that
// turn a concrete request URL or DOM anchor into the structured tuples the
// rest of the crawler uses for templatizing and clustering pages.
package vector

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// URLVec is the tuple produced by URLVector: path segments followed by, when
// the URL carries a query string, a tuple of sorted query keys and the
// corresponding values tuple.
type URLVec struct {
	Segments []string
	Keys     []string
	Values   []string
}

// URLVector converts rawurl into a structured token vector: path segments,
// plus sorted query-key and matching-value tuples when a query is present.
// Values sharing a key keep their original relative order after the keys
// are sorted, so orderings that differ only in where each distinct key
// appears vectorize identically.
func URLVector(rawurl string) URLVec {
	u, err := url.Parse(rawurl)
	if err != nil {
		return URLVec{Segments: strings.Split(rawurl, "/")}
	}
	return urlVectorOf(u)
}

func urlVectorOf(u *url.URL) URLVec {
	segs := strings.Split(u.Path, "/")
	vec := URLVec{Segments: segs}
	keys, values := parseQuery(u.RawQuery)
	vec.Keys = keys
	for _, k := range keys {
		vec.Values = append(vec.Values, values[k]...)
	}
	return vec
}

// parseQuery splits a raw query string into its sorted keys and a per-key
// value list, preserving the relative order of values sharing a key.
func parseQuery(rawQuery string) ([]string, map[string][]string) {
	if rawQuery == "" {
		return nil, nil
	}
	pairs := strings.Split(rawQuery, "&")
	keys := make([]string, 0, len(pairs))
	values := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		if p == "" {
			continue
		}
		k, v, _ := strings.Cut(p, "=")
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = append(values[k], v)
	}
	sort.Strings(keys)
	return keys, values
}

// CanonicalQuery rewrites a raw query string with its keys sorted, so
// orderings of the same parameters that differ only in where each distinct
// key appears canonicalize to the same string; values sharing a key keep
// their relative order. An empty query stays empty.
func CanonicalQuery(rawQuery string) string {
	keys, values := parseQuery(rawQuery)
	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}

// Equal reports whether two URL vectors are identical.
func (v URLVec) Equal(o URLVec) bool {
	return stringsEqual(v.Segments, o.Segments) &&
		stringsEqual(v.Keys, o.Keys) &&
		stringsEqual(v.Values, o.Values)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var bracketPredicate = regexp.MustCompile(`\[[^\]]*\]`)

// DOMPath canonicalizes an XPath-like string by stripping bracketed
// positional predicates (e.g. "/html/body/div[3]/a[1]" -> "/html/body/div/a"),
// so that siblings sharing a tag collapse to the same path.
func DOMPath(xpath string) string {
	return bracketPredicate.ReplaceAllString(xpath, "")
}

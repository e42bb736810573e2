// Package fetch implements the fetcher: the component that turns a
// navigation request (GET a URL, POST a form) into a concrete page.Page by
// issuing the HTTP request and walking the resulting DOM.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/waxwing/abscrawl/internal/page"
)

// ErrUnsubmittableForm is returned when asked to submit a form that carries
// no discoverable submit control.
var ErrUnsubmittableForm = errors.New("fetch: form has no submit control")

// Result is what one navigation produces: the HTTP status, the parsed page
// (nil for non-HTML responses; an HTML body is parsed whatever the status
// code), and the cookies set along the way.
type Result struct {
	StatusCode int
	Page       *page.Page
	Cookies    []string
}

// Fetcher is the contract the Crawl Driver depends on, so tests can swap in
// a FakeFetcher instead of hitting the network.
type Fetcher interface {
	// Fetch issues method against rawurl. For a GET, form (if non-nil) is
	// appended to the query string; for a POST, form is sent as the
	// request body.
	Fetch(ctx context.Context, method, rawurl string, form url.Values) (Result, error)
}

// HTTPFetcher is the real Fetcher: a thin, redirect-suppressing HTTP
// client plus an HTML walker.
type HTTPFetcher struct {
	client *http.Client
}

func noRedirects(req *http.Request, via []*http.Request) error {
	return http.ErrUseLastResponse
}

// New returns an HTTPFetcher. insecureSkipVerify disables certificate
// verification, for crawling sites with self-signed staging certs.
func New(insecureSkipVerify bool) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			CheckRedirect: noRedirects,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify},
			},
		},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, method, rawurl string, form url.Values) (Result, error) {
	m := strings.ToUpper(method)
	if m == "" {
		m = http.MethodGet
	}

	reqURL := rawurl
	var body io.Reader
	if m == http.MethodPost {
		body = strings.NewReader(form.Encode())
	} else if len(form) > 0 {
		u, err := url.Parse(rawurl)
		if err != nil {
			return Result{}, err
		}
		q := u.Query()
		for k, vs := range form {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		reqURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, m, reqURL, body)
	if err != nil {
		return Result{}, err
	}
	if m == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var cookies []string
	for _, c := range resp.Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}

	if !isHTMLContentType(resp.Header.Get("Content-Type")) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{StatusCode: resp.StatusCode, Cookies: cookies}, nil
	}

	base, err := url.Parse(reqURL)
	if err != nil {
		return Result{StatusCode: resp.StatusCode, Cookies: cookies}, err
	}

	p, err := parsePage(base, resp.Body, cookies)
	if err != nil {
		return Result{StatusCode: resp.StatusCode, Cookies: cookies}, err
	}
	return Result{StatusCode: resp.StatusCode, Page: p, Cookies: cookies}, nil
}

func isHTMLContentType(s string) bool {
	t, _, _ := strings.Cut(s, ";")
	return s == "" || t == "text/html"
}

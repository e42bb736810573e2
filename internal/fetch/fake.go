package fetch

import (
	"context"
	"fmt"
	"net/url"
)

// FakeFetcher is an in-memory Fetcher for tests: a fixed table of canned
// responses keyed by "METHOD path".
type FakeFetcher struct {
	Responses map[string]Result
	Errors    map[string]error
	Calls     []string
}

func NewFake() *FakeFetcher {
	return &FakeFetcher{Responses: map[string]Result{}, Errors: map[string]error{}}
}

func key(method, rawurl string) string {
	return fmt.Sprintf("%s %s", method, rawurl)
}

// Set registers the Result to return for method+rawurl.
func (f *FakeFetcher) Set(method, rawurl string, r Result) {
	f.Responses[key(method, rawurl)] = r
}

// SetError registers an error to return for method+rawurl.
func (f *FakeFetcher) SetError(method, rawurl string, err error) {
	f.Errors[key(method, rawurl)] = err
}

func (f *FakeFetcher) Fetch(_ context.Context, method, rawurl string, _ url.Values) (Result, error) {
	k := key(method, rawurl)
	f.Calls = append(f.Calls, k)
	if err, ok := f.Errors[k]; ok {
		return Result{}, err
	}
	if r, ok := f.Responses[k]; ok {
		return r, nil
	}
	return Result{StatusCode: 404}, nil
}

package history

import (
	"testing"

	"github.com/waxwing/abscrawl/internal/page"
)

func TestAppendChainsPrevAndNext(t *testing.T) {
	l := New()
	r1 := l.Append(Request{Method: "get", Path: "/"}, Response{Code: 200, Page: page.New("/", nil, nil, nil)})
	r2 := l.Append(Request{Method: "get", Path: "/a"}, Response{Code: 200, Page: page.New("/a", nil, nil, nil)})

	if l.Head() != r1 {
		t.Fatalf("expected head to be the first record")
	}
	if r1.Next != r2 || r2.Prev != r1 {
		t.Fatalf("expected r1 <-> r2 doubly linked")
	}
	if r2.BackTo != nil {
		t.Fatalf("expected no BackTo when appending straight from the current position")
	}
}

func TestBackEmptyHistory(t *testing.T) {
	l := New()
	if _, err := l.Back(); err != ErrEmptyHistory {
		t.Fatalf("expected ErrEmptyHistory on an empty log, got %v", err)
	}

	l.Append(Request{Method: "get", Path: "/"}, Response{Code: 200, Page: page.New("/", nil, nil, nil)})
	if _, err := l.Back(); err != ErrEmptyHistory {
		t.Fatalf("expected ErrEmptyHistory with a single record, got %v", err)
	}
}

func TestAppendAfterBackSetsBackTo(t *testing.T) {
	l := New()
	r1 := l.Append(Request{Method: "get", Path: "/"}, Response{Code: 200, Page: page.New("/", nil, nil, nil)})
	r2 := l.Append(Request{Method: "get", Path: "/a"}, Response{Code: 200, Page: page.New("/a", nil, nil, nil)})

	back, err := l.Back()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != r1 {
		t.Fatalf("expected Back to land on r1")
	}

	r3 := l.Append(Request{Method: "get", Path: "/b"}, Response{Code: 200, Page: page.New("/b", nil, nil, nil)})
	if r3.BackTo != r1 {
		t.Fatalf("expected r3.BackTo == r1, the record we backed to")
	}
	if r3.Prev != r2 {
		t.Fatalf("expected r3.Prev == r2, chaining by append order")
	}
}

// Package history implements the navigation log: the doubly linked
// sequence of request/response records the abstract graph builder walks to
// construct the application graph.
package history

import (
	"errors"

	"github.com/waxwing/abscrawl/internal/page"
)

// ErrEmptyHistory is returned by Log.Back when there is no prior step to
// return to.
var ErrEmptyHistory = errors.New("history: no prior step")

// Request is the canonical request shape a Record carries -- just enough
// for the vectorizer and the abstract request canonicalization to work
// from.
type Request struct {
	Method string
	Path   string
	Query  string
}

// FullPath returns the path plus, if present, the query string.
func (r Request) FullPath() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// Response pairs an HTTP status with the concrete page it resolved to.
type Response struct {
	Code int
	Page *page.Page
}

// Record is one navigation step: a request/response pair, linked to its
// predecessor and successor, and -- when this step followed a `back` --
// the record it returned to before issuing a new request.
type Record struct {
	Request  Request
	Response Response

	Prev   *Record
	Next   *Record
	BackTo *Record

	// FromPage and FromRef identify the link that was followed to produce
	// this record: FromPage is the page the navigation departed from (the
	// BackTo record's page, when this step followed a back) and FromRef
	// addresses the anchor or form on it. Both are zero for the first
	// record in the log, which has no departure link. The Crawl Driver
	// populates these after Append; the Abstract Graph Builder consumes
	// them to find which link produced each transition.
	FromPage *page.Page
	FromRef  page.Ref
}

// Log is the append-only History Log. Indices into it (via Prev/Next
// pointers) are stable for the duration of a crawl.
type Log struct {
	head *Record
	last *Record // most recently appended record, regardless of current position
	curr *Record // current position; differs from last right after a Back
}

// New returns an empty History Log.
func New() *Log { return &Log{} }

// Append records a new navigation step following the log's current
// position. If the current position is not the most recently appended
// record (i.e. a Back happened since), the new record's BackTo is set to
// the record we backed to.
func (l *Log) Append(req Request, resp Response) *Record {
	var backTo *Record
	if l.last != l.curr {
		backTo = l.curr
	}
	rec := &Record{Request: req, Response: resp, Prev: l.last, BackTo: backTo}
	if l.last != nil {
		l.last.Next = rec
	}
	l.last = rec
	l.curr = rec
	if l.head == nil {
		l.head = rec
	}
	return rec
}

// Back moves the current position to the previous record, returning
// ErrEmptyHistory if there is none.
func (l *Log) Back() (*Record, error) {
	if l.curr == nil || l.curr.Prev == nil {
		return nil, ErrEmptyHistory
	}
	l.curr = l.curr.Prev
	return l.curr, nil
}

// Head returns the first record appended, or nil for an empty log.
func (l *Log) Head() *Record { return l.head }

// Current returns the record at the log's current position.
func (l *Log) Current() *Record { return l.curr }

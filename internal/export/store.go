// Package export renders a crawl's page map into a dot.Graph for
// visualization, and persists graph artifacts through a pluggable,
// scheme-dispatched backend.
package export

import (
	"log"
	"strings"
)

// Artifact is a stored export: a content type tag plus raw bytes.
type Artifact struct {
	ContentType string
	Content     []byte
}

// ArtifactStore is the pluggable persistence backend for exported graphs.
type ArtifactStore interface {
	Write(key string, a Artifact) error
	Close() error
}

var registry map[string]constructor

type constructor func(string) ArtifactStore

func register(scheme string, fn constructor) {
	if registry == nil {
		registry = make(map[string]constructor)
	}
	registry[scheme] = fn
}

// New constructs an ArtifactStore for target, which must include a scheme
// and path, e.g.:
//   - bbolt:</path/to/db.file>:<bucket>
//   - s3:<region>:<bucket>
func New(target string) ArtifactStore {
	scheme, path, ok := strings.Cut(target, ":")
	if !ok {
		log.Fatalf(`Artifact store target %q does not have expected format "<scheme>:<path>".`, target)
	}
	fn, ok := registry[scheme]
	if !ok {
		log.Fatalf("No artifact store handler found for scheme %q.", scheme)
	}
	return fn(path)
}

package export

import (
	"fmt"
	"log"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// BBoltArtifactStore persists exported artifacts to a local bbolt
// database.
type BBoltArtifactStore struct {
	db     *bbolt.DB
	bucket string
}

func newBBolt(path string) ArtifactStore {
	p := strings.Split(path, ":")
	if len(p) != 2 {
		log.Fatalf(`BBolt path %q does not have expected format "<path>:<bucket>".`, path)
	}

	db, err := bbolt.Open(p[0], 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		log.Fatalf("Could not open database %q: %v", p[0], err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(p[1]))
		if err != nil {
			return fmt.Errorf("create bucket %q: %w", p[1], err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Could not create bucket %q: %v", p[1], err)
	}

	return &BBoltArtifactStore{db: db, bucket: p[1]}
}

func (s *BBoltArtifactStore) Write(k string, a Artifact) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucket))
		return b.Put([]byte(k), encodeArtifact(a))
	})
}

func (s *BBoltArtifactStore) Close() error {
	return s.db.Close()
}

// encodeArtifact is a minimal newline-delimited encoding: the content type,
// then a newline, then the raw bytes. Good enough for round-tripping a
// handful of graph artifacts per run without pulling in a serialization
// library for two fields.
func encodeArtifact(a Artifact) []byte {
	out := make([]byte, 0, len(a.ContentType)+1+len(a.Content))
	out = append(out, []byte(a.ContentType)...)
	out = append(out, '\n')
	out = append(out, a.Content...)
	return out
}

func init() {
	register("bbolt", newBBolt)
}

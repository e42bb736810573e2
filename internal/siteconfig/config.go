// Package siteconfig loads a crawl's static configuration: its start URLs,
// hostname aliases, aggregation tuning, and pre-seeded form values.
package siteconfig

import (
	"bytes"

	"github.com/waxwing/abscrawl/internal/formfill"
	yaml "gopkg.in/yaml.v3"
)

// Config is the top-level crawl configuration document.
type Config struct {
	Name string

	// StartURLs seed the crawl's unvisited worklist.
	StartURLs []string `yaml:"startURLs"`

	// Domains lists hostname aliases of the primary one. It is decoded and
	// its length is logged when the config is loaded; the crawler does not
	// consult it when deciding which links to follow.
	Domains []string

	// SimilarityJoinThreshold overrides pagemap.DefaultSimilarityJoinThreshold
	// when positive.
	SimilarityJoinThreshold int `yaml:"similarityJoinThreshold"`

	// InsecureSkipVerify disables TLS certificate verification, for
	// crawling sites with self-signed staging certs.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify"`

	// FormValues pre-seeds the form-value oracle: each entry's Fields map
	// becomes one formfill.Values entry, matched by its field-name shape.
	FormValues []FormValues `yaml:"formValues"`

	// ResourcePatterns names classes of non-navigational resources (images,
	// stylesheets, generated feeds) by path prefix. It is decoded but not
	// read by the crawler, which neither fetches these resources separately
	// nor excludes them from app state.
	ResourcePatterns []ResourcePattern `yaml:"resourcePatterns"`
}

// FormValues is one named set of field values for the form-value oracle.
type FormValues struct {
	Name   string
	Fields map[string]string
}

// ResourcePattern names a class of subordinate resource and the path
// prefixes it applies to.
type ResourcePattern struct {
	Name   string
	Follow []string
}

// Load decodes a YAML configuration document, rejecting unknown fields.
func Load(in []byte) (*Config, error) {
	out := &Config{}
	d := yaml.NewDecoder(bytes.NewReader(in))
	d.KnownFields(true)
	if err := d.Decode(out); err != nil {
		return &Config{}, err
	}
	return out, nil
}

// Filler builds a formfill.Filler pre-populated from FormValues.
func (c *Config) Filler() *formfill.Filler {
	f := formfill.New()
	for _, fv := range c.FormValues {
		f.Add(formfill.Values(fv.Fields))
	}
	return f
}

// JoinThreshold returns SimilarityJoinThreshold, or def when it is unset.
func (c *Config) JoinThreshold(def int) int {
	if c.SimilarityJoinThreshold > 0 {
		return c.SimilarityJoinThreshold
	}
	return def
}

// Package site holds the registry of sites that can be audited.
//
// The registry is loaded once at startup from a JSON or YAML file and is
// read-only afterwards. Content directories are checked on every call to
// ContentAvailable because they live outside the process and can appear or
// disappear while the server runs.
package site

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

// Descriptor describes one registered site.
type Descriptor struct {
	Slug       string `json:"slug" yaml:"slug"`
	Name       string `json:"name" yaml:"name"`
	URL        string `json:"url" yaml:"url"`
	ContentDir string `json:"contentDir,omitempty" yaml:"contentDir,omitempty"`
}

// ContentAvailable reports whether the site has a content directory that exists.
func (d Descriptor) ContentAvailable() bool {
	if d.ContentDir == "" {
		return false
	}
	info, err := os.Stat(d.ContentDir)
	return err == nil && info.IsDir()
}

// Registry is an ordered, immutable collection of site descriptors.
type Registry struct {
	sites  []Descriptor
	bySlug map[string]int
}

// NewRegistry validates sites and builds a registry that keeps their order.
func NewRegistry(sites []Descriptor) (*Registry, error) {
	r := &Registry{
		sites:  make([]Descriptor, 0, len(sites)),
		bySlug: make(map[string]int, len(sites)),
	}

	for i, s := range sites {
		s.Slug = strings.TrimSpace(s.Slug)
		if s.Slug == "" {
			return nil, errors.New(errors.ErrCodeRegistryInvalid, fmt.Sprintf("site #%d has no slug", i+1))
		}
		if s.Name == "" {
			return nil, errors.New(errors.ErrCodeRegistryInvalid, fmt.Sprintf("site %q has no name", s.Slug))
		}
		if s.URL == "" {
			return nil, errors.New(errors.ErrCodeRegistryInvalid, fmt.Sprintf("site %q has no url", s.Slug))
		}
		if _, dup := r.bySlug[s.Slug]; dup {
			return nil, errors.New(errors.ErrCodeRegistryDuplicateID, fmt.Sprintf("duplicate site slug %q", s.Slug)).
				WithSuggestion("Slugs must be unique across the sites file")
		}
		r.bySlug[s.Slug] = len(r.sites)
		r.sites = append(r.sites, s)
	}

	return r, nil
}

// Load reads a sites file. JSON is accepted as-is since it is a subset of YAML.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError(path)
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("failed to read sites file: %s", path), err)
	}

	var sites []Descriptor
	if err := yaml.Unmarshal(data, &sites); err != nil {
		return nil, errors.NewFileUnmarshalError(path, "JSON/YAML", err)
	}

	return NewRegistry(sites)
}

// Lookup returns the descriptor registered under slug.
func (r *Registry) Lookup(slug string) (Descriptor, bool) {
	i, ok := r.bySlug[slug]
	if !ok {
		return Descriptor{}, false
	}
	return r.sites[i], true
}

// All returns a copy of every descriptor in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.sites))
	copy(out, r.sites)
	return out
}

// Len returns the number of registered sites.
func (r *Registry) Len() int {
	return len(r.sites)
}

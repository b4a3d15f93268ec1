package overlays

import (
	"fmt"
	"sort"

	"github.com/kikiluvv/trimlay/pkg/util"
)

// Registry manages available overlays
type Registry struct {
	overlays    map[string]string
	defaultName string
}

// NewRegistry creates a new overlay registry
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		overlays:    make(map[string]string),
		defaultName: defaultName,
	}
}

// FromMap builds a registry from configured name to path entries
func FromMap(defaultName string, entries map[string]string) *Registry {
	r := NewRegistry(defaultName)
	for name, path := range entries {
		r.Register(name, path)
	}
	return r
}

// Register adds an overlay to the registry
func (r *Registry) Register(name, path string) {
	r.overlays[name] = util.ExpandHome(path)
}

// Get retrieves an overlay path by name
func (r *Registry) Get(name string) (string, bool) {
	path, ok := r.overlays[name]
	return path, ok
}

// Resolve maps a name or a path to an overlay file. An empty name selects
// the default overlay; unknown names are treated as paths.
func (r *Registry) Resolve(name string) (string, error) {
	if name == "" {
		name = r.defaultName
	}
	if name == "" {
		return "", fmt.Errorf("no overlay selected and no default configured")
	}
	if path, ok := r.overlays[name]; ok {
		return path, nil
	}
	return util.ExpandHome(name), nil
}

// List returns all registered overlay names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.overlays))
	for name := range r.overlays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

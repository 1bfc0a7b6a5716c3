package enrich

import (
	"fmt"
	"sort"
	"sync"

	errorskg "github.com/sweetpotato0/enrichrag/errors"
)

// Capability describes one registered connector for discovery endpoints.
type Capability struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Enabled     bool   `json:"enabled"`
}

// Capabilities is the registry summary served to clients.
type Capabilities struct {
	AutoEnrichmentEnabled bool         `json:"auto_enrichment_enabled"`
	Sources               []Capability `json:"trusted_sources"`
}

type registration struct {
	connector Connector
	priority  int
	enabled   bool
}

// Registry holds connectors ordered by priority. Each connector can be
// enabled or disabled independently.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registration)}
}

// Register adds an enabled connector. A priority <= 0 falls back to
// DefaultPriorities, or to the end of the list for unknown names.
func (r *Registry) Register(c Connector, priority int) error {
	if c == nil || c.Name() == "" {
		return fmt.Errorf("register connector: %w", errorskg.ErrInvalidInput)
	}
	if priority <= 0 {
		if p, ok := DefaultPriorities[c.Name()]; ok {
			priority = p
		} else {
			priority = len(DefaultPriorities) + 1
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[c.Name()]; exists {
		return fmt.Errorf("connector %s already registered: %w", c.Name(), errorskg.ErrInvalidInput)
	}
	r.entries[c.Name()] = &registration{connector: c, priority: priority, enabled: true}
	return nil
}

// SetEnabled toggles a registered connector.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("connector %s: %w", name, errorskg.ErrNotFound)
	}
	entry.enabled = enabled
	return nil
}

// Get returns a connector by name regardless of its enabled flag.
func (r *Registry) Get(name string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.connector, true
}

// Label returns the display label for a connector name, or the name itself.
func (r *Registry) Label(name string) string {
	if c, ok := r.Get(name); ok && c.Label() != "" {
		return c.Label()
	}
	return name
}

// Enabled returns the enabled connectors in priority order.
func (r *Registry) Enabled() []Connector {
	var out []Connector
	for _, entry := range r.sorted() {
		if entry.enabled {
			out = append(out, entry.connector)
		}
	}
	return out
}

// Capabilities lists every registered connector in priority order.
func (r *Registry) Capabilities() Capabilities {
	entries := r.sorted()
	caps := Capabilities{Sources: make([]Capability, 0, len(entries))}
	for _, entry := range entries {
		caps.Sources = append(caps.Sources, Capability{
			Name:        entry.connector.Name(),
			Label:       entry.connector.Label(),
			Description: entry.connector.Description(),
			Priority:    entry.priority,
			Enabled:     entry.enabled,
		})
		if entry.enabled {
			caps.AutoEnrichmentEnabled = true
		}
	}
	return caps
}

func (r *Registry) sorted() []registration {
	r.mu.RLock()
	out := make([]registration, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, *entry)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].connector.Name() < out[j].connector.Name()
	})
	return out
}

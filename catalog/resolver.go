package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"playhouse/engine/internal/piece"
	"playhouse/engine/internal/scene"
)

type source interface {
	Load() ([]byte, error)
	Path() string
}

type fileSource struct {
	path string
}

func (f fileSource) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f fileSource) Path() string {
	return f.path
}

// Surface is the resolved build surface of a structural entry.
type Surface struct {
	Kind   scene.SurfaceKind
	Width  float64
	Height float64
}

// Entry captures the resolved catalog data for a single designer-authored
// piece. Blocks carries any additional JSON sections found on disk so client
// tooling can round-trip them.
type Entry struct {
	ID       string
	Category piece.Category
	Name     string
	Surface  *Surface
	Blocks   map[string]json.RawMessage
}

func (e Entry) clone() Entry {
	clone := Entry{
		ID:       e.ID,
		Category: e.Category,
		Name:     e.Name,
		Blocks:   cloneRawMap(e.Blocks),
	}
	if e.Surface != nil {
		surface := *e.Surface
		clone.Surface = &surface
	}
	return clone
}

func cloneRawMap(src map[string]json.RawMessage) map[string]json.RawMessage {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]json.RawMessage, len(src))
	for key, value := range src {
		if len(value) == 0 {
			dst[key] = nil
			continue
		}
		copied := make(json.RawMessage, len(value))
		copy(copied, value)
		dst[key] = copied
	}
	return dst
}

// Resolver merges one or more catalog sources into a stable lookup table.
// Call Reload to pick up on-disk changes (used for dev hot reload).
type Resolver struct {
	mu      sync.RWMutex
	sources []source
	entries map[string]Entry
}

// DefaultPaths returns the canonical catalog locations relative to the module
// root. Callers may pass these to Load.
func DefaultPaths() []string {
	candidates := []string{
		filepath.Join("config", "pieces", "definitions.json"),
		filepath.Join("..", "config", "pieces", "definitions.json"),
	}

	paths := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		cleaned := filepath.Clean(candidate)
		if _, duplicate := seen[cleaned]; duplicate {
			continue
		}
		seen[cleaned] = struct{}{}
		paths = append(paths, cleaned)
	}
	return paths
}

var categories = map[piece.Category]struct{}{
	piece.Structural:         {},
	piece.WindowDoor:         {},
	piece.DecorativeWall:     {},
	piece.DecorativeRoofOnly: {},
	piece.Unattachable:       {},
}

// Load constructs a Resolver backed by the provided catalog file paths.
func Load(paths ...string) (*Resolver, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		sources = append(sources, fileSource{path: trimmed})
	}
	return NewResolver(sources...)
}

// NewResolver constructs a Resolver from arbitrary sources. Tests can supply
// in-memory sources while production code uses fileSource.
func NewResolver(sources ...source) (*Resolver, error) {
	r := &Resolver{
		sources: append([]source(nil), sources...),
		entries: make(map[string]Entry),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses all catalog sources. Later sources override earlier ones to
// support local overlays during development.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	entries := make(map[string]Entry)
	for _, src := range r.sources {
		data, err := src.Load()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("catalog: failed loading %s: %w", src.Path(), err)
		}
		documents, err := decodeEntries(data)
		if err != nil {
			return fmt.Errorf("catalog: failed parsing %s: %w", src.Path(), err)
		}
		seen := make(map[string]struct{}, len(documents))
		for _, doc := range documents {
			entry, err := resolveDocument(doc)
			if err != nil {
				return fmt.Errorf("catalog: %w in %s", err, src.Path())
			}
			if _, dup := seen[entry.ID]; dup {
				return fmt.Errorf("catalog: duplicate id %q in %s", entry.ID, src.Path())
			}
			seen[entry.ID] = struct{}{}
			entries[entry.ID] = entry
		}
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

func resolveDocument(doc EntryDocument) (Entry, error) {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return Entry{}, fmt.Errorf("entry missing id")
	}
	category := piece.Category(strings.TrimSpace(doc.Category))
	if _, ok := categories[category]; !ok {
		return Entry{}, fmt.Errorf("entry %q has unknown category %q", id, doc.Category)
	}

	entry := Entry{
		ID:       id,
		Category: category,
		Name:     strings.TrimSpace(doc.Name),
		Blocks:   doc.Blocks,
	}
	if doc.Surface == nil {
		return entry, nil
	}

	if category != piece.Structural {
		return Entry{}, fmt.Errorf("entry %q carries a build surface but is not structural", id)
	}
	kind := scene.SurfaceKind(strings.TrimSpace(doc.Surface.Kind))
	if kind != scene.KindWall && kind != scene.KindRoof {
		return Entry{}, fmt.Errorf("entry %q has invalid surface kind %q", id, doc.Surface.Kind)
	}
	if doc.Surface.Width <= 0 || doc.Surface.Height <= 0 {
		return Entry{}, fmt.Errorf("entry %q has a degenerate surface %gx%g", id, doc.Surface.Width, doc.Surface.Height)
	}
	entry.Surface = &Surface{
		Kind:   kind,
		Width:  doc.Surface.Width,
		Height: doc.Surface.Height,
	}
	return entry, nil
}

// Resolve returns the catalog entry for the provided designer ID.
func (r *Resolver) Resolve(id string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// Entries returns a cloned snapshot of the catalog keyed by designer ID.
func (r *Resolver) Entries() map[string]Entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Entry, len(r.entries))
	for id, entry := range r.entries {
		out[id] = entry.clone()
	}
	return out
}

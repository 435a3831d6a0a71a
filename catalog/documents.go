package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// SurfaceDocument describes the build surface a structural piece exposes once
// placed. Width runs along the piece's yaw heading, height along its local up.
type SurfaceDocument struct {
	Kind   string  `json:"kind" jsonschema:"title=Surface kind,description=Surface category other pieces snap to once this piece is placed.,enum=wall,enum=roof,required"`
	Width  float64 `json:"width" jsonschema:"title=Surface width,description=Extent along the piece heading in meters.,minimum=0,required"`
	Height float64 `json:"height" jsonschema:"title=Surface height,description=Extent along the piece's local up in meters.,minimum=0,required"`
}

// EntryDocument represents a single catalog entry as it appears on disk. The
// struct is exported so tooling (e.g. schema generators) can reflect over the
// configuration contract shared with designers.
type EntryDocument struct {
	ID       string                     `json:"id" jsonschema:"title=Catalog Entry ID,description=Designer-facing identifier spawned pieces reference.,pattern=^[a-z0-9-]+$,minLength=1,required"`
	Category string                     `json:"category" jsonschema:"title=Placement category,description=Snap behavior class the engine resolves placement with.,pattern=^[a-z-]+$,minLength=1,required"`
	Name     string                     `json:"name,omitempty" jsonschema:"title=Display name,description=Human readable label shown in the piece tray."`
	Surface  *SurfaceDocument           `json:"surface,omitempty" jsonschema:"title=Build surface,description=Present only on structural pieces that become snap targets."`
	Blocks   map[string]json.RawMessage `json:"-" jsonschema:"-"`
}

func (e *EntryDocument) UnmarshalJSON(data []byte) error {
	type rawEntry EntryDocument
	var alias rawEntry
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var blocks map[string]json.RawMessage
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	delete(blocks, "id")
	delete(blocks, "category")
	delete(blocks, "name")
	delete(blocks, "surface")
	alias.Blocks = blocks
	*e = EntryDocument(alias)
	return nil
}

// decodeEntries accepts the two on-disk formats: the canonical array authored
// by designers, or an object keyed by entry ID used in local overlays.
func decodeEntries(data []byte) ([]EntryDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var entries []EntryDocument
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	case '{':
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(object))
		for id := range object {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		entries := make([]EntryDocument, 0, len(ids))
		for _, id := range ids {
			var entry EntryDocument
			if err := json.Unmarshal(object[id], &entry); err != nil {
				return nil, fmt.Errorf("entry %q: %w", id, err)
			}
			if entry.ID == "" {
				entry.ID = id
			} else if entry.ID != id {
				return nil, fmt.Errorf("entry id %q does not match key %q", entry.ID, id)
			}
			entries = append(entries, entry)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unexpected json token %q", string(trimmed[:1]))
	}
}

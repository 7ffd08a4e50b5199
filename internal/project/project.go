package project

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"novelkit/internal/asset"
)

// AssetRef names an asset by id. The empty ref means the slot is unset.
type AssetRef string

// IsZero reports whether the slot is unset.
func (r AssetRef) IsZero() bool { return r == "" }

// String returns the referenced asset id.
func (r AssetRef) String() string { return string(r) }

// MarshalJSON writes the bare asset id.
func (r AssetRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts either a bare id string or a legacy embedded asset
// object, from which only the id is kept.
func (r *AssetRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "" || trimmed == "null":
		*r = ""
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = AssetRef(id)
		return nil
	case strings.HasPrefix(trimmed, "{"):
		var legacy struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &legacy); err != nil {
			return err
		}
		*r = AssetRef(legacy.ID)
		return nil
	default:
		return fmt.Errorf("asset reference: unsupported value %s", trimmed)
	}
}

// Choice links a paragraph to its successor in the story graph.
type Choice struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Target string `json:"target,omitempty"`
}

// Character places a named sprite in a paragraph.
type Character struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Sprite   AssetRef `json:"sprite,omitempty"`
	Position string   `json:"position,omitempty"`
}

// Paragraph is one node of the story graph.
type Paragraph struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Text       string      `json:"text"`
	Background AssetRef    `json:"background,omitempty"`
	TitleImage AssetRef    `json:"titleImage,omitempty"`
	BGM        AssetRef    `json:"bgm,omitempty"`
	Characters []Character `json:"characters,omitempty"`
	Choices    []Choice    `json:"choices,omitempty"`
}

// Project is a complete story document.
type Project struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	StartID    string        `json:"startId,omitempty"`
	Paragraphs []Paragraph   `json:"paragraphs"`
	Assets     []asset.Asset `json:"assets"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// New creates an empty project with a fresh id.
func New(title string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the invariants the rest of the system relies on.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("project id is required")
	}
	seen := make(map[string]struct{}, len(p.Assets))
	for _, a := range p.Assets {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("asset %q: %w", a.ID, err)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("duplicate asset id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// FindAsset returns the flat-list entry for the id.
func (p *Project) FindAsset(id string) (asset.Asset, bool) {
	for _, a := range p.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return asset.Asset{}, false
}

// UpsertAsset replaces the flat-list entry with a matching id, or appends
// the asset when it is new.
func (p *Project) UpsertAsset(a asset.Asset) {
	for i := range p.Assets {
		if p.Assets[i].ID == a.ID {
			p.Assets[i] = a
			return
		}
	}
	p.Assets = append(p.Assets, a)
}

// RemoveAsset deletes the asset from the flat list and clears every
// paragraph slot and character sprite referencing its id. Removing an
// absent id is a no-op.
func (p *Project) RemoveAsset(id string) bool {
	removed := false
	for i := range p.Assets {
		if p.Assets[i].ID == id {
			p.Assets = append(p.Assets[:i], p.Assets[i+1:]...)
			removed = true
			break
		}
	}
	p.ForEachRef(func(ref *AssetRef) {
		if ref.String() == id {
			*ref = ""
		}
	})
	return removed
}

// ForEachRef visits a pointer to every asset reference slot in the
// project's paragraphs, in document order.
func (p *Project) ForEachRef(fn func(*AssetRef)) {
	for i := range p.Paragraphs {
		para := &p.Paragraphs[i]
		fn(&para.Background)
		fn(&para.TitleImage)
		fn(&para.BGM)
		for j := range para.Characters {
			fn(&para.Characters[j].Sprite)
		}
	}
}

// ReferencedIDs returns the distinct asset ids named by any slot, in
// first-seen order.
func (p *Project) ReferencedIDs() []string {
	var ids []string
	seen := make(map[string]struct{})
	p.ForEachRef(func(ref *AssetRef) {
		if ref.IsZero() {
			return
		}
		if _, dup := seen[ref.String()]; dup {
			return
		}
		seen[ref.String()] = struct{}{}
		ids = append(ids, ref.String())
	})
	return ids
}

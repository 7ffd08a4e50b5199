package asset

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type distinguishes the two supported media kinds.
type Type string

const (
	TypeImage Type = "image"
	TypeAudio Type = "audio"
)

// Category groups assets by their role in a story.
type Category string

const (
	CategoryBackground Category = "background"
	CategoryCharacter  Category = "character"
	CategoryBGM        Category = "bgm"
	CategorySE         Category = "se"
	CategoryOther      Category = "other"
)

var categories = map[Category]struct{}{
	CategoryBackground: {},
	CategoryCharacter:  {},
	CategoryBGM:        {},
	CategorySE:         {},
	CategoryOther:      {},
}

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// ParseCategory maps a string to a Category, defaulting to CategoryOther for
// unknown input.
func ParseCategory(value string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// Metadata carries descriptive information about a stored asset.
type Metadata struct {
	Size       int64      `json:"size"`
	Format     string     `json:"format"`
	Width      int        `json:"width,omitempty"`
	Height     int        `json:"height,omitempty"`
	Duration   float64    `json:"duration,omitempty"`
	UploadedAt time.Time  `json:"uploadedAt"`
	LastUsed   *time.Time `json:"lastUsed,omitempty"`
}

// Asset is the in-memory projection of a stored asset record plus a volatile
// URL. The URL is a hint only: it may name a handle that has already been
// revoked, so consumers that need correctness must resolve through the
// handle cache instead of dereferencing it directly.
type Asset struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     Type     `json:"type"`
	Category Category `json:"category"`
	URL      string   `json:"url,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// NewID returns a fresh asset identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the fields required before an asset can be persisted.
func (a *Asset) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("asset id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("asset name is required")
	}
	if a.Type != TypeImage && a.Type != TypeAudio {
		return errors.New("asset type must be image or audio")
	}
	if !a.Category.Valid() {
		return errors.New("unknown asset category")
	}
	return nil
}

// TypeForMIME infers the asset type from a MIME string, defaulting to image.
func TypeForMIME(mime string) Type {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "audio/") {
		return TypeAudio
	}
	return TypeImage
}

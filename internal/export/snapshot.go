package export

import (
	"novelkit/internal/asset"
	"novelkit/internal/project"
)

// snapshotAsset is the by-value copy of an asset embedded in exported game
// data. Its url is the asset's relative path inside the archive, so the
// runtime never needs a lookup table or a live store.
type snapshotAsset struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     asset.Type     `json:"type"`
	Category asset.Category `json:"category"`
	URL      string         `json:"url"`
}

type snapshotCharacter struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Sprite   *snapshotAsset `json:"sprite,omitempty"`
	Position string         `json:"position,omitempty"`
}

type snapshotParagraph struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Text       string              `json:"text"`
	Background *snapshotAsset      `json:"background,omitempty"`
	TitleImage *snapshotAsset      `json:"titleImage,omitempty"`
	BGM        *snapshotAsset      `json:"bgm,omitempty"`
	Characters []snapshotCharacter `json:"characters,omitempty"`
	Choices    []project.Choice    `json:"choices,omitempty"`
}

type snapshotProject struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	StartID    string              `json:"startId,omitempty"`
	Paragraphs []snapshotParagraph `json:"paragraphs"`
	Assets     []snapshotAsset     `json:"assets"`
}

// buildSnapshot expands every id reference into an embedded by-value copy
// whose url is the computed archive-relative path. Assets whose bytes could
// not be collected are left out of the snapshot entirely.
func buildSnapshot(p *project.Project, paths map[string]string) snapshotProject {
	res := project.NewResolver(p.Assets)

	embed := func(ref project.AssetRef) *snapshotAsset {
		a, ok := res.Resolve(ref)
		if !ok {
			return nil
		}
		rel, ok := paths[a.ID]
		if !ok {
			return nil
		}
		return &snapshotAsset{ID: a.ID, Name: a.Name, Type: a.Type, Category: a.Category, URL: rel}
	}

	snap := snapshotProject{
		ID:      p.ID,
		Title:   p.Title,
		StartID: p.StartID,
	}
	for _, a := range p.Assets {
		rel, ok := paths[a.ID]
		if !ok {
			continue
		}
		snap.Assets = append(snap.Assets, snapshotAsset{ID: a.ID, Name: a.Name, Type: a.Type, Category: a.Category, URL: rel})
	}
	for _, para := range p.Paragraphs {
		sp := snapshotParagraph{
			ID:         para.ID,
			Title:      para.Title,
			Text:       para.Text,
			Background: embed(para.Background),
			TitleImage: embed(para.TitleImage),
			BGM:        embed(para.BGM),
			Choices:    para.Choices,
		}
		for _, ch := range para.Characters {
			sp.Characters = append(sp.Characters, snapshotCharacter{
				ID:       ch.ID,
				Name:     ch.Name,
				Sprite:   embed(ch.Sprite),
				Position: ch.Position,
			})
		}
		snap.Paragraphs = append(snap.Paragraphs, sp)
	}
	return snap
}

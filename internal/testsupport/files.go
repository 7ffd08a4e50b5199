package testsupport

import (
	"novelkit/internal/asset"
)

// PNGBytes returns a tiny but recognizable PNG payload.
func PNGBytes() []byte {
	return []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
}

// MP3Bytes returns a tiny MPEG audio payload (ID3 header).
func MP3Bytes() []byte {
	return []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 0, 0xff, 0xfb}
}

// ImageAsset builds an image asset ready for saving.
func ImageAsset(id, name string, category asset.Category) asset.Asset {
	a := asset.Asset{
		ID:       id,
		Name:     name,
		Type:     asset.TypeImage,
		Category: category,
	}
	a.Metadata.Format = "image/png"
	return a
}

// AudioAsset builds an audio asset ready for saving.
func AudioAsset(id, name string, category asset.Category) asset.Asset {
	a := asset.Asset{
		ID:       id,
		Name:     name,
		Type:     asset.TypeAudio,
		Category: category,
	}
	a.Metadata.Format = "audio/mpeg"
	return a
}

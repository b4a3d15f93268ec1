package overlays

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	_ "image/jpeg"

	"github.com/nfnt/resize"
)

// Asset is a decoded overlay image together with the bytes handed to the
// engine
type Asset struct {
	Path string
	Data []byte

	img image.Image
}

// LoadAsset reads and decodes an overlay image file
func LoadAsset(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay: %w", err)
	}

	a, err := DecodeAsset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.Path = path
	return a, nil
}

// DecodeAsset decodes overlay bytes. Non-PNG sources are re-encoded as PNG so
// transparency survives the engine's image input.
func DecodeAsset(data []byte) (*Asset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("overlay is empty")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode overlay: %w", err)
	}

	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode overlay: %w", err)
		}
		data = buf.Bytes()
	}

	return &Asset{Data: data, img: img}, nil
}

// Width is the native pixel width of the overlay
func (a *Asset) Width() int {
	return a.img.Bounds().Dx()
}

// Height is the native pixel height of the overlay
func (a *Asset) Height() int {
	return a.img.Bounds().Dy()
}

// ReferenceSize is the native width the engine's scale factor applies to
func (a *Asset) ReferenceSize() float64 {
	return float64(a.Width())
}

// Preview renders the overlay at the given display width, keeping its aspect
func (a *Asset) Preview(width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("preview width must be positive")
	}

	scaled := resize.Resize(uint(width), 0, a.img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

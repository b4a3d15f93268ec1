package editor

import "fmt"

// Handle identifies the resize grip the user dragged
type Handle int

const (
	HandleUnknown Handle = iota
	HandleTop
	HandleBottom
	HandleLeft
	HandleRight
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

var handleNames = map[Handle]string{
	HandleTop:         "top",
	HandleBottom:      "bottom",
	HandleLeft:        "left",
	HandleRight:       "right",
	HandleTopLeft:     "topLeft",
	HandleTopRight:    "topRight",
	HandleBottomLeft:  "bottomLeft",
	HandleBottomRight: "bottomRight",
}

// ParseHandle maps a widget direction tag to a Handle. Unrecognised tags map
// to HandleUnknown.
func ParseHandle(tag string) Handle {
	for h, name := range handleNames {
		if name == tag {
			return h
		}
	}
	return HandleUnknown
}

func (h Handle) String() string {
	if name, ok := handleNames[h]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(h))
}

// Resize applies an aspect-locked delta from the given handle, keeping the
// opposite corner or edge fixed on screen. g is taken by value so the result
// is always anchored to the pre-resize geometry.
func Resize(g OverlayGeometry, delta float64, h Handle) (OverlayGeometry, error) {
	next := OverlayGeometry{X: g.X, Y: g.Y, Size: g.Size + delta}

	switch h {
	case HandleRight, HandleBottom, HandleBottomRight:
		// top-left anchor
	case HandleLeft, HandleTop, HandleTopLeft:
		next.X = g.X - delta
		next.Y = g.Y - delta
	case HandleTopRight:
		next.Y = g.Y - delta
	case HandleBottomLeft:
		next.X = g.X - delta
	default:
		return g, fmt.Errorf("%w: %s", ErrUnknownResizeHandle, h)
	}

	return next, nil
}

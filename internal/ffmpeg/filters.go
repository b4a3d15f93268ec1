package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterBuilder helps construct complex ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// ScaleOverlay scales input 1 by factor, keeping its aspect, into label [wm]
func (fb *FilterBuilder) ScaleOverlay(factor float64) *FilterBuilder {
	if factor <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("[1]scale=iw*%s:-1[wm]", formatFactor(factor)))
	return fb
}

// Overlay places [wm] over input 0 at x,y
func (fb *FilterBuilder) Overlay(x, y int) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("[0][wm]overlay=x=%d:y=%d", x, y))
	return fb
}

// Build returns the filter graph with chains separated by semicolons
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ";")
}

// OverlayGraph is the filter graph compositing a scaled watermark at x,y
func OverlayGraph(x, y int, factor float64) string {
	return NewFilterBuilder().ScaleOverlay(factor).Overlay(x, y).Build()
}

func formatFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/internal/pipeline"
)

// parseExtent parses "WxH"
func parseExtent(s string) (editor.Extent, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return editor.Extent{}, fmt.Errorf("expected WxH, got %q", s)
	}

	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return editor.Extent{}, fmt.Errorf("invalid width %q: %w", w, err)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return editor.Extent{}, fmt.Errorf("invalid height %q: %w", h, err)
	}

	e := editor.Extent{Width: width, Height: height}
	if !e.Known() {
		return editor.Extent{}, fmt.Errorf("extent %q must be positive", s)
	}
	return e, nil
}

// parseResize parses "handle:delta", e.g. "topLeft:-20"
func parseResize(s string) (pipeline.ResizeStep, error) {
	tag, raw, ok := strings.Cut(s, ":")
	if !ok {
		return pipeline.ResizeStep{}, fmt.Errorf("expected handle:delta, got %q", s)
	}

	handle := editor.ParseHandle(tag)
	if handle == editor.HandleUnknown {
		return pipeline.ResizeStep{}, fmt.Errorf("%w: %q", editor.ErrUnknownResizeHandle, tag)
	}

	delta, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return pipeline.ResizeStep{}, fmt.Errorf("invalid delta %q: %w", raw, err)
	}
	return pipeline.ResizeStep{Handle: handle, Delta: delta}, nil
}

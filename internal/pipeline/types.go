package pipeline

import (
	"time"

	"github.com/kikiluvv/trimlay/internal/download"
	"github.com/kikiluvv/trimlay/internal/editor"
)

// ControllerOptions configures one editing session over a source video
type ControllerOptions struct {
	Input   string
	Overlay string

	Layout editor.Layout
	Media  editor.MediaSource

	OutputDir  string
	OutputName string

	// Downloader receives finished outputs; one writing into OutputDir is
	// created when nil
	Downloader *download.FileDownloader
}

// ResizeStep is one committed resize gesture
type ResizeStep struct {
	Handle editor.Handle
	Delta  float64
}

// RenderOptions configures a headless edit
type RenderOptions struct {
	Overlay string

	// Start and End bound the trim window; a zero End keeps the full tail
	Start time.Duration
	End   time.Duration

	// Display is the preview size the geometry is expressed in. When
	// unknown the configured display is used, then the source size.
	Display editor.Extent

	// Position moves the overlay before any resize, in display pixels
	Position *editor.OverlayGeometry
	Resizes  []ResizeStep

	OutputDir  string
	OutputName string
}

// RenderResult describes a finished headless edit
type RenderResult struct {
	Job        editor.JobDescription
	OutputPath string
	Bytes      int
	Elapsed    time.Duration
}

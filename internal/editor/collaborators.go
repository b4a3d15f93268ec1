package editor

import "context"

// Inputs are the two binary inputs of a job
type Inputs struct {
	Video   []byte
	Overlay []byte
}

// Engine turns a job and its inputs into an output container. It is assumed
// to need exclusive access to its working storage while it runs.
type Engine interface {
	Transcode(ctx context.Context, job JobDescription, in Inputs) ([]byte, error)
}

// MediaSource accepts seek requests for the player
type MediaSource interface {
	Seek(seconds float64)
}

// Layout reports the rendered player's current size in display pixels
type Layout interface {
	DisplayExtent() Extent
}

// Downloader hands a finished output to the user
type Downloader interface {
	Download(ctx context.Context, name string, blob []byte) error
}

package api

import (
	"sync"

	"github.com/kikiluvv/trimlay/internal/editor"
)

// Player stands in for a remote video element. It reports the display
// extent last pushed by the client and holds seeks until the client asks.
type Player struct {
	mu      sync.Mutex
	display editor.Extent
	seek    *float64
}

// NewPlayer creates a player with an initial display extent
func NewPlayer(display editor.Extent) *Player {
	return &Player{display: display}
}

// DisplayExtent implements editor.Layout
func (p *Player) DisplayExtent() editor.Extent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.display
}

// SetDisplay records the rendered size of the video element
func (p *Player) SetDisplay(e editor.Extent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.display = e
}

// Seek implements editor.MediaSource. Only the latest seek is kept.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seek = &seconds
}

// TakeSeek returns and clears the pending seek
func (p *Player) TakeSeek() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seek == nil {
		return 0, false
	}
	s := *p.seek
	p.seek = nil
	return s, true
}

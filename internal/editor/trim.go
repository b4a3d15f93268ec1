package editor

// TrimWindow holds the selection and keeps playback inside it. It is Unset
// until the media duration is known; Clamp is a no-op in that state.
type TrimWindow struct {
	selection SelectionRange
}

// NewTrimWindow starts with the full range selected
func NewTrimWindow() *TrimWindow {
	return &TrimWindow{selection: FullRange}
}

// SetSelection validates and commits r. On error the previous selection stays.
func (t *TrimWindow) SetSelection(r SelectionRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	t.selection = r
	return nil
}

// Selection returns the committed selection
func (t *TrimWindow) Selection() SelectionRange {
	return t.selection
}

// Window maps the selection onto the media timeline
func (t *TrimWindow) Window(d MediaDuration) (TimeWindow, error) {
	return WindowOf(t.selection, d)
}

// Clamp returns the position playback must be forced to, if any. Positions
// past the end loop back to the start rather than pausing.
func (t *TrimWindow) Clamp(current float64, d MediaDuration) (float64, bool) {
	w, err := t.Window(d)
	if err != nil {
		return 0, false
	}
	if current < w.Start || current > w.End {
		return w.Start, true
	}
	return 0, false
}

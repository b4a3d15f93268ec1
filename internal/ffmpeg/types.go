package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame         int
	FPS           float64
	Bitrate       string
	Time          string
	OutTimeMicros int64
	Speed         string
	Done          bool
}

// Elapsed is the amount of output written so far
func (p *Progress) Elapsed() time.Duration {
	return time.Duration(p.OutTimeMicros) * time.Microsecond
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// EncodeOptions controls the output encoder
type EncodeOptions struct {
	VideoCodec string
	AudioCodec string
	CRF        int
	Preset     string
}

func (o EncodeOptions) withDefaults() EncodeOptions {
	if o.VideoCodec == "" {
		o.VideoCodec = DefaultVideoCodec
	}
	if o.AudioCodec == "" {
		o.AudioCodec = DefaultAudioCodec
	}
	if o.CRF == 0 {
		o.CRF = DefaultCRF
	}
	if o.Preset == "" {
		o.Preset = DefaultPreset
	}
	return o
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called once per -progress block while the operation executes.
type ProgressFunc func(*Progress)

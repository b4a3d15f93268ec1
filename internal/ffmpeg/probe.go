package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/trimlay/pkg/util"
)

// ErrNoVideoStream is returned when a probed file has nothing to overlay onto
var ErrNoVideoStream = errors.New("no video stream")

// ProbeVideo reads the duration and display size the editor needs
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffprobe failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	info, err := parseProbe(output)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	info.FilePath = filePath

	e.logger.Debug().
		Str("file", filePath).
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Str("codec", info.VideoCodec).
		Msg("probed video")

	return info, nil
}

func parseProbe(output []byte) (*VideoInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &VideoInfo{
		Duration: parseSeconds(probe.Format.Duration),
	}
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	var video *probeStream
	for i := range probe.Streams {
		s := &probe.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil && s.Disposition.AttachedPic == 0 {
				video = s
			}
		case "audio":
			if !info.HasAudio {
				info.HasAudio = true
				info.AudioCodec = s.CodecName
			}
		}
	}
	if video == nil {
		return nil, ErrNoVideoStream
	}

	info.VideoCodec = video.CodecName
	info.Width, info.Height = video.Width, video.Height
	// players report the rotated size, so native extent follows it
	if r := video.rotation(); r == 90 || r == 270 {
		info.Width, info.Height = info.Height, info.Width
	}
	if video.AvgFrameRate != "" && video.AvgFrameRate != "0/0" {
		info.FPS = util.ParseFrameRate(video.AvgFrameRate)
	} else {
		info.FPS = util.ParseFrameRate(video.RFrameRate)
	}
	if info.Duration == 0 {
		info.Duration = parseSeconds(video.Duration)
	}

	return info, nil
}

func parseSeconds(s string) time.Duration {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
	Tags         struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideData []struct {
		Rotation float64 `json:"rotation"`
	} `json:"side_data_list"`
	Disposition struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`
}

// rotation returns the display rotation in degrees, normalised to [0,360)
func (s *probeStream) rotation() int {
	deg := 0
	if s.Tags.Rotate != "" {
		if v, err := strconv.Atoi(s.Tags.Rotate); err == nil {
			deg = v
		}
	}
	for _, sd := range s.SideData {
		if sd.Rotation != 0 {
			deg = int(sd.Rotation)
		}
	}
	return ((deg % 360) + 360) % 360
}

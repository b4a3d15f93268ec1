package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// Options locates the ffmpeg binaries
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ffprobePath, err := exec.LookPath(opts.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

// Run executes ffmpeg with the given arguments and streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	args := e.baseArgs()
	args = append(args, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := newLineTail(tailLines)

	var wg sync.WaitGroup
	wg.Add(2)

	// stderr carries both progress blocks and log lines
	go func() {
		defer wg.Done()
		e.streamOutput(stderr, opts.ProgressHandler, func(line string) {
			tail.add(line)
			if opts.LogHandler != nil {
				opts.LogHandler(line)
			}
		})
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &ExecError{Err: err, Tail: tail.lines()}
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

func (e *Executor) baseArgs() []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		args = append(args, "-threads", fmt.Sprintf("%d", e.threads))
	}
	return append(args, "-progress", "pipe:2")
}

// streamOutput parses ffmpeg output and calls handlers
func (e *Executor) streamOutput(r io.Reader, progressHandler ProgressFunc, logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		if parseProgressLine(line, progressData) {
			if strings.HasPrefix(line, "progress=") {
				if progressHandler != nil && progressData.Frame > 0 {
					progressHandler(progressData)
				}
				progressData = &Progress{}
			}
			continue
		}

		if logHandler != nil {
			logHandler(line)
		}
	}
}

// parseProgressLine folds one -progress key=value line into p. It reports
// whether the line belonged to a progress block.
func parseProgressLine(line string, p *Progress) bool {
	key, value, ok := strings.Cut(line, "=")
	if !ok || strings.ContainsAny(key, " \t") {
		return false
	}
	value = strings.TrimSpace(value)

	switch key {
	case "frame":
		fmt.Sscanf(value, "%d", &p.Frame)
	case "fps":
		fmt.Sscanf(value, "%f", &p.FPS)
	case "bitrate":
		p.Bitrate = value
	case "out_time":
		p.Time = value
	case "out_time_us":
		fmt.Sscanf(value, "%d", &p.OutTimeMicros)
	case "speed":
		p.Speed = value
	case "progress":
		p.Done = value == "end"
	default:
		return progressKeys[key]
	}
	return true
}

var progressKeys = map[string]bool{
	"stream_0_0_q": true,
	"total_size":   true,
	"out_time_ms":  true,
	"dup_frames":   true,
	"drop_frames":  true,
}

// ExecError is a failed ffmpeg run with the last lines it logged
type ExecError struct {
	Err  error
	Tail []string
}

func (e *ExecError) Error() string {
	if len(e.Tail) == 0 {
		return fmt.Sprintf("ffmpeg execution failed: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg execution failed: %v: %s", e.Err, strings.Join(e.Tail, " | "))
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

const tailLines = 8

type lineTail struct {
	mu   sync.Mutex
	max  int
	buf  []string
}

func newLineTail(max int) *lineTail {
	return &lineTail{max: max}
}

func (t *lineTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, line)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
}

func (t *lineTail) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.buf...)
}

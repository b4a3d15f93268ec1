package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/trimlay/internal/config"
	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/internal/ffmpeg"
	"github.com/kikiluvv/trimlay/internal/overlays"
)

type fakeProber struct {
	info *ffmpeg.VideoInfo
	err  error
}

func (f fakeProber) ProbeVideo(context.Context, string) (*ffmpeg.VideoInfo, error) {
	return f.info, f.err
}

type fakeEngine struct {
	mu   sync.Mutex
	jobs []editor.JobDescription
	in   []editor.Inputs
	out  []byte
	err  error
}

func (f *fakeEngine) Transcode(_ context.Context, job editor.JobDescription, in editor.Inputs) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	f.in = append(f.in, in)
	return f.out, f.err
}

func writePNG(t *testing.T, dir string, size int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.NRGBA{B: 255, A: 200})
		}
	}
	path := filepath.Join(dir, "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func newTestPipeline(t *testing.T, engine editor.Engine, info *ffmpeg.VideoInfo) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()

	video := filepath.Join(dir, "video.mp4")
	require.NoError(t, os.WriteFile(video, []byte("not really a video"), 0644))
	logo := writePNG(t, dir, 128)

	cfg := config.Default()
	cfg.OutputDir = filepath.Join(dir, "out")

	p := &Pipeline{
		logger:   zerolog.Nop(),
		config:   cfg,
		prober:   fakeProber{info: info},
		engine:   engine,
		overlays: overlays.FromMap("logo", map[string]string{"logo": logo}),
	}
	return p, video
}

func hdInfo() *ffmpeg.VideoInfo {
	return &ffmpeg.VideoInfo{Duration: 100 * time.Second, Width: 1920, Height: 1080, FPS: 30}
}

func TestRender(t *testing.T) {
	engine := &fakeEngine{out: []byte("rendered output")}
	p, video := newTestPipeline(t, engine, hdInfo())

	res, err := p.Render(context.Background(), video, RenderOptions{
		Start:    10 * time.Second,
		End:      50 * time.Second,
		Display:  editor.Extent{Width: 960, Height: 540},
		Position: &editor.OverlayGeometry{X: 30, Y: 20},
		Resizes:  []ResizeStep{{Handle: editor.HandleBottomRight, Delta: 128}},
	})
	require.NoError(t, err)

	assert.InDelta(t, 10.0, res.Job.TrimStart, 1e-9)
	assert.InDelta(t, 40.0, res.Job.TrimLength, 1e-9)
	assert.Equal(t, 60, res.Job.OverlayX)
	assert.Equal(t, 40, res.Job.OverlayY)
	// 256 display px at 2x over a 128 px asset
	assert.Equal(t, 4.0, res.Job.OverlayScale)
	assert.Equal(t, len("rendered output"), res.Bytes)

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "rendered output", string(data))
	assert.Equal(t, editor.DefaultOutputName, filepath.Base(res.OutputPath))

	require.Len(t, engine.in, 1)
	assert.Equal(t, []byte("not really a video"), engine.in[0].Video)
	assert.NotEmpty(t, engine.in[0].Overlay)
}

func TestRenderFullLengthByDefault(t *testing.T) {
	engine := &fakeEngine{out: []byte("x")}
	p, video := newTestPipeline(t, engine, hdInfo())

	res, err := p.Render(context.Background(), video, RenderOptions{OutputName: "clip.mp4"})
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Job.TrimStart)
	assert.InDelta(t, 100.0, res.Job.TrimLength, 1e-9)
	// no display configured, so the preview is the source size
	assert.Equal(t, 0, res.Job.OverlayX)
	assert.Equal(t, 1.0, res.Job.OverlayScale)
	assert.Equal(t, "clip.mp4", filepath.Base(res.OutputPath))
}

func TestRenderSizedPosition(t *testing.T) {
	engine := &fakeEngine{out: []byte("x")}
	p, video := newTestPipeline(t, engine, hdInfo())

	res, err := p.Render(context.Background(), video, RenderOptions{
		Display:  editor.Extent{Width: 960, Height: 540},
		Position: &editor.OverlayGeometry{X: 100, Y: 50, Size: 64},
	})
	require.NoError(t, err)

	assert.Equal(t, 200, res.Job.OverlayX)
	assert.Equal(t, 100, res.Job.OverlayY)
	assert.Equal(t, 1.0, res.Job.OverlayScale)
}

func TestRenderEngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("Conversion failed!")}
	p, video := newTestPipeline(t, engine, hdInfo())

	_, err := p.Render(context.Background(), video, RenderOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, editor.ErrJobFailed)
	assert.Contains(t, err.Error(), "Conversion failed!")
	assert.NoFileExists(t, filepath.Join(p.config.OutputDir, editor.DefaultOutputName))
}

func TestRenderReportsUnwrittenOutput(t *testing.T) {
	engine := &fakeEngine{out: []byte("x")}
	p, video := newTestPipeline(t, engine, hdInfo())

	// a regular file where the output directory should be
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0644))

	_, err := p.Render(context.Background(), video, RenderOptions{OutputDir: blocked})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not written")
	assert.Len(t, engine.jobs, 1)
}

func TestRenderInvalidWindow(t *testing.T) {
	engine := &fakeEngine{out: []byte("x")}
	p, video := newTestPipeline(t, engine, hdInfo())

	_, err := p.Render(context.Background(), video, RenderOptions{Start: 60 * time.Second, End: 20 * time.Second})
	assert.ErrorIs(t, err, editor.ErrInvalidRange)
	assert.Empty(t, engine.jobs)
}

func TestRenderUnknownHandle(t *testing.T) {
	engine := &fakeEngine{out: []byte("x")}
	p, video := newTestPipeline(t, engine, hdInfo())

	_, err := p.Render(context.Background(), video, RenderOptions{
		Resizes: []ResizeStep{{Handle: editor.HandleUnknown, Delta: 10}},
	})
	assert.ErrorIs(t, err, editor.ErrUnknownResizeHandle)
	assert.Empty(t, engine.jobs)
}

func TestRenderProbeFailure(t *testing.T) {
	p, video := newTestPipeline(t, &fakeEngine{}, nil)
	p.prober = fakeProber{err: errors.New("moov atom not found")}

	_, err := p.Render(context.Background(), video, RenderOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to probe video")
}

func TestRenderMissingOverlay(t *testing.T) {
	p, video := newTestPipeline(t, &fakeEngine{}, hdInfo())

	_, err := p.Render(context.Background(), video, RenderOptions{Overlay: filepath.Join(t.TempDir(), "missing.png")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load overlay")
}

func TestNewController(t *testing.T) {
	p, video := newTestPipeline(t, &fakeEngine{}, hdInfo())

	ctrl, asset, err := p.NewController(ControllerOptions{
		Input:  video,
		Layout: fixedLayout(editor.Extent{Width: 640, Height: 360}),
	})
	require.NoError(t, err)
	require.NotNil(t, ctrl)
	assert.Equal(t, 128.0, asset.ReferenceSize())

	_, _, err = p.NewController(ControllerOptions{Layout: fixedLayout{}})
	assert.Error(t, err)
}

func TestDisplayFor(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeEngine{}, hdInfo())
	native := editor.Extent{Width: 1920, Height: 1080}

	assert.Equal(t, native, p.displayFor(editor.Extent{}, native))

	p.config.Display = config.DisplayConfig{Width: 1280, Height: 720}
	assert.Equal(t, editor.Extent{Width: 1280, Height: 720}, p.displayFor(editor.Extent{}, native))

	requested := editor.Extent{Width: 480, Height: 270}
	assert.Equal(t, requested, p.displayFor(requested, native))
}

func TestNewAndClose(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}

	dir := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = filepath.Join(dir, "work")
	cfg.History.Path = filepath.Join(dir, "history.db")

	p, err := New(zerolog.Nop(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, p.History())

	// the work dir stays locked while the first pipeline is open
	_, err = New(zerolog.Nop(), cfg)
	assert.ErrorIs(t, err, ffmpeg.ErrWorkDirBusy)

	require.NoError(t, p.Close())
}

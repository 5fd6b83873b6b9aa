package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lbryio/thumbnailer/pkg/logging"
	"github.com/lbryio/thumbnailer/thumb"

	"github.com/floostack/transcoder/ffmpeg"
	"github.com/pkg/errors"
)

const defaultQuality = 3

var binLocations = []string{"/usr/local/bin", "/usr/bin", "/opt/homebrew/bin"}

type Configuration struct {
	ffmpegPath  string
	ffprobePath string
	quality     int
	log         logging.KVLogger
}

// Encoder runs ffprobe and ffmpeg for video thumbnails.
type Encoder struct {
	conf    ffmpeg.Config
	quality int
	log     logging.KVLogger
}

// FrameOptions describe a single frame extraction.
type FrameOptions struct {
	// Timestamp is a percentage ("10%"), seconds or [hh:]mm:ss[.ms].
	Timestamp string
	// Duration of the media in seconds, used to resolve percentages. Zero means unknown.
	Duration float64
	// Width and Height of the output image.
	Width, Height int
	OutputDir     string
	Filename      string
}

// Configure returns a configuration with ffmpeg and ffprobe looked up in PATH
// and a few common locations.
func Configure() *Configuration {
	return &Configuration{
		ffmpegPath:  findBinary("ffmpeg"),
		ffprobePath: findBinary("ffprobe"),
		quality:     defaultQuality,
		log:         logging.NoopKVLogger{},
	}
}

// FFmpegPath overrides the discovered ffmpeg binary. Empty values are ignored.
func (c *Configuration) FFmpegPath(p string) *Configuration {
	if p != "" {
		c.ffmpegPath = p
	}
	return c
}

// FFprobePath overrides the discovered ffprobe binary. Empty values are ignored.
func (c *Configuration) FFprobePath(p string) *Configuration {
	if p != "" {
		c.ffprobePath = p
	}
	return c
}

// Quality sets the JPEG quality scale passed to ffmpeg as -q:v (2 is best, 31 is worst).
func (c *Configuration) Quality(q int) *Configuration {
	if q >= 2 && q <= 31 {
		c.quality = q
	}
	return c
}

func (c *Configuration) Log(l logging.KVLogger) *Configuration {
	c.log = l
	return c
}

func NewEncoder(cfg *Configuration) (*Encoder, error) {
	if cfg.ffmpegPath == "" || cfg.ffprobePath == "" {
		return nil, ErrFFmpegNotFound
	}
	e := &Encoder{
		conf: ffmpeg.Config{
			FfmpegBinPath:  cfg.ffmpegPath,
			FfprobeBinPath: cfg.ffprobePath,
		},
		quality: cfg.quality,
		log:     cfg.log,
	}
	e.log.Info("encoder configured", "ffmpeg", e.conf.FfmpegBinPath, "ffprobe", e.conf.FfprobeBinPath)
	return e, nil
}

// Probe uses ffprobe to parse media file metadata.
func (e *Encoder) Probe(ctx context.Context, file string) (*ffmpeg.Metadata, error) {
	metadata := &ffmpeg.Metadata{}
	var outb, errb bytes.Buffer

	args := []string{"-i", file, "-print_format", "json", "-show_format", "-show_streams", "-show_error"}
	cmd := exec.CommandContext(ctx, e.conf.FfprobeBinPath, args...)
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf(
			"error executing (%s) with args (%s) | error: %s | message: %s %s",
			e.conf.FfprobeBinPath, args, err, outb.String(), strings.TrimSpace(errb.String()))
	}

	if err := json.Unmarshal(outb.Bytes(), metadata); err != nil {
		return nil, errors.Wrap(err, "cannot parse ffprobe output")
	}
	return metadata, nil
}

// Duration returns container duration in seconds, zero when ffprobe did not report one.
func Duration(meta *ffmpeg.Metadata) float64 {
	if meta == nil {
		return 0
	}
	d, err := strconv.ParseFloat(meta.Format.Duration, 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ExtractFrame grabs a single frame from file into opts.OutputDir/opts.Filename.
// The image is written under a temporary name first, so a half-written
// thumbnail never appears at the final location.
func (e *Encoder) ExtractFrame(ctx context.Context, file string, opts FrameOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("%w: %vx%v", ErrInvalidResolution, opts.Width, opts.Height)
	}
	at, err := ResolveTimestamp(opts.Timestamp, opts.Duration)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.OutputDir, os.ModePerm); err != nil {
		return err
	}

	out := filepath.Join(opts.OutputDir, opts.Filename)
	tmp := thumb.TempLocation(out)
	defer os.Remove(tmp)

	args := FrameArguments(file, tmp, at, opts.Width, opts.Height, e.quality)
	ll := e.log.With("in", file, "out", out)
	ll.Debug("extracting frame", "args", strings.Join(args.GetStrArguments(), " "))

	var errb bytes.Buffer
	cmd := exec.CommandContext(ctx, e.conf.FfmpegBinPath, args.GetStrArguments()...)
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, strings.TrimSpace(errb.String()))
	}

	fi, err := os.Stat(tmp)
	if err != nil || fi.Size() == 0 {
		return fmt.Errorf("%w at %v, stderr: %s", ErrNoFrame, at, strings.TrimSpace(errb.String()))
	}
	if err := os.Rename(tmp, out); err != nil {
		return err
	}
	ll.Debug("frame extracted", "timestamp", at, "width", opts.Width, "height", opts.Height)
	return nil
}

func findBinary(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	for _, dir := range binLocations {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			logger.Debugw("binary found outside of PATH", "name", name, "path", p)
			return p
		}
	}
	logger.Warnw("binary not found", "name", name)
	return ""
}

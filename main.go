package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lbryio/thumbnailer/api"
	"github.com/lbryio/thumbnailer/encoder"
	"github.com/lbryio/thumbnailer/imagethumb"
	"github.com/lbryio/thumbnailer/library"
	"github.com/lbryio/thumbnailer/manager"
	"github.com/lbryio/thumbnailer/pkg/config"
	"github.com/lbryio/thumbnailer/pkg/logging"
	"github.com/lbryio/thumbnailer/pkg/logging/zapadapter"
	"github.com/lbryio/thumbnailer/thumb"
	"github.com/lbryio/thumbnailer/video"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

var logger *zap.SugaredLogger

var CLI struct {
	Serve struct {
		Bind string `optional:"" help:"Address for HTTP server to listen on, overrides http.bind"`
	} `cmd:"" help:"Start thumbnail HTTP server"`
	Generate struct {
		File      string `arg:"" help:"Media file to make a thumbnail for"`
		Size      string `optional:"" help:"Thumbnail size (240p or 480p)"`
		Force     bool   `optional:"" help:"Regenerate even if a fresh thumbnail is cached"`
		Timestamp string `optional:"" help:"Video position: percentage, seconds or hh:mm:ss"`
		Mimetype  string `optional:"" help:"Override mimetype detection"`
	} `cmd:"" help:"Generate a thumbnail and print its path"`
	Lookup struct {
		File     string `arg:"" help:"Media file to look a thumbnail up for"`
		Size     string `optional:"" help:"Thumbnail size (240p or 480p)"`
		Mimetype string `optional:"" help:"Override mimetype detection"`
	} `cmd:"" help:"Print the path of a fresh cached thumbnail"`
	Pregenerate struct {
		Dir         string `arg:"" type:"existingdir" help:"Directory to walk"`
		Size        string `optional:"" help:"Thumbnail size (240p or 480p)"`
		Force       bool   `optional:"" help:"Regenerate all thumbnails"`
		Concurrency int    `optional:"" help:"Number of thumbnails generated at once, overrides pregenerate.concurrency"`
	} `cmd:"" help:"Generate thumbnails for every media file in a directory"`
	Config string `optional:"" type:"path" help:"Config file, thumbnailer.yml next to the binary or in the working directory by default"`
	Debug  bool   `optional:"" help:"Enable debug logging" default:"false"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := readConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	debug := CLI.Debug || cfg.Debug
	setupLogging(debug)

	sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	switch ctx.Command() {
	case "serve":
		serve(sctx, cfg, debug)
	case "generate <file>":
		opts := cliOptions(CLI.Generate.Size, CLI.Generate.Mimetype)
		opts.ForceCreate = CLI.Generate.Force
		opts.Timestamp = CLI.Generate.Timestamp
		p, err := newManager(cfg).GenerateThumbnail(sctx, absPath(CLI.Generate.File), opts)
		if err != nil {
			logger.Fatalw("thumbnail generation failed", "file", CLI.Generate.File, "err", err)
		}
		fmt.Println(p)
	case "lookup <file>":
		opts := cliOptions(CLI.Lookup.Size, CLI.Lookup.Mimetype)
		p, err := newManager(cfg).LookupThumbnail(sctx, absPath(CLI.Lookup.File), opts)
		if err != nil {
			logger.Fatalw("thumbnail lookup failed", "file", CLI.Lookup.File, "err", err)
		}
		fmt.Println(p)
	case "pregenerate <dir>":
		pregenerate(sctx, cfg)
	default:
		panic(ctx.Command())
	}
}

func readConfig() (*config.Config, error) {
	if CLI.Config != "" {
		return config.ReadFile(CLI.Config)
	}
	return config.Read()
}

func setupLogging(debug bool) {
	logger = logging.Create("", logging.Config(debug))
	zap.ReplaceGlobals(logger.Desugar())
	if !debug {
		encoder.SetLogger(logging.Create("encoder", logging.Prod))
		video.SetLogger(logging.Create("video", logging.Prod))
		imagethumb.SetLogger(logging.Create("imagethumb", logging.Prod))
		manager.SetLogger(logging.Create("manager", logging.Prod))
		library.SetLogger(logging.Create("library", logging.Prod))
		api.SetLogger(logging.Create("api", logging.Prod))
	}
}

// newManager wires suppliers into a registry. This is the only place where
// mimetypes get associated with suppliers.
func newManager(cfg *config.Config) *manager.Manager {
	enc, err := encoder.NewEncoder(
		encoder.Configure().
			FFmpegPath(cfg.FFmpegPath).
			FFprobePath(cfg.FFprobePath).
			Quality(cfg.Quality).
			Log(zapadapter.NewKV(logger.Desugar().Named("encoder"))),
	)
	if err != nil {
		logger.Fatalw("encoder initialization failed", "err", err)
	}

	registry := thumb.NewRegistry()
	registry.Register("video/*", video.Factory(enc))
	registry.Register("image/*", imagethumb.Factory())

	defaults, err := cfg.ThumbOptions()
	if err != nil {
		logger.Fatalw("invalid thumbnail options", "err", err)
	}
	logger.Debugw("thumbnail manager configured", "mimetypes", registry.Patterns(), "cache_dir", defaults.CacheRoot)

	return manager.New(manager.Config{
		Registry: registry,
		Defaults: defaults,
	})
}

func serve(ctx context.Context, cfg *config.Config, debug bool) {
	bind := cfg.HTTP.Bind
	if CLI.Serve.Bind != "" {
		bind = CLI.Serve.Bind
	}
	server := api.NewServer(
		api.Configure().
			Addr(bind).
			MediaRoot(cfg.MediaRoot).
			Manager(newManager(cfg)).
			Debug(debug),
	)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalw("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("caught a signal, shutting down...")
	if err := server.Shutdown(); err != nil {
		logger.Errorw("http server shutdown failed", "err", err)
	}
	logger.Infof("thumbnailer stopped")
}

func pregenerate(ctx context.Context, cfg *config.Config) {
	mgr := newManager(cfg)
	opts := cliOptions(CLI.Pregenerate.Size, "")
	opts.ForceCreate = CLI.Pregenerate.Force

	concurrency := cfg.Pregenerate.Concurrency
	if CLI.Pregenerate.Concurrency > 0 {
		concurrency = CLI.Pregenerate.Concurrency
	}
	report, err := library.Pregenerate(ctx, CLI.Pregenerate.Dir, library.Config{
		Generator:   mgr,
		Concurrency: concurrency,
		Options:     opts,
		Exclude:     []string{mgr.Defaults().CacheRoot},
	})
	if err != nil {
		logger.Fatalw("pregeneration interrupted", "report", report.String(), "err", err)
	}
	fmt.Println(report)
}

func cliOptions(size, mimetype string) thumb.Options {
	opts := thumb.Options{Mimetype: mimetype}
	if size != "" {
		s, err := thumb.SizeByName(size)
		if err != nil {
			logger.Fatal(err)
		}
		opts.Size = s
	}
	return opts
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/lbryio/thumbnailer/formats"
	"github.com/lbryio/thumbnailer/pkg/logging"
	"github.com/lbryio/thumbnailer/pkg/logging/zapadapter"
	"github.com/lbryio/thumbnailer/pkg/timer"
	"github.com/lbryio/thumbnailer/thumb"

	"github.com/c2h5oh/datasize"
	"github.com/karrick/godirwalk"
	"github.com/panjf2000/ants/v2"
)

type Generator interface {
	GenerateThumbnail(ctx context.Context, file string, opts thumb.Options) (string, error)
}

type Config struct {
	Generator Generator
	// Concurrency is the number of thumbnails generated at once, NumCPU by default.
	Concurrency int
	Options     thumb.Options
	// Exclude lists directories not to descend into, typically the thumbnail cache.
	Exclude []string
	// Log defaults to the package logger.
	Log logging.KVLogger
}

// Report sums up a pregeneration run.
type Report struct {
	Generated int
	Skipped   int
	Failed    int
	// Bytes is the total size of thumbnails produced or found in cache.
	Bytes datasize.ByteSize
}

func (r Report) String() string {
	return fmt.Sprintf("generated %v, skipped %v, failed %v, %v total", r.Generated, r.Skipped, r.Failed, r.Bytes.HR())
}

// Pregenerate walks root and makes sure every media file under it has a fresh thumbnail.
// Files whose extension is not a known video or image type are skipped unless
// cfg.Options.Mimetype forces one, so are files without a registered supplier.
// Other generation errors are counted and logged without interrupting the walk.
func Pregenerate(ctx context.Context, root string, cfg Config) (Report, error) {
	var (
		report Report
		mu     sync.Mutex
		wg     sync.WaitGroup
	)
	if cfg.Generator == nil {
		return report, errors.New("generator is not set")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.Log == nil {
		cfg.Log = zapadapter.NewKV(logger.Desugar())
	}
	exclude := map[string]bool{}
	for _, d := range cfg.Exclude {
		if abs, err := filepath.Abs(d); err == nil {
			exclude[abs] = true
		}
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return report, err
	}

	pool, err := ants.NewPoolWithFunc(cfg.Concurrency, func(i interface{}) {
		defer wg.Done()
		file := i.(string)
		p, err := cfg.Generator.GenerateThumbnail(ctx, file, cfg.Options)

		mu.Lock()
		defer mu.Unlock()
		switch {
		case errors.Is(err, thumb.ErrUnknownFiletype):
			report.Skipped++
		case err != nil:
			report.Failed++
			cfg.Log.Warn("thumbnail generation failed", "file", file, "err", err)
		default:
			report.Generated++
			if fi, err := os.Stat(p); err == nil {
				report.Bytes += datasize.ByteSize(fi.Size())
			}
		}
	})
	if err != nil {
		return report, err
	}
	defer pool.Release()

	t := timer.Start()
	cfg.Log.Info("pregeneration started", "root", root, "concurrency", cfg.Concurrency)
	err = godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(fullPath string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if de.IsDir() {
				if exclude[fullPath] || (fullPath != root && strings.HasPrefix(de.Name(), ".")) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if strings.HasPrefix(de.Name(), ".") || !de.IsRegular() ||
				(cfg.Options.Mimetype == "" && !formats.IsMedia(de.Name())) {
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				return nil
			}
			wg.Add(1)
			if err := pool.Invoke(fullPath); err != nil {
				wg.Done()
				return err
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if ctx.Err() != nil || errors.Is(err, ants.ErrPoolClosed) {
				return godirwalk.Halt
			}
			cfg.Log.Warn("cannot read path", "path", path, "err", err)
			return godirwalk.SkipNode
		},
	})
	wg.Wait()
	if ctx.Err() != nil {
		err = ctx.Err()
	}

	cfg.Log.Info("pregeneration finished", "root", root, "report", report.String(), "seconds", t.String())
	return report, err
}

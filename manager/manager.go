package manager

import (
	"context"
	"errors"
	"os"

	"github.com/lbryio/thumbnailer/formats"
	"github.com/lbryio/thumbnailer/pkg/logging"
	"github.com/lbryio/thumbnailer/pkg/logging/zapadapter"
	"github.com/lbryio/thumbnailer/pkg/timer"
	"github.com/lbryio/thumbnailer/thumb"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	Registry *thumb.Registry
	// Fs is used for source and cache stats. Defaults to the OS filesystem.
	Fs afero.Fs
	// MimeLookup maps a file name to its mimetype. Defaults to formats.Lookup.
	MimeLookup func(filename string) string
	// Defaults are applied under every call's options. ForceCreate is per call
	// and is ignored here.
	Defaults thumb.Options
	// Log defaults to the package logger.
	Log logging.KVLogger
}

// Manager finds cached thumbnails and creates missing or stale ones.
// It is safe for concurrent use.
type Manager struct {
	registry   *thumb.Registry
	fs         afero.Fs
	mimeLookup func(string) string
	defaults   thumb.Options
	log        logging.KVLogger
	inflight   singleflight.Group
}

func New(cfg Config) *Manager {
	m := &Manager{
		registry:   cfg.Registry,
		fs:         cfg.Fs,
		mimeLookup: cfg.MimeLookup,
		defaults:   cfg.Defaults.Merge(thumb.DefaultOptions()),
		log:        cfg.Log,
	}
	if m.registry == nil {
		m.registry = thumb.NewRegistry()
	}
	if m.fs == nil {
		m.fs = afero.NewOsFs()
	}
	if m.mimeLookup == nil {
		m.mimeLookup = formats.Lookup
	}
	if m.log == nil {
		m.log = zapadapter.NewKV(logger.Desugar())
	}
	m.defaults.ForceCreate = false
	return m
}

// Defaults returns options applied under every call.
func (m *Manager) Defaults() thumb.Options {
	return m.defaults
}

// LookupThumbnail returns the cached thumbnail of file if it is at least as new as file.
// Filesystem errors for file and for the cache entry are returned unmodified,
// a stale entry yields *thumb.ThumbnailExpiredError.
func (m *Manager) LookupThumbnail(ctx context.Context, file string, opts thumb.Options) (string, error) {
	opts = opts.Merge(m.defaults)

	src, err := m.fs.Stat(file)
	if err != nil {
		Lookups.WithLabelValues(lookupError).Inc()
		return "", err
	}
	sup, _, err := m.supplier(file, opts)
	if err != nil {
		Lookups.WithLabelValues(lookupError).Inc()
		return "", err
	}
	return m.lookup(file, src, sup)
}

// GenerateThumbnail returns a fresh cached thumbnail of file, creating it when
// the cache has none or opts.ForceCreate is set.
// Concurrent calls resolving to the same cache path share a single creation.
func (m *Manager) GenerateThumbnail(ctx context.Context, file string, opts thumb.Options) (string, error) {
	opts = opts.Merge(m.defaults)
	ll := logging.WithFile(m.log, file)

	sup, mimetype, err := m.supplier(file, opts)
	if err != nil {
		return "", err
	}

	if !opts.ForceCreate {
		src, err := m.fs.Stat(file)
		if err != nil {
			Lookups.WithLabelValues(lookupError).Inc()
			return "", err
		}
		p, err := m.lookup(file, src, sup)
		if err == nil {
			return p, nil
		}
		ll.Debug("no usable thumbnail in cache", "err", err)
	}

	return m.create(ctx, file, mimetype, sup, ll)
}

func (m *Manager) supplier(file string, opts thumb.Options) (thumb.Supplier, string, error) {
	mimetype := opts.Mimetype
	if mimetype == "" {
		mimetype = m.mimeLookup(file)
	}
	if mimetype == "" {
		return nil, "", &thumb.UnknownFiletypeError{File: file, Message: "unable to probe mimetype from filename"}
	}

	factory, err := m.registry.Resolve(mimetype)
	if err != nil {
		var ue *thumb.UnknownFiletypeError
		if errors.As(err, &ue) {
			return nil, "", &thumb.UnknownFiletypeError{File: file, Mimetype: ue.Mimetype, Message: ue.Message}
		}
		return nil, "", err
	}
	return factory(opts), mimetype, nil
}

func (m *Manager) lookup(file string, src os.FileInfo, sup thumb.Supplier) (string, error) {
	p := sup.ThumbnailLocation(file)
	cached, err := m.fs.Stat(p)
	if err != nil {
		Lookups.WithLabelValues(lookupMiss).Inc()
		return "", err
	}
	if cached.ModTime().Before(src.ModTime()) {
		Lookups.WithLabelValues(lookupExpired).Inc()
		return "", &thumb.ThumbnailExpiredError{Path: p, Message: "thumbnail is older than its source file"}
	}
	Lookups.WithLabelValues(lookupHit).Inc()
	return p, nil
}

// create runs the supplier once per cache path. Every caller stops waiting
// when its own ctx is done. A caller that joined a creation which then failed
// on the starting caller's context retries once with its own.
func (m *Manager) create(ctx context.Context, file, mimetype string, sup thumb.Supplier, ll logging.KVLogger) (string, error) {
	p, started, err := m.createShared(ctx, file, mimetype, sup, ll)
	if err != nil && !started && isContextError(err) && ctx.Err() == nil {
		ll.Debug("joined creation was cancelled, retrying", "err", err)
		p, _, err = m.createShared(ctx, file, mimetype, sup, ll)
	}
	return p, err
}

func (m *Manager) createShared(ctx context.Context, file, mimetype string, sup thumb.Supplier, ll logging.KVLogger) (string, bool, error) {
	key := sup.ThumbnailLocation(file)
	started := false

	ch := m.inflight.DoChan(key, func() (interface{}, error) {
		started = true
		t := timer.Start()
		ll.Debug("creating thumbnail", "path", key, "mimetype", mimetype)
		p, err := sup.CreateThumbnail(ctx, file)
		CreationSeconds.WithLabelValues(mimetype).Observe(t.Stop())
		if err != nil {
			Creations.WithLabelValues(creationFailed).Inc()
			ll.Warn("thumbnail creation failed", "err", err, "seconds", t.String())
			return "", err
		}
		Creations.WithLabelValues(creationOK).Inc()
		ll.Info("thumbnail created", "path", p, "seconds", t.String())
		return p, nil
	})

	select {
	case <-ctx.Done():
		ll.Debug("stopped waiting for thumbnail", "path", key, "err", ctx.Err())
		return "", false, ctx.Err()
	case res := <-ch:
		// started is only safe to read once the result has been delivered
		if !started {
			CoalescedCreations.Inc()
		}
		if res.Err != nil {
			return "", started, res.Err
		}
		return res.Val.(string), started, nil
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

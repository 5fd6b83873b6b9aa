package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lbryio/thumbnailer/pkg/logging/zapadapter"
	"github.com/lbryio/thumbnailer/thumb"

	"github.com/Pallinder/go-randomdata"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const cacheRoot = "/cache"

type fakeSupplier struct {
	thumb.Base
	fs      afero.Fs
	calls   *int32
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *fakeSupplier) CreateThumbnail(ctx context.Context, file string) (string, error) {
	atomic.AddInt32(s.calls, 1)
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	p := s.ThumbnailLocation(file)
	if err := afero.WriteFile(s.fs, p, []byte("jpeg"), 0644); err != nil {
		return "", err
	}
	return p, nil
}

type managerSuite struct {
	suite.Suite
	fs       afero.Fs
	registry *thumb.Registry
	calls    int32
	fake     *fakeSupplier
	mgr      *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(managerSuite))
}

func (s *managerSuite) SetupTest() {
	s.fs = afero.NewMemMapFs()
	s.calls = 0
	s.fake = &fakeSupplier{fs: s.fs, calls: &s.calls}
	s.registry = thumb.NewRegistry()
	s.registry.Register("video/*", func(opts thumb.Options) thumb.Supplier {
		f := *s.fake
		f.Base = thumb.NewBase(opts)
		return &f
	})
	s.mgr = New(Config{
		Registry: s.registry,
		Fs:       s.fs,
		Defaults: thumb.Options{CacheRoot: cacheRoot},
		Log:      zapadapter.NewKV(nil),
	})
}

func (s *managerSuite) sourceFile(mtime time.Time) string {
	p := filepath.Join("/media", randomdata.Alphanumeric(10)+".mp4")
	s.Require().NoError(afero.WriteFile(s.fs, p, []byte("video"), 0644))
	s.Require().NoError(s.fs.Chtimes(p, mtime, mtime))
	return p
}

func (s *managerSuite) cacheFile(src string, mtime time.Time) string {
	p := filepath.Join(cacheRoot, thumb.SizeLarge().Name, thumb.ThumbnailFileName(src))
	s.Require().NoError(afero.WriteFile(s.fs, p, []byte("old jpeg"), 0644))
	s.Require().NoError(s.fs.Chtimes(p, mtime, mtime))
	return p
}

func (s *managerSuite) TestLookupFresh() {
	now := time.Now()
	src := s.sourceFile(now.Add(-time.Hour))
	cached := s.cacheFile(src, now)

	p, err := s.mgr.LookupThumbnail(context.Background(), src, thumb.Options{})
	s.Require().NoError(err)
	s.Equal(cached, p)
}

func (s *managerSuite) TestLookupSameMtime() {
	now := time.Now()
	src := s.sourceFile(now)
	cached := s.cacheFile(src, now)

	p, err := s.mgr.LookupThumbnail(context.Background(), src, thumb.Options{})
	s.Require().NoError(err)
	s.Equal(cached, p)
}

func (s *managerSuite) TestLookupExpired() {
	now := time.Now()
	src := s.sourceFile(now)
	cached := s.cacheFile(src, now.Add(-time.Minute))

	_, err := s.mgr.LookupThumbnail(context.Background(), src, thumb.Options{})
	s.ErrorIs(err, thumb.ErrThumbnailExpired)
	var ee *thumb.ThumbnailExpiredError
	s.Require().ErrorAs(err, &ee)
	s.Equal(cached, ee.Path)
}

func (s *managerSuite) TestLookupMissingCache() {
	src := s.sourceFile(time.Now())
	_, err := s.mgr.LookupThumbnail(context.Background(), src, thumb.Options{})
	s.ErrorIs(err, os.ErrNotExist)
}

func (s *managerSuite) TestLookupMissingSource() {
	_, err := s.mgr.LookupThumbnail(context.Background(), "/media/nothing.mp4", thumb.Options{})
	s.ErrorIs(err, os.ErrNotExist)
	s.NotErrorIs(err, thumb.ErrUnknownFiletype)
}

func (s *managerSuite) TestLookupUnknownFiletype() {
	p := "/media/notes"
	s.Require().NoError(afero.WriteFile(s.fs, p, []byte("text"), 0644))

	_, err := s.mgr.LookupThumbnail(context.Background(), p, thumb.Options{})
	var ue *thumb.UnknownFiletypeError
	s.Require().ErrorAs(err, &ue)
	s.Equal(p, ue.File)
	s.Empty(ue.Mimetype)

	_, err = s.mgr.LookupThumbnail(context.Background(), p, thumb.Options{Mimetype: "application/json"})
	s.Require().ErrorAs(err, &ue)
	s.Equal(p, ue.File)
	s.Equal("application/json", ue.Mimetype)
}

func (s *managerSuite) TestLookupMimetypeOverride() {
	p := "/media/notes"
	s.Require().NoError(afero.WriteFile(s.fs, p, []byte("text"), 0644))
	cached := s.cacheFile(p, time.Now().Add(time.Minute))

	got, err := s.mgr.LookupThumbnail(context.Background(), p, thumb.Options{Mimetype: "video/x-custom"})
	s.Require().NoError(err)
	s.Equal(cached, got)
}

func (s *managerSuite) TestGenerateCacheHit() {
	now := time.Now()
	src := s.sourceFile(now.Add(-time.Hour))
	cached := s.cacheFile(src, now)

	p, err := s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{})
	s.Require().NoError(err)
	s.Equal(cached, p)
	s.EqualValues(0, s.calls)
}

func (s *managerSuite) TestGenerateForced() {
	now := time.Now()
	src := s.sourceFile(now.Add(-time.Hour))
	cached := s.cacheFile(src, now)

	p, err := s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{ForceCreate: true})
	s.Require().NoError(err)
	s.Equal(cached, p)
	s.EqualValues(1, s.calls)

	data, err := afero.ReadFile(s.fs, p)
	s.Require().NoError(err)
	s.Equal("jpeg", string(data))
}

func (s *managerSuite) TestGenerateExpired() {
	now := time.Now()
	src := s.sourceFile(now)
	cached := s.cacheFile(src, now.Add(-time.Hour))

	p, err := s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{})
	s.Require().NoError(err)
	s.Equal(cached, p)
	s.EqualValues(1, s.calls)
}

func (s *managerSuite) TestGenerateMissing() {
	src := s.sourceFile(time.Now())

	p, err := s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{Size: thumb.SizeMedium()})
	s.Require().NoError(err)
	s.Equal(filepath.Join(cacheRoot, "240p", thumb.ThumbnailFileName(src)), p)
	s.EqualValues(1, s.calls)

	// Second call is served from cache
	p2, err := s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{Size: thumb.SizeMedium()})
	s.Require().NoError(err)
	s.Equal(p, p2)
	s.EqualValues(1, s.calls)
}

func (s *managerSuite) TestGenerateMissingSource() {
	_, err := s.mgr.GenerateThumbnail(context.Background(), "/media/gone.mp4", thumb.Options{})
	s.ErrorIs(err, os.ErrNotExist)
	s.EqualValues(0, s.calls)
}

func (s *managerSuite) TestGenerateUnknownFiletype() {
	_, err := s.mgr.GenerateThumbnail(context.Background(), "/media/photo.png", thumb.Options{})
	s.ErrorIs(err, thumb.ErrUnknownFiletype)
	s.EqualValues(0, s.calls)
}

func (s *managerSuite) TestGenerateFailure() {
	s.fake.err = errors.New("decoder exploded")
	src := s.sourceFile(time.Now())

	_, err := s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{})
	s.ErrorIs(err, s.fake.err)
	s.EqualValues(1, s.calls)
}

func (s *managerSuite) TestGenerateConcurrentCoalesced() {
	defer goleak.VerifyNone(s.T())

	s.fake.started = make(chan struct{}, 10)
	s.fake.release = make(chan struct{})
	src := s.sourceFile(time.Now())

	var wg sync.WaitGroup
	paths := make([]string, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{})
		}(i)
	}

	<-s.fake.started
	// Let the rest of the callers join the creation in flight
	time.Sleep(200 * time.Millisecond)
	close(s.fake.release)
	wg.Wait()

	s.EqualValues(1, s.calls)
	for i := range paths {
		s.NoError(errs[i])
		s.Equal(paths[0], paths[i])
	}
}

func (s *managerSuite) TestGenerateWaiterDeadline() {
	defer goleak.VerifyNone(s.T())

	s.fake.started = make(chan struct{}, 1)
	s.fake.release = make(chan struct{})
	src := s.sourceFile(time.Now())

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{})
		firstErr <- err
	}()
	<-s.fake.started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := s.mgr.GenerateThumbnail(ctx, src, thumb.Options{})
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Less(int64(time.Since(start)), int64(time.Second))

	close(s.fake.release)
	s.NoError(<-firstErr)
	s.EqualValues(1, s.calls)
}

func (s *managerSuite) TestGenerateStarterCancelled() {
	defer goleak.VerifyNone(s.T())

	s.fake.started = make(chan struct{}, 2)
	s.fake.release = make(chan struct{})
	src := s.sourceFile(time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.mgr.GenerateThumbnail(ctx, src, thumb.Options{})
		firstErr <- err
	}()
	<-s.fake.started

	var (
		p      string
		err    error
		joined = make(chan struct{})
	)
	go func() {
		defer close(joined)
		p, err = s.mgr.GenerateThumbnail(context.Background(), src, thumb.Options{})
	}()
	// Let the second caller join the creation in flight
	time.Sleep(200 * time.Millisecond)
	cancel()
	close(s.fake.release)

	s.ErrorIs(<-firstErr, context.Canceled)
	<-joined
	s.Require().NoError(err)
	s.Equal(filepath.Join(cacheRoot, "480p", thumb.ThumbnailFileName(src)), p)
	s.EqualValues(2, s.calls)
}

func (s *managerSuite) TestPackageLogger() {
	core, logs := observer.New(zap.DebugLevel)
	orig := logger
	SetLogger(zap.New(core).Sugar())
	defer SetLogger(orig)

	mgr := New(Config{Registry: s.registry, Fs: s.fs, Defaults: thumb.Options{CacheRoot: cacheRoot}})
	src := s.sourceFile(time.Now())
	_, err := mgr.GenerateThumbnail(context.Background(), src, thumb.Options{})
	s.Require().NoError(err)

	created := logs.FilterMessage("thumbnail created").All()
	s.Require().Len(created, 1)
	s.Equal(src, created[0].ContextMap()["file"])
}

func (s *managerSuite) TestDefaultsNeverForce() {
	mgr := New(Config{Registry: s.registry, Fs: s.fs, Defaults: thumb.Options{CacheRoot: cacheRoot, ForceCreate: true}})
	s.False(mgr.Defaults().ForceCreate)

	now := time.Now()
	src := s.sourceFile(now.Add(-time.Hour))
	cached := s.cacheFile(src, now)
	p, err := mgr.GenerateThumbnail(context.Background(), src, thumb.Options{})
	s.Require().NoError(err)
	s.Equal(cached, p)
	s.EqualValues(0, s.calls)
}

func (s *managerSuite) TestDefaults() {
	d := s.mgr.Defaults()
	s.Equal(cacheRoot, d.CacheRoot)
	s.Equal(thumb.SizeLarge(), d.Size)
	s.Equal(thumb.DefaultTimestamp, d.Timestamp)
}

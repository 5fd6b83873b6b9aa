package thumb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedSupplier struct {
	Base
	name string
}

func (s namedSupplier) CreateThumbnail(_ context.Context, file string) (string, error) {
	return s.ThumbnailLocation(file), nil
}

func namedFactory(name string) Factory {
	return func(opts Options) Supplier {
		return namedSupplier{Base: NewBase(opts), name: name}
	}
}

func resolveName(t *testing.T, r *Registry, mimetype string) string {
	t.Helper()
	f, err := r.Resolve(mimetype)
	require.NoError(t, err)
	return f(DefaultOptions()).(namedSupplier).name
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	r.Register("video/*", namedFactory("video family"))
	r.Register("video/mp4", namedFactory("mp4"))
	r.Register("application/*", namedFactory("application family"))

	testCases := []struct {
		mimetype, expected string
	}{
		{"video/mp4", "mp4"},
		{"video/webm", "video family"},
		{"video/x-matroska", "video family"},
		{"application/json", "application family"},
	}
	for _, tc := range testCases {
		t.Run(tc.mimetype, func(t *testing.T) {
			assert.Equal(t, tc.expected, resolveName(t, r, tc.mimetype))
		})
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry()
	r.Register("video/*", namedFactory("video"))

	for _, m := range []string{"image/png", "text/plain", "video", ""} {
		_, err := r.Resolve(m)
		require.Error(t, err, m)
		assert.ErrorIs(t, err, ErrUnknownFiletype)

		var uerr *UnknownFiletypeError
		require.True(t, errors.As(err, &uerr))
		assert.Equal(t, m, uerr.Mimetype)
	}
}

func TestRegistryOverwrite(t *testing.T) {
	r := NewRegistry()
	r.Register("image/*", namedFactory("first"))
	r.Register("image/*", namedFactory("second"))

	assert.Equal(t, "second", resolveName(t, r, "image/png"))
	assert.Equal(t, []string{"image/*"}, r.Patterns())
}

func TestRegistryPatterns(t *testing.T) {
	r := NewRegistry()
	r.Register("video/*", namedFactory("v"))
	r.Register("image/*", namedFactory("i"))
	r.Register("image/gif", namedFactory("g"))
	assert.Equal(t, []string{"image/*", "image/gif", "video/*"}, r.Patterns())
}

func TestWildcard(t *testing.T) {
	assert.Equal(t, "application/*", Wildcard("application/json"))
	assert.Equal(t, "video/*", Wildcard("video/x-ms-wmv"))
	assert.Equal(t, "application/vnd.a/*", Wildcard("application/vnd.a/b"))
	assert.Equal(t, "video/", Wildcard("video/"))
	assert.Equal(t, "/mp4", Wildcard("/mp4"))
	assert.Equal(t, "video", Wildcard("video"))
}

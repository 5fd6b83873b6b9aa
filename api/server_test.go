package api

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/lbryio/thumbnailer/imagethumb"
	"github.com/lbryio/thumbnailer/manager"
	"github.com/lbryio/thumbnailer/thumb"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(server *fasthttp.Server, req *http.Request) (*http.Response, error) {
	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()

	go func() {
		if err := server.Serve(ln); err != nil {
			logger.Errorw("failed to serve", "err", err)
		}
	}()

	client := http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func TestServeImageThumbnail(t *testing.T) {
	root := t.TempDir()
	img := imaging.New(800, 400, color.NRGBA{G: 255, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(root, "landscape.png")))

	registry := thumb.NewRegistry()
	registry.Register("image/*", imagethumb.Factory())
	mgr := manager.New(manager.Config{
		Registry: registry,
		Defaults: thumb.Options{CacheRoot: filepath.Join(t.TempDir(), "cache")},
	})
	s := NewServer(Configure().MediaRoot(root).Manager(mgr))

	req, err := http.NewRequest(http.MethodGet, "http://thumbnailer/api/v1/thumbnail?path=landscape.png", nil)
	require.NoError(t, err)
	resp, err := serve(s.httpServer, req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	cfg, format, err := image.DecodeConfig(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 480, cfg.Width)
	assert.Equal(t, 240, cfg.Height)

	req, err = http.NewRequest(http.MethodGet, "http://thumbnailer/api/v1/thumbnail?path=missing.png", nil)
	require.NoError(t, err)
	resp, err = serve(s.httpServer, req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, fmt.Sprintf("%v", resp.Header))
}

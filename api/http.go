package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lbryio/thumbnailer/internal/metrics"
	"github.com/lbryio/thumbnailer/manager"
	"github.com/lbryio/thumbnailer/pkg/timer"
	"github.com/lbryio/thumbnailer/thumb"
	"github.com/lbryio/thumbnailer/video"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var ErrOutsideMediaRoot = errors.New("path is outside of media root")

// ThumbnailManager is the part of manager.Manager the API serves.
type ThumbnailManager interface {
	LookupThumbnail(ctx context.Context, file string, opts thumb.Options) (string, error)
	GenerateThumbnail(ctx context.Context, file string, opts thumb.Options) (string, error)
}

// APIServer ties HTTP API together and allows to start/shutdown the web server.
type APIServer struct {
	*Configuration
	httpServer *fasthttp.Server
}

type Configuration struct {
	debug     bool
	addr      string
	mediaRoot string
	manager   ThumbnailManager
}

type lookupResponse struct {
	Path string `json:"path"`
}

func Configure() *Configuration {
	return &Configuration{
		addr: ":8080",
	}
}

func (c *Configuration) Debug(debug bool) *Configuration {
	c.debug = debug
	return c
}

func (c *Configuration) Addr(addr string) *Configuration {
	c.addr = addr
	return c
}

// MediaRoot restricts requests to files under root and resolves relative paths against it.
func (c *Configuration) MediaRoot(root string) *Configuration {
	c.mediaRoot = root
	return c
}

func (c *Configuration) Manager(m ThumbnailManager) *Configuration {
	c.manager = m
	return c
}

func NewServer(cfg *Configuration) *APIServer {
	r := router.New()

	s := &APIServer{
		Configuration: cfg,
		httpServer: &fasthttp.Server{
			Handler: metricsMiddleware(corsMiddleware(r.Handler)),
			Name:    "thumbnailer",
		},
	}

	r.GET("/api/v1/thumbnail", s.handleThumbnail)
	r.GET("/api/v1/thumbnail/lookup", s.handleLookup)

	manager.RegisterMetrics()
	video.RegisterMetrics()
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()))

	if !s.debug {
		r.PanicHandler = handlePanic
	}
	return s
}

func (s *APIServer) handleThumbnail(ctx *fasthttp.RequestCtx) {
	file, opts, ok := s.parseRequest(ctx)
	if !ok {
		return
	}
	if force := string(ctx.QueryArgs().Peek("force")); force != "" {
		f, err := strconv.ParseBool(force)
		if err != nil {
			ctx.SetStatusCode(http.StatusBadRequest)
			fmt.Fprintf(ctx, "invalid force value: %v", force)
			return
		}
		opts.ForceCreate = f
	}
	opts.Timestamp = string(ctx.QueryArgs().Peek("timestamp"))

	ll := logger.With("file", file, "size", opts.Size.Name, "force", opts.ForceCreate)
	p, err := s.manager.GenerateThumbnail(ctx, file, opts)
	if err != nil {
		writeError(ctx, err)
		return
	}
	metrics.ThumbnailsServed.WithLabelValues(metrics.EndpointGenerate).Inc()
	ll.Debugw("serving thumbnail", "path", p)
	ctx.SendFile(p)
}

func (s *APIServer) handleLookup(ctx *fasthttp.RequestCtx) {
	file, opts, ok := s.parseRequest(ctx)
	if !ok {
		return
	}
	p, err := s.manager.LookupThumbnail(ctx, file, opts)
	if err != nil {
		writeError(ctx, err)
		return
	}
	metrics.ThumbnailsServed.WithLabelValues(metrics.EndpointLookup).Inc()
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(lookupResponse{Path: p}); err != nil {
		logger.Errorw("cannot encode response", "err", err)
	}
}

// parseRequest reads parameters shared by all thumbnail endpoints,
// writing an error response and returning false when they are unusable.
func (s *APIServer) parseRequest(ctx *fasthttp.RequestCtx) (string, thumb.Options, bool) {
	opts := thumb.Options{}
	q := ctx.QueryArgs()

	file := string(q.Peek("path"))
	if file == "" {
		ctx.SetStatusCode(http.StatusBadRequest)
		fmt.Fprint(ctx, "no path supplied")
		return "", opts, false
	}
	file, err := s.resolvePath(file)
	if err != nil {
		writeError(ctx, err)
		return "", opts, false
	}

	if name := string(q.Peek("size")); name != "" {
		size, err := thumb.SizeByName(name)
		if err != nil {
			ctx.SetStatusCode(http.StatusBadRequest)
			fmt.Fprint(ctx, err.Error())
			return "", opts, false
		}
		opts.Size = size
	}
	opts.Mimetype = string(q.Peek("mimetype"))
	return file, opts, true
}

func (s *APIServer) resolvePath(file string) (string, error) {
	if s.mediaRoot == "" {
		return filepath.Abs(file)
	}
	root, err := filepath.Abs(s.mediaRoot)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, file)
	}
	file = filepath.Clean(file)
	if file != root && !strings.HasPrefix(file, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %v", ErrOutsideMediaRoot, file)
	}
	return file, nil
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	var statusCode int
	switch {
	case errors.Is(err, ErrOutsideMediaRoot), errors.Is(err, fs.ErrPermission):
		statusCode = http.StatusForbidden
	case errors.Is(err, thumb.ErrUnknownFiletype):
		statusCode = http.StatusUnsupportedMediaType
	case errors.Is(err, thumb.ErrThumbnailExpired):
		statusCode = http.StatusConflict
	case errors.Is(err, fs.ErrNotExist):
		statusCode = http.StatusNotFound
	case errors.Is(err, thumb.ErrUnknownSize):
		statusCode = http.StatusBadRequest
	default:
		statusCode = http.StatusInternalServerError
		logger.Errorw("internal error", "url", string(ctx.Request.URI().FullURI()), "err", err)
	}
	ctx.SetStatusCode(statusCode)
	ctx.SetBodyString(err.Error())
}

func handlePanic(ctx *fasthttp.RequestCtx, p interface{}) {
	ctx.SetStatusCode(http.StatusInternalServerError)
	logger.Errorw("panicked", "url", ctx.Request.URI(), "panic", p)
}

func corsMiddleware(h fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		h(ctx)
	}
}

func metricsMiddleware(h fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		t := timer.Start()
		h(ctx)
		metrics.HTTPAPIRequests.WithLabelValues(fmt.Sprintf("%v", ctx.Response.StatusCode())).Observe(t.Duration())
	}
}

func (s *APIServer) Handler() fasthttp.RequestHandler {
	return s.httpServer.Handler
}

func (s *APIServer) Start() error {
	logger.Infow("listening", "bind", s.addr, "media_root", s.mediaRoot, "debug", s.debug)
	return s.httpServer.ListenAndServe(s.addr)
}

func (s *APIServer) Shutdown() error {
	logger.Info("shutting down...")
	return s.httpServer.Shutdown()
}

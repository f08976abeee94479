// Package web provides the HTTP admin and dry-run API for the zone filter.
package web

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"github.com/edgewatch/zonefilter/decision"
	"github.com/edgewatch/zonefilter/logging"
	"github.com/edgewatch/zonefilter/notify"
	"github.com/edgewatch/zonefilter/presets"
	"github.com/edgewatch/zonefilter/settings"
)

// Options configures how a Server listens.
type Options struct {
	// BindAddress is the host:port the API listens on.
	BindAddress string
	// AllowedOrigins restricts CORS origins; empty allows all.
	AllowedOrigins []string
}

// A Server hosts the admin and dry-run API over HTTP. It edits settings and
// presets and evaluates events, but it never delivers notifications; that
// stays with the host.
type Server struct {
	logger   logging.Logger
	store    settings.Store
	registry *presets.Registry
	engine   *decision.Engine
	cameras  notify.CameraRegistry

	mu         sync.Mutex
	isRunning  bool
	cancelFunc func()
	webWorkers sync.WaitGroup
	addr       string
}

// NewServer returns a server over the given collaborators. cameras may be nil
// when the host exposes no camera registry; the cameras endpoint then reports
// none.
func NewServer(
	store settings.Store,
	registry *presets.Registry,
	cameras notify.CameraRegistry,
	logger logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.Global()
	}
	return &Server{
		logger:   logger,
		store:    store,
		registry: registry,
		engine:   decision.NewEngine(logger),
		cameras:  cameras,
	}
}

// Start starts the web server, will return an error if server is already up.
func (s *Server) Start(ctx context.Context, options Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return errors.New("web server already started")
	}

	listener, err := net.Listen("tcp", options.BindAddress)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()

	httpServer, err := utils.NewPossiblySecureHTTPServer(s.Handler(options.AllowedOrigins), utils.HTTPServerOptions{
		MaxHeaderBytes: http.DefaultMaxHeaderBytes,
		Addr:           s.addr,
	})
	if err != nil {
		return multierr.Combine(err, listener.Close())
	}

	cancelCtx, cancelFunc := context.WithCancel(ctx)
	s.cancelFunc = cancelFunc
	s.isRunning = true

	s.webWorkers.Add(1)
	utils.PanicCapturingGo(func() {
		defer s.webWorkers.Done()
		<-cancelCtx.Done()
		if err := httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorw("error shutting down", "error", err)
		}
	})
	s.webWorkers.Add(1)
	utils.PanicCapturingGo(func() {
		defer s.webWorkers.Done()
		s.logger.Infow("serving", "url", "http://"+s.addr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("error serving http", "error", err)
		}
	})
	return nil
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop shuts the server down and waits for its workers to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.webWorkers.Wait()
	return nil
}

// Handler returns the server's HTTP handler: the API mux wrapped in CORS
// middleware. Exposed so tests can drive routes without a listener.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	mux := goji.NewMux()

	mux.HandleFunc(pat.Get("/api/presets"), s.listPresets)
	mux.HandleFunc(pat.Post("/api/presets"), s.createPreset)
	mux.HandleFunc(pat.Get("/api/presets/:id"), s.getPreset)
	mux.HandleFunc(pat.Patch("/api/presets/:id"), s.renamePreset)
	mux.HandleFunc(pat.Delete("/api/presets/:id"), s.deletePreset)
	mux.HandleFunc(pat.Put("/api/presets/:id/cameras/:camera"), s.putPresetProfile)

	mux.HandleFunc(pat.Get("/api/notifiers/:id/config"), s.getNotifierConfig)
	mux.HandleFunc(pat.Put("/api/notifiers/:id/config"), s.putNotifierConfig)

	mux.HandleFunc(pat.Post("/api/evaluate"), s.evaluate)
	mux.HandleFunc(pat.Get("/api/cameras"), s.listCameras)
	mux.HandleFunc(pat.Get("/api/schema"), s.getSchemas)

	corsHandler := cors.AllowAll()
	if len(allowedOrigins) > 0 {
		corsHandler = cors.New(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut,
				http.MethodPatch, http.MethodDelete,
			},
			AllowedHeaders: []string{"*"},
		})
	}
	return corsHandler.Handler(mux)
}

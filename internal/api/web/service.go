package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/skybi/fleetdash/internal/api/schema"
	"github.com/skybi/fleetdash/internal/config"
	"github.com/skybi/fleetdash/internal/dashboard"
	"github.com/skybi/fleetdash/internal/function"
	"github.com/skybi/fleetdash/internal/hashmap"
	"github.com/skybi/fleetdash/internal/metrics"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"percent": formatPercent,
}).ParseFS(templateFiles, "templates/*.html"))

// Service represents the web dashboard service
type Service struct {
	mtx    sync.Mutex
	server *http.Server
	closed bool

	Config     *config.Config
	Controller *dashboard.Controller
	Metrics    *metrics.Metrics

	writer      *schema.Writer
	browsers    *hashmap.ExpiringMap[string, struct{}]
	handlerOnce sync.Once
	handler     http.Handler
}

// Handler returns the HTTP handler serving the dashboard
func (service *Service) Handler() http.Handler {
	service.handlerOnce.Do(func() {
		service.handler = service.buildRouter()
	})
	return service.handler
}

// Startup starts up the web dashboard; it blocks until the server is shut down.
// A server closed by Shutdown returns nil.
func (service *Service) Startup() error {
	server := &http.Server{
		Addr:              service.Config.ListenAddress,
		Handler:           service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	service.mtx.Lock()
	if service.closed {
		service.mtx.Unlock()
		return nil
	}
	service.server = server
	service.mtx.Unlock()

	service.browsers.ScheduleCleanupTask(time.Minute)
	log.Info().Str("address", server.Addr).Msg("serving the web dashboard")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown shuts down the web dashboard
func (service *Service) Shutdown() {
	service.mtx.Lock()
	server := service.server
	service.server = nil
	service.closed = true
	service.mtx.Unlock()

	if server != nil {
		server.Close()
	}
	if service.browsers != nil {
		service.browsers.StopCleanupTask()
	}
}

func (service *Service) buildRouter() http.Handler {
	// Create the HTTP schema writer
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the web dashboard experienced an unexpected error")
		},
	}

	// Create the store of logged in browsers
	service.browsers = hashmap.NewExpiring[string, struct{}](service.browserSessionLifetime())

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RedirectSlashes)
	router.Use(service.middlewareLogRequests)
	if origin := service.allowedOrigin(); origin != "" {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{origin},
			AllowedMethods: []string{
				http.MethodHead,
				http.MethodGet,
				http.MethodPost,
				http.MethodDelete,
			},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}))
	}
	router.Use(service.middlewareCheckOrigin)
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	// Register the login endpoints
	router.Get("/login", service.EndpointLoginPage)
	router.Post("/login", service.EndpointLogin)
	router.Post("/logout", service.EndpointLogout)

	// Register the HTML overview
	router.Get("/", function.Nest[http.HandlerFunc](service.EndpointOverview, service.MiddlewareRedirectToLogin))

	// Register the view endpoints
	router.Get("/v1/summary", function.Nest[http.HandlerFunc](service.EndpointGetSummary, service.MiddlewareRequireSession))
	router.Get("/v1/emulators", function.Nest[http.HandlerFunc](service.EndpointGetEmulators, service.MiddlewareRequireSession))
	router.Get("/v1/workstations", function.Nest[http.HandlerFunc](service.EndpointGetWorkstations, service.MiddlewareRequireSession))
	router.Get("/v1/operations", function.Nest[http.HandlerFunc](service.EndpointGetOperations, service.MiddlewareRequireSession))
	router.Get("/v1/operations/{id}", function.Nest[http.HandlerFunc](service.EndpointGetOperation, service.MiddlewareRequireSession))
	router.Get("/v1/stream/{resource}", function.Nest[http.HandlerFunc](service.EndpointStream, service.MiddlewareRequireSession))

	// Register the action endpoints
	router.Post("/v1/emulators", function.Nest[http.HandlerFunc](service.EndpointCreateEmulator, service.MiddlewareRequireSession))
	router.Post("/v1/emulators/start", function.Nest[http.HandlerFunc](service.EndpointStartEmulator, service.MiddlewareRequireSession))
	router.Post("/v1/emulators/stop", function.Nest[http.HandlerFunc](service.EndpointStopEmulator, service.MiddlewareRequireSession))
	router.Delete("/v1/emulators", function.Nest[http.HandlerFunc](service.EndpointDeleteEmulator, service.MiddlewareRequireSession))
	router.Post("/v1/workstations", function.Nest[http.HandlerFunc](service.EndpointAddWorkstation, service.MiddlewareRequireSession))
	router.Delete("/v1/workstations/{id}", function.Nest[http.HandlerFunc](service.EndpointRemoveWorkstation, service.MiddlewareRequireSession))
	router.Post("/v1/workstations/{id}/test-connection", function.Nest[http.HandlerFunc](service.EndpointTestConnection, service.MiddlewareRequireSession))
	router.Post("/v1/operations/{id}/cancel", function.Nest[http.HandlerFunc](service.EndpointCancelOperation, service.MiddlewareRequireSession))

	// Register the metrics endpoint
	if service.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(service.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	return router
}

// allowedOrigin returns the additional origin allowed to call the dashboard; empty means same-origin only
func (service *Service) allowedOrigin() string {
	if service.Config == nil {
		return ""
	}
	return service.Config.AllowedOrigin
}

func (service *Service) browserSessionLifetime() time.Duration {
	if service.Config == nil || service.Config.BrowserSessionLifetime <= 0 {
		return defaultBrowserSessionLifetime
	}
	return service.Config.BrowserSessionLifetime
}

func (service *Service) middlewareLogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		started := time.Now()
		wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
		next.ServeHTTP(wrapped, request)
		log.Debug().
			Str("method", request.Method).
			Str("path", request.URL.Path).
			Int("status", wrapped.Status()).
			Dur("took", time.Since(started)).
			Msg("handled request")
	})
}

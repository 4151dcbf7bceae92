// Package http provides the HTTP delivery layer of the URL shortener:
// routes, handlers, request decoding and response rendering.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/shorturls/docs"
	"github.com/vadimbarashkov/shorturls/pkg/middleware/recoverer"
	"github.com/vadimbarashkov/shorturls/pkg/response"
	"github.com/vadimbarashkov/shorturls/web"
)

// NewRouter builds the chi router serving the API, the redirects, the docs
// and the embedded UI. Short links are rendered against baseURL. logs may be
// nil, in which case the log endpoint answers with an empty list.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, logs logStore, baseURL string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(logClientMeta)
	r.Use(recoverer.New(logger.Logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, response.ResourceNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, response.MethodNotAllowed)
	})

	r.Get("/", handleIndex)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(docs.Swagger)
	})

	h := newURLHandler(urlUseCase, baseURL)

	// No route is mounted on /api itself: "api" is a valid short code and
	// GET /api must reach the redirect handler.
	r.Get("/api/ping", handlePing)
	r.Get("/api/logs", handleLogs(logs))

	r.Route("/api/shorturls", func(r chi.Router) {
		r.Post("/", h.shortenURL)
		r.Get("/{shortCode}", h.getURLStats)
	})

	r.Get("/{shortCode}", h.redirect)

	return r
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, web.FS(), "index.html")
}

func renderError(w http.ResponseWriter, r *http.Request, resp response.Error) {
	render.Status(r, resp.StatusCode)
	render.JSON(w, r, resp)
}

// logClientMeta adds the user agent and referrer to the request log line.
func logClientMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httplog.LogEntrySetFields(r.Context(), map[string]any{
			"userAgent": valueOr(r.UserAgent(), "N/A"),
			"referrer":  valueOr(r.Referer(), "N/A"),
		})

		next.ServeHTTP(w, r)
	})
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

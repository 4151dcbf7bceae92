package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/usecase"
	"github.com/vadimbarashkov/shorturls/pkg/response"
	"github.com/vadimbarashkov/shorturls/pkg/ringlog"
)

const unknownClientValue = "unknown"

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type logStore interface {
	Entries() []ringlog.Entry
}

func handleLogs(logs logStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := []ringlog.Entry{}
		if logs != nil {
			entries = logs.Entries()
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, entries)
	}
}

type urlUseCase interface {
	ShortenURL(ctx context.Context, params usecase.ShortenParams) (*entity.URL, error)
	ResolveShortCode(ctx context.Context, shortCode string, visitor usecase.Visitor) (*entity.URL, error)
	GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error)
}

type urlHandler struct {
	useCase urlUseCase
	baseURL string
}

func newURLHandler(useCase urlUseCase, baseURL string) *urlHandler {
	return &urlHandler{
		useCase: useCase,
		baseURL: baseURL,
	}
}

// errorResponseFor maps use case and storage errors to the client facing
// response. Unknown errors are logged on the request log line.
func errorResponseFor(r *http.Request, err error) response.Error {
	switch {
	case errors.Is(err, usecase.ErrInvalidURL):
		return invalidURLResponse
	case errors.Is(err, usecase.ErrInvalidShortCode):
		return invalidShortCodeResponse
	case errors.Is(err, usecase.ErrInvalidValidity):
		return invalidValidityResponse
	case errors.Is(err, entity.ErrShortCodeExists):
		return shortCodeInUseResponse
	case errors.Is(err, entity.ErrURLNotFound):
		return urlNotFoundResponse
	case errors.Is(err, usecase.ErrURLExpired):
		return urlExpiredResponse
	default:
		httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		return response.InternalError
	}
}

func (h *urlHandler) shortenURL(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			renderError(w, r, response.EmptyRequestBody)
			return
		}

		renderError(w, r, response.InvalidRequestBody)
		return
	}

	url, err := h.useCase.ShortenURL(r.Context(), req.toParams())
	if err != nil {
		renderError(w, r, errorResponseFor(r, err))
		return
	}

	httplog.LogEntrySetField(r.Context(), "shortCode", slog.StringValue(url.ShortCode))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toShortenResponse(h.baseURL, url))
}

func (h *urlHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	visitor := usecase.Visitor{
		IP:        clientIP(r),
		UserAgent: valueOr(r.UserAgent(), unknownClientValue),
		Referrer:  valueOr(r.Referer(), unknownClientValue),
	}

	url, err := h.useCase.ResolveShortCode(r.Context(), shortCode, visitor)
	if err != nil {
		renderError(w, r, errorResponseFor(r, err))
		return
	}

	http.Redirect(w, r, url.OriginalURL, http.StatusFound)
}

func (h *urlHandler) getURLStats(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.useCase.GetURLStats(r.Context(), shortCode)
	if err != nil {
		renderError(w, r, errorResponseFor(r, err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toStatsResponse(url))
}

// clientIP returns the host part of RemoteAddr, which RealIP has already
// replaced with the forwarded address when one was sent.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	if r.RemoteAddr == "" {
		return unknownClientValue
	}

	return r.RemoteAddr
}

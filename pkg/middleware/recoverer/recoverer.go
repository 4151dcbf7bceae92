// Package recoverer turns handler panics into a logged JSON 500 response.
package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shorturls/pkg/response"
)

func New(logger *slog.Logger) func(http.Handler) http.Handler {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}

				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error(
					"unhandled panic while serving request",
					slog.Group(op,
						slog.Any("err", rvr),
						slog.String("request_id", middleware.GetReqID(r.Context())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					),
				)

				if r.Header.Get("Connection") == "Upgrade" {
					return
				}

				render.Status(r, response.UnexpectedError.StatusCode)
				render.JSON(w, r, response.UnexpectedError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

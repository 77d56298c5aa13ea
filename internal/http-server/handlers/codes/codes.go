package codes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"ideaforge/entity"
	"ideaforge/internal/codestore"
	"ideaforge/lib/api/response"
	"ideaforge/lib/sl"
)

type Core interface {
	AllocateCode(ctx context.Context) (string, error)
	SaveSession(ctx context.Context, state *entity.SessionState) (*entity.CodeRecord, error)
	ResolveCode(ctx context.Context, code string) (*entity.SessionView, error)
}

// Allocate reserves an unused code for a new purchase.
func Allocate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.codes")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		code, err := handler.AllocateCode(r.Context())
		if err != nil {
			if errors.Is(err, codestore.ErrNoneAvailable) {
				logger.Warn("no session codes left")
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("No session codes available"))
				return
			}
			logger.Error("allocate code", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		logger.With(slog.String("code", code)).Debug("code allocated")

		render.JSON(w, r, response.Ok(map[string]string{"code": code}))
	}
}

// Save persists project and chat state against a code.
func Save(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.codes")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var state entity.SessionState
		if err := render.Bind(r, &state); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("code", state.Code),
			slog.Int("step", state.CurrentStep),
		)

		rec, err := handler.SaveSession(r.Context(), &state)
		if err != nil {
			if errors.Is(err, codestore.ErrNotFound) {
				logger.Warn("unknown code")
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("Invalid code"))
				return
			}
			logger.Error("save session", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		logger.Debug("session saved")

		render.JSON(w, r, response.Ok(rec))
	}
}

// Resolve reconnects a user to their session by code. The three-state view
// is always a successful response; an unknown code is an expected outcome.
func Resolve(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.codes")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.ResolveRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Secret("code", req.Code))

		view, err := handler.ResolveCode(r.Context(), req.Code)
		if err != nil {
			logger.Error("resolve code", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		logger.With(
			slog.Bool("valid", view.Valid),
			slog.Bool("has_project", view.HasProject),
		).Debug("code resolved")

		render.JSON(w, r, response.Ok(view))
	}
}

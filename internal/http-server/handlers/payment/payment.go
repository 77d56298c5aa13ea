package payment

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
	CreateCheckout(ctx context.Context, req *entity.CheckoutRequest) (*entity.Payment, error)
}

// Checkout reserves a session code and opens a Stripe Checkout session for
// the one-time unlock purchase.
func Checkout(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.payment")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("payment service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Payment service not available"))
			return
		}

		var req entity.CheckoutRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("project_id", req.ProjectId),
			slog.String("project_name", req.ProjectName),
		)

		pm, err := handler.CreateCheckout(r.Context(), &req)
		if err != nil {
			if errors.Is(err, codestore.ErrNoneAvailable) {
				logger.Warn("no session codes left for purchase")
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, response.Error("No session codes available"))
				return
			}
			logger.Error("create checkout", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Payment creation failed"))
			return
		}
		logger.With(
			slog.String("session_id", pm.SessionId),
			slog.String("code", pm.Code),
		).Debug("checkout session created")

		render.JSON(w, r, response.Ok(pm))
	}
}

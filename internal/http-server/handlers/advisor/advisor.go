package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"ideaforge/entity"
	"ideaforge/lib/api/cont"
	"ideaforge/lib/api/response"
	"ideaforge/lib/sl"
)

type Core interface {
	SearchOpportunities(ctx context.Context, criteria *entity.SearchCriteria) ([]*entity.Opportunity, error)
	GenerateBrief(ctx context.Context, req *entity.BriefRequest) (string, error)
	ProjectChat(ctx context.Context, req *entity.ChatRequest) (string, error)
	DevelopmentGuide(ctx context.Context, req *entity.GuideRequest) (*entity.GuideReply, error)
}

// Search relays an opportunity search to the advisor.
func Search(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var criteria entity.SearchCriteria
		if err := render.Bind(r, &criteria); err != nil {
			bindFailed(logger, w, r, err)
			return
		}

		opportunities, err := handler.SearchOpportunities(r.Context(), &criteria)
		if err != nil {
			logger.Error("opportunity search", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("Opportunity search failed"))
			return
		}
		logger.With(slog.Int("count", len(opportunities))).Debug("opportunities found")

		render.JSON(w, r, response.Ok(opportunities))
	}
}

// Brief relays requirements-brief generation for a chosen opportunity.
func Brief(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var req entity.BriefRequest
		if err := render.Bind(r, &req); err != nil {
			bindFailed(logger, w, r, err)
			return
		}
		logger = logger.With(slog.String("opportunity", req.Opportunity.Name))

		brief, err := handler.GenerateBrief(r.Context(), &req)
		if err != nil {
			logger.Error("brief generation", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("Brief generation failed"))
			return
		}
		logger.Debug("brief generated")

		render.JSON(w, r, response.Ok(map[string]string{"brief": brief}))
	}
}

// Chat relays one turn of the critical project review. The route is gated:
// the session middleware has already resolved the caller's code.
func Chat(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r).With(
			sl.Secret("code", cont.GetSession(r.Context()).Code),
		)

		var req entity.ChatRequest
		if err := render.Bind(r, &req); err != nil {
			bindFailed(logger, w, r, err)
			return
		}

		reply, err := handler.ProjectChat(r.Context(), &req)
		if err != nil {
			logger.Error("project chat", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("Chat failed"))
			return
		}
		logger.Debug("chat reply produced")

		render.JSON(w, r, response.Ok(map[string]string{"reply": reply}))
	}
}

// Guide relays one turn of the step-by-step development coaching. Gated
// like Chat.
func Guide(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r).With(
			sl.Secret("code", cont.GetSession(r.Context()).Code),
		)

		var req entity.GuideRequest
		if err := render.Bind(r, &req); err != nil {
			bindFailed(logger, w, r, err)
			return
		}
		logger = logger.With(slog.Int("step", req.CurrentStep))

		reply, err := handler.DevelopmentGuide(r.Context(), &req)
		if err != nil {
			logger.Error("development guide", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("Guide failed"))
			return
		}
		logger.With(slog.Bool("step_completed", reply.StepCompleted)).Debug("guide reply produced")

		render.JSON(w, r, response.Ok(reply))
	}
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.advisor"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func bindFailed(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("bind request", sl.Err(err))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
}

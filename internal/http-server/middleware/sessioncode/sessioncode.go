package sessioncode

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"ideaforge/entity"
	"ideaforge/lib/api/cont"
	"ideaforge/lib/api/response"
	"ideaforge/lib/sl"
)

// Resolver validates a bearer session code against the store.
type Resolver interface {
	ResolveCode(ctx context.Context, code string) (*entity.SessionView, error)
}

// New gates a route group behind a purchased session code. The code is the
// bearer credential: callers present it as `Authorization: Bearer <code>`,
// and only codes known to the store pass. The resolved view is placed in
// the request context for handlers that want the session state.
func New(log *slog.Logger, resolver Resolver) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.sessioncode")
	log.With(mod).Info("session code middleware initialized")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			remote := r.RemoteAddr
			// if the request is coming from a proxy, use the X-Forwarded-For header
			xRemote := r.Header.Get("X-Forwarded-For")
			if xRemote != "" {
				remote = xRemote
			}
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", remote),
				slog.String("request_id", id),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			defer func() {
				logger.With(
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			code := ""
			header := r.Header.Get("Authorization")
			if len(header) == 0 {
				logger = logger.With(sl.Err(fmt.Errorf("authorization header not found")))
				gateFailed(ww, r, "Authorization header not found")
				return
			}
			if strings.Contains(header, "Bearer") {
				code = strings.Split(header, " ")[1]
			}
			if len(code) == 0 {
				logger = logger.With(sl.Err(fmt.Errorf("session code not found")))
				gateFailed(ww, r, "Session code not found")
				return
			}
			code = entity.NormalizeCode(code)
			logger = logger.With(sl.Secret("code", code))

			if resolver == nil {
				gateFailed(ww, r, "Unauthorized: session gate not enabled")
				return
			}

			view, err := resolver.ResolveCode(r.Context(), code)
			if err != nil {
				logger = logger.With(sl.Err(err))
				gateFailed(ww, r, "Unauthorized: session lookup failed")
				return
			}
			if !view.Valid {
				gateFailed(ww, r, "Unauthorized: invalid session code")
				return
			}
			ctx := cont.PutSession(r.Context(), code, view)

			ww.Header().Set("X-Request-ID", id)
			next.ServeHTTP(ww, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func gateFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(message))
}

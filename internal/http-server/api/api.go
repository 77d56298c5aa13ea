package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"ideaforge/internal/config"
	advisorhandler "ideaforge/internal/http-server/handlers/advisor"
	"ideaforge/internal/http-server/handlers/codes"
	"ideaforge/internal/http-server/handlers/errors"
	"ideaforge/internal/http-server/handlers/payment"
	"ideaforge/internal/http-server/handlers/stripehandler"
	"ideaforge/internal/http-server/middleware/sessioncode"
	"ideaforge/internal/http-server/middleware/timeout"
	"ideaforge/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	codes.Core
	payment.Core
	stripehandler.Core
	advisorhandler.Core
	sessioncode.Resolver
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(30))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Route("/codes", func(c chi.Router) {
			c.Post("/allocate", codes.Allocate(log, handler))
			c.Post("/session", codes.Save(log, handler))
			c.Post("/resolve", codes.Resolve(log, handler))
		})
		rootApi.Route("/payment", func(p chi.Router) {
			p.Post("/checkout", payment.Checkout(log, handler))
		})
		rootApi.Route("/advisor", func(a chi.Router) {
			a.Post("/search", advisorhandler.Search(log, handler))
			a.Post("/brief", advisorhandler.Brief(log, handler))
			// unlimited chat is what the purchase unlocks
			a.Group(func(gated chi.Router) {
				gated.Use(sessioncode.New(log, handler))
				gated.Post("/chat", advisorhandler.Chat(log, handler))
				gated.Post("/guide", advisorhandler.Guide(log, handler))
			})
		})
	})
	router.Route("/webhook", func(rootWH chi.Router) {
		rootWH.Post("/event", stripehandler.Event(log, handler))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}

package main

import (
	"flag"
	"log"
	"log/slog"
	"path/filepath"

	"ideaforge/impl/core"
	"ideaforge/internal/advisor"
	"ideaforge/internal/alert"
	"ideaforge/internal/codestore"
	"ideaforge/internal/config"
	"ideaforge/internal/database"
	"ideaforge/internal/http-server/api"
	"ideaforge/internal/stripeclient"
	"ideaforge/lib/logger"
	"ideaforge/lib/sl"
)

const logFileName = "ideaforge.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))

	if conf.Telegram.Enabled {
		notifier, err := alert.New(conf.Telegram.APIKey, conf.Telegram.ChatId, lg)
		if err != nil {
			lg.Error("telegram alerts disabled", sl.Err(err))
		} else {
			lg = slog.New(logger.NewTelegramHandler(lg.Handler(), notifier, slog.LevelError))
		}
	}
	lg.Info("starting ideaforge", slog.String("config", *configPath), slog.String("env", conf.Env))

	store := selectStore(conf, lg)

	handler := core.New(store, lg)

	payments := stripeclient.New(conf, lg)
	payments.SetCodeResolver(store)
	handler.SetPayments(payments)

	if conf.Advisor.APIKey != "" {
		handler.SetAdvisor(advisor.New(conf, lg))
	} else {
		lg.Warn("advisor api key not set, advisor routes disabled")
	}

	if err := api.New(conf, lg, handler); err != nil {
		lg.Error("api server stopped", sl.Err(err))
	}
}

// selectStore picks the code store backend. The file store is the default;
// mongo and mysql offer storage-native atomicity for multi-process setups.
func selectStore(conf *config.Config, lg *slog.Logger) codestore.Store {
	switch conf.Codes.Backend {
	case "file", "":
		return codestore.NewFileStore(conf.Codes.File, lg)
	case "mongo":
		store := database.NewMongoClient(conf, lg)
		if store == nil {
			log.Fatal("codes backend is mongo but mongo is disabled in configuration")
		}
		return store
	case "mysql":
		store, err := database.NewSQLClient(conf, lg)
		if err != nil {
			log.Fatal("mysql store: ", err)
		}
		return store
	default:
		log.Fatal("invalid codes backend: ", conf.Codes.Backend)
		return nil
	}
}

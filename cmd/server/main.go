package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	oplog "github.com/op/go-logging"
	"golang.org/x/sync/errgroup"

	"chronocam/internal/broadcast"
	"chronocam/internal/config"
	"chronocam/internal/handlers"
	"chronocam/internal/history"
	"chronocam/internal/logging"
	"chronocam/internal/scheduler"
	"chronocam/internal/state"
)

const configPath = "./configs/config.yaml"

var log = oplog.MustGetLogger("main")

func main() {
	godotenv.Load(".env")

	if err := logging.Setup(os.Getenv("LOG_LEVEL")); err != nil {
		panic(err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// History database is optional; without DATABASE_URL the app runs with
	// in-memory state only.
	var dbpool *pgxpool.Pool
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		poolCfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			log.Fatalf("failed to parse db config: %v", err)
		}
		// Supabase/PgBouncer (transaction pooling) rejects prepared statements.
		poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

		dbpool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			log.Fatalf("failed to create db pool: %v", err)
		}
		defer dbpool.Close()

		if err := dbpool.Ping(ctx); err != nil {
			log.Fatalf("database ping failed: %v", err)
		}
	} else {
		log.Info("DATABASE_URL not set; capture history disabled")
	}

	var tbot *bot.Bot
	var chatID int64
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		tbot, err = bot.New(token)
		if err != nil {
			log.Fatalf("telegram bot init failed: %v", err)
		}
		chatID, err = strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			log.Fatalf("TELEGRAM_CHAT_ID must be a numeric chat id")
		}
	}

	st := state.NewStore()
	bus := broadcast.New()
	recorder := history.NewRecorder(dbpool)

	transitions := make(chan history.Transition, 50)
	history.IncidentCollector(ctx, transitions, dbpool, tbot, chatID)

	core := scheduler.New(cfg, scheduler.Options{
		State:       st,
		Bus:         bus,
		Recorder:    recorder,
		Transitions: transitions,
	})
	core.Start()
	defer core.Stop()

	h := handlers.New(core, st, bus, recorder, configPath)

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/status", h.Status)
	r.Get("/events", h.Events)
	r.Get("/ws", h.EventsWS)
	r.Post("/action/pause", h.Pause)
	r.Post("/action/resume", h.Resume)
	r.Post("/action/snapshot", h.SnapshotNow)
	r.Post("/update", h.UpdateSettings)
	r.Get("/api/captures", h.Captures)
	r.Get("/api/logs", h.Logs)

	// Preview image and the capture gallery.
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("./static"))))
	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(cfg.Capture.SavePath))))

	// Serve the dashboard build output; SPA fallback for everything that
	// is not an API route.
	fs := http.FileServer(http.Dir("./web/dist"))
	r.Handle("/assets/*", fs)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./web/dist/index.html")
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		core.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

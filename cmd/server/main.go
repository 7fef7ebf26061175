package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/database"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/mailer"
	"github.com/iliyamo/event-ticketing/internal/metrics"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/qrcode"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/router"
	"github.com/iliyamo/event-ticketing/internal/templates"
	"github.com/iliyamo/event-ticketing/internal/ticket"
)

func newLogger(env string) zerolog.Logger {
	if env == "dev" || env == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func main() {
	_ = godotenv.Load() // .env is optional; real env wins

	cfg, err := config.Load()
	log := newLogger(cfg.Env)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	// Redis is optional; cache and rate limiting turn into no-ops without it.
	var rdb redis.UniversalClient
	if client, err := config.NewRedisClient(ctx, config.LoadRedisConfig()); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, cache and rate limit disabled")
	} else {
		rdb = client
		defer client.Close()
	}

	cacheCfg := config.LoadCacheConfig()
	var (
		cache      = middleware.NewRedisCache(cacheCfg, rdb)
		limit      = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		invalidate func(context.Context) error
	)
	if rdb != nil {
		invalidate = func(ctx context.Context) error {
			return middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix)
		}
	}

	// ---- ticket pipeline ----
	var rec metrics.Recorder
	events := repository.NewEventRepo(db)
	regs := repository.NewRegistrationRepo(db)
	sender := ticket.NewService(
		regs,
		ticket.NewComposer(cfg.Tickets.AppName),
		mailer.New(cfg.Mail, log),
		templates.MustNew(),
		qrcode.NewPNGEncoder(cfg.Tickets.QRSize),
		rec,
		log,
	)

	var pub handler.JobPublisher
	if cfg.Queue.URL != "" {
		pub = queue.NewPublisher(cfg.Queue.URL, cfg.Queue.TicketQueue, rec, log)
		consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.TicketQueue, sender, rec, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("ticket consumer stopped")
			}
		}()
	} else {
		log.Info().Msg("RABBITMQ_URL not set, tickets are sent synchronously only")
	}

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))
	e.Use(echomw.RequestID())

	auth := handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	eventH := handler.NewEventHandler(events, invalidate, log)
	eventH.DefaultCurrency = cfg.Tickets.Currency
	extrasH := handler.NewExtrasHandler(repository.NewExtrasRepo(db), regs, events)
	ticketH := handler.NewTicketHandler(sender, regs, events, pub, log)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, auth, cfg.JWTSecret, limit)
	router.RegisterPublic(e, eventH, extrasH, cfg.JWTSecret, cache, limit)
	router.RegisterAdmin(e, router.Admin{Events: eventH, Extras: extrasH, Tickets: ticketH}, events, cfg.JWTSecret, limit)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

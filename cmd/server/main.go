package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/database"
	"github.com/iliyamo/theatre-reservation/internal/handler"
	"github.com/iliyamo/theatre-reservation/internal/middleware"
	"github.com/iliyamo/theatre-reservation/internal/queue"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/router"
	"github.com/iliyamo/theatre-reservation/internal/service"
	"github.com/iliyamo/theatre-reservation/internal/storage"
)

func main() {
	createAdmin := flag.String("create-admin", "", "create a staff user with this email (password from ADMIN_PASSWORD) and exit")
	noConsumer := flag.Bool("no-consumer", false, "do not start the reservation event consumer")
	flag.Parse()

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("migrate schema")
	}

	users := repository.NewUserRepo(db)
	if *createAdmin != "" {
		pw := os.Getenv("ADMIN_PASSWORD")
		if pw == "" {
			log.Fatal("ADMIN_PASSWORD must be set with -create-admin")
		}
		id, err := users.Create(ctx, *createAdmin, pw, true, cfg.BcryptCost)
		if err != nil {
			log.WithError(err).Fatal("create admin")
		}
		log.WithField("user_id", id).Info("admin user created")
		return
	}

	var rl echo.MiddlewareFunc
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, rate limiting disabled")
		rl = middleware.NewTokenBucket(config.LoadRateLimitConfig(), nil, log)
	} else {
		defer rdb.Close()
		rl = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	}

	reservations := repository.NewReservationRepo(db)
	performances := repository.NewPerformanceRepo(db)
	booking := service.NewBookingService(db, reservations, repository.NewTicketRepo(db), performances,
		service.NewAMQPPublisher(cfg.RabbitMQURL), log)
	files := storage.NewFileStorage(cfg.Media.Root)

	h := router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), log),
		Genres:       handler.NewGenreHandler(repository.NewGenreRepo(db), log),
		Actors:       handler.NewActorHandler(repository.NewActorRepo(db), log),
		Halls:        handler.NewHallHandler(repository.NewHallRepo(db), log),
		Plays:        handler.NewPlayHandler(repository.NewPlayRepo(db), files, cfg.Media, log),
		Performances: handler.NewPerformanceHandler(performances, cfg.Media, log),
		Reservations: handler.NewReservationHandler(reservations, booking, cfg.Media, log),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit(bodyLimit(cfg.Media.MaxImageSize)))
	router.RegisterRoutes(e, db)
	router.RegisterMedia(e, cfg.Media.URL, cfg.Media.Root)
	router.RegisterAPI(e, h, cfg.JWTSecret, rl)

	if !*noConsumer {
		sink, err := queue.OpenLogSink("logs")
		if err != nil {
			log.WithError(err).Fatal("open reservation log")
		}
		defer sink.Close()
		consumer := &queue.Consumer{URL: cfg.RabbitMQURL, Log: log, Sink: sink}
		go consumer.Run(ctx)
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
	log.Info("server stopped")
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.Env == "prod" || cfg.Env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// bodyLimit leaves room for multipart overhead on top of the image cap.
func bodyLimit(maxImage int64) string {
	mb := maxImage/(1<<20) + 1
	return strconv.FormatInt(mb, 10) + "M"
}

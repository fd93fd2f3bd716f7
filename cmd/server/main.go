package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"watchpost/internal/attendance"
	"watchpost/internal/audit"
	"watchpost/internal/custody"
	"watchpost/internal/geolocation"
	jwttoken "watchpost/internal/jwt_token"
	"watchpost/internal/platform/config"
	"watchpost/internal/platform/httpserver"
	"watchpost/internal/platform/logger"
	"watchpost/internal/platform/metrics"
	platformredis "watchpost/internal/platform/redis"
	"watchpost/internal/roster"
	"watchpost/internal/session"
	httptransport "watchpost/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages. Without a Postgres
// DSN or Redis URL the process runs fully in memory, which is the local
// development mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		records    attendance.Store
		guards     roster.Store
		weapons    custody.Store
		auditStore audit.Store
	)
	if db != nil {
		records = attendance.NewPostgresStore(db)
		guards = roster.NewPostgresStore(db)
		weapons = custody.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		records = attendance.NewInMemoryStore()
		guards = roster.NewInMemoryStore()
		weapons = custody.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	var locator interface {
		geolocation.Locator
		httptransport.FixSink
	}
	if redisClient != nil {
		locator = geolocation.NewRedisLocator(redisClient.Client)
	} else {
		log.Warn("no redis configured, using in-memory fix mailbox")
		locator = geolocation.NewMemoryLocator()
	}

	var sink *audit.KafkaSink
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err = audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
	}

	publisher := audit.NewChannelPublisher(1024, log)
	worker := audit.NewWorker(auditStore, sink, publisher.Inbox(), log)

	m := metrics.New()
	ledger := custody.NewLedger(weapons, publisher, m)
	registry := attendance.NewRegistry(attendance.Dependencies{
		Records: records,
		Roster:  guards,
		Custody: weapons,
		Ledger:  ledger,
		Locator: locator,
		Auditor: publisher,
		Metrics: m,
		Logger:  log,

		FixTimeout: cfg.FixTimeout,
	})

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	health := map[string]httptransport.HealthChecker{}
	if db != nil {
		health["postgres"] = dbHealth{db}
	}
	if redisClient != nil {
		health["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Attendance: httptransport.NewAttendanceHandler(registry, records),
		Custody:    httptransport.NewCustodyHandler(ledger),
		Device:     httptransport.NewDeviceHandler(locator),
		Validator:  jwtService,
		Gate:       session.NewGate(guards),
		Logger:     log,
		Health:     health,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(ctx)
	})
	group.Go(func() error {
		log.Info("starting watchpost", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error { return h.db.PingContext(ctx) }

package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	_ "restaurantcore/docs"
	"restaurantcore/pkg/catalog"
	"restaurantcore/pkg/config"
	"restaurantcore/pkg/events"
	"restaurantcore/pkg/httpapi"
	"restaurantcore/pkg/inventory"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/order"
	"restaurantcore/pkg/otel"
	"restaurantcore/pkg/report"
	"restaurantcore/pkg/reservation"
	"restaurantcore/pkg/store"
	"restaurantcore/pkg/store/memory"
	pg "restaurantcore/pkg/store/postgres"
)

// @title Restaurant Core API
// @version 1.0
// @description Menu, inventory, reservations and orders for a restaurant
// @host localhost:8443
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in cookie
// @name session_id
func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, logger.LevelError, config.ServiceName, nil).Error(ctx, "load config", "error", err)
		return err
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), config.ServiceName, otel.GetTraceID)
	defer log.Sync()

	tp, shutdownTracing, err := otel.InitTracing(log, otel.Config{
		ServiceName: config.ServiceName,
		Host:        cfg.OtelHost,
		Probability: cfg.OtelProbability,
	})
	if err != nil {
		log.Error(ctx, "init tracing", "error", err)
		return err
	}
	defer shutdownTracing(context.Background())

	gw, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "open store", "driver", cfg.DatabaseDriver, "error", err)
		return err
	}
	defer closeStore()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	kv := httpapi.NewRedisKV(rdb)
	if err := kv.Ping(ctx); err != nil {
		log.Error(ctx, "redis ping", "addr", cfg.RedisAddr, "error", err)
		return err
	}

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
		log.Info(ctx, "publishing events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	menu := catalog.NewService(gw, log)
	stock := inventory.NewLedger(gw, log, inventory.WithMenu(menu), inventory.WithPublisher(pub))
	reservations := reservation.NewScheduler(gw, log, reservation.WithPublisher(pub))
	orders := order.NewManager(gw, log,
		order.WithMenu(menu), order.WithStock(stock), order.WithPublisher(pub))

	api := httpapi.New(httpapi.Services{
		Menu:         menu,
		Inventory:    stock,
		Reservations: reservations,
		Orders:       orders,
		Reports:      report.NewService(orders, reservations, stock),
	}, kv, log,
		httpapi.WithTracer(tp.Tracer(config.ServiceName)),
		httpapi.WithSessionTTL(cfg.SessionTTL),
		httpapi.WithSecureCookies(cfg.TLSCert != ""),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.HTTPAddr, "tls", cfg.TLSCert != "")
		if cfg.TLSCert != "" {
			errc <- srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			return
		}
		errc <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server closed", "error", err)
			return err
		}
	case s := <-sig:
		log.Info(ctx, "shutting down", "signal", s.String())
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error(ctx, "shutdown", "error", err)
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Gateway, func(), error) {
	if cfg.DatabaseDriver == "memory" {
		log.Warn(ctx, "using in-memory store", "reason", "DATABASE_DRIVER=memory")
		return memory.New(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	gw := pg.New(db)
	if err := gw.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return gw, func() { db.Close() }, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/config"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/handlers"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/realtime"
	"github.com/diewo77/go-facturas/internal/realtime/pglisten"
	rtsupabase "github.com/diewo77/go-facturas/internal/realtime/supabase"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/diewo77/go-facturas/internal/store/gormstore"
	supastore "github.com/diewo77/go-facturas/internal/store/supabase"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Errorw("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Infow("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	base, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if *migrateOnlyFlag {
		log.Infow("migrations completed")
		return nil
	}

	broker := realtime.NewBroker(log.Named("realtime"))
	defer func() { _ = broker.Close() }()

	s, source := wireRealtime(cfg, base, broker, log)

	var numberOpts []services.NumberOption
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		numberOpts = append(numberOpts, services.WithCounter(services.NewRedisCounter(client, "")))
		log.Infow("invoice counter enabled", "redis", cfg.Redis.Addr)
	}
	numbers := services.NewNumberGenerator(s, log, numberOpts...)
	invoices := services.NewInvoiceService(s, numbers, log)
	dashboard := handlers.NewDashboardHandler(services.NewDashboardService(s, log), broker, log)

	app := NewApp(Handlers{
		Health:    handlers.NewHealthHandler(s, log),
		Dashboard: dashboard,
		Customers: handlers.NewCustomerHandler(s, log),
		Products:  handlers.NewProductHandler(s, log),
		Invoices:  handlers.NewInvoiceHandler(invoices, s, log),
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	// Streams never go idle on their own, so Shutdown closes them.
	srv.RegisterOnShutdown(dashboard.CloseStreams)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow("server starting", "port", cfg.Server.Port, "store", cfg.Store.Backend, "realtime", cfg.RealtimeSource(), "dev", cfg.App.Dev)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	if source != nil {
		g.Go(func() error {
			// A dead source only stops live refreshes; the server keeps serving.
			if err := source.Run(gctx, broker); err != nil && gctx.Err() == nil {
				log.Errorw("realtime source stopped", "source", cfg.RealtimeSource(), "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
	})
	return g.Wait()
}

// openStore builds the configured backend. SQL backends are migrated when
// MIGRATIONS is set; SQLite is always migrated.
func openStore(cfg *config.Config, log *logger.Logger) (store.Store, func(), error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.Store.Backend {
	case config.BackendSupabase:
		if *migrateOnlyFlag {
			return nil, nil, errors.New("migrations are managed by the hosted project for STORE_BACKEND=supabase")
		}
		return supastore.New(cfg.Supabase.URL, cfg.Supabase.AnonKey, log), func() {}, nil
	case config.BackendPostgres:
		log.Infow("connecting to database", "host", cfg.Database.Host, "port", cfg.Database.Port, "dbname", cfg.Database.DBName)
		gdb, err = db.ConnectPostgres(cfg.Database.DSN(), log)
	case config.BackendSQLite:
		gdb, err = db.ConnectSQLite(cfg.Store.SQLitePath)
	default:
		return nil, nil, errors.Newf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, nil, err
	}

	if cfg.App.Migrations || *migrateOnlyFlag || cfg.Store.Backend == config.BackendSQLite {
		if err := db.Migrate(gdb); err != nil {
			return nil, nil, err
		}
		log.Infow("migrations applied", "backend", cfg.Store.Backend)
	}

	closeFn := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return gormstore.New(gdb), closeFn, nil
}

// wireRealtime picks where change signals come from. The local source
// publishes from this process's own writes; the others listen to the database.
func wireRealtime(cfg *config.Config, base store.Store, broker *realtime.Broker, log *logger.Logger) (store.Store, realtime.Source) {
	switch cfg.RealtimeSource() {
	case config.RealtimePostgres:
		return base, pglisten.New(cfg.Database.ConnURL(), db.ChangeChannel, log.Named("pglisten"))
	case config.RealtimeSupabase:
		heartbeat := time.Duration(cfg.Realtime.HeartbeatSeconds) * time.Second
		return base, rtsupabase.New(cfg.Supabase.URL, cfg.Supabase.AnonKey, heartbeat, log.Named("supabase-realtime"))
	default:
		return store.WithNotifier(base, broker), nil
	}
}

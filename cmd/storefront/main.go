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

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	"ms-storefront/internal/api"
	"ms-storefront/internal/config"
	"ms-storefront/internal/events"
	"ms-storefront/internal/gateway"
	"ms-storefront/internal/payment"
	"ms-storefront/internal/resource"
	"ms-storefront/internal/store"
)

const (
	slidesCollection = "slides"
	slidesCategory   = "slides"
)

var statCollections = []string{"slides", "products", "categories", "orders", "users"}

func main() {
	cfg := config.Load()

	var log *zap.Logger
	var err error
	if cfg.DevMode {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	records := store.NewBunRecordStore(db)
	if err := records.Init(ctx); err != nil {
		return err
	}

	files, err := store.NewDiskFileStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	// A missing gateway key leaves the capability nil; the payment
	// service then answers ServiceUnavailable instead of the process
	// refusing to start, so the rest of the store stays up.
	var gw gateway.Client
	if cfg.StripeSecretKey != "" {
		stripeGW, err := gateway.NewStripeClient(cfg.StripeSecretKey, cfg.Currency)
		if err != nil {
			log.Error("payment gateway construction failed", zap.Error(err))
		} else {
			gw = stripeGW
		}
	} else {
		log.Warn("no gateway credentials configured; payments disabled")
	}

	var pub events.Publisher = events.Noop{}
	if cfg.KafkaBroker != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
	}

	payments := payment.NewService(payment.Config{
		Gateway:   gw,
		Publisher: pub,
		Logger:    log.Named("payment"),
		DevMode:   cfg.DevMode,
	})
	slides := resource.NewManager(records, files, log.Named("slides"), slidesCollection, slidesCategory)

	server := api.NewServer(payments, slides, files, log.Named("api"), cfg.JWTSecret, slidesCategory, statCollections)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront listening", zap.String("addr", cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

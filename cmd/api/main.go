package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/config"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/httpx"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/inventory"
	kafkax "github.com/ariefcatur/hackathon-hardware-desk/internal/kafka"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/logging"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/notify"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/redisx"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/storage"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/subscriptions"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.AdminCode == "" {
		zlog.Warn().Msg("ADMIN_CODE is empty, admin endpoints will reject every request")
	}

	// Snapshots
	snap, closeSnap, err := storage.Open(ctx, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("open storage")
	}
	defer closeSnap()

	catalog, err := openCatalog(ctx, cfg, snap)
	if err != nil {
		zlog.Fatal().Err(err).Msg("load catalog")
	}
	orderStore, err := orders.OpenStore(ctx, snap)
	if err != nil {
		zlog.Fatal().Err(err).Msg("load orders")
	}
	subs, err := subscriptions.Open(ctx, snap)
	if err != nil {
		zlog.Fatal().Err(err).Msg("load subscriptions")
	}

	// Redis (optional)
	rdb := redisx.New(cfg.RedisAddr)
	if rdb != nil {
		defer rdb.Close()
	}

	// Notifications
	pub, priv := vapidKeys(cfg)
	var (
		notifier orders.Notifier
		stop     = func() {}
	)
	switch cfg.NotifyMode {
	case "push":
		d := notify.NewAsyncDispatcher(&notify.Pusher{
			Subs:            subs,
			VAPIDPublicKey:  pub,
			VAPIDPrivateKey: priv,
			Subscriber:      cfg.VAPIDSubject,
		}, 256)
		d.Start()
		notifier = d
		stop = func() { d.Close(); d.WaitClosed() }
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			zlog.Fatal().Msg("NOTIFY_MODE=kafka needs KAFKA_BROKERS")
		}
		prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
		prod.Start(ctx)
		notifier = &notify.KafkaDispatcher{Producer: prod, Service: cfg.ServiceName}
		stop = func() { prod.Close(); prod.WaitClosed() }
	case "none":
		zlog.Warn().Msg("notifications disabled")
	default:
		zlog.Fatal().Str("mode", cfg.NotifyMode).Msg("unknown NOTIFY_MODE")
	}

	svc := &orders.Service{
		Catalog:  catalog,
		Orders:   orderStore,
		Gate:     orders.NewGate(cfg.AdminCode),
		Notifier: notifier,
	}

	router := httpx.NewRouter()
	httpx.Mount(router, cfg.RoutePrefix, func(r chi.Router) {
		(&httpx.ItemsHandler{Catalog: catalog}).Register(r)
		(&httpx.OrdersHandler{Service: svc, Redis: rdb}).Register(r)
		(&httpx.NotificationsHandler{Subs: subs, Orders: svc, PublicKey: pub}).Register(r)
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Str("prefix", cfg.RoutePrefix).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	zlog.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	stop() // flush queued notifications
	cancel()
}

// openCatalog prefers the persisted catalog, which carries live stock. The
// CSV seeds it only on first start.
func openCatalog(ctx context.Context, cfg config.Config, snap snapshot.Store) (*inventory.Store, error) {
	catalog, found, err := inventory.Open(ctx, snap)
	if err != nil {
		return nil, err
	}
	if found {
		zlog.Info().Int("items", len(catalog.List())).Msg("catalog restored from snapshot")
		return catalog, nil
	}

	items, err := inventory.LoadCSVFile(cfg.CatalogCSV)
	if err != nil {
		return nil, err
	}
	if cfg.VendorAPIURL != "" {
		vc := &inventory.VendorClient{BaseURL: cfg.VendorAPIURL, APIKey: cfg.VendorAPIKey, Timeout: cfg.VendorTimeout}
		items = vc.Enrich(ctx, items, cfg.VendorConcurrency)
	}
	catalog = inventory.NewStore(snap, items)
	if err := catalog.Save(ctx); err != nil {
		return nil, err
	}
	zlog.Info().Int("items", len(items)).Str("csv", cfg.CatalogCSV).Msg("catalog seeded from csv")
	return catalog, nil
}

// vapidKeys returns the configured key pair, or a throwaway one so the
// server still starts. Browsers subscribed with a throwaway key stop
// receiving pushes after a restart.
func vapidKeys(cfg config.Config) (public, private string) {
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		return cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey
	}
	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		zlog.Fatal().Err(err).Msg("generate vapid keys")
	}
	zlog.Warn().Str("public_key", pub).Msg("VAPID keys not configured, generated an ephemeral pair")
	return pub, priv
}

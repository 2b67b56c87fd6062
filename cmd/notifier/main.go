package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/config"
	kafkax "github.com/ariefcatur/hackathon-hardware-desk/internal/kafka"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/logging"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/notify"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/redisx"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/storage"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/subscriptions"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
)

// notifier delivers OrderStatusChanged events published by the API when it
// runs with NOTIFY_MODE=kafka.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logging.Setup(cfg.ServiceName+"-notifier", cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.KafkaBrokers) == 0 {
		zlog.Fatal().Msg("KAFKA_BROKERS is required")
	}
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		zlog.Fatal().Msg("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must match the API's keys")
	}

	// Subscriptions are shared with the API through the snapshot backend.
	snap, closeSnap, err := storage.Open(ctx, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("open storage")
	}
	defer closeSnap()
	subs, err := subscriptions.Open(ctx, snap)
	if err != nil {
		zlog.Fatal().Err(err).Msg("load subscriptions")
	}

	rdb := redisx.New(cfg.RedisAddr)
	if rdb != nil {
		defer rdb.Close()
	} else {
		zlog.Warn().Msg("REDIS_ADDR not set, redelivered events may notify twice")
	}

	h := &notify.StatusChangedHandler{
		Deliverer: &notify.Pusher{
			Subs:            subs,
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.VAPIDSubject,
		},
		Subs:    subs,
		Service: cfg.ServiceName + "-notifier",
	}
	if rdb != nil {
		h.Dedup = &redisx.Dedup{RDB: rdb, TTL: redisx.TTLDedup}
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderStatusChanged, cfg.NotifierWorkers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		zlog.Info().Str("group", cfg.NotifierGroup).Str("topic", orders.TopicOrderStatusChanged).
			Int("workers", cfg.NotifierWorkers).Msg("notifier consumer started")
		if err := cons.Start(ctx, h.Handle); err != nil {
			zlog.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	zlog.Info().Msg("shutting down consumer")
	cancel()
	<-done
}

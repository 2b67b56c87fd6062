// Package storage picks the snapshot backend named by configuration.
package storage

import (
	"context"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/config"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/postgres"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
)

// Open returns the configured snapshot store and a func releasing its resources.
func Open(ctx context.Context, cfg config.Config) (snapshot.Store, func(), error) {
	switch cfg.Storage {
	case "file", "":
		fs, err := snapshot.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		zlog.Info().Str("dir", cfg.DataDir).Msg("snapshots on disk")
		return fs, func() {}, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, errors.Wrap(err, "db connect")
		}
		ss, err := postgres.NewSnapshotStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		zlog.Info().Msg("snapshots in postgres")
		return ss, db.Close, nil
	case "memory":
		zlog.Warn().Msg("snapshots in memory only, nothing survives a restart")
		return snapshot.NewMemory(), func() {}, nil
	default:
		return nil, nil, errors.Errorf("unknown STORAGE %q (want file, postgres or memory)", cfg.Storage)
	}
}

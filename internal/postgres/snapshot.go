package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	name       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// SnapshotStore keeps each named document as one JSONB row. A save is a
// single upsert, so a document is always either the old or the new version.
type SnapshotStore struct{ DB *pgxpool.Pool }

func NewSnapshotStore(ctx context.Context, db *pgxpool.Pool) (*SnapshotStore, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "create snapshots table")
	}
	return &SnapshotStore{DB: db}, nil
}

func (s *SnapshotStore) Load(ctx context.Context, name string, v any) (bool, error) {
	var body []byte
	err := s.DB.QueryRow(ctx, `SELECT body FROM snapshots WHERE name=$1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "load snapshot %s", name)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, errors.Wrapf(err, "decode snapshot %s", name)
	}
	return true, nil
}

func (s *SnapshotStore) Save(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode snapshot %s", name)
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO snapshots(name, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`, name, body)
	if err != nil {
		return errors.Wrapf(err, "save snapshot %s", name)
	}
	return nil
}

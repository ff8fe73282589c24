package statestore

import (
	"context"
	"encoding/json"
	"time"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
	"github.com/tironinho/kronos-sub000/pkg/redis"
)

const (
	snapshotKey = "engine:snapshot"
	snapshotTTL = 48 * time.Hour
)

// Snapshot is the engine state persisted across restarts: open positions and
// the daily counters. It carries enough to resume risk enforcement after a
// crash; order and tick history lives in the ledger database.
type Snapshot struct {
	Positions     []orderv1.Position `json:"positions"`
	DailyTrades   int                `json:"daily_trades"`
	DailyRealized float64            `json:"daily_realized_pnl"`
	TakenAt       time.Time          `json:"taken_at"`
}

// Store persists engine snapshots in Redis.
type Store struct {
	client redis.Client
	logger logger.Interface
}

// NewStore creates a snapshot store.
func NewStore(client redis.Client, log logger.Interface) *Store {
	return &Store{
		client: client,
		logger: log,
	}
}

// Save writes the snapshot, replacing any previous one.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	snap.TakenAt = time.Now().UTC()

	value, err := json.Marshal(snap)
	if err != nil {
		return errors.NewErrorDetails(
			"failed to marshal snapshot: "+err.Error(),
			string(errors.RedisSetError),
			"",
		)
	}

	if err := s.client.Set(ctx, snapshotKey, string(value), snapshotTTL); err != nil {
		return err
	}

	s.logger.Debug("engine snapshot saved",
		logger.Field{Key: "positions", Value: len(snap.Positions)},
		logger.Field{Key: "daily_trades", Value: snap.DailyTrades},
	)
	return nil
}

// Load reads the latest snapshot. It returns (nil, nil) when none exists.
// The engine only writes snapshots; restore is an operator action, and Load
// exists for the tooling that inspects a snapshot before resuming.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	value, err := s.client.Get(ctx, snapshotKey)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		return nil, errors.NewErrorDetails(
			"failed to unmarshal snapshot: "+err.Error(),
			string(errors.RedisGetError),
			"",
		)
	}
	return &snap, nil
}

// Clear removes the stored snapshot.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.client.Del(ctx, snapshotKey)
	return err
}

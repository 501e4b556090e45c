// players.go persists per-player clocks. Each player's clock is its own
// row, partitioned by player id, so concurrent callers acting as
// different players never contend.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quillwork/chronos/pkg/model"
)

// GetPlayerClock retrieves a player's clock, or model.ErrNotFound.
func (s *Store) GetPlayerClock(playerID string) (*model.PlayerClock, error) {
	row := s.db.QueryRow(
		`SELECT player_id, clock_tick, last_action, last_drift
		 FROM player_clocks WHERE player_id = ?`, playerID,
	)
	return scanPlayerClock(row)
}

// EnsurePlayerClock creates a player's clock at tick initialTick on first
// contact. Idempotent: an existing row is returned unchanged.
func (s *Store) EnsurePlayerClock(playerID string, initialTick int64) (*model.PlayerClock, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO player_clocks (player_id, clock_tick, last_action, last_drift)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(player_id) DO NOTHING`,
			playerID, initialTick, now, now,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetPlayerClock(playerID)
}

// SavePlayerClock writes back a player's clock state. The row must
// already exist (EnsurePlayerClock creates it).
func (s *Store) SavePlayerClock(pc *model.PlayerClock) error {
	return retryOnContention(func() error {
		res, err := s.db.Exec(
			`UPDATE player_clocks SET clock_tick = ?, last_action = ?, last_drift = ?
			 WHERE player_id = ?`,
			pc.ClockTick,
			pc.LastAction.UTC().Format(time.RFC3339Nano),
			pc.LastDrift.UTC().Format(time.RFC3339Nano),
			pc.PlayerID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("player %q: %w", pc.PlayerID, model.ErrNotFound)
		}
		return nil
	})
}

// ListPlayerClocks returns all player clocks ordered by player id.
func (s *Store) ListPlayerClocks() ([]model.PlayerClock, error) {
	rows, err := s.db.Query(
		`SELECT player_id, clock_tick, last_action, last_drift
		 FROM player_clocks ORDER BY player_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clocks []model.PlayerClock
	for rows.Next() {
		var pc model.PlayerClock
		var actStr, driftStr string
		if err := rows.Scan(&pc.PlayerID, &pc.ClockTick, &actStr, &driftStr); err != nil {
			return nil, err
		}
		var parseErr error
		pc.LastAction, parseErr = time.Parse(time.RFC3339Nano, actStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse last_action for player %s: %w", pc.PlayerID, parseErr)
		}
		pc.LastDrift, parseErr = time.Parse(time.RFC3339Nano, driftStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse last_drift for player %s: %w", pc.PlayerID, parseErr)
		}
		clocks = append(clocks, pc)
	}
	return clocks, rows.Err()
}

func scanPlayerClock(row *sql.Row) (*model.PlayerClock, error) {
	var pc model.PlayerClock
	var actStr, driftStr string
	if err := row.Scan(&pc.PlayerID, &pc.ClockTick, &actStr, &driftStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	var parseErr error
	pc.LastAction, parseErr = time.Parse(time.RFC3339Nano, actStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parse last_action for player %s: %w", pc.PlayerID, parseErr)
	}
	pc.LastDrift, parseErr = time.Parse(time.RFC3339Nano, driftStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parse last_drift for player %s: %w", pc.PlayerID, parseErr)
	}
	return &pc, nil
}

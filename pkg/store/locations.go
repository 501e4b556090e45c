// locations.go backs the location/graph collaborator boundary: each
// location carries a world-clock anchor, the reconciliation target for
// players present there. The Slow policy nudges these anchors.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/quillwork/chronos/pkg/model"
)

// Anchor is a location's world-clock anchor.
type Anchor struct {
	LocationID string `json:"location_id"`
	Tick       int64  `json:"tick"`
}

// GetWorldTickAnchor returns the world tick anchored at a location, or
// model.ErrNotFound for an unknown location.
func (s *Store) GetWorldTickAnchor(locationID string) (int64, error) {
	var tick int64
	err := s.db.QueryRow(
		`SELECT anchor_tick FROM location_anchors WHERE location_id = ?`, locationID,
	).Scan(&tick)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("location %q: %w", locationID, model.ErrNotFound)
		}
		return 0, err
	}
	return tick, nil
}

// SetWorldTickAnchor creates or moves a location's anchor.
func (s *Store) SetWorldTickAnchor(locationID string, tick int64) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO location_anchors (location_id, anchor_tick) VALUES (?, ?)
			 ON CONFLICT(location_id) DO UPDATE SET anchor_tick = excluded.anchor_tick`,
			locationID, tick,
		)
		return err
	})
}

// ListAnchors returns all location anchors ordered by location id.
func (s *Store) ListAnchors() ([]Anchor, error) {
	rows, err := s.db.Query(
		`SELECT location_id, anchor_tick FROM location_anchors ORDER BY location_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anchors []Anchor
	for rows.Next() {
		var a Anchor
		if err := rows.Scan(&a.LocationID, &a.Tick); err != nil {
			return nil, err
		}
		anchors = append(anchors, a)
	}
	return anchors, rows.Err()
}

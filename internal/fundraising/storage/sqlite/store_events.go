package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openraise/fundraising/internal/fundraising/storage"
)

// AppendEvent records one lifecycle event in the activity log.
func (s *Store) AppendEvent(ctx context.Context, event storage.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(event.Kind) == "" {
		return fmt.Errorf("event kind is required")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO events (kind, campaign_id, detail, ts) VALUES (?, ?, ?, ?)`,
		event.Kind,
		event.CampaignID,
		event.Detail,
		toMillis(event.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]storage.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, kind, campaign_id, detail, ts
		   FROM events
		  ORDER BY id DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []storage.Event
	for rows.Next() {
		var event storage.Event
		var ts int64
		if err := rows.Scan(&event.ID, &event.Kind, &event.CampaignID, &event.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Timestamp = fromMillis(ts)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

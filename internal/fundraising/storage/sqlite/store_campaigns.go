package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openraise/fundraising/internal/fundraising/domain"
	"github.com/openraise/fundraising/internal/fundraising/storage"
)

const campaignColumns = `id, title, creator, category, goal_usd, raised_usd,
       backers, deadline, status, description, created_at`

// PutCampaign inserts one campaign record.
func (s *Store) PutCampaign(ctx context.Context, campaign domain.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id := strings.TrimSpace(campaign.ID)
	if id == "" {
		return fmt.Errorf("campaign id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO campaigns (
		   id, title, creator, category, goal_usd, raised_usd,
		   backers, deadline, status, description, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		campaign.Title,
		campaign.Creator,
		campaign.Category,
		campaign.GoalUSD,
		campaign.RaisedUSD,
		campaign.Backers,
		toMillis(campaign.Deadline),
		string(campaign.Status),
		campaign.Description,
		toMillis(campaign.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put campaign: %w", err)
	}
	return nil
}

// GetCampaign returns one campaign by id.
func (s *Store) GetCampaign(ctx context.Context, id string) (domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return domain.Campaign{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Campaign{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Campaign{}, fmt.Errorf("campaign id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`,
		id,
	)
	campaign, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Campaign{}, storage.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return campaign, nil
}

// UpdateCampaignStatus persists a campaign status transition.
func (s *Store) UpdateCampaignStatus(ctx context.Context, id string, status domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("campaign id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE campaigns SET status = ? WHERE id = ?`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// QueryCampaigns returns campaigns matching the filter.
func (s *Store) QueryCampaigns(ctx context.Context, filter storage.CampaignFilter) ([]domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(filter.Status)) == "" {
		return nil, fmt.Errorf("status filter is required")
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = ?`
	args := []any{string(filter.Status)}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}

	switch filter.SortBy {
	case storage.SortDeadline:
		query += ` ORDER BY deadline ASC`
	case storage.SortCreated:
		query += ` ORDER BY created_at DESC`
	default:
		query += ` ORDER BY raised_usd DESC`
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// FindExpiredActive returns active campaigns whose deadline precedes now.
func (s *Store) FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+campaignColumns+`
		   FROM campaigns
		  WHERE status = ? AND deadline < ?
		  ORDER BY deadline ASC`,
		string(domain.StatusActive),
		toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("find expired active campaigns: %w", err)
	}
	defer rows.Close()

	return collectCampaigns(rows)
}

// AggregateStats computes ledger-wide totals.
func (s *Store) AggregateStats(ctx context.Context) (storage.AggregateTotals, error) {
	if err := ctx.Err(); err != nil {
		return storage.AggregateTotals{}, err
	}
	if err := s.ready(); err != nil {
		return storage.AggregateTotals{}, err
	}

	var totals storage.AggregateTotals
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(raised_usd), 0) FROM campaigns WHERE status <> ?`,
		string(domain.StatusCancelled),
	).Scan(&totals.TotalRaisedUSD)
	if err != nil {
		return storage.AggregateTotals{}, fmt.Errorf("aggregate raised total: %w", err)
	}

	err = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COALESCE(AVG(goal_usd), 0) FROM campaigns`,
	).Scan(&totals.TotalCampaigns, &totals.AverageGoalUSD)
	if err != nil {
		return storage.AggregateTotals{}, fmt.Errorf("aggregate campaign counts: %w", err)
	}

	err = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM campaigns WHERE status = ?`,
		string(domain.StatusSuccess),
	).Scan(&totals.Successful)
	if err != nil {
		return storage.AggregateTotals{}, fmt.Errorf("aggregate success count: %w", err)
	}

	return totals, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (domain.Campaign, error) {
	var campaign domain.Campaign
	var status string
	var deadline int64
	var createdAt int64
	err := row.Scan(
		&campaign.ID,
		&campaign.Title,
		&campaign.Creator,
		&campaign.Category,
		&campaign.GoalUSD,
		&campaign.RaisedUSD,
		&campaign.Backers,
		&deadline,
		&status,
		&campaign.Description,
		&createdAt,
	)
	if err != nil {
		return domain.Campaign{}, err
	}
	campaign.Status = domain.Status(status)
	campaign.Deadline = fromMillis(deadline)
	campaign.CreatedAt = fromMillis(createdAt)
	return campaign, nil
}

func collectCampaigns(rows *sql.Rows) ([]domain.Campaign, error) {
	var campaigns []domain.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return campaigns, nil
}

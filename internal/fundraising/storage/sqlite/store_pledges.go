package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"

	"github.com/openraise/fundraising/internal/fundraising/domain"
	"github.com/openraise/fundraising/internal/fundraising/storage"
)

// AddPledge inserts the pledge and increments the owning campaign's
// aggregates in one transaction, so a crash between the two writes cannot
// leave them disagreeing.
func (s *Store) AddPledge(ctx context.Context, pledge domain.Pledge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(pledge.ID) == "" {
		return fmt.Errorf("pledge id is required")
	}
	if strings.TrimSpace(pledge.CampaignID) == "" {
		return fmt.Errorf("campaign id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add pledge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := putPledge(ctx, tx, pledge); err != nil {
		return err
	}
	if err := incrementCampaignTotals(ctx, tx, pledge.CampaignID, pledge.AmountUSD, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add pledge: %w", err)
	}
	return nil
}

// RefundPledges flips every non-refunded pledge of the campaign and, when at
// least one flipped, zeroes the campaign aggregates, in one transaction. The
// flip is monotonic: already-refunded pledges never revert, and a second
// call returns 0 without touching the aggregates.
func (s *Store) RefundPledges(ctx context.Context, campaignID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return 0, fmt.Errorf("campaign id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin refund pledges: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	flipped, err := markPledgesRefunded(ctx, tx, campaignID)
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		if err := resetCampaignTotals(ctx, tx, campaignID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit refund pledges: %w", err)
	}
	return flipped, nil
}

// ListPledges yields the campaign's pledges ordered by timestamp descending.
// Each range over the returned sequence re-runs the query.
func (s *Store) ListPledges(ctx context.Context, campaignID string, onlyNonRefunded bool) iter.Seq2[domain.Pledge, error] {
	return func(yield func(domain.Pledge, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(domain.Pledge{}, err)
			return
		}
		if err := s.ready(); err != nil {
			yield(domain.Pledge{}, err)
			return
		}

		query := `SELECT id, campaign_id, backer, amount_usd, reward_tier, ts, refunded
		            FROM pledges
		           WHERE campaign_id = ?`
		if onlyNonRefunded {
			query += ` AND refunded = 0`
		}
		query += ` ORDER BY ts DESC`

		rows, err := s.sqlDB.QueryContext(ctx, query, strings.TrimSpace(campaignID))
		if err != nil {
			yield(domain.Pledge{}, fmt.Errorf("list pledges: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			pledge, err := scanPledge(rows)
			if err != nil {
				yield(domain.Pledge{}, fmt.Errorf("scan pledge: %w", err))
				return
			}
			if !yield(pledge, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Pledge{}, fmt.Errorf("iterate pledges: %w", err))
		}
	}
}

// ListBackers returns distinct backers with at least one non-refunded
// pledge, ordered by their most recent pledge.
func (s *Store) ListBackers(ctx context.Context, campaignID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("campaign id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT backer
		   FROM pledges
		  WHERE campaign_id = ? AND refunded = 0
		  GROUP BY backer
		  ORDER BY MAX(ts) DESC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("list backers: %w", err)
	}
	defer rows.Close()

	var backers []string
	for rows.Next() {
		var backer string
		if err := rows.Scan(&backer); err != nil {
			return nil, fmt.Errorf("scan backer: %w", err)
		}
		backers = append(backers, backer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backers: %w", err)
	}
	return backers, nil
}

func putPledge(ctx context.Context, tx *sql.Tx, pledge domain.Pledge) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO pledges (id, campaign_id, backer, amount_usd, reward_tier, ts, refunded)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pledge.ID,
		pledge.CampaignID,
		pledge.Backer,
		pledge.AmountUSD,
		pledge.RewardTier,
		toMillis(pledge.Timestamp),
		boolToInt(pledge.Refunded),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("put pledge: %w", err)
	}
	return nil
}

func incrementCampaignTotals(ctx context.Context, tx *sql.Tx, campaignID string, deltaAmount float64, deltaBackers int) error {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE campaigns
		    SET raised_usd = raised_usd + ?,
		        backers = backers + ?
		  WHERE id = ?`,
		deltaAmount, deltaBackers, campaignID,
	)
	if err != nil {
		return fmt.Errorf("increment campaign totals: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment campaign totals: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func markPledgesRefunded(ctx context.Context, tx *sql.Tx, campaignID string) (int, error) {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE pledges SET refunded = 1 WHERE campaign_id = ? AND refunded = 0`,
		campaignID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark pledges refunded: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark pledges refunded: %w", err)
	}
	return int(affected), nil
}

func resetCampaignTotals(ctx context.Context, tx *sql.Tx, campaignID string) error {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE campaigns SET raised_usd = 0, backers = 0 WHERE id = ?`,
		campaignID,
	)
	if err != nil {
		return fmt.Errorf("reset campaign totals: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset campaign totals: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanPledge(row rowScanner) (domain.Pledge, error) {
	var pledge domain.Pledge
	var ts int64
	var refunded int
	err := row.Scan(
		&pledge.ID,
		&pledge.CampaignID,
		&pledge.Backer,
		&pledge.AmountUSD,
		&pledge.RewardTier,
		&ts,
		&refunded,
	)
	if err != nil {
		return domain.Pledge{}, err
	}
	pledge.Timestamp = fromMillis(ts)
	pledge.Refunded = refunded != 0
	return pledge, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

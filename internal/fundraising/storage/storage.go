// Package storage defines persistence contracts for the fundraising ledger.
package storage

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/openraise/fundraising/internal/fundraising/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates an identifier collision on insert.
	ErrAlreadyExists = errors.New("record already exists")
)

// Sort identifies a campaign ordering for query results.
type Sort string

const (
	// SortRaised orders by raised amount, highest first.
	SortRaised Sort = "raised"
	// SortDeadline orders by deadline, soonest first.
	SortDeadline Sort = "deadline"
	// SortCreated orders by creation time, newest first.
	SortCreated Sort = "created"
)

// CampaignFilter narrows and orders a campaign query. Status is required;
// Category is optional. Unknown sorts fall back to SortRaised.
type CampaignFilter struct {
	Status   domain.Status
	Category string
	SortBy   Sort
}

// AggregateTotals summarizes the whole ledger.
type AggregateTotals struct {
	// TotalRaisedUSD sums raised amounts across all non-cancelled campaigns.
	TotalRaisedUSD float64
	// TotalCampaigns counts every campaign regardless of status.
	TotalCampaigns int
	// Successful counts campaigns with status success.
	Successful int
	// AverageGoalUSD averages the goal across all campaigns, 0 when none.
	AverageGoalUSD float64
}

// Event is one lifecycle event appended to the activity log.
type Event struct {
	ID         int64
	Kind       string
	CampaignID string
	Detail     string
	Timestamp  time.Time
}

// CampaignStore persists campaign records and their aggregates.
type CampaignStore interface {
	// PutCampaign inserts a new campaign. It returns ErrAlreadyExists when
	// the identifier is taken.
	PutCampaign(ctx context.Context, campaign domain.Campaign) error
	// GetCampaign returns one campaign or ErrNotFound.
	GetCampaign(ctx context.Context, id string) (domain.Campaign, error)
	// UpdateCampaignStatus persists a status transition. It returns
	// ErrNotFound when the campaign is absent.
	UpdateCampaignStatus(ctx context.Context, id string, status domain.Status) error
	// QueryCampaigns returns campaigns matching the filter, ordered per its
	// sort.
	QueryCampaigns(ctx context.Context, filter CampaignFilter) ([]domain.Campaign, error)
	// FindExpiredActive returns active campaigns whose deadline precedes now.
	FindExpiredActive(ctx context.Context, now time.Time) ([]domain.Campaign, error)
	// AggregateStats computes ledger-wide totals.
	AggregateStats(ctx context.Context) (AggregateTotals, error)
}

// PledgeStore persists pledge records, keeping campaign aggregates
// consistent with the pledge rows.
type PledgeStore interface {
	// AddPledge inserts the pledge and increments the owning campaign's
	// raised amount and backer count in a single transaction. A crash never
	// leaves a pledge unreflected in the aggregates or vice versa.
	AddPledge(ctx context.Context, pledge domain.Pledge) error
	// RefundPledges flips every non-refunded pledge of the campaign to
	// refunded and, when at least one flipped, zeroes the campaign
	// aggregates, all in a single transaction. It returns the flipped count;
	// a second call returns 0.
	RefundPledges(ctx context.Context, campaignID string) (int, error)
	// ListPledges yields the campaign's pledges ordered by timestamp
	// descending. The sequence is lazy and restartable: each range re-runs
	// the query.
	ListPledges(ctx context.Context, campaignID string, onlyNonRefunded bool) iter.Seq2[domain.Pledge, error]
	// ListBackers returns the distinct backers holding at least one
	// non-refunded pledge, most recent pledge first.
	ListBackers(ctx context.Context, campaignID string) ([]string, error)
}

// EventStore persists lifecycle events for the activity log.
type EventStore interface {
	AppendEvent(ctx context.Context, event Event) error
	// ListEvents returns the most recent events, newest first.
	ListEvents(ctx context.Context, limit int) ([]Event, error)
}

// Store is the composite contract the campaign engine depends on.
type Store interface {
	CampaignStore
	PledgeStore
	EventStore
	Close() error
}

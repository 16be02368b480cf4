// Package service implements the campaign engine: lifecycle rules, pledge
// acceptance, deadline resolution, refunds, and derived statistics.
package service

import (
	"context"
	"math"
	"time"

	"github.com/openraise/fundraising/internal/fundraising/domain"
	"github.com/openraise/fundraising/internal/fundraising/event"
	"github.com/openraise/fundraising/internal/fundraising/storage"
)

// Service owns the campaign business rules over a ledger store.
type Service struct {
	store      storage.Store
	emitter    *event.Emitter
	clock      func() time.Time
	campaignID func() (string, error)
	pledgeID   func() (string, error)
}

// New creates a Service with default clock and identifier generators.
func New(store storage.Store) *Service {
	return NewWithClock(store, time.Now)
}

// NewWithClock creates a Service with an injected clock, used by callers
// that need deterministic time.
func NewWithClock(store storage.Store, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:      store,
		emitter:    event.NewEmitterWithClock(store, clock),
		clock:      clock,
		campaignID: domain.NewCampaignID,
		pledgeID:   domain.NewPledgeID,
	}
}

// CreateCampaign validates input and persists a new active campaign.
func (s *Service) CreateCampaign(ctx context.Context, input domain.CreateCampaignInput) (domain.Campaign, error) {
	campaign, err := domain.NewCampaign(input, s.clock, s.campaignID)
	if err != nil {
		return domain.Campaign{}, err
	}
	if err := s.store.PutCampaign(ctx, campaign); err != nil {
		return domain.Campaign{}, wrapStorage("put campaign", err)
	}
	_ = s.emitter.Emit(ctx, storage.Event{
		Kind:       event.KindCampaignCreated,
		CampaignID: campaign.ID,
		Detail:     campaign.Title,
	})
	return campaign, nil
}

// Pledge validates the reward tier and amount, checks the campaign is
// active, and records the pledge together with its aggregate increment.
// Validation fully precedes any write.
func (s *Service) Pledge(ctx context.Context, input domain.PledgeInput) (domain.Pledge, error) {
	pledge, err := domain.NewPledge(input, s.clock, s.pledgeID)
	if err != nil {
		return domain.Pledge{}, err
	}

	campaign, err := s.store.GetCampaign(ctx, input.CampaignID)
	if err != nil {
		return domain.Pledge{}, wrapStorage("get campaign", err)
	}
	if campaign.Status != domain.StatusActive {
		return domain.Pledge{}, ErrCampaignNotActive
	}

	if err := s.store.AddPledge(ctx, pledge); err != nil {
		return domain.Pledge{}, wrapStorage("add pledge", err)
	}
	_ = s.emitter.Emit(ctx, storage.Event{
		Kind:       event.KindPledgeRecorded,
		CampaignID: campaign.ID,
		Detail:     pledge.Backer,
	})
	return pledge, nil
}

// CampaignQuery narrows and orders a campaign listing. Zero values default
// to active status and raised-descending order.
type CampaignQuery struct {
	Category string
	Status   domain.Status
	SortBy   storage.Sort
}

// Campaigns returns campaigns matching the query.
func (s *Service) Campaigns(ctx context.Context, query CampaignQuery) ([]domain.Campaign, error) {
	if query.Status == "" {
		query.Status = domain.StatusActive
	}
	if query.SortBy == "" {
		query.SortBy = storage.SortRaised
	}
	campaigns, err := s.store.QueryCampaigns(ctx, storage.CampaignFilter{
		Status:   query.Status,
		Category: query.Category,
		SortBy:   query.SortBy,
	})
	if err != nil {
		return nil, wrapStorage("query campaigns", err)
	}
	return campaigns, nil
}

// CampaignDetail is a campaign plus its derived view fields.
type CampaignDetail struct {
	domain.Campaign
	// ProgressPct is funding progress capped at 100.
	ProgressPct float64
	// DaysLeft is whole days until the deadline, never negative.
	DaysLeft int
	// BackerList names distinct backers with at least one non-refunded
	// pledge, most recent pledge first.
	BackerList []string
}

// CampaignDetail returns one campaign with derived progress fields and its
// backer list.
func (s *Service) CampaignDetail(ctx context.Context, campaignID string) (CampaignDetail, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return CampaignDetail{}, wrapStorage("get campaign", err)
	}
	backers, err := s.store.ListBackers(ctx, campaignID)
	if err != nil {
		return CampaignDetail{}, wrapStorage("list backers", err)
	}
	return CampaignDetail{
		Campaign:    campaign,
		ProgressPct: campaign.Progress(),
		DaysLeft:    campaign.DaysLeft(s.clock().UTC()),
		BackerList:  backers,
	}, nil
}

// Pledges returns every pledge of the campaign, newest first, including
// refunded ones.
func (s *Service) Pledges(ctx context.Context, campaignID string) ([]domain.Pledge, error) {
	if _, err := s.store.GetCampaign(ctx, campaignID); err != nil {
		return nil, wrapStorage("get campaign", err)
	}
	var pledges []domain.Pledge
	for pledge, err := range s.store.ListPledges(ctx, campaignID, false) {
		if err != nil {
			return nil, wrapStorage("list pledges", err)
		}
		pledges = append(pledges, pledge)
	}
	return pledges, nil
}

// DeadlineReport counts the outcomes of one deadline sweep.
type DeadlineReport struct {
	Succeeded int
	Failed    int
}

// CheckDeadlines resolves every active campaign whose deadline has passed
// relative to now: success when the goal was met, failed otherwise. Each
// campaign commits independently, so a failure mid-sweep leaves already
// resolved campaigns resolved and the rest active for the next sweep.
// Running it again with no intervening pledges reports zero outcomes.
func (s *Service) CheckDeadlines(ctx context.Context, now time.Time) (DeadlineReport, error) {
	if now.IsZero() {
		now = s.clock()
	}
	expired, err := s.store.FindExpiredActive(ctx, now)
	if err != nil {
		return DeadlineReport{}, wrapStorage("find expired campaigns", err)
	}

	var report DeadlineReport
	for _, campaign := range expired {
		status := domain.StatusFailed
		kind := event.KindCampaignFailed
		if campaign.RaisedUSD >= campaign.GoalUSD {
			status = domain.StatusSuccess
			kind = event.KindCampaignSucceeded
		}
		if err := s.store.UpdateCampaignStatus(ctx, campaign.ID, status); err != nil {
			return report, wrapStorage("update campaign status", err)
		}
		if status == domain.StatusSuccess {
			report.Succeeded++
		} else {
			report.Failed++
		}
		_ = s.emitter.Emit(ctx, storage.Event{Kind: kind, CampaignID: campaign.ID, Detail: campaign.Title})
	}
	return report, nil
}

// RefundCampaign reverses every non-refunded pledge of a failed campaign
// and zeroes its aggregates, returning the number of pledges refunded.
// A second call finds nothing to flip and returns 0.
func (s *Service) RefundCampaign(ctx context.Context, campaignID string) (int, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return 0, wrapStorage("get campaign", err)
	}
	if campaign.Status != domain.StatusFailed {
		return 0, ErrNotFailed
	}

	refunded, err := s.store.RefundPledges(ctx, campaignID)
	if err != nil {
		return 0, wrapStorage("refund pledges", err)
	}
	if refunded > 0 {
		_ = s.emitter.Emit(ctx, storage.Event{Kind: event.KindCampaignRefunded, CampaignID: campaign.ID, Detail: campaign.Title})
	}
	return refunded, nil
}

// PlatformStats summarizes the whole platform.
type PlatformStats struct {
	// TotalRaisedUSD sums raised amounts across non-cancelled campaigns.
	TotalRaisedUSD float64
	// TotalCampaigns counts every campaign.
	TotalCampaigns int
	// SuccessRatePct is successful/total as a percentage, 0 when empty.
	SuccessRatePct float64
	// AverageGoalUSD averages the goal across all campaigns, 0 when empty.
	AverageGoalUSD float64
}

// Stats computes platform statistics from the ledger.
func (s *Service) Stats(ctx context.Context) (PlatformStats, error) {
	totals, err := s.store.AggregateStats(ctx)
	if err != nil {
		return PlatformStats{}, wrapStorage("aggregate stats", err)
	}
	stats := PlatformStats{
		TotalRaisedUSD: totals.TotalRaisedUSD,
		TotalCampaigns: totals.TotalCampaigns,
		AverageGoalUSD: roundCents(totals.AverageGoalUSD),
	}
	if totals.TotalCampaigns > 0 {
		stats.SuccessRatePct = roundCents(float64(totals.Successful) / float64(totals.TotalCampaigns) * 100)
	}
	return stats, nil
}

// RecentEvents returns the newest lifecycle events from the activity log.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]storage.Event, error) {
	events, err := s.store.ListEvents(ctx, limit)
	if err != nil {
		return nil, wrapStorage("list events", err)
	}
	return events, nil
}

func roundCents(value float64) float64 {
	return math.Round(value*100) / 100
}

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openraise/fundraising/internal/fundraising/domain"
	"github.com/openraise/fundraising/internal/fundraising/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "fundraising.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testCampaign(id string) domain.Campaign {
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	return domain.Campaign{
		ID:          id,
		Title:       "Solar Lantern",
		Creator:     "ada",
		Category:    "tech",
		GoalUSD:     1000,
		Deadline:    created.Add(24 * time.Hour),
		Status:      domain.StatusActive,
		Description: "A lantern",
		CreatedAt:   created,
	}
}

func testPledge(id, campaignID, backer string, amount float64, ts time.Time) domain.Pledge {
	return domain.Pledge{
		ID:         id,
		CampaignID: campaignID,
		Backer:     backer,
		AmountUSD:  amount,
		RewardTier: domain.TierSupporter,
		Timestamp:  ts,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPutGetCampaignRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	want := testCampaign("camp_1")
	if err := store.PutCampaign(context.Background(), want); err != nil {
		t.Fatalf("put campaign: %v", err)
	}

	got, err := store.GetCampaign(context.Background(), "camp_1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.Title != want.Title || got.Creator != want.Creator || got.Category != want.Category {
		t.Fatalf("campaign = %+v, want %+v", got, want)
	}
	if got.GoalUSD != want.GoalUSD || got.RaisedUSD != 0 || got.Backers != 0 {
		t.Fatalf("aggregates = (%v, %v, %d), want (1000, 0, 0)", got.GoalUSD, got.RaisedUSD, got.Backers)
	}
	if !got.Deadline.Equal(want.Deadline) {
		t.Fatalf("deadline = %v, want %v", got.Deadline, want.Deadline)
	}
	if got.Status != domain.StatusActive {
		t.Fatalf("status = %q, want %q", got.Status, domain.StatusActive)
	}
}

func TestPutCampaignDuplicateID(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	campaign := testCampaign("camp_dup")
	if err := store.PutCampaign(context.Background(), campaign); err != nil {
		t.Fatalf("put campaign: %v", err)
	}
	err := store.PutCampaign(context.Background(), campaign)
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate put error = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetCampaign(context.Background(), "camp_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing get error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestUpdateCampaignStatus(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.PutCampaign(context.Background(), testCampaign("camp_1")); err != nil {
		t.Fatalf("put campaign: %v", err)
	}

	if err := store.UpdateCampaignStatus(context.Background(), "camp_1", domain.StatusFailed); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := store.GetCampaign(context.Background(), "camp_1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.Status != domain.StatusFailed {
		t.Fatalf("status = %q, want %q", got.Status, domain.StatusFailed)
	}

	err = store.UpdateCampaignStatus(context.Background(), "camp_missing", domain.StatusFailed)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing update error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestAddPledgeKeepsAggregatesConsistent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.PutCampaign(ctx, testCampaign("camp_1")); err != nil {
		t.Fatalf("put campaign: %v", err)
	}

	ts := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	if err := store.AddPledge(ctx, testPledge("pledge_1", "camp_1", "bea", 50, ts)); err != nil {
		t.Fatalf("add pledge: %v", err)
	}
	if err := store.AddPledge(ctx, testPledge("pledge_2", "camp_1", "carl", 600, ts.Add(time.Minute))); err != nil {
		t.Fatalf("add second pledge: %v", err)
	}

	campaign, err := store.GetCampaign(ctx, "camp_1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if campaign.RaisedUSD != 650 {
		t.Fatalf("raised = %v, want 650", campaign.RaisedUSD)
	}
	if campaign.Backers != 2 {
		t.Fatalf("backers = %d, want 2", campaign.Backers)
	}

	var sum float64
	var count int
	for pledge, err := range store.ListPledges(ctx, "camp_1", true) {
		if err != nil {
			t.Fatalf("list pledges: %v", err)
		}
		sum += pledge.AmountUSD
		count++
	}
	if sum != campaign.RaisedUSD {
		t.Fatalf("pledge sum = %v, want raised %v", sum, campaign.RaisedUSD)
	}
	if count != campaign.Backers {
		t.Fatalf("pledge count = %d, want backers %d", count, campaign.Backers)
	}
}

func TestAddPledgeMissingCampaignRollsBack(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	ts := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	err := store.AddPledge(ctx, testPledge("pledge_1", "camp_missing", "bea", 50, ts))
	if err == nil {
		t.Fatal("expected add pledge to a missing campaign to fail")
	}

	// The pledge row must not survive the rolled-back transaction.
	for range store.ListPledges(ctx, "camp_missing", false) {
		t.Fatal("expected no pledge rows after rollback")
	}
}

func TestRefundPledgesIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.PutCampaign(ctx, testCampaign("camp_1")); err != nil {
		t.Fatalf("put campaign: %v", err)
	}
	ts := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	if err := store.AddPledge(ctx, testPledge("pledge_1", "camp_1", "bea", 50, ts)); err != nil {
		t.Fatalf("add pledge: %v", err)
	}
	if err := store.AddPledge(ctx, testPledge("pledge_2", "camp_1", "carl", 600, ts.Add(time.Minute))); err != nil {
		t.Fatalf("add second pledge: %v", err)
	}

	flipped, err := store.RefundPledges(ctx, "camp_1")
	if err != nil {
		t.Fatalf("refund pledges: %v", err)
	}
	if flipped != 2 {
		t.Fatalf("flipped = %d, want 2", flipped)
	}

	campaign, err := store.GetCampaign(ctx, "camp_1")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if campaign.RaisedUSD != 0 || campaign.Backers != 0 {
		t.Fatalf("aggregates after refund = (%v, %d), want zero", campaign.RaisedUSD, campaign.Backers)
	}

	for pledge, err := range store.ListPledges(ctx, "camp_1", false) {
		if err != nil {
			t.Fatalf("list pledges: %v", err)
		}
		if !pledge.Refunded {
			t.Fatalf("pledge %s not refunded", pledge.ID)
		}
	}

	again, err := store.RefundPledges(ctx, "camp_1")
	if err != nil {
		t.Fatalf("second refund: %v", err)
	}
	if again != 0 {
		t.Fatalf("second refund flipped = %d, want 0", again)
	}
}

func TestListPledgesOrderAndFilter(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.PutCampaign(ctx, testCampaign("camp_1")); err != nil {
		t.Fatalf("put campaign: %v", err)
	}

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"pledge_1", "pledge_2", "pledge_3"} {
		if err := store.AddPledge(ctx, testPledge(id, "camp_1", "bea", 10, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("add pledge %s: %v", id, err)
		}
	}

	var ids []string
	seq := store.ListPledges(ctx, "camp_1", false)
	for pledge, err := range seq {
		if err != nil {
			t.Fatalf("list pledges: %v", err)
		}
		ids = append(ids, pledge.ID)
	}
	want := []string{"pledge_3", "pledge_2", "pledge_1"}
	if len(ids) != len(want) {
		t.Fatalf("pledge ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("pledge ids = %v, want %v", ids, want)
		}
	}

	// The sequence is restartable: ranging again yields the same rows.
	var second int
	for _, err := range seq {
		if err != nil {
			t.Fatalf("re-list pledges: %v", err)
		}
		second++
	}
	if second != 3 {
		t.Fatalf("second pass count = %d, want 3", second)
	}

	if _, err := store.RefundPledges(ctx, "camp_1"); err != nil {
		t.Fatalf("refund pledges: %v", err)
	}
	for range store.ListPledges(ctx, "camp_1", true) {
		t.Fatal("expected no non-refunded pledges after refund")
	}
}

func TestListBackersDistinctMostRecentFirst(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.PutCampaign(ctx, testCampaign("camp_1")); err != nil {
		t.Fatalf("put campaign: %v", err)
	}

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	pledges := []struct {
		id     string
		backer string
		offset time.Duration
	}{
		{"pledge_1", "bea", 0},
		{"pledge_2", "carl", time.Minute},
		{"pledge_3", "bea", 2 * time.Minute},
	}
	for _, p := range pledges {
		if err := store.AddPledge(ctx, testPledge(p.id, "camp_1", p.backer, 10, base.Add(p.offset))); err != nil {
			t.Fatalf("add pledge %s: %v", p.id, err)
		}
	}

	backers, err := store.ListBackers(ctx, "camp_1")
	if err != nil {
		t.Fatalf("list backers: %v", err)
	}
	if len(backers) != 2 || backers[0] != "bea" || backers[1] != "carl" {
		t.Fatalf("backers = %v, want [bea carl]", backers)
	}
}

func TestQueryCampaignsFiltersAndSorts(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		id       string
		category string
		raised   float64
		deadline time.Duration
		created  time.Duration
	}{
		{"camp_a", "tech", 100, 72 * time.Hour, 0},
		{"camp_b", "art", 900, 24 * time.Hour, time.Hour},
		{"camp_c", "tech", 500, 48 * time.Hour, 2 * time.Hour},
	}
	for _, row := range seed {
		campaign := testCampaign(row.id)
		campaign.Category = row.category
		campaign.RaisedUSD = row.raised
		campaign.CreatedAt = created.Add(row.created)
		campaign.Deadline = created.Add(row.deadline)
		if err := store.PutCampaign(ctx, campaign); err != nil {
			t.Fatalf("put campaign %s: %v", row.id, err)
		}
	}

	byRaised, err := store.QueryCampaigns(ctx, storage.CampaignFilter{Status: domain.StatusActive})
	if err != nil {
		t.Fatalf("query by raised: %v", err)
	}
	if len(byRaised) != 3 || byRaised[0].ID != "camp_b" || byRaised[2].ID != "camp_a" {
		t.Fatalf("raised order = %v", campaignIDs(byRaised))
	}

	byDeadline, err := store.QueryCampaigns(ctx, storage.CampaignFilter{Status: domain.StatusActive, SortBy: storage.SortDeadline})
	if err != nil {
		t.Fatalf("query by deadline: %v", err)
	}
	if byDeadline[0].ID != "camp_b" || byDeadline[2].ID != "camp_a" {
		t.Fatalf("deadline order = %v", campaignIDs(byDeadline))
	}

	byCreated, err := store.QueryCampaigns(ctx, storage.CampaignFilter{Status: domain.StatusActive, SortBy: storage.SortCreated})
	if err != nil {
		t.Fatalf("query by created: %v", err)
	}
	if byCreated[0].ID != "camp_c" {
		t.Fatalf("created order = %v", campaignIDs(byCreated))
	}

	techOnly, err := store.QueryCampaigns(ctx, storage.CampaignFilter{Status: domain.StatusActive, Category: "tech"})
	if err != nil {
		t.Fatalf("query tech: %v", err)
	}
	if len(techOnly) != 2 {
		t.Fatalf("tech campaigns = %v, want 2", campaignIDs(techOnly))
	}

	unknownSort, err := store.QueryCampaigns(ctx, storage.CampaignFilter{Status: domain.StatusActive, SortBy: "bogus"})
	if err != nil {
		t.Fatalf("query unknown sort: %v", err)
	}
	if unknownSort[0].ID != "camp_b" {
		t.Fatalf("unknown sort should fall back to raised, got %v", campaignIDs(unknownSort))
	}
}

func TestFindExpiredActive(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	created := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	expired := testCampaign("camp_expired")
	expired.Deadline = created.Add(24 * time.Hour)
	future := testCampaign("camp_future")
	future.Deadline = created.Add(240 * time.Hour)
	resolved := testCampaign("camp_resolved")
	resolved.Deadline = created.Add(12 * time.Hour)
	resolved.Status = domain.StatusFailed
	for _, campaign := range []domain.Campaign{expired, future, resolved} {
		if err := store.PutCampaign(ctx, campaign); err != nil {
			t.Fatalf("put campaign %s: %v", campaign.ID, err)
		}
	}

	found, err := store.FindExpiredActive(ctx, created.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("find expired active: %v", err)
	}
	if len(found) != 1 || found[0].ID != "camp_expired" {
		t.Fatalf("expired = %v, want [camp_expired]", campaignIDs(found))
	}
}

func TestAggregateStats(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	succeeded := testCampaign("camp_success")
	succeeded.Status = domain.StatusSuccess
	succeeded.RaisedUSD = 2000
	succeeded.GoalUSD = 1500
	active := testCampaign("camp_active")
	active.RaisedUSD = 300
	active.GoalUSD = 500
	cancelled := testCampaign("camp_cancelled")
	cancelled.Status = domain.StatusCancelled
	cancelled.RaisedUSD = 999
	cancelled.GoalUSD = 1000
	for _, campaign := range []domain.Campaign{succeeded, active, cancelled} {
		if err := store.PutCampaign(ctx, campaign); err != nil {
			t.Fatalf("put campaign %s: %v", campaign.ID, err)
		}
	}

	totals, err := store.AggregateStats(ctx)
	if err != nil {
		t.Fatalf("aggregate stats: %v", err)
	}
	if totals.TotalRaisedUSD != 2300 {
		t.Fatalf("total raised = %v, want 2300 (cancelled excluded)", totals.TotalRaisedUSD)
	}
	if totals.TotalCampaigns != 3 {
		t.Fatalf("total campaigns = %d, want 3", totals.TotalCampaigns)
	}
	if totals.Successful != 1 {
		t.Fatalf("successful = %d, want 1", totals.Successful)
	}
	if totals.AverageGoalUSD != 1000 {
		t.Fatalf("average goal = %v, want 1000", totals.AverageGoalUSD)
	}
}

func TestAggregateStatsEmptyLedger(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	totals, err := store.AggregateStats(context.Background())
	if err != nil {
		t.Fatalf("aggregate stats: %v", err)
	}
	if totals.TotalRaisedUSD != 0 || totals.TotalCampaigns != 0 || totals.Successful != 0 || totals.AverageGoalUSD != 0 {
		t.Fatalf("empty ledger totals = %+v, want zeroes", totals)
	}
}

func TestAppendAndListEvents(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	ts := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	for i, kind := range []string{"campaign_created", "pledge_recorded", "campaign_failed"} {
		event := storage.Event{Kind: kind, CampaignID: "camp_1", Timestamp: ts.Add(time.Duration(i) * time.Minute)}
		if err := store.AppendEvent(ctx, event); err != nil {
			t.Fatalf("append event %s: %v", kind, err)
		}
	}

	events, err := store.ListEvents(ctx, 2)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Kind != "campaign_failed" {
		t.Fatalf("newest event = %q, want campaign_failed", events[0].Kind)
	}
}

func campaignIDs(campaigns []domain.Campaign) []string {
	ids := make([]string, 0, len(campaigns))
	for _, campaign := range campaigns {
		ids = append(ids, campaign.ID)
	}
	return ids
}

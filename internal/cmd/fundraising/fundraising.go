// Package fundraising parses operator CLI flags and dispatches subcommands
// against the campaign engine.
package fundraising

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/openraise/fundraising/internal/fundraising/domain"
	"github.com/openraise/fundraising/internal/fundraising/service"
	"github.com/openraise/fundraising/internal/fundraising/storage"
	"github.com/openraise/fundraising/internal/fundraising/storage/sqlite"
	"github.com/openraise/fundraising/internal/platform/config"
)

// Config holds operator CLI configuration. The ledger path is an explicit
// value owned by the caller, never a hidden home-directory default.
type Config struct {
	DBPath string `env:"FUNDRAISING_DB_PATH" envDefault:"data/fundraising.db"`
}

// ParseConfig loads environment defaults and global flags, returning the
// remaining subcommand arguments.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, []string, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, nil, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the fundraising ledger database")
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}

// Run opens the ledger store and executes one subcommand.
func Run(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return errors.New("a subcommand is required")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.New(store)

	switch args[0] {
	case "list":
		return runList(ctx, svc, args[1:], out)
	case "create":
		return runCreate(ctx, svc, args[1:], out)
	case "pledge":
		return runPledge(ctx, svc, args[1:], out)
	case "view":
		return runView(ctx, svc, args[1:], out)
	case "stats":
		return runStats(ctx, svc, out)
	case "check":
		return runCheck(ctx, svc, out)
	case "refund":
		return runRefund(ctx, svc, args[1:], out)
	case "activity":
		return runActivity(ctx, svc, args[1:], out)
	default:
		printUsage(out)
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "Usage: fundraising [-db path] <subcommand>")
	fmt.Fprintln(out, "Subcommands:")
	fmt.Fprintln(out, "  list      list campaigns (-category, -status, -sort)")
	fmt.Fprintln(out, "  create    create a campaign: <title> <creator> <category> <goal> (-days, -description)")
	fmt.Fprintln(out, "  pledge    make a pledge: <campaign_id> <backer> <amount> (-tier)")
	fmt.Fprintln(out, "  view      view campaign details: <campaign_id>")
	fmt.Fprintln(out, "  stats     view platform statistics")
	fmt.Fprintln(out, "  check     resolve expired campaign deadlines")
	fmt.Fprintln(out, "  refund    refund a failed campaign: <campaign_id>")
	fmt.Fprintln(out, "  activity  show recent lifecycle events (-n)")
}

func runList(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	category := fs.String("category", "", "filter by category")
	status := fs.String("status", "active", "filter by status")
	sortBy := fs.String("sort", "raised", "sort order: raised, deadline, created")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsedStatus, err := domain.ParseStatus(*status)
	if err != nil {
		return err
	}

	campaigns, err := svc.Campaigns(ctx, service.CampaignQuery{
		Category: *category,
		Status:   parsedStatus,
		SortBy:   storage.Sort(*sortBy),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Found %d campaigns\n", len(campaigns))
	for _, campaign := range campaigns {
		fmt.Fprintf(out, "  [%s] %s (%s)\n", campaign.ID, campaign.Title, campaign.Category)
		fmt.Fprintf(out, "      $%.2f/$%.2f (%.1f%%) - %d backers\n",
			campaign.RaisedUSD, campaign.GoalUSD, campaign.Progress(), campaign.Backers)
	}
	return nil
}

func runCreate(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	days := fs.Int("days", 30, "days until the deadline")
	description := fs.String("description", "", "campaign description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 4 {
		return errors.New("create requires <title> <creator> <category> <goal>")
	}
	goal, err := strconv.ParseFloat(rest[3], 64)
	if err != nil {
		return fmt.Errorf("parse goal %q: %w", rest[3], err)
	}

	campaign, err := svc.CreateCampaign(ctx, domain.CreateCampaignInput{
		Title:          rest[0],
		Creator:        rest[1],
		Category:       rest[2],
		GoalUSD:        goal,
		DeadlineOffset: time.Duration(*days) * 24 * time.Hour,
		Description:    *description,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Campaign created: %s\n", campaign.ID)
	fmt.Fprintf(out, "  Title: %s\n", campaign.Title)
	fmt.Fprintf(out, "  Goal: $%.2f\n", campaign.GoalUSD)
	fmt.Fprintf(out, "  Deadline: %s\n", campaign.Deadline.Format(time.RFC3339))
	return nil
}

func runPledge(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pledge", flag.ContinueOnError)
	tier := fs.String("tier", domain.TierSupporter, "reward tier: "+strings.Join(domain.TierNames(), ", "))
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 3 {
		return errors.New("pledge requires <campaign_id> <backer> <amount>")
	}
	amount, err := strconv.ParseFloat(rest[2], 64)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", rest[2], err)
	}

	pledge, err := svc.Pledge(ctx, domain.PledgeInput{
		CampaignID: rest[0],
		Backer:     rest[1],
		AmountUSD:  amount,
		RewardTier: *tier,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Pledge recorded: %s\n", pledge.ID)
	fmt.Fprintf(out, "  Amount: $%.2f\n", pledge.AmountUSD)
	fmt.Fprintf(out, "  Tier: %s\n", pledge.RewardTier)
	return nil
}

func runView(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("view requires <campaign_id>")
	}

	detail, err := svc.CampaignDetail(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Campaign: %s\n", detail.Title)
	fmt.Fprintf(out, "  Creator: %s\n", detail.Creator)
	fmt.Fprintf(out, "  Raised: $%.2f/$%.2f (%.1f%%)\n", detail.RaisedUSD, detail.GoalUSD, detail.ProgressPct)
	fmt.Fprintf(out, "  Backers: %d\n", detail.Backers)
	fmt.Fprintf(out, "  Status: %s\n", detail.Status)
	fmt.Fprintf(out, "  Days left: %d\n", detail.DaysLeft)
	if len(detail.BackerList) > 0 {
		recent := detail.BackerList
		if len(recent) > 5 {
			recent = recent[:5]
		}
		fmt.Fprintf(out, "  Recent backers: %s\n", strings.Join(recent, ", "))
	}
	return nil
}

func runStats(ctx context.Context, svc *service.Service, out io.Writer) error {
	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Platform Statistics:")
	fmt.Fprintf(out, "  Total Raised: $%.2f\n", stats.TotalRaisedUSD)
	fmt.Fprintf(out, "  Total Campaigns: %d\n", stats.TotalCampaigns)
	fmt.Fprintf(out, "  Success Rate: %.1f%%\n", stats.SuccessRatePct)
	fmt.Fprintf(out, "  Average Goal: $%.2f\n", stats.AverageGoalUSD)
	return nil
}

func runCheck(ctx context.Context, svc *service.Service, out io.Writer) error {
	report, err := svc.CheckDeadlines(ctx, time.Time{})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deadline check complete: %d succeeded, %d failed\n", report.Succeeded, report.Failed)
	return nil
}

func runRefund(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("refund requires <campaign_id>")
	}

	refunded, err := svc.RefundCampaign(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Refunded %d pledges for campaign %s\n", refunded, args[0])
	return nil
}

func runActivity(ctx context.Context, svc *service.Service, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	limit := fs.Int("n", 10, "number of events to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events, err := svc.RecentEvents(ctx, *limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Recent activity (%d events)\n", len(events))
	for _, evt := range events {
		fmt.Fprintf(out, "  %s %-20s %s %s\n",
			evt.Timestamp.Format(time.RFC3339), evt.Kind, evt.CampaignID, evt.Detail)
	}
	return nil
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status describes the lifecycle state of a campaign.
type Status string

const (
	// StatusActive marks a campaign still accepting pledges.
	StatusActive Status = "active"
	// StatusSuccess marks a campaign that met its goal at the deadline.
	StatusSuccess Status = "success"
	// StatusFailed marks a campaign that missed its goal at the deadline.
	StatusFailed Status = "failed"
	// StatusCancelled marks a campaign ended by administrative action.
	// No operation in this core transitions into it.
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts a raw string into a known Status.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.TrimSpace(raw)); s {
	case StatusActive, StatusSuccess, StatusFailed, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown campaign status %q", raw)
}

// Terminal reports whether a campaign in this status accepts no further
// pledges or status changes.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Categories is the fixed set of campaign categories.
var Categories = []string{"tech", "art", "music", "games", "film", "community", "science"}

// ValidCategory reports whether category belongs to the fixed category set.
func ValidCategory(category string) bool {
	for _, known := range Categories {
		if category == known {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidCategory indicates a category outside the fixed set.
	ErrInvalidCategory = errors.New("invalid campaign category")
	// ErrInvalidGoal indicates a non-positive funding goal.
	ErrInvalidGoal = errors.New("campaign goal must be positive")
)

// Campaign represents a funding goal tracked through its lifecycle.
type Campaign struct {
	ID          string
	Title       string
	Creator     string
	Category    string
	GoalUSD     float64
	RaisedUSD   float64
	Backers     int
	Deadline    time.Time
	Status      Status
	Description string
	CreatedAt   time.Time
}

// CreateCampaignInput describes the data needed to create a campaign.
type CreateCampaignInput struct {
	Title          string
	Creator        string
	Category       string
	GoalUSD        float64
	DeadlineOffset time.Duration
	Description    string
}

// NewCampaign validates input and builds a new active campaign with a
// generated identifier and zeroed aggregates.
func NewCampaign(input CreateCampaignInput, now func() time.Time, idGenerator func() (string, error)) (Campaign, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewCampaignID
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Creator = strings.TrimSpace(input.Creator)
	input.Category = strings.TrimSpace(input.Category)

	if !ValidCategory(input.Category) {
		return Campaign{}, ErrInvalidCategory
	}
	if input.GoalUSD <= 0 {
		return Campaign{}, ErrInvalidGoal
	}

	id, err := idGenerator()
	if err != nil {
		return Campaign{}, err
	}

	createdAt := now().UTC()
	return Campaign{
		ID:          id,
		Title:       input.Title,
		Creator:     input.Creator,
		Category:    input.Category,
		GoalUSD:     input.GoalUSD,
		RaisedUSD:   0,
		Backers:     0,
		Deadline:    createdAt.Add(input.DeadlineOffset),
		Status:      StatusActive,
		Description: input.Description,
		CreatedAt:   createdAt,
	}, nil
}

// Progress returns funding progress as a percentage capped at 100. A
// non-positive goal yields 0.
func (c Campaign) Progress() float64 {
	if c.GoalUSD <= 0 {
		return 0
	}
	pct := c.RaisedUSD / c.GoalUSD * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// DaysLeft returns the number of whole days until the deadline, never
// negative.
func (c Campaign) DaysLeft(now time.Time) int {
	remaining := c.Deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours() / 24)
}

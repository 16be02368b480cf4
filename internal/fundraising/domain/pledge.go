package domain

import (
	"errors"
	"strings"
	"time"
)

// Reward tiers and their minimum pledge amounts in USD.
const (
	TierSupporter = "supporter"
	TierBacker    = "backer"
	TierChampion  = "champion"
	TierFounder   = "founder"
)

var tierMinimums = map[string]float64{
	TierSupporter: 5,
	TierBacker:    25,
	TierChampion:  100,
	TierFounder:   500,
}

// TierNames returns the reward tier names ordered by ascending minimum.
func TierNames() []string {
	return []string{TierSupporter, TierBacker, TierChampion, TierFounder}
}

// TierMinimum returns the minimum pledge amount for a tier and whether the
// tier is known.
func TierMinimum(tier string) (float64, bool) {
	minimum, ok := tierMinimums[tier]
	return minimum, ok
}

var (
	// ErrInvalidTier indicates an unknown reward tier name.
	ErrInvalidTier = errors.New("unknown reward tier")
	// ErrBelowMinimum indicates a pledge amount below the tier minimum.
	ErrBelowMinimum = errors.New("pledge amount below tier minimum")
)

// Pledge represents one backer's commitment to a campaign. All fields are
// immutable after creation except the one-way Refunded flag.
type Pledge struct {
	ID         string
	CampaignID string
	Backer     string
	AmountUSD  float64
	RewardTier string
	Timestamp  time.Time
	Refunded   bool
}

// PledgeInput describes the data needed to record a pledge.
type PledgeInput struct {
	CampaignID string
	Backer     string
	AmountUSD  float64
	RewardTier string
}

// NewPledge validates input against the reward tier table and builds a
// pledge with a generated identifier. Amounts exactly at the tier minimum
// are accepted.
func NewPledge(input PledgeInput, now func() time.Time, idGenerator func() (string, error)) (Pledge, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewPledgeID
	}

	input.RewardTier = strings.TrimSpace(input.RewardTier)
	minimum, ok := TierMinimum(input.RewardTier)
	if !ok {
		return Pledge{}, ErrInvalidTier
	}
	if input.AmountUSD < minimum {
		return Pledge{}, ErrBelowMinimum
	}

	id, err := idGenerator()
	if err != nil {
		return Pledge{}, err
	}

	return Pledge{
		ID:         id,
		CampaignID: input.CampaignID,
		Backer:     strings.TrimSpace(input.Backer),
		AmountUSD:  input.AmountUSD,
		RewardTier: input.RewardTier,
		Timestamp:  now().UTC(),
		Refunded:   false,
	}, nil
}

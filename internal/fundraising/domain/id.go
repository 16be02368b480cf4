package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// NewCampaignID generates a campaign identifier from random UUIDv4 bytes.
// Random 128-bit identifiers keep the collision probability negligible even
// under rapid sequential creation.
func NewCampaignID() (string, error) {
	return prefixedID("camp")
}

// NewPledgeID generates a pledge identifier from random UUIDv4 bytes.
func NewPledgeID() (string, error) {
	return prefixedID("pledge")
}

func prefixedID(prefix string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return prefix + "_" + id.String(), nil
}

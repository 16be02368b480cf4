package service

import (
	"errors"
	"fmt"

	"github.com/openraise/fundraising/internal/fundraising/storage"
)

var (
	// ErrCampaignNotActive indicates a pledge against a campaign in a
	// terminal state. Status is authoritative, not the raw deadline.
	ErrCampaignNotActive = errors.New("campaign is not active")
	// ErrNotFailed indicates a refund attempt on a campaign that is not in
	// the failed state.
	ErrNotFailed = errors.New("only failed campaigns can be refunded")
)

// StorageError wraps an unexpected ledger-store failure. Sentinel lookup
// errors (storage.ErrNotFound, storage.ErrAlreadyExists) pass through
// untouched; everything else from the store surfaces as a StorageError.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// wrapStorage classifies a store failure: sentinel errors pass through so
// callers can use errors.Is, anything else becomes a StorageError.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrAlreadyExists) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

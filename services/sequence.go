package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"commerce-backend/models"
	"commerce-backend/repository"
)

// SequenceAllocator mints day-scoped human-readable order numbers in the
// form YYYYMMDDNNNN. The scan below is only an optimization: uniqueness is
// enforced by the database index on orders.order_number, and OrderService
// retries allocation when an insert collides.
type SequenceAllocator interface {
	Next(ctx context.Context) (string, error)
}

const maxDailySequence = 9999

type DailySequence struct {
	store repository.Store
	now   func() time.Time
}

func NewDailySequence(store repository.Store) *DailySequence {
	return &DailySequence{store: store, now: time.Now}
}

func (s *DailySequence) Next(ctx context.Context) (string, error) {
	prefix := s.now().Format("20060102")

	last, err := s.store.LastOrderNumber(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" && len(last) > len(prefix) {
		n, err := strconv.Atoi(last[len(prefix):])
		if err != nil {
			return "", fmt.Errorf("malformed order number %q: %w", last, err)
		}
		seq = n + 1
	}
	if seq > maxDailySequence {
		return "", models.ConflictError("daily order sequence exhausted")
	}

	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

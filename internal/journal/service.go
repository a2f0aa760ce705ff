package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for turn entries.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Entry) error
}

// Service stamps and stores turn entries.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEntry = errors.New("journal: invalid entry")

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s == nil || s.repo == nil {
		return errors.New("journal: repository not configured")
	}
	if e.CallSid == "" {
		return ErrInvalidEntry
	}
	if e.Action == "" {
		return ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

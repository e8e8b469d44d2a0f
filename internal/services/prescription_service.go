package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"

	"apotek/internal/domain"
	"apotek/internal/events"
	"apotek/internal/repos"
	"apotek/internal/storage"
)

type PrescriptionService struct {
	Repo    *repos.PrescriptionRepo
	Storage *storage.Local
	Events  events.Publisher
}

// Upload stores the prescription photo and opens a pending prescription.
func (s *PrescriptionService) Upload(ctx context.Context, u *domain.User, img io.Reader, notes string) (domain.Prescription, error) {
	if len(notes) > 500 {
		return domain.Prescription{}, invalid("notes", "notes too long")
	}
	rel, err := s.Storage.Upload(storage.BucketPrescriptions, u.ID, img, storage.MaxPrescriptionImage)
	if err != nil {
		return domain.Prescription{}, err
	}
	now := domain.Now()
	p := domain.Prescription{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		ImageURL:  s.Storage.PublicURL(storage.BucketPrescriptions, rel),
		Status:    domain.PrescriptionPending,
		Notes:     strings.TrimSpace(notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return domain.Prescription{}, err
	}
	return p, nil
}

func (s *PrescriptionService) ListMine(ctx context.Context, userID string) ([]domain.Prescription, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// GetOwned returns the prescription only to its owner.
func (s *PrescriptionService) GetOwned(ctx context.Context, userID, id string) (domain.Prescription, error) {
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Prescription{}, err
	}
	if p.UserID != userID {
		return domain.Prescription{}, ErrNotOwner
	}
	return p, nil
}

func (s *PrescriptionService) Get(ctx context.Context, id string) (domain.Prescription, error) {
	return s.Repo.Get(ctx, id)
}

// List is the admin queue; "" or "all" lists everything.
func (s *PrescriptionService) List(ctx context.Context, status string) ([]repos.PrescriptionSummary, error) {
	if status == "" || status == "all" {
		return s.Repo.List(ctx, "")
	}
	st, ok := domain.ParsePrescriptionStatus(status)
	if !ok {
		return nil, invalid("status", "unknown status")
	}
	return s.Repo.List(ctx, st)
}

// Quote prices a pending prescription and moves it to processing.
func (s *PrescriptionService) Quote(ctx context.Context, actor *domain.User, id string, price int64, notes string) (domain.Prescription, error) {
	if price <= 0 {
		return domain.Prescription{}, ErrPriceRequired
	}
	return s.transition(ctx, actor, id, domain.PrescriptionProcessing, func() (domain.Prescription, error) {
		return s.Repo.Quote(ctx, id, price, strings.TrimSpace(notes))
	})
}

// Reject closes a pending prescription. The note is mandatory.
func (s *PrescriptionService) Reject(ctx context.Context, actor *domain.User, id, note string) (domain.Prescription, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return domain.Prescription{}, ErrNoteRequired
	}
	return s.transition(ctx, actor, id, domain.PrescriptionRejected, func() (domain.Prescription, error) {
		return s.Repo.Reject(ctx, id, note)
	})
}

// Complete marks a paid prescription as handed over.
func (s *PrescriptionService) Complete(ctx context.Context, actor *domain.User, id string) (domain.Prescription, error) {
	return s.transition(ctx, actor, id, domain.PrescriptionCompleted, func() (domain.Prescription, error) {
		return s.Repo.Complete(ctx, id)
	})
}

func (s *PrescriptionService) transition(ctx context.Context, actor *domain.User, id string, to domain.PrescriptionStatus, write func() (domain.Prescription, error)) (domain.Prescription, error) {
	cur, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Prescription{}, err
	}
	if !cur.Status.CanTransition(to) {
		return domain.Prescription{}, ErrInvalidTransition
	}
	next, err := write()
	if errors.Is(err, repos.ErrStale) {
		return domain.Prescription{}, ErrInvalidTransition
	}
	if err != nil {
		return domain.Prescription{}, err
	}
	payload := events.StatusChangedPayload{ID: id, UserID: cur.UserID, From: string(cur.Status), To: string(next.Status)}
	if actor != nil {
		payload.ActorID = actor.ID
	}
	events.Emit(ctx, s.Events, events.PrescriptionStatusChanged, id, payload)
	return next, nil
}

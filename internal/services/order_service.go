package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"apotek/internal/domain"
	"apotek/internal/events"
	"apotek/internal/repos"
	"apotek/internal/tracking"
)

type OrderService struct {
	Orders        *repos.OrderRepo
	Prescriptions *repos.PrescriptionRepo
	Events        events.Publisher

	TrackInterval time.Duration
	now           func() time.Time
}

func NewOrderService(orders *repos.OrderRepo, rx *repos.PrescriptionRepo, pub events.Publisher, track time.Duration) *OrderService {
	return &OrderService{Orders: orders, Prescriptions: rx, Events: pub, TrackInterval: track, now: time.Now}
}

// Get returns the order to its owner or to an admin.
func (s *OrderService) Get(ctx context.Context, u *domain.User, isAdmin bool, id string) (domain.Order, []domain.OrderItem, error) {
	o, items, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, nil, err
	}
	if !isAdmin && (u == nil || o.UserID != u.ID) {
		return domain.Order{}, nil, ErrNotOwner
	}
	return o, items, nil
}

// HistoryEntry is one row of the customer's unified history.
type HistoryEntry struct {
	Kind      string `json:"kind"` // order | prescription
	ID        string `json:"id"`
	Status    string `json:"status"`
	Label     string `json:"label"`
	Total     *int64 `json:"total,omitempty"`
	CreatedAt string `json:"created_at"`
}

// History merges orders and prescriptions, newest first.
func (s *OrderService) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	orders, err := s.Orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rx, err := s.Prescriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(orders)+len(rx))
	for _, o := range orders {
		total := o.TotalAmount
		out = append(out, HistoryEntry{Kind: "order", ID: o.ID, Status: string(o.Status), Label: o.Status.Label(), Total: &total, CreatedAt: o.CreatedAt})
	}
	for _, p := range rx {
		out = append(out, HistoryEntry{Kind: "prescription", ID: p.ID, Status: string(p.Status), Label: p.Status.Label(), Total: p.Price, CreatedAt: p.CreatedAt})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// AdminList filters by status; "" or "all" lists everything.
func (s *OrderService) AdminList(ctx context.Context, status string) ([]repos.OrderSummary, error) {
	if status == "" || status == "all" {
		return s.Orders.List(ctx, "", 200)
	}
	st, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, invalid("status", "unknown status")
	}
	return s.Orders.List(ctx, st, 200)
}

// SetStatus applies an operator transition. Moves outside the transition
// table are refused, and so is a write racing another operator.
func (s *OrderService) SetStatus(ctx context.Context, actor *domain.User, id, raw string) (domain.Order, error) {
	to, ok := domain.ParseOrderStatus(raw)
	if !ok {
		return domain.Order{}, invalid("status", "unknown status")
	}
	cur, _, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !cur.Status.CanTransition(to) {
		return domain.Order{}, ErrInvalidTransition
	}
	next, err := s.Orders.UpdateStatus(ctx, id, cur.Status, to)
	if errors.Is(err, repos.ErrStale) {
		return domain.Order{}, ErrInvalidTransition
	}
	if err != nil {
		return domain.Order{}, err
	}
	payload := events.StatusChangedPayload{ID: id, UserID: cur.UserID, From: string(cur.Status), To: string(to)}
	if actor != nil {
		payload.ActorID = actor.ID
	}
	events.Emit(ctx, s.Events, events.OrderStatusChanged, id, payload)
	return next, nil
}

// Tracking is the payload behind the tracking page.
type Tracking struct {
	OrderID string            `json:"order_id"`
	Label   string            `json:"label"`
	tracking.Snapshot
	Steps []tracking.Step `json:"steps"`
}

// Track projects courier progress from the time the order entered its
// current status.
func (s *OrderService) Track(ctx context.Context, u *domain.User, isAdmin bool, id string) (Tracking, error) {
	o, _, err := s.Get(ctx, u, isAdmin, id)
	if err != nil {
		return Tracking{}, err
	}
	return Tracking{
		OrderID:  o.ID,
		Label:    o.Status.Label(),
		Snapshot: tracking.Project(o.Status, s.sinceChange(o), s.TrackInterval),
		Steps:    tracking.Steps(o.Status),
	}, nil
}

// Follow returns a live simulator resumed at the order's current progress.
func (s *OrderService) Follow(ctx context.Context, u *domain.User, isAdmin bool, id string) (*tracking.Simulator, error) {
	o, _, err := s.Get(ctx, u, isAdmin, id)
	if err != nil {
		return nil, err
	}
	return tracking.Resume(o.Status, s.sinceChange(o), s.TrackInterval), nil
}

func (s *OrderService) sinceChange(o domain.Order) time.Duration {
	since, err := domain.ParseTime(o.StatusUpdatedAt)
	if err != nil {
		return 0
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return now().Sub(since)
}

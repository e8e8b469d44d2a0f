package services

import (
	"context"
	"fmt"
	"time"

	"apotek/internal/domain"
	"apotek/internal/poller"
	"apotek/internal/repos"
)

// CountersKey is the poller key for the admin notification badges.
const CountersKey = "admin.counters"

// Counters are the admin sidebar badges.
type Counters struct {
	PendingPrescriptions int `json:"pending_prescriptions"`
	PaidPrescriptions    int `json:"paid_prescriptions"`
	PendingOrders        int `json:"pending_orders"`
	LowStock             int `json:"low_stock"`
}

func (c Counters) Total() int {
	return c.PendingPrescriptions + c.PaidPrescriptions + c.PendingOrders + c.LowStock
}

type DashboardService struct {
	Orders        *repos.OrderRepo
	Prescriptions *repos.PrescriptionRepo
	Prods         *repos.ProductRepo
	Inventory     *InventoryService
	Poller        *poller.Manager
}

// NewDashboardService registers the counters fetcher with p.
func NewDashboardService(orders *repos.OrderRepo, rx *repos.PrescriptionRepo, prods *repos.ProductRepo, inv *InventoryService, p *poller.Manager) *DashboardService {
	s := &DashboardService{Orders: orders, Prescriptions: rx, Prods: prods, Inventory: inv, Poller: p}
	if p != nil {
		p.Register(CountersKey, func(ctx context.Context) (any, error) { return s.countNow(ctx) })
	}
	return s
}

// Counters reads through the shared poll loop; every admin page asking for
// badges shares one query cycle.
func (s *DashboardService) Counters(ctx context.Context) (Counters, error) {
	if s.Poller == nil {
		return s.countNow(ctx)
	}
	v, err := s.Poller.Watch(ctx, CountersKey)
	if err != nil {
		return Counters{}, err
	}
	c, ok := v.(Counters)
	if !ok {
		return Counters{}, fmt.Errorf("counters: unexpected %T", v)
	}
	return c, nil
}

func (s *DashboardService) countNow(ctx context.Context) (Counters, error) {
	var (
		c   Counters
		err error
	)
	if c.PendingPrescriptions, err = s.Prescriptions.CountByStatus(ctx, domain.PrescriptionPending); err != nil {
		return Counters{}, err
	}
	if c.PaidPrescriptions, err = s.Prescriptions.CountByStatus(ctx, domain.PrescriptionPaid); err != nil {
		return Counters{}, err
	}
	// legacy "paid" rows read as pending and are counted here
	if c.PendingOrders, err = s.Orders.CountByStatus(ctx, domain.OrderPending); err != nil {
		return Counters{}, err
	}
	if c.LowStock, err = s.Inventory.CountLow(ctx); err != nil {
		return Counters{}, err
	}
	return c, nil
}

type Summary struct {
	Revenue     int64              `json:"revenue"`
	Counters    Counters           `json:"counters"`
	BestSellers []domain.Product   `json:"best_sellers"`
	LastWeek    []repos.DayRevenue `json:"last_week"`
}

func (s *DashboardService) Summary(ctx context.Context) (Summary, error) {
	var (
		out Summary
		err error
	)
	if out.Revenue, err = s.Orders.Revenue(ctx); err != nil {
		return Summary{}, err
	}
	if out.Counters, err = s.Counters(ctx); err != nil {
		return Summary{}, err
	}
	if out.BestSellers, err = s.Prods.BestSellers(ctx, 5); err != nil {
		return Summary{}, err
	}
	since := time.Now().UTC().AddDate(0, 0, -6).Format("2006-01-02")
	if out.LastWeek, err = s.Orders.DailyRevenue(ctx, since); err != nil {
		return Summary{}, err
	}
	return out, nil
}

package services

import (
	"context"

	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// DashboardStats are the aggregate counters shown on the landing page.
type DashboardStats struct {
	TotalProducts     int             `json:"totalProducts"`
	ActiveProducts    int             `json:"activeProducts"`
	TotalProductValue decimal.Decimal `json:"totalProductValue"`
	TotalCustomers    int             `json:"totalCustomers"`
	TotalInvoices     int             `json:"totalInvoices"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
}

// ZeroStats is returned when the store cannot be read.
func ZeroStats() DashboardStats {
	return DashboardStats{TotalProductValue: decimal.Zero, TotalRevenue: decimal.Zero}
}

type DashboardService struct {
	stats store.StatsReader
	log   *logger.Logger
}

func NewDashboardService(stats store.StatsReader, log *logger.Logger) *DashboardService {
	return &DashboardService{stats: stats, log: log}
}

// GetStats reads the three projections concurrently and folds them. A failed
// read is logged and yields ZeroStats; it is never returned to the caller.
func (s *DashboardService) GetStats(ctx context.Context) DashboardStats {
	var (
		products  []models.ProductSummary
		customers []uint
		invoices  []models.InvoiceSummary
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) (err error) {
		products, err = s.stats.ProductSummaries(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		customers, err = s.stats.CustomerIDs(ctx)
		return err
	})
	p.Go(func(ctx context.Context) (err error) {
		invoices, err = s.stats.InvoiceSummaries(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		s.log.ErrorwCtx(ctx, "failed to load dashboard stats", "error", err)
		return ZeroStats()
	}
	return FoldStats(products, customers, invoices)
}

// FoldStats computes the counters from already loaded projections.
func FoldStats(products []models.ProductSummary, customers []uint, invoices []models.InvoiceSummary) DashboardStats {
	stats := ZeroStats()
	stats.TotalProducts = len(products)
	stats.ActiveProducts = lo.CountBy(products, func(p models.ProductSummary) bool { return p.Active })
	stats.TotalProductValue = lo.Reduce(products, func(acc decimal.Decimal, p models.ProductSummary, _ int) decimal.Decimal {
		return acc.Add(p.Price)
	}, decimal.Zero)
	stats.TotalCustomers = len(customers)
	stats.TotalInvoices = len(invoices)
	stats.TotalRevenue = lo.Reduce(invoices, func(acc decimal.Decimal, inv models.InvoiceSummary, _ int) decimal.Decimal {
		if inv.Status != models.InvoiceStatusPaid {
			return acc
		}
		return acc.Add(inv.Total)
	}, decimal.Zero)
	return stats
}

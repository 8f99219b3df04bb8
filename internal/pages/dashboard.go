package pages

import (
	"context"
	"sync"

	"github.com/diewo77/go-facturas/internal/realtime"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/internal/store"
)

// WatchedTables are the tables whose changes refresh the dashboard.
var WatchedTables = []string{store.TableProducts, store.TableCustomers, store.TableInvoices}

// StatsLoader computes the dashboard counters.
type StatsLoader interface {
	GetStats(ctx context.Context) services.DashboardStats
}

// Subscriber registers change callbacks per table.
type Subscriber interface {
	Subscribe(table, event string, onChange func()) (*realtime.Subscription, error)
}

// Dashboard is the landing screen. Its stats are reloaded whenever a watched
// table changes, until Close.
type Dashboard struct {
	mu     sync.Mutex
	stats  services.DashboardStats
	subs   []*realtime.Subscription
	closed bool
	once   sync.Once
}

func LoadDashboard(ctx context.Context, loader StatsLoader) *Dashboard {
	return &Dashboard{stats: loader.GetStats(ctx)}
}

func (d *Dashboard) Stats() services.DashboardStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Watch subscribes to every watched table. Each change reloads the stats and
// passes them to onUpdate. If any subscription fails, the ones already made
// are cancelled.
func (d *Dashboard) Watch(ctx context.Context, broker Subscriber, loader StatsLoader, onUpdate func(services.DashboardStats)) error {
	reload := func() {
		stats := loader.GetStats(ctx)
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return
		}
		d.stats = stats
		d.mu.Unlock()
		if onUpdate != nil {
			onUpdate(stats)
		}
	}

	subs := make([]*realtime.Subscription, 0, len(WatchedTables))
	for _, table := range WatchedTables {
		sub, err := broker.Subscribe(table, store.EventAny, reload)
		if err != nil {
			for _, s := range subs {
				s.Cancel()
			}
			return err
		}
		subs = append(subs, sub)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		for _, s := range subs {
			s.Cancel()
		}
		return nil
	}
	d.subs = append(d.subs, subs...)
	return nil
}

// Close cancels every subscription. Later calls do nothing.
func (d *Dashboard) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		subs := d.subs
		d.subs = nil
		d.mu.Unlock()
		for _, s := range subs {
			s.Cancel()
		}
	})
}

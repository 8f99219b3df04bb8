// Package realtime fans table change signals out to in-process observers.
//
// Change sources (the notifying store, Postgres LISTEN/NOTIFY or the Supabase
// realtime socket) publish into a Broker; pages and SSE streams subscribe per
// table. A signal carries no row data; it only means "reload".
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/store"
)

const topicPrefix = "table_changes."

const metadataEvent = "event"

// ErrUnknownEvent is returned by Subscribe for an event kind other than
// INSERT, UPDATE, DELETE or *.
var ErrUnknownEvent = errors.New("unknown change event")

// Change is the payload published for each signal.
type Change struct {
	Table string `json:"table"`
	Event string `json:"event"`
}

// Source feeds change signals into a sink until ctx is done.
type Source interface {
	Run(ctx context.Context, sink store.Notifier) error
}

// Broker is an in-memory pub/sub with one topic per table.
type Broker struct {
	pubsub *gochannel.GoChannel
	log    *logger.Logger
}

var _ store.Notifier = (*Broker)(nil)

func NewBroker(log *logger.Logger) *Broker {
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{
			// Signals only matter to whoever is listening right now.
			Persistent:          false,
			OutputChannelBuffer: 100,
		},
		watermill.NewStdLogger(false, false),
	)
	return &Broker{pubsub: goChannel, log: log}
}

// Publish emits a change signal for table.
func (b *Broker) Publish(table, event string) error {
	payload, err := json.Marshal(Change{Table: table, Event: event})
	if err != nil {
		return errors.Wrap(err, "marshal change")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataEvent, event)
	return errors.Wrap(b.pubsub.Publish(topicPrefix+table, msg), "publish change")
}

// Notify implements store.Notifier. Publishing failures are logged, not returned.
func (b *Broker) Notify(ctx context.Context, table, event string) {
	if err := b.Publish(table, event); err != nil {
		b.log.WarnwCtx(ctx, "change signal dropped", "table", table, "event", event, "error", err)
	}
}

// Subscribe calls onChange for each signal on table matching event ("" means
// every event). The callback runs on the subscription's own goroutine and may
// fire zero or many times per logical change. Cancel must be called once the
// observer goes away.
func (b *Broker) Subscribe(table, event string, onChange func()) (*Subscription, error) {
	event, err := normalizeEvent(event)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	messages, err := b.pubsub.Subscribe(ctx, topicPrefix+table)
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "subscribe %s", table)
	}

	sub := &Subscription{table: table, event: event, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range messages {
			msg.Ack()
			if sub.matches(msg.Metadata.Get(metadataEvent)) && !sub.cancelled() {
				onChange()
			}
		}
	}()
	return sub, nil
}

// Close stops the broker and ends every subscription.
func (b *Broker) Close() error {
	return b.pubsub.Close()
}

// Subscription is a live registration returned by Broker.Subscribe.
type Subscription struct {
	table  string
	event  string
	cancel context.CancelFunc
	once   sync.Once
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Cancel stops delivery. It is safe to call more than once and from inside the callback.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.cancel()
	})
}

// Done is closed once the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Table() string { return s.table }

func (s *Subscription) cancelled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Subscription) matches(event string) bool {
	return s.event == store.EventAny || event == s.event
}

func normalizeEvent(event string) (string, error) {
	switch event {
	case "":
		return store.EventAny, nil
	case store.EventAny, store.EventInsert, store.EventUpdate, store.EventDelete:
		return event, nil
	}
	return "", errors.Wrapf(ErrUnknownEvent, "%q", event)
}

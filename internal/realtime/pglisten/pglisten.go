// Package pglisten turns Postgres NOTIFY messages emitted by the change
// trigger into realtime signals.
package pglisten

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/realtime"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/jackc/pgx/v5"
)

// Listener holds a dedicated connection blocked on LISTEN.
type Listener struct {
	connURL string
	channel string
	log     *logger.Logger
}

var _ realtime.Source = (*Listener)(nil)

func New(connURL, channel string, log *logger.Logger) *Listener {
	return &Listener{connURL: connURL, channel: channel, log: log}
}

// Run listens until ctx is done. A lost connection ends the loop with an
// error; there is no reconnect.
func (l *Listener) Run(ctx context.Context, sink store.Notifier) error {
	conn, err := pgx.Connect(ctx, l.connURL)
	if err != nil {
		return errors.Wrap(err, "connect listener")
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return errors.Wrap(err, "listen")
	}
	l.log.Infow("listening for table changes", "channel", l.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "wait for notification")
		}
		change, err := ParsePayload(n.Payload)
		if err != nil {
			l.log.Warnw("ignoring malformed change payload", "payload", n.Payload, "error", err)
			continue
		}
		sink.Notify(ctx, change.Table, change.Event)
	}
}

// ParsePayload decodes the JSON sent by the notify_table_change trigger.
func ParsePayload(payload string) (realtime.Change, error) {
	var c realtime.Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return c, errors.Wrap(err, "decode payload")
	}
	if c.Table == "" || c.Event == "" {
		return c, errors.Newf("incomplete payload %q", payload)
	}
	return c, nil
}

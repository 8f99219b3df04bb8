// Package supabase subscribes to the Supabase Realtime websocket (Phoenix
// channel protocol) and forwards postgres_changes events as realtime signals.
package supabase

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/realtime"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/gorilla/websocket"
)

const (
	eventJoin      = "phx_join"
	eventReply     = "phx_reply"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"
	channelTopic   = "realtime:table-changes"
)

// Message is a Phoenix channel frame.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

type changeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

type joinPayload struct {
	Config struct {
		Broadcast struct {
			Self bool `json:"self"`
		} `json:"broadcast"`
		Presence struct {
			Key string `json:"key"`
		} `json:"presence"`
		PostgresChanges []changeFilter `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token,omitempty"`
}

type changesPayload struct {
	Data struct {
		Table string `json:"table"`
		Type  string `json:"type"`
	} `json:"data"`
}

// Socket is a single realtime connection joined to every application table.
type Socket struct {
	projectURL string
	apiKey     string
	tables     []string
	heartbeat  time.Duration
	dialer     *websocket.Dialer
	log        *logger.Logger

	writeMu sync.Mutex
	ref     int
}

var _ realtime.Source = (*Socket)(nil)

// New prepares a socket for the project at projectURL (https://<ref>.supabase.co).
func New(projectURL, apiKey string, heartbeat time.Duration, log *logger.Logger) *Socket {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Socket{
		projectURL: projectURL,
		apiKey:     apiKey,
		tables:     []string{store.TableProducts, store.TableCustomers, store.TableInvoices, store.TableInvoiceItems},
		heartbeat:  heartbeat,
		dialer:     websocket.DefaultDialer,
		log:        log,
	}
}

// Endpoint returns the websocket URL derived from the project URL.
func (s *Socket) Endpoint() (string, error) {
	u, err := url.Parse(s.projectURL)
	if err != nil {
		return "", errors.Wrap(err, "parse project url")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", errors.Newf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", s.apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run dials, joins the channel and forwards changes until ctx is done or the
// connection drops. There is no reconnect.
func (s *Socket) Run(ctx context.Context, sink store.Notifier) error {
	endpoint, err := s.Endpoint()
	if err != nil {
		return err
	}
	conn, _, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "dial realtime")
	}
	defer conn.Close()

	if err := s.join(conn); err != nil {
		return err
	}
	s.log.Infow("realtime channel joined", "topic", channelTopic, "tables", s.tables)

	readErr := make(chan error, 1)
	go func() { readErr <- s.readLoop(ctx, conn, sink) }()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.writeMu.Unlock()
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case <-ticker.C:
			if err := s.send(conn, Message{Topic: "phoenix", Event: eventHeartbeat, Payload: json.RawMessage(`{}`)}); err != nil {
				return errors.Wrap(err, "heartbeat")
			}
		}
	}
}

func (s *Socket) join(conn *websocket.Conn) error {
	var p joinPayload
	p.AccessToken = s.apiKey
	for _, table := range s.tables {
		p.Config.PostgresChanges = append(p.Config.PostgresChanges, changeFilter{Event: store.EventAny, Schema: "public", Table: table})
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshal join")
	}
	msg := Message{Topic: channelTopic, Event: eventJoin, Payload: raw}
	return errors.Wrap(s.send(conn, msg), "join channel")
}

func (s *Socket) send(conn *websocket.Conn, msg Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.ref++
	msg.Ref = strconv.Itoa(s.ref)
	if msg.Event == eventJoin {
		msg.JoinRef = msg.Ref
	}
	return conn.WriteJSON(msg)
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn, sink store.Notifier) error {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return errors.Wrap(err, "read realtime")
		}
		switch msg.Event {
		case eventChanges:
			table, event, ok := ParseChange(msg.Payload)
			if !ok {
				s.log.Warnw("ignoring malformed postgres_changes payload", "payload", string(msg.Payload))
				continue
			}
			sink.Notify(ctx, table, event)
		case eventReply, eventHeartbeat:
		default:
			s.log.Debugw("realtime frame", "event", msg.Event, "topic", msg.Topic)
		}
	}
}

// ParseChange extracts table and event kind from a postgres_changes payload.
func ParseChange(payload json.RawMessage) (table, event string, ok bool) {
	var p changesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", "", false
	}
	if p.Data.Table == "" || p.Data.Type == "" {
		return "", "", false
	}
	return p.Data.Table, p.Data.Type, true
}

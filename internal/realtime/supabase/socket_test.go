package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu     sync.Mutex
	events []string
}

func (s *sink) Notify(_ context.Context, table, event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, table+":"+event)
}

func (s *sink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func TestEndpoint(t *testing.T) {
	s := New("https://abc.supabase.co", "anon", 0, logger.NewNop())
	got, err := s.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "wss://abc.supabase.co/realtime/v1/websocket?apikey=anon&vsn=1.0.0", got)

	_, err = New("ftp://x", "k", 0, logger.NewNop()).Endpoint()
	assert.Error(t, err)
}

func TestParseChange(t *testing.T) {
	table, event, ok := ParseChange(json.RawMessage(`{"data":{"table":"products","type":"DELETE","schema":"public"},"ids":[1]}`))
	assert.True(t, ok)
	assert.Equal(t, "products", table)
	assert.Equal(t, "DELETE", event)

	_, _, ok = ParseChange(json.RawMessage(`{"data":{}}`))
	assert.False(t, ok)
}

func TestRun_JoinsAndForwardsChanges(t *testing.T) {
	joined := make(chan Message, 1)
	heartbeats := make(chan struct{}, 4)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime/v1/websocket", r.URL.Path)
		assert.Equal(t, "anon", r.URL.Query().Get("apikey"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var join Message
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		joined <- join
		_ = conn.WriteJSON(Message{Topic: join.Topic, Event: eventReply, Payload: json.RawMessage(`{"status":"ok"}`), Ref: join.Ref})
		_ = conn.WriteJSON(Message{Topic: join.Topic, Event: eventChanges, Payload: json.RawMessage(`{"data":{"table":"invoices","type":"INSERT"}}`)})

		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Event == eventHeartbeat {
				select {
				case heartbeats <- struct{}{}:
				default:
				}
			}
		}
	}))
	defer srv.Close()

	out := &sink{}
	s := New(srv.URL, "anon", 20*time.Millisecond, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, out) }()

	select {
	case join := <-joined:
		assert.Equal(t, eventJoin, join.Event)
		assert.Equal(t, join.Ref, join.JoinRef)
		var p joinPayload
		require.NoError(t, json.Unmarshal(join.Payload, &p))
		assert.Len(t, p.Config.PostgresChanges, 4)
		assert.Equal(t, "public", p.Config.PostgresChanges[0].Schema)
	case <-time.After(2 * time.Second):
		t.Fatal("no join received")
	}

	assert.Eventually(t, func() bool {
		ev := out.snapshot()
		return len(ev) == 1 && ev[0] == "invoices:INSERT"
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case <-heartbeats:
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat sent")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"esports-predictor/internal/domain"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil, zaptest.NewLogger(t))
	go hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(Options{Hub: hub}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, hub *Hub, url string, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("client not registered, have %d", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func committed() (*domain.RefreshRun, []*domain.Prediction) {
	run := &domain.RefreshRun{RunID: "run-7", FinishedAtMs: 1709294400000}
	preds := []*domain.Prediction{
		{FixtureID: "f1", HomePlayer: domain.Participant{ID: "a"}, AwayPlayer: domain.Participant{ID: "b"}},
		{FixtureID: "f2", HomePlayer: domain.Participant{ID: "c"}, AwayPlayer: domain.Participant{ID: "d"}},
	}
	return run, preds
}

func TestHub_PushesCommittedBatch(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)

	run, preds := committed()
	require.NoError(t, hub.PredictionsCommitted(context.Background(), run, preds))

	msg := readMessage(t, conn)
	assert.Equal(t, MessagePredictions, msg.Type)
	assert.Equal(t, "run-7", msg.RunID)
	assert.Len(t, msg.Predictions, 2)
}

func TestHub_PlayerSubscription(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)

	require.NoError(t, conn.WriteJSON(clientRequest{Type: "subscribe", PlayerIDs: []string{"d"}}))
	ack := readMessage(t, conn)
	require.Equal(t, MessageSubscribed, ack.Type)
	assert.Equal(t, []string{"d"}, ack.PlayerIDs)

	run, preds := committed()
	require.NoError(t, hub.PredictionsCommitted(context.Background(), run, preds))

	msg := readMessage(t, conn)
	require.Len(t, msg.Predictions, 1)
	assert.Equal(t, "f2", msg.Predictions[0].FixtureID)
}

func TestClientRender_FiltersByPlayerID(t *testing.T) {
	msg := &Message{Type: MessagePredictions, Predictions: []*domain.Prediction{
		{FixtureID: "f1", HomePlayer: domain.Participant{ID: "a", Name: "Ann"}, AwayPlayer: domain.Participant{ID: "b", Name: "Bob"}},
		{FixtureID: "f2", HomePlayer: domain.Participant{ID: "c", Name: "Cy"}, AwayPlayer: domain.Participant{ID: "d", Name: "Dee"}},
	}}

	byID := &Client{players: map[string]bool{"d": true}}
	data, ok := byID.render(msg)
	require.True(t, ok)
	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Predictions, 1)
	assert.Equal(t, "f2", got.Predictions[0].FixtureID)

	byName := &Client{players: map[string]bool{"Dee": true}}
	_, ok = byName.render(msg)
	assert.False(t, ok, "display names are not subscription keys")
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocket_NotConfigured(t *testing.T) {
	h := NewRouter(Options{})
	rr := get(t, h, "/ws")
	assert.Equal(t, 503, rr.Code)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://dash.example.com"})
	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://dash.example.com")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}

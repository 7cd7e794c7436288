package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/towerclash/towerclash-server/internal/game"
	"github.com/towerclash/towerclash-server/internal/game/board"
)

type call struct {
	Method   string
	PlayerID string
	MatchID  string
	Name     string
	Intent   game.Intent
}

type fakeLobby struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeLobby) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeLobby) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeLobby) FindMatch(playerID, name string) error {
	f.record(call{Method: "FindMatch", PlayerID: playerID, Name: name})
	return nil
}

func (f *fakeLobby) LeaveQueue(playerID string) bool {
	f.record(call{Method: "LeaveQueue", PlayerID: playerID})
	return true
}

func (f *fakeLobby) ConfirmMatch(playerID, matchID string) error {
	f.record(call{Method: "ConfirmMatch", PlayerID: playerID, MatchID: matchID})
	return nil
}

func (f *fakeLobby) StartSolo(playerID, name string) (string, error) {
	f.record(call{Method: "StartSolo", PlayerID: playerID, Name: name})
	return "solo", nil
}

func (f *fakeLobby) Dispatch(playerID, matchID string, in game.Intent) error {
	f.record(call{Method: "Dispatch", PlayerID: playerID, MatchID: matchID, Intent: in})
	return nil
}

func (f *fakeLobby) Disconnect(playerID string) {
	f.record(call{Method: "Disconnect", PlayerID: playerID})
}

func TestRouteDecodesIntents(t *testing.T) {
	target := board.Pos(2, 3)
	tests := []struct {
		name string
		raw  string
		want call
	}{
		{
			name: "find match with default name",
			raw:  `{"type":"find_match","data":{"name":"  "}}`,
			want: call{Method: "FindMatch", PlayerID: "p1", Name: "Player"},
		},
		{
			name: "leave queue without data",
			raw:  `{"type":"leave_queue"}`,
			want: call{Method: "LeaveQueue", PlayerID: "p1"},
		},
		{
			name: "confirm match",
			raw:  `{"type":"confirm_match","data":{"matchId":"m1"}}`,
			want: call{Method: "ConfirmMatch", PlayerID: "p1", MatchID: "m1"},
		},
		{
			name: "solo",
			raw:  `{"type":"start_solo_game","data":{"name":"Ada"}}`,
			want: call{Method: "StartSolo", PlayerID: "p1", Name: "Ada"},
		},
		{
			name: "summon",
			raw:  `{"type":"summon_unit","data":{"matchId":"m1","cardIndex":2,"target":{"r":6,"c":1}}}`,
			want: call{Method: "Dispatch", PlayerID: "p1", MatchID: "m1", Intent: game.Intent{
				Kind: game.IntentSummon, CardIndex: 2, To: board.Pos(6, 1),
			}},
		},
		{
			name: "move",
			raw:  `{"type":"move_unit","data":{"matchId":"m1","from":{"r":6,"c":1},"to":{"r":5,"c":1}}}`,
			want: call{Method: "Dispatch", PlayerID: "p1", MatchID: "m1", Intent: game.Intent{
				Kind: game.IntentMove, From: board.Pos(6, 1), To: board.Pos(5, 1),
			}},
		},
		{
			name: "attack",
			raw:  `{"type":"attack_unit","data":{"matchId":"m1","from":{"r":3,"c":3},"to":{"r":2,"c":3}}}`,
			want: call{Method: "Dispatch", PlayerID: "p1", MatchID: "m1", Intent: game.Intent{
				Kind: game.IntentAttack, From: board.Pos(3, 3), To: board.Pos(2, 3),
			}},
		},
		{
			name: "ability",
			raw:  `{"type":"use_ability","data":{"matchId":"m1","unitPos":{"r":5,"c":3},"abilityIndex":0,"targetPos":{"r":2,"c":3}}}`,
			want: call{Method: "Dispatch", PlayerID: "p1", MatchID: "m1", Intent: game.Intent{
				Kind: game.IntentUseAbility, From: board.Pos(5, 3), AbilityIndex: 0, Target: &target,
			}},
		},
		{
			name: "end turn",
			raw:  `{"type":"end_turn","data":{"matchId":"m1"}}`,
			want: call{Method: "Dispatch", PlayerID: "p1", MatchID: "m1", Intent: game.Intent{Kind: game.IntentEndTurn}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lobby := &fakeLobby{}
			_, err := route(lobby, "p1", []byte(tt.raw))
			require.NoError(t, err)
			calls := lobby.snapshot()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.want, calls[0])
		})
	}
}

func TestRouteDropsMalformedMessages(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"type":"dance"}`,
		`{"type":"move_unit","data":{"from":{"r":1,"c":1}}}`,
		`{"type":"summon_unit","data":{"target":{"r":6,"c":1}}}`,
		`{"type":"use_ability","data":{"abilityIndex":0}}`,
		`{"type":"confirm_match","data":"oops"}`,
	} {
		lobby := &fakeLobby{}
		_, err := route(lobby, "p1", []byte(raw))
		assert.ErrorIs(t, err, errMalformed, raw)
		assert.Empty(t, lobby.snapshot(), raw)
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, defaultGuestName, displayName("   "))
	assert.Equal(t, "Alice", displayName("  Alice "))
	assert.Equal(t, strings.Repeat("a", 32), displayName(strings.Repeat("a", 40)))

	long := displayName(strings.Repeat("a", 31) + "élan")
	assert.True(t, utf8.ValidString(long))
	assert.Equal(t, strings.Repeat("a", 31)+"é", long)

	wide := displayName(strings.Repeat("龍", 40))
	assert.True(t, utf8.ValidString(wide))
	assert.Equal(t, 32, utf8.RuneCountInString(wide))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHubRoundTrip(t *testing.T) {
	lobby := &fakeLobby{}
	hub := NewHub(Config{PingInterval: time.Second}, zaptest.NewLogger(t))
	hub.Attach(lobby)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	env := readEnvelope(t, conn)
	assert.Equal(t, game.MsgConnected, env["type"])
	playerID := env["data"].(map[string]any)["playerId"].(string)
	require.NotEmpty(t, playerID)
	assert.Equal(t, 1, hub.ConnectedCount())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"find_match","data":{"name":"Ada"}}`)))
	assert.Eventually(t, func() bool { return len(lobby.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, call{Method: "FindMatch", PlayerID: playerID, Name: "Ada"}, lobby.snapshot()[0])

	hub.Send(playerID, game.Envelope{Type: game.MsgMatchFound, Data: game.MatchFound{MatchID: "m1", OpponentName: "Bob"}})
	env = readEnvelope(t, conn)
	assert.Equal(t, game.MsgMatchFound, env["type"])
	assert.Equal(t, "Bob", env["data"].(map[string]any)["opponentName"])

	hub.Send("someone-else", game.Envelope{Type: game.MsgGameOver})

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		calls := lobby.snapshot()
		return len(calls) == 2 && calls[1].Method == "Disconnect" && calls[1].PlayerID == playerID
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.ConnectedCount())
}

func TestHubRejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub(Config{AllowedOrigins: []string{"https://towerclash.example"}}, zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"https://evil.example"}}
	_, _, err := websocket.DefaultDialer.Dial(url, header)
	assert.Error(t, err)
	assert.Zero(t, hub.ConnectedCount())
}

func TestHealthServerReportsServing(t *testing.T) {
	hs, err := NewHealthServer("127.0.0.1:0", zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hs.Serve(ctx) }()

	conn, err := grpc.NewClient(hs.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()
	resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	hs.SetNotServing()
	resp, err = client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("health server did not stop")
	}
}

package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/towerclash/towerclash-server/internal/game"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
	"github.com/towerclash/towerclash-server/internal/repository"
)

type inbox struct {
	mu   sync.Mutex
	msgs map[string][]game.Envelope
}

func newInbox() *inbox {
	return &inbox{msgs: make(map[string][]game.Envelope)}
}

func (b *inbox) Send(playerID string, msg game.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs[playerID] = append(b.msgs[playerID], msg)
}

func (b *inbox) of(playerID, typ string) []game.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []game.Envelope
	for _, m := range b.msgs[playerID] {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func newTestRegistry(t *testing.T) (*Registry, *inbox, *repository.MemoryStore) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	box := newInbox()
	store := repository.NewMemoryStore()
	reg := NewRegistry(cat, box, store, Config{
		Settings:      game.DefaultSettings(),
		ThinkDelay:    time.Millisecond,
		ContinueDelay: time.Millisecond,
		Seed:          42,
	}, zaptest.NewLogger(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})
	return reg, box, store
}

func pair(t *testing.T, reg *Registry, box *inbox) string {
	t.Helper()
	require.NoError(t, reg.FindMatch("p1", "Alice"))
	require.NoError(t, reg.FindMatch("p2", "Bob"))
	found := box.of("p1", game.MsgMatchFound)
	require.Len(t, found, 1)
	return found[0].Data.(game.MatchFound).MatchID
}

func TestFindMatchPairsOldestFirst(t *testing.T) {
	reg, box, _ := newTestRegistry(t)

	require.NoError(t, reg.FindMatch("p1", "Alice"))
	require.NoError(t, reg.FindMatch("p1", "Alice"))
	assert.Equal(t, 1, reg.QueueLength(), "duplicate requests are ignored")

	require.NoError(t, reg.FindMatch("p2", "Bob"))
	require.NoError(t, reg.FindMatch("p3", "Carol"))

	assert.Equal(t, 1, reg.QueueLength())
	assert.Equal(t, 1, reg.PendingCount())

	f1 := box.of("p1", game.MsgMatchFound)
	f2 := box.of("p2", game.MsgMatchFound)
	require.Len(t, f1, 1)
	require.Len(t, f2, 1)
	assert.Equal(t, "Bob", f1[0].Data.(game.MatchFound).OpponentName)
	assert.Equal(t, "Alice", f2[0].Data.(game.MatchFound).OpponentName)
	assert.Equal(t, f1[0].Data.(game.MatchFound).MatchID, f2[0].Data.(game.MatchFound).MatchID)
	assert.Empty(t, box.of("p3", game.MsgMatchFound))

	require.NoError(t, reg.FindMatch("p1", "Alice"))
	assert.Equal(t, 1, reg.QueueLength(), "matched players cannot queue again")
}

func TestLeaveQueue(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	require.NoError(t, reg.FindMatch("p1", "Alice"))

	assert.True(t, reg.LeaveQueue("p1"))
	assert.False(t, reg.LeaveQueue("p1"))
	assert.Zero(t, reg.QueueLength())
}

func TestConfirmMatchStartsRunner(t *testing.T) {
	reg, box, _ := newTestRegistry(t)
	matchID := pair(t, reg, box)

	assert.ErrorIs(t, reg.ConfirmMatch("p3", matchID), ErrUnknownMatch)
	assert.ErrorIs(t, reg.ConfirmMatch("p1", "nope"), ErrUnknownMatch)

	require.NoError(t, reg.ConfirmMatch("p1", matchID))
	assert.Zero(t, reg.ActiveCount(), "one confirmation is not enough")
	assert.ErrorIs(t, reg.Dispatch("p1", matchID, game.Intent{Kind: game.IntentEndTurn}), ErrNoMatch)

	require.NoError(t, reg.ConfirmMatch("p2", matchID))
	assert.Equal(t, 1, reg.ActiveCount())
	assert.Zero(t, reg.PendingCount())

	assert.Eventually(t, func() bool {
		return len(box.of("p1", game.MsgGameStart)) == 1 && len(box.of("p2", game.MsgGameStart)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	start := box.of("p1", game.MsgGameStart)[0].Data.(game.GameStart)
	assert.Equal(t, matchID, start.MatchID)
	assert.Equal(t, "p1", start.Player1ID)
	assert.True(t, start.Turn)

	id, ok := reg.MatchOf("p2")
	require.True(t, ok)
	assert.Equal(t, matchID, id)
}

func TestDispatchRoutesIntents(t *testing.T) {
	reg, box, _ := newTestRegistry(t)
	matchID := pair(t, reg, box)
	require.NoError(t, reg.ConfirmMatch("p1", matchID))
	require.NoError(t, reg.ConfirmMatch("p2", matchID))

	assert.ErrorIs(t, reg.Dispatch("p1", "other", game.Intent{Kind: game.IntentEndTurn}), ErrWrongMatch)
	assert.ErrorIs(t, reg.Dispatch("stranger", "", game.Intent{Kind: game.IntentEndTurn}), ErrNoMatch)

	require.NoError(t, reg.Dispatch("p1", matchID, game.Intent{PlayerID: "spoofed", Kind: game.IntentEndTurn}))
	assert.Eventually(t, func() bool {
		updates := box.of("p2", game.MsgGameUpdate)
		return len(updates) == 2 && updates[1].Data.(game.GameView).Turn
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDisconnectCancelsPendingMatch(t *testing.T) {
	reg, box, _ := newTestRegistry(t)
	matchID := pair(t, reg, box)

	reg.Disconnect("p1")

	cancelled := box.of("p2", game.MsgMatchCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, matchID, cancelled[0].Data.(game.MatchCancelled).MatchID)
	assert.Zero(t, reg.PendingCount())
	_, ok := reg.MatchOf("p2")
	assert.False(t, ok)

	require.NoError(t, reg.FindMatch("p2", "Bob"))
	assert.Equal(t, 1, reg.QueueLength(), "the remaining player may queue again")
}

func TestDisconnectForfeitsRunningMatch(t *testing.T) {
	reg, box, store := newTestRegistry(t)
	matchID := pair(t, reg, box)
	require.NoError(t, reg.ConfirmMatch("p1", matchID))
	require.NoError(t, reg.ConfirmMatch("p2", matchID))

	reg.Disconnect("p2")

	assert.Eventually(t, func() bool { return reg.ActiveCount() == 0 }, 2*time.Second, 5*time.Millisecond)
	over := box.of("p1", game.MsgGameOver)
	require.Len(t, over, 1)
	assert.Equal(t, game.ResultVictory, over[0].Data.(game.GameOver).Result)
	assert.Equal(t, game.ReasonDisconnected, over[0].Data.(game.GameOver).Reason)

	assert.Eventually(t, func() bool {
		recent, err := store.Recent(context.Background(), 1)
		return err == nil && len(recent) == 1
	}, 2*time.Second, 5*time.Millisecond)
	recent, _ := store.Recent(context.Background(), 1)
	assert.Equal(t, "Alice", recent[0].WinnerName)
	assert.Equal(t, "Bob", recent[0].LoserName)

	_, ok := reg.MatchOf("p1")
	assert.False(t, ok)
}

func TestStartSolo(t *testing.T) {
	reg, box, _ := newTestRegistry(t)

	matchID, err := reg.StartSolo("p1", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, matchID)
	assert.Equal(t, 1, reg.ActiveCount())

	_, err = reg.StartSolo("p1", "Alice")
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, reg.Dispatch("p1", matchID, game.Intent{Kind: game.IntentEndTurn}))
	assert.Eventually(t, func() bool {
		updates := box.of("p1", game.MsgGameUpdate)
		if len(updates) == 0 {
			return false
		}
		last := updates[len(updates)-1].Data.(game.GameView)
		return last.Turn && last.TurnNumber == 3
	}, 2*time.Second, 5*time.Millisecond, "the AI plays its turn and hands control back")
}

func TestShutdownStopsRunners(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	_, err := reg.StartSolo("p1", "Alice")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, reg.Shutdown(ctx))
	assert.Zero(t, reg.ActiveCount())
	assert.ErrorIs(t, reg.FindMatch("p2", "Bob"), ErrClosed)
}

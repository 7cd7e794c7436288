// Package lobby pairs players into matches and owns every live match runner.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/towerclash/towerclash-server/internal/game"
	"github.com/towerclash/towerclash-server/internal/game/ai"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
	"github.com/towerclash/towerclash-server/internal/repository"
)

const recordTimeout = 5 * time.Second

var (
	// ErrNoMatch is returned for in-match intents from a player without a running match.
	ErrNoMatch = errors.New("player is not in a running match")
	// ErrWrongMatch is returned when an intent names a match the player is not in.
	ErrWrongMatch = errors.New("intent addressed to another match")
	// ErrUnknownMatch is returned when confirming a pending match that does not exist.
	ErrUnknownMatch = errors.New("pending match not found")
	// ErrBusy is returned when a queued or seated player starts another match.
	ErrBusy = errors.New("player already queued or in a match")
	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("registry is shut down")
)

// Config holds the registry tunables.
type Config struct {
	Settings      game.Settings
	ThinkDelay    time.Duration
	ContinueDelay time.Duration
	AIName        string
	ReplayDir     string
	// Seed makes deck shuffles and AI choices reproducible. Zero uses the clock.
	Seed int64
}

type queueEntry struct {
	PlayerID string
	Name     string
	JoinedAt time.Time
}

type pendingMatch struct {
	ID        string
	Seats     [2]game.Seat
	Confirmed [2]bool
	CreatedAt time.Time
}

func (p *pendingMatch) seatIndex(playerID string) int {
	for i, s := range p.Seats {
		if s.ID == playerID {
			return i
		}
	}
	return -1
}

// Registry is the only state shared across matches: the waiting queue,
// matches awaiting confirmation, and running matches.
type Registry struct {
	queue    []queueEntry
	pending  map[string]*pendingMatch
	runners  map[string]*game.Runner
	byPlayer map[string]string
	closed   bool
	rng      *rand.Rand
	mu       sync.RWMutex

	catalog  *catalog.Catalog
	notifier game.Notifier
	store    repository.ResultStore
	cfg      Config
	logger   *zap.Logger
}

// NewRegistry creates a new registry. A nil store keeps results in memory.
func NewRegistry(cat *catalog.Catalog, notifier game.Notifier, store repository.ResultStore, cfg Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = repository.NewMemoryStore()
	}
	if cfg.AIName == "" {
		cfg.AIName = "AI"
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Registry{
		pending:  make(map[string]*pendingMatch),
		runners:  make(map[string]*game.Runner),
		byPlayer: make(map[string]string),
		rng:      rand.New(rand.NewSource(seed)),
		catalog:  cat,
		notifier: notifier,
		store:    store,
		cfg:      cfg,
		logger:   logger,
	}
}

// FindMatch queues a player. As soon as two players wait, the two oldest are
// paired into a pending match and both are told who they face. Players already
// queued or matched are ignored.
func (r *Registry) FindMatch(playerID, name string) error {
	var found []game.Outbound

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.busy(playerID) {
		r.mu.Unlock()
		return nil
	}
	r.queue = append(r.queue, queueEntry{PlayerID: playerID, Name: name, JoinedAt: time.Now()})
	r.logger.Debug("player queued", zap.String("player_id", playerID), zap.Int("queue_length", len(r.queue)))

	for len(r.queue) >= 2 {
		a, b := r.queue[0], r.queue[1]
		r.queue = r.queue[2:]
		pm := &pendingMatch{
			ID:        uuid.New().String(),
			Seats:     [2]game.Seat{{ID: a.PlayerID, Name: a.Name}, {ID: b.PlayerID, Name: b.Name}},
			CreatedAt: time.Now(),
		}
		r.pending[pm.ID] = pm
		r.byPlayer[a.PlayerID] = pm.ID
		r.byPlayer[b.PlayerID] = pm.ID
		found = append(found,
			outbound(a.PlayerID, game.MsgMatchFound, game.MatchFound{MatchID: pm.ID, OpponentName: b.Name}),
			outbound(b.PlayerID, game.MsgMatchFound, game.MatchFound{MatchID: pm.ID, OpponentName: a.Name}),
		)
		r.logger.Info("match paired",
			zap.String("match_id", pm.ID),
			zap.String("player1", a.PlayerID),
			zap.String("player2", b.PlayerID),
		)
	}
	r.mu.Unlock()

	r.deliver(found)
	return nil
}

// LeaveQueue removes a waiting player. It reports whether the player was queued.
func (r *Registry) LeaveQueue(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dequeue(playerID)
}

// ConfirmMatch records a confirmation. Once both players confirm, the match is
// built and its runner started.
func (r *Registry) ConfirmMatch(playerID, matchID string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	pm, ok := r.pending[matchID]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownMatch
	}
	i := pm.seatIndex(playerID)
	if i < 0 {
		r.mu.Unlock()
		return ErrUnknownMatch
	}
	pm.Confirmed[i] = true
	if !pm.Confirmed[0] || !pm.Confirmed[1] {
		r.mu.Unlock()
		return nil
	}

	delete(r.pending, matchID)
	runner, err := r.startLocked(matchID, pm.Seats[0], pm.Seats[1])
	if err != nil {
		delete(r.byPlayer, pm.Seats[0].ID)
		delete(r.byPlayer, pm.Seats[1].ID)
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	runner.Start()
	return nil
}

// StartSolo starts a single-player match against the AI and returns its id.
func (r *Registry) StartSolo(playerID, name string) (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	if r.busy(playerID) {
		r.mu.Unlock()
		return "", ErrBusy
	}
	matchID := uuid.New().String()
	human := game.Seat{ID: playerID, Name: name}
	bot := game.Seat{ID: "ai-" + uuid.New().String(), Name: r.cfg.AIName, IsAI: true}
	runner, err := r.startLocked(matchID, human, bot)
	if err != nil {
		r.mu.Unlock()
		return "", err
	}
	r.mu.Unlock()

	runner.Start()
	return matchID, nil
}

// startLocked builds a match and registers its runner. r.mu must be held.
func (r *Registry) startLocked(matchID string, south, north game.Seat) (*game.Runner, error) {
	m, err := game.NewMatch(matchID, south, north, r.catalog, r.cfg.Settings, rand.New(rand.NewSource(r.rng.Int63())))
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	runner := game.NewRunner(m, r.notifier, ai.NewPlanner(rand.New(rand.NewSource(r.rng.Int63()))), game.RunnerConfig{
		ThinkDelay:    r.cfg.ThinkDelay,
		ContinueDelay: r.cfg.ContinueDelay,
		ReplayDir:     r.cfg.ReplayDir,
		OnEnd:         r.onEnd,
	}, r.logger)

	r.runners[matchID] = runner
	r.byPlayer[south.ID] = matchID
	r.byPlayer[north.ID] = matchID

	r.logger.Info("match started",
		zap.String("match_id", matchID),
		zap.String("player1", south.ID),
		zap.String("player2", north.ID),
		zap.Bool("single_player", m.SinglePlayer),
	)
	return runner, nil
}

// Dispatch forwards an in-match intent to the player's runner. matchID may be
// empty; when set it must name the player's match.
func (r *Registry) Dispatch(playerID, matchID string, in game.Intent) error {
	r.mu.RLock()
	id := r.byPlayer[playerID]
	runner := r.runners[id]
	r.mu.RUnlock()

	if runner == nil {
		return ErrNoMatch
	}
	if matchID != "" && matchID != id {
		return ErrWrongMatch
	}
	in.PlayerID = playerID
	if !runner.Submit(in) {
		return ErrNoMatch
	}
	return nil
}

// MatchOf returns the pending or running match a player belongs to.
func (r *Registry) MatchOf(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerID]
	return id, ok
}

// Disconnect cleans up after a player who went away: they leave the queue,
// a pending match is cancelled and a running match is forfeited.
func (r *Registry) Disconnect(playerID string) {
	var out []game.Outbound

	r.mu.Lock()
	r.dequeue(playerID)
	matchID := r.byPlayer[playerID]
	if pm, ok := r.pending[matchID]; ok {
		delete(r.pending, matchID)
		for _, s := range pm.Seats {
			delete(r.byPlayer, s.ID)
			if s.ID != playerID {
				out = append(out, outbound(s.ID, game.MsgMatchCancelled, game.MatchCancelled{
					MatchID: matchID,
					Reason:  game.ReasonDisconnected,
				}))
			}
		}
		r.logger.Info("pending match cancelled", zap.String("match_id", matchID), zap.String("player_id", playerID))
	}
	runner := r.runners[matchID]
	r.mu.Unlock()

	r.deliver(out)
	if runner != nil {
		runner.Submit(game.Intent{PlayerID: playerID, Kind: game.IntentForfeit, Reason: game.ReasonDisconnected})
	}
}

// onEnd runs on the runner goroutine once a match is over.
func (r *Registry) onEnd(res game.Result) {
	r.mu.Lock()
	delete(r.runners, res.MatchID)
	for _, s := range res.Players {
		if r.byPlayer[s.ID] == res.MatchID {
			delete(r.byPlayer, s.ID)
		}
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.store.Record(ctx, toRecord(res)); err != nil {
		r.logger.Error("failed to record match result", zap.String("match_id", res.MatchID), zap.Error(err))
	}
}

// Shutdown stops every runner and waits for them to exit.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	runners := make([]*game.Runner, 0, len(r.runners))
	for _, runner := range r.runners {
		runners = append(runners, runner)
	}
	r.runners = make(map[string]*game.Runner)
	r.pending = make(map[string]*pendingMatch)
	r.byPlayer = make(map[string]string)
	r.queue = nil
	r.mu.Unlock()

	for _, runner := range runners {
		runner.Stop()
	}
	for _, runner := range runners {
		select {
		case <-runner.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.logger.Info("registry shut down", zap.Int("stopped_matches", len(runners)))
	return nil
}

// ActiveCount returns the number of running matches.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runners)
}

// PendingCount returns the number of matches awaiting confirmation.
func (r *Registry) PendingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pending)
}

// QueueLength returns the number of waiting players.
func (r *Registry) QueueLength() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.queue)
}

func (r *Registry) busy(playerID string) bool {
	if _, ok := r.byPlayer[playerID]; ok {
		return true
	}
	for _, e := range r.queue {
		if e.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (r *Registry) dequeue(playerID string) bool {
	for i, e := range r.queue {
		if e.PlayerID == playerID {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Registry) deliver(out []game.Outbound) {
	if r.notifier == nil {
		return
	}
	for _, o := range out {
		r.notifier.Send(o.PlayerID, o.Message)
	}
}

func outbound(playerID, typ string, data any) game.Outbound {
	return game.Outbound{PlayerID: playerID, Message: game.Envelope{Type: typ, Data: data}}
}

func toRecord(res game.Result) repository.MatchResult {
	rec := repository.MatchResult{
		MatchID:      res.MatchID,
		WinnerID:     res.WinnerID,
		LoserID:      res.LoserID,
		Reason:       res.Reason,
		Turns:        res.Turns,
		SinglePlayer: res.SinglePlayer,
		StartedAt:    res.StartedAt,
		EndedAt:      res.EndedAt,
	}
	for _, s := range res.Players {
		switch s.ID {
		case res.WinnerID:
			rec.WinnerName = s.Name
		case res.LoserID:
			rec.LoserName = s.Name
		}
	}
	return rec
}

// Package game runs a single match: the turn machine, combat, abilities,
// per-player projections and the serialized runner that drives it all.
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/towerclash/towerclash-server/internal/game/board"
	"github.com/towerclash/towerclash-server/internal/game/catalog"
	"github.com/towerclash/towerclash-server/internal/game/effects"
	"github.com/towerclash/towerclash-server/internal/game/rules"
)

// Game over reasons.
const (
	ReasonTowerDestroyed = "enemy tower destroyed"
	ReasonTowerLost      = "your tower was destroyed"
	ReasonDisconnected   = "opponent disconnected"
	ReasonForfeited      = "opponent forfeited"
	ReasonYouLeft        = "you left the match"
)

const continuationMessage = "An enemy is in range. Attack now or end your turn."

// EnergyCap is the rules ceiling on a player's energy. Settings.MaxEnergy
// may lower it but never raise it.
const EnergyCap = 10

// Settings are the per-match tunables.
type Settings struct {
	StartingEnergy int
	// MaxEnergy is clamped to EnergyCap.
	MaxEnergy      int
	HandSize       int
	TowerHP        int
	DeckCopies     int
}

// DefaultSettings returns the standard rules.
func DefaultSettings() Settings {
	return Settings{
		StartingEnergy: 10,
		MaxEnergy:      EnergyCap,
		HandSize:       5,
		TowerHP:        50,
		DeckCopies:     2,
	}
}

// Result describes a finished match.
type Result struct {
	MatchID      string
	WinnerID     string
	LoserID      string
	Reason       string
	Turns        int
	SinglePlayer bool
	Players      [2]Seat
	StartedAt    time.Time
	EndedAt      time.Time
}

// Match is the authoritative state of one game. It is not safe for
// concurrent use; a Runner owns it.
type Match struct {
	ID           string
	Players      [2]*Player
	Board        *board.Board
	Turn         *rules.TurnManager
	Ledger       *effects.Ledger
	Catalog      *catalog.Catalog
	SinglePlayer bool
	StartedAt    time.Time

	settings Settings
	outbox   []Outbound
	result   *Result
}

// NewMatch builds a match: both towers placed, decks shuffled, opening hands
// dealt and player one (south) to act.
func NewMatch(id string, south, north Seat, cat *catalog.Catalog, settings Settings, rng *rand.Rand) (*Match, error) {
	if cat == nil {
		return nil, fmt.Errorf("match %s: catalog is required", id)
	}
	if south.ID == "" || north.ID == "" || south.ID == north.ID {
		return nil, fmt.Errorf("match %s: two distinct players are required", id)
	}
	if settings.MaxEnergy <= 0 || settings.MaxEnergy > EnergyCap {
		settings.MaxEnergy = EnergyCap
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	m := &Match{
		ID:           id,
		Board:        board.NewStandard(south.ID, north.ID, settings.TowerHP),
		Turn:         rules.NewTurnManager(south.ID, north.ID),
		Ledger:       effects.NewLedger(),
		Catalog:      cat,
		SinglePlayer: south.IsAI || north.IsAI,
		StartedAt:    time.Now(),
		settings:     settings,
	}
	for i, seat := range [2]Seat{south, north} {
		side := board.SideSouth
		if i == 1 {
			side = board.SideNorth
		}
		deck := cat.Deck(settings.DeckCopies)
		rng.Shuffle(len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
		n := settings.HandSize
		if n > len(deck) {
			n = len(deck)
		}
		energy := settings.StartingEnergy
		if energy > settings.MaxEnergy {
			energy = settings.MaxEnergy
		}
		m.Players[i] = &Player{
			ID:        seat.ID,
			Name:      seat.Name,
			Side:      side,
			IsAI:      seat.IsAI,
			Hand:      append([]string(nil), deck[:n]...),
			Deck:      append([]string(nil), deck[n:]...),
			Energy:    energy,
			maxEnergy: settings.MaxEnergy,
		}
	}
	return m, nil
}

// Player returns the seated player with id.
func (m *Match) Player(id string) (*Player, bool) {
	for _, p := range m.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Opponent returns the other seated player.
func (m *Match) Opponent(id string) *Player {
	if m.Players[0].ID == id {
		return m.Players[1]
	}
	return m.Players[0]
}

// ActivePlayer returns the player holding the turn.
func (m *Match) ActivePlayer() *Player {
	p, _ := m.Player(m.Turn.ActivePlayer())
	return p
}

// Ended reports whether the match is over.
func (m *Match) Ended() bool {
	return m.Turn.Ended()
}

// Result returns the outcome once the match has ended.
func (m *Match) Result() (Result, bool) {
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

// Drain returns and clears the pending outbound messages.
func (m *Match) Drain() []Outbound {
	out := m.outbox
	m.outbox = nil
	return out
}

func (m *Match) send(playerID, typ string, data any) {
	m.outbox = append(m.outbox, Outbound{PlayerID: playerID, Message: Envelope{Type: typ, Data: data}})
}

func (m *Match) broadcast(typ string, data any) {
	for _, p := range m.Players {
		m.send(p.ID, typ, data)
	}
}

// Start queues the game_start projection for both players.
func (m *Match) Start() {
	hash := m.StateHash()
	for _, p := range m.Players {
		m.send(p.ID, MsgGameStart, m.startView(p, hash))
	}
}

// act checks the common preconditions of every in-turn intent.
func (m *Match) act(playerID string) (*Player, error) {
	p, ok := m.Player(playerID)
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if m.Turn.Ended() {
		return nil, rules.ErrMatchEnded
	}
	if !m.Turn.IsActive(playerID) {
		return nil, rules.ErrNotYourTurn
	}
	return p, nil
}

// Summon places hand card cardIndex on cell of the actor's spawn row and ends the turn.
func (m *Match) Summon(playerID string, cardIndex int, cell board.Position) error {
	p, err := m.act(playerID)
	if err != nil {
		return err
	}
	if m.Turn.Phase() == rules.PhaseAwaitingContinuation {
		return rules.ErrAwaitingChoice
	}
	if cardIndex < 0 || cardIndex >= len(p.Hand) {
		return rules.ErrBadCardIndex
	}
	if err := rules.CheckSpawn(m.Board, p.Side, cell); err != nil {
		return err
	}
	card, ok := m.Catalog.Card(p.Hand[cardIndex])
	if !ok {
		return fmt.Errorf("%w: %s", rules.ErrUnknownCard, p.Hand[cardIndex])
	}
	if !p.canAfford(card.Cost) {
		return rules.ErrInsufficientEnergy
	}

	if err := m.Board.Place(cell, board.NewUnit(p.ID, card)); err != nil {
		return err
	}
	p.spend(card.Cost)
	p.removeFromHand(cardIndex)

	m.switchTurn()
	return nil
}

// Move relocates a unit along a path of empty cells. Ranged units end the
// turn; melee units end it unless an enemy is now in range, in which case the
// player is prompted to attack or end the turn. AI moves never end the turn.
func (m *Match) Move(playerID string, from, to board.Position) error {
	p, err := m.act(playerID)
	if err != nil {
		return err
	}
	if m.Turn.Phase() == rules.PhaseAwaitingContinuation {
		return rules.ErrAwaitingChoice
	}
	u, err := rules.CheckMove(m.Board, p.ID, from, to)
	if err != nil {
		return err
	}
	if err := m.Board.Move(from, to); err != nil {
		return err
	}
	u.HasMoved = true

	if p.IsAI {
		return nil
	}
	if !u.Ranged && !u.HasAttacked && rules.EnemyInRange(m.Board, to, u) {
		m.Turn.AwaitContinuation(to)
		m.send(p.ID, MsgActionPrompt, ActionPrompt{
			MatchID: m.ID,
			Message: continuationMessage,
			Options: []string{OptionAttack, OptionEndTurn},
			UnitPos: to,
		})
		return nil
	}
	m.switchTurn()
	return nil
}

// Attack resolves a regular attack. Destroying a tower ends the match;
// otherwise the turn ends.
func (m *Match) Attack(playerID string, from, to board.Position) error {
	p, err := m.act(playerID)
	if err != nil {
		return err
	}
	if pos, open := m.Turn.Continuation(); open && pos != from {
		return rules.ErrAwaitingChoice
	}
	attacker, defender, err := rules.CheckAttack(m.Board, p.ID, from, to)
	if err != nil {
		return err
	}

	m.resolveAttack(from, attacker, to, defender)
	if m.Ended() {
		return nil
	}
	m.switchTurn()
	return nil
}

// EndTurn passes the turn, declining any open continuation.
func (m *Match) EndTurn(playerID string) error {
	if _, err := m.act(playerID); err != nil {
		return err
	}
	m.switchTurn()
	return nil
}

// Forfeit ends the match with playerID losing.
func (m *Match) Forfeit(playerID, reason string) error {
	if _, ok := m.Player(playerID); !ok {
		return ErrUnknownPlayer
	}
	if m.Turn.Ended() {
		return rules.ErrMatchEnded
	}
	if reason == "" {
		reason = ReasonForfeited
	}
	m.finish(m.Opponent(playerID).ID, reason, ReasonYouLeft)
	return nil
}

// switchTurn is the only path that changes the active player.
func (m *Match) switchTurn() {
	ending := m.Turn.ActivePlayer()
	for _, pos := range m.Board.Units(ending) {
		u, _ := m.Board.UnitAt(pos)
		u.ResetFlags()
	}

	next := m.Turn.SwitchTurn()
	if p, ok := m.Player(next); ok {
		p.gain(1)
	}
	m.Ledger.Tick(m.Board)

	reports := effects.FirePassives(m.Board, m.Ledger, catalog.TriggerOnStartTurn, effects.PassiveContext{Owner: next})
	m.publishPassives(reports)
}

// publishPassives broadcasts passive firings and ends the match if one of them
// destroyed a tower.
func (m *Match) publishPassives(reports []effects.PassiveReport) {
	for _, r := range reports {
		m.broadcast(MsgPassiveResult, PassiveResult{MatchID: m.ID, PassiveReport: r})
	}
	m.checkTowers(effects.PassiveTargets(reports))
}

func (m *Match) checkTowers(reports []effects.TargetReport) {
	if m.Ended() {
		return
	}
	if owner, destroyed := effects.DestroyedTower(reports); destroyed {
		m.finish(m.Opponent(owner).ID, ReasonTowerDestroyed, ReasonTowerLost)
	}
}

// finish ends the match and queues exactly one victory and one defeat.
func (m *Match) finish(winnerID, winReason, loseReason string) {
	if m.Turn.Ended() {
		return
	}
	m.Turn.End()
	loser := m.Opponent(winnerID)
	m.result = &Result{
		MatchID:      m.ID,
		WinnerID:     winnerID,
		LoserID:      loser.ID,
		Reason:       winReason,
		Turns:        m.Turn.TurnNumber(),
		SinglePlayer: m.SinglePlayer,
		Players:      [2]Seat{m.Players[0].seat(), m.Players[1].seat()},
		StartedAt:    m.StartedAt,
		EndedAt:      time.Now(),
	}
	m.send(winnerID, MsgGameOver, GameOver{MatchID: m.ID, Result: ResultVictory, Reason: winReason})
	m.send(loser.ID, MsgGameOver, GameOver{MatchID: m.ID, Result: ResultDefeat, Reason: loseReason})
}

func (p *Player) seat() Seat {
	return Seat{ID: p.ID, Name: p.Name, IsAI: p.IsAI}
}

package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const replayVersion = 1

// Snapshot is the recorded match state after one accepted action.
type Snapshot struct {
	MatchID      string           `json:"matchId"`
	Seq          int              `json:"seq"`
	Action       string           `json:"action"`
	TurnNumber   int              `json:"turnNumber"`
	ActivePlayer string           `json:"activePlayer"`
	Phase        string           `json:"phase"`
	Players      []PlayerSnapshot `json:"players"`
	Occupants    []OccupantView   `json:"occupants"`
	StateHash    string           `json:"stateHash"`
	RecordedAt   time.Time        `json:"recordedAt"`
}

// PlayerSnapshot is a player's recorded state.
type PlayerSnapshot struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Side   string   `json:"side"`
	IsAI   bool     `json:"isAI"`
	Energy int      `json:"energy"`
	Hand   []string `json:"hand"`
}

// Snapshot captures the current state, labelled with the action that produced it.
func (m *Match) Snapshot(seq int, action string) *Snapshot {
	s := &Snapshot{
		MatchID:      m.ID,
		Seq:          seq,
		Action:       action,
		TurnNumber:   m.Turn.TurnNumber(),
		ActivePlayer: m.Turn.ActivePlayer(),
		Phase:        m.Turn.Phase().String(),
		Occupants:    m.occupants(),
		StateHash:    m.StateHash(),
		RecordedAt:   time.Now(),
	}
	for _, p := range m.Players {
		s.Players = append(s.Players, PlayerSnapshot{
			ID:     p.ID,
			Name:   p.Name,
			Side:   p.Side.String(),
			IsAI:   p.IsAI,
			Energy: p.Energy,
			Hand:   append([]string(nil), p.Hand...),
		})
	}
	return s
}

// Replay is the ordered list of snapshots of one match.
type Replay struct {
	MatchID string      `json:"matchId"`
	States  []*Snapshot `json:"states"`
	mu      sync.RWMutex
}

// NewReplay creates a new, empty replay.
func NewReplay(matchID string) *Replay {
	return &Replay{
		MatchID: matchID,
		States:  make([]*Snapshot, 0),
	}
}

// RecordState appends a snapshot.
func (r *Replay) RecordState(s *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.States = append(r.States, s)
}

// SaveToFile writes the replay as a gzip'd gob stream to <dir>/<matchID>.replay.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(ReplayFile(directory, r.MatchID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		MatchID:    r.MatchID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		StateCount: len(r.States),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for i, state := range r.States {
		if err := encoder.Encode(state); err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
	}

	return nil
}

// ReplayFile returns the path SaveToFile writes matchID's replay to.
func ReplayFile(directory, matchID string) string {
	return filepath.Join(directory, fmt.Sprintf("%s.replay", matchID))
}

// LoadReplayFromFile reads a replay written by SaveToFile. A missing file
// wraps os.ErrNotExist.
func LoadReplayFromFile(directory, matchID string) (*Replay, error) {
	file, err := os.Open(ReplayFile(directory, matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.MatchID)
	for i := 0; i < metadata.StateCount; i++ {
		var state Snapshot
		if err := decoder.Decode(&state); err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		replay.States = append(replay.States, &state)
	}

	return replay, nil
}

type replayMetadata struct {
	MatchID    string
	Timestamp  time.Time
	Version    int
	StateCount int
}

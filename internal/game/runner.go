package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/towerclash/towerclash-server/internal/game/ai"
	"github.com/towerclash/towerclash-server/internal/game/targeting"
)

const (
	tracerName  = "towerclash/game"
	mailboxSize = 64
)

// ErrRunnerStopped is returned when the match's runner has terminated.
var ErrRunnerStopped = errors.New("match runner stopped")

// RunnerConfig tunes a Runner.
type RunnerConfig struct {
	// ThinkDelay is how long the AI waits after gaining the turn.
	ThinkDelay time.Duration
	// ContinueDelay is how long the AI waits between moves within its turn.
	ContinueDelay time.Duration
	// ReplayDir enables saving the replay when the match ends.
	ReplayDir string
	// OnEnd is called from the runner goroutine once the match has ended.
	OnEnd func(Result)
}

type mail struct {
	intent  *Intent
	wake    uint64
	inspect func(*Match)
	done    chan struct{}
}

// Runner owns a match and applies everything that touches it on a single
// goroutine, in arrival order.
type Runner struct {
	match    *Match
	notifier Notifier
	logger   *zap.Logger
	tracer   trace.Tracer
	planner  *ai.Planner
	cfg      RunnerConfig

	mailbox   chan mail
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once

	// Loop-owned.
	aiSeq   uint64
	aiTimer *time.Timer
	replay  *Replay
	seq     int
}

// NewRunner creates a runner for m. planner may be nil for matches without an AI.
func NewRunner(m *Match, notifier Notifier, planner *ai.Planner, cfg RunnerConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(string, Envelope) {})
	}
	if planner == nil {
		planner = ai.NewPlanner(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		match:    m,
		notifier: notifier,
		logger:   logger.With(zap.String("match_id", m.ID)),
		tracer:   otel.Tracer(tracerName),
		planner:  planner,
		cfg:      cfg,
		mailbox:  make(chan mail, mailboxSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		replay:   NewReplay(m.ID),
	}
}

// MatchID returns the id of the owned match.
func (r *Runner) MatchID() string {
	return r.match.ID
}

// PlayerIDs returns both seated player ids. Seats never change, so this is
// safe from any goroutine.
func (r *Runner) PlayerIDs() [2]string {
	return [2]string{r.match.Players[0].ID, r.match.Players[1].ID}
}

// Start launches the runner goroutine and sends the opening state.
func (r *Runner) Start() {
	r.startOnce.Do(func() {
		go r.loop()
	})
}

// Stop terminates the runner without recording a result.
func (r *Runner) Stop() {
	r.cancel()
}

// Done is closed once the runner goroutine has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Submit queues an intent. It returns false once the runner has stopped.
func (r *Runner) Submit(in Intent) bool {
	return r.post(mail{intent: &in})
}

// Inspect runs fn against the match on the runner goroutine and waits for it.
func (r *Runner) Inspect(ctx context.Context, fn func(*Match)) error {
	done := make(chan struct{})
	if !r.post(mail{inspect: fn, done: done}) {
		return ErrRunnerStopped
	}
	select {
	case <-done:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) post(m mail) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.mailbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Runner) loop() {
	defer close(r.done)
	defer r.stopTimer()

	r.match.Start()
	r.sync("start", r.cfg.ThinkDelay)

	for {
		select {
		case <-r.ctx.Done():
			return
		case m := <-r.mailbox:
			switch {
			case m.inspect != nil:
				m.inspect(r.match)
				close(m.done)
			case m.intent != nil:
				r.handle(*m.intent)
			default:
				r.think(m.wake)
			}
		}
	}
}

func (r *Runner) handle(in Intent) {
	if r.match.Ended() {
		return
	}
	_, span := r.tracer.Start(r.ctx, "match."+string(in.Kind), trace.WithAttributes(
		attribute.String("match.id", r.match.ID),
		attribute.String("player.id", in.PlayerID),
	))
	defer span.End()

	if err := r.match.Apply(in); err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.reject(in, err)
		return
	}
	r.sync(string(in.Kind), r.cfg.ThinkDelay)
}

// reject drops an invalid intent. Only ability rule failures are reported back.
func (r *Runner) reject(in Intent, err error) {
	r.logger.Debug("intent rejected",
		zap.String("player_id", in.PlayerID),
		zap.String("intent", string(in.Kind)),
		zap.Error(err),
	)
	var rej *targeting.RejectionError
	if in.Kind != IntentUseAbility || !errors.As(err, &rej) {
		return
	}
	r.deliver(Outbound{PlayerID: in.PlayerID, Message: Envelope{Type: MsgAbilityResult, Data: AbilityResult{
		MatchID:      r.match.ID,
		Success:      false,
		Message:      rej.Message,
		UnitPos:      in.From,
		AbilityIndex: in.AbilityIndex,
	}}})
}

// sync publishes the consequences of an accepted action: queued events, then
// either the final result or both projections, then the next AI wake-up.
func (r *Runner) sync(action string, aiDelay time.Duration) {
	for _, out := range r.match.Drain() {
		r.deliver(out)
	}
	r.seq++
	r.replay.RecordState(r.match.Snapshot(r.seq, action))

	if r.match.Ended() {
		r.finish()
		return
	}

	views := r.match.Projections()
	for i, p := range r.match.Players {
		r.deliver(Outbound{PlayerID: p.ID, Message: Envelope{Type: MsgGameUpdate, Data: views[i]}})
	}
	r.scheduleAI(aiDelay)
}

func (r *Runner) deliver(out Outbound) {
	if p, ok := r.match.Player(out.PlayerID); ok && p.IsAI {
		return
	}
	r.notifier.Send(out.PlayerID, out.Message)
}

func (r *Runner) finish() {
	r.stopTimer()
	result, _ := r.match.Result()
	r.logger.Info("match ended",
		zap.String("winner_id", result.WinnerID),
		zap.String("reason", result.Reason),
		zap.Int("turns", result.Turns),
	)
	if r.cfg.ReplayDir != "" {
		if err := r.replay.SaveToFile(r.cfg.ReplayDir); err != nil {
			r.logger.Warn("failed to save replay", zap.Error(err))
		}
	}
	if r.cfg.OnEnd != nil {
		r.cfg.OnEnd(result)
	}
	r.cancel()
}

// scheduleAI arms the AI timer when it is the AI's turn. Each arming bumps the
// sequence so that a stale timer is ignored when it fires.
func (r *Runner) scheduleAI(delay time.Duration) {
	r.aiSeq++
	r.stopTimer()
	if !r.match.SinglePlayer || r.match.Ended() {
		return
	}
	if p := r.match.ActivePlayer(); p == nil || !p.IsAI {
		return
	}
	seq := r.aiSeq
	r.aiTimer = time.AfterFunc(delay, func() {
		r.post(mail{wake: seq})
	})
}

func (r *Runner) stopTimer() {
	if r.aiTimer != nil {
		r.aiTimer.Stop()
		r.aiTimer = nil
	}
}

// think runs one planner decision if the wake-up is still current.
func (r *Runner) think(seq uint64) {
	if seq != r.aiSeq || r.match.Ended() {
		return
	}
	p := r.match.ActivePlayer()
	if p == nil || !p.IsAI {
		return
	}

	_, span := r.tracer.Start(r.ctx, "match.ai", trace.WithAttributes(
		attribute.String("match.id", r.match.ID),
		attribute.String("player.id", p.ID),
	))
	defer span.End()

	action := r.planner.Decide(ai.State{
		Board:   r.match.Board,
		Self:    p.ID,
		Side:    p.Side,
		Hand:    p.Hand,
		Energy:  p.Energy,
		Catalog: r.match.Catalog,
	})
	in := intentFor(p.ID, action)
	span.SetAttributes(attribute.String("ai.action", string(action.Kind)))

	if err := r.match.Apply(in); err != nil {
		r.logger.Warn("ai action rejected, ending turn", zap.String("action", string(action.Kind)), zap.Error(err))
		in = Intent{PlayerID: p.ID, Kind: IntentEndTurn}
		if err := r.match.Apply(in); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return
		}
	}

	delay := r.cfg.ThinkDelay
	if in.Kind == IntentMove {
		delay = r.cfg.ContinueDelay
	}
	r.sync("ai_"+string(in.Kind), delay)
}

func intentFor(playerID string, a ai.Action) Intent {
	switch a.Kind {
	case ai.ActionAttack:
		return Intent{PlayerID: playerID, Kind: IntentAttack, From: a.From, To: a.To}
	case ai.ActionSummon:
		return Intent{PlayerID: playerID, Kind: IntentSummon, CardIndex: a.CardIndex, To: a.To}
	case ai.ActionMove:
		return Intent{PlayerID: playerID, Kind: IntentMove, From: a.From, To: a.To}
	default:
		return Intent{PlayerID: playerID, Kind: IntentEndTurn}
	}
}

// Package engine runs a journey: a tick loop that advances the clock and
// the mile counter, raises events and issues, and blocks on the player's
// decisions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/journal"
	"github.com/tatianab/gtfoklahoma/internal/models"
	"github.com/tatianab/gtfoklahoma/internal/random"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// KindDirect marks actions applied through PerformAction.
const KindDirect dispatch.Kind = "action"

var (
	ErrRunning       = errors.New("engine is running")
	ErrGameOver      = errors.New("game is over")
	ErrUnknownAction = errors.New("unknown action")
)

// Options tune an Engine. The zero value runs with no tick delay, no
// decision timeout, the default logger and a crypto-seeded source.
type Options struct {
	TickDelay       time.Duration
	DecisionTimeout time.Duration
	Logger          *log.Logger
	Rand            *rand.Rand
	Journal         journal.Sink
}

// Engine owns the world state of one session. Only the engine goroutine
// (or the caller of Step while stopped) mutates it.
type Engine struct {
	lib     *content.Library
	session *models.GameSession
	state   *models.GameState
	opts    Options
	logger  *log.Logger
	rng     *rand.Rand

	observers []Observer
	begun     bool

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	stopOnce *sync.Once
	done     chan struct{}
	err      error
}

func New(lib *content.Library, session *models.GameSession, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Rand == nil {
		seed, err := random.NewSeed()
		if err != nil {
			seed = uint64(time.Now().UnixNano())
		}
		opts.Rand = random.New(seed)
	}
	if opts.Journal == nil {
		opts.Journal = journal.Discard{}
	}
	done := make(chan struct{})
	close(done)
	return &Engine{
		lib:     lib,
		session: session,
		state:   &session.State,
		opts:    opts,
		logger:  opts.Logger,
		rng:     opts.Rand,
		done:    done,
	}
}

// RegisterObserver adds o. Register observers before Start.
func (e *Engine) RegisterObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Session returns the session being played. Read it only while the engine
// is stopped.
func (e *Engine) Session() *models.GameSession { return e.session }

// Start spawns the tick loop. Cancelling ctx aborts the loop even while it
// waits on a decision.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrRunning
	}
	if e.session.Over {
		return ErrGameOver
	}
	e.running = true
	e.err = nil
	e.stop = make(chan struct{})
	e.stopOnce = &sync.Once{}
	e.done = make(chan struct{})
	go e.run(ctx, e.stop, e.done)
	return nil
}

// Stop signals the loop and waits for it to exit. It takes effect between
// ticks, so a loop blocked on a decision stops once that decision is made.
// Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	stop, once, done := e.stop, e.stopOnce, e.done
	e.mu.Unlock()

	once.Do(func() { close(stop) })
	<-done
}

// Done is closed when the loop exits.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Err is the reason the last loop exited early, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	err := e.loop(ctx, stop)
	if err != nil && !errors.Is(err, ErrGameOver) {
		e.logger.Warn("engine stopped", "err", err)
	}

	e.mu.Lock()
	if !errors.Is(err, ErrGameOver) {
		e.err = err
	}
	e.running = false
	e.mu.Unlock()
	close(done)
}

func (e *Engine) loop(ctx context.Context, stop <-chan struct{}) error {
	if err := e.begin(ctx); err != nil {
		return err
	}
	var tick <-chan time.Time
	if e.opts.TickDelay > 0 {
		ticker := time.NewTicker(e.opts.TickDelay)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		if tick != nil {
			select {
			case <-stop:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else {
			select {
			case <-stop:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if err := e.tick(ctx); err != nil {
			return err
		}
	}
}

// Step runs a single tick on the caller's goroutine. It returns
// ErrGameOver once the journey has ended.
func (e *Engine) Step(ctx context.Context) error {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if running {
		return ErrRunning
	}
	if err := e.begin(ctx); err != nil {
		return err
	}
	return e.tick(ctx)
}

// begin dispatches anything due at the starting mile. It runs once per
// Engine.
func (e *Engine) begin(ctx context.Context) error {
	if e.session.Over {
		return ErrGameOver
	}
	if e.begun {
		return nil
	}
	e.begun = true
	st := e.state
	if st.TicksUntilNextMile <= 0 {
		st.TicksUntilNextMile = stats.TicksPerMile(st.Stats)
	}
	e.logger.Info("journey started", "session", e.session.ID, "hour", st.Hour, "mile", st.Mile)
	e.notify(func(o Observer) { o.OnStatsChanged(st.Stats) })
	return e.dispatchEvents(ctx, st.Mile)
}

func (e *Engine) tick(ctx context.Context) error {
	st := e.state
	if st.BumpTick()%stats.TicksPerGameHour == 0 {
		hour := st.BumpHour()
		e.logger.Debug("hour", "hour", hour, "tick", st.Tick)
		e.notify(func(o Observer) { o.OnHourChanged(hour) })

		if err := e.rollIssue(ctx, content.IssueHealth, st.Stats.OddsHealthIssue); err != nil {
			return err
		}
		if st.Stats.Awake(hour) {
			if err := e.rollIssue(ctx, content.IssueMechanical, st.Stats.OddsMechIssue); err != nil {
				return err
			}
		}
	}

	if st.TicksUntilNextMile <= 0 {
		st.TicksUntilNextMile = stats.TicksPerMile(st.Stats)
		mile := st.BumpMile()
		e.logger.Debug("mile", "mile", mile, "tick", st.Tick)
		e.notify(func(o Observer) { o.OnMileChanged(mile) })
		if err := e.dispatchEvents(ctx, mile); err != nil {
			return err
		}
	}
	st.TicksUntilNextMile--
	return nil
}

// dispatchEvents presents every event due at mile, in catalog order, and
// ends the game when nothing is left down the road. Each event is marked
// handled once performed, so an aborted batch resumes where it stopped.
func (e *Engine) dispatchEvents(ctx context.Context, mile int) error {
	st := e.state
	if mile > st.EventsHandledMile {
		for _, ev := range e.lib.Events.At(mile) {
			if st.EventHandled(ev.ID) {
				continue
			}
			choices := e.lib.Actions.Eligible(ev.ActionIDs, st)
			if len(choices) == 0 {
				e.logger.Warn("event has no available actions", "event", ev.ID, "mile", mile)
				st.PushEndingHints(ev.EndingHints...)
				st.MarkEventHandled(ev.ID)
				continue
			}
			d := dispatch.NewDecision(dispatch.KindEvent, ev.ID, ev.DisplayName, ev.Description, choices, e.logger)
			e.notify(func(o Observer) { o.OnEvent(d) })
			err := e.decide(ctx, d, ev.EndingHints)
			if err == nil || errors.Is(err, ErrGameOver) {
				st.MarkEventHandled(ev.ID)
			}
			if err != nil {
				return err
			}
		}
		st.EventsHandledMile = mile
	}
	if !e.lib.Events.HasEventsAfter(mile + 1) {
		return e.finish()
	}
	return nil
}

// rollIssue rolls against odds and, on a hit, raises a servable issue of
// the category. An issue whose decision is aborted goes back in the pool.
func (e *Engine) rollIssue(ctx context.Context, cat content.IssueCategory, odds float64) error {
	if e.rng.Float64() >= odds {
		return nil
	}
	st := e.state
	is, ok := e.lib.Issues.PopRandom(cat, st, e.rng)
	if !ok {
		e.logger.Debug("no issue to serve", "category", cat)
		return nil
	}
	e.logger.Info("issue", "issue", is.ID, "category", cat, "hour", st.Hour, "mile", st.Mile)

	choices := e.lib.Actions.Eligible(is.ActionIDs, st)
	if len(choices) == 0 {
		e.logger.Warn("issue has no available actions", "issue", is.ID)
		st.PushEndingHints(is.EndingHints...)
	} else {
		d := dispatch.NewDecision(dispatch.KindIssue, is.ID, is.DisplayName, is.Description, choices, e.logger)
		d.ImageURL = is.ImageURL
		e.notify(func(o Observer) { o.OnIssueOccurred(d) })
		if err := e.decide(ctx, d, is.EndingHints); err != nil {
			if !errors.Is(err, ErrGameOver) {
				st.UnmarkIssueHappened(is.ID)
			}
			return err
		}
	}
	st.ApplyDelta(is.Delta)
	e.notify(func(o Observer) { o.OnStatsChanged(st.Stats) })
	if st.Dead() {
		return e.finish()
	}
	return nil
}

// decide waits for d and performs the chosen action, pushing hints first.
// When the wait (or a store visit) is aborted, it returns the error
// without touching the world state.
func (e *Engine) decide(ctx context.Context, d *dispatch.Decision, hints []int) error {
	id, err := d.Wait(ctx, e.opts.DecisionTimeout)
	timedOut := errors.Is(err, dispatch.ErrDecisionTimeout)
	if timedOut {
		e.logger.Warn("decision timed out, taking the first choice", "kind", d.Kind, "id", d.ContentID, "action", id)
	} else if err != nil {
		return err
	}
	res, err := e.perform(ctx, d.Kind, d.ContentID, d.Title, e.lib.Actions.Lookup(id), hints, timedOut)
	if err != nil {
		return err
	}
	if e.state.Dead() {
		e.logger.Info("rider is dead", "action", res.Action.ID)
		return e.finish()
	}
	return nil
}

// PerformAction applies an action directly, outside any event or issue.
// It must not be called while the loop is running.
func (e *Engine) PerformAction(ctx context.Context, actionID int) (ActionResult, error) {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if running {
		return ActionResult{}, ErrRunning
	}
	if !e.lib.Actions.Has(actionID) {
		return ActionResult{}, fmt.Errorf("%w: %d", ErrUnknownAction, actionID)
	}
	a := e.lib.Actions.Lookup(actionID)
	return e.perform(ctx, KindDirect, -1, a.DisplayName, a, nil, false)
}

// perform applies a. The store visit, the only wait, runs before any
// state changes.
func (e *Engine) perform(ctx context.Context, kind dispatch.Kind, contentID int, title string, a content.Action, hints []int, timedOut bool) (ActionResult, error) {
	st := e.state
	res := ActionResult{Kind: kind, ContentID: contentID, Action: a, Succeeded: a.Succeeded, TimedOut: timedOut}

	var cart []int
	if a.Type.Has(content.ActionStore) {
		var err error
		if cart, err = e.visitStore(ctx, a, &res); err != nil {
			return res, err
		}
	}

	st.PushEndingHints(hints...)
	st.PushEndingHints(a.EndingHints...)
	if a.Type.Has(content.ActionStatChange) {
		st.ApplyDelta(a.Delta())
		res.Message = a.Message()
	}
	if a.Type.Has(content.ActionStore) {
		e.checkout(cart, &res)
	}
	st.MarkActionHappened(a.ID)
	res.Stats = st.Stats

	entryKind := string(kind)
	if a.Type.Has(content.ActionStore) {
		entryKind = "store"
	}
	e.remember(models.HistoryEntry{
		Kind:      entryKind,
		ContentID: contentID,
		Title:     title,
		ActionID:  a.ID,
		Action:    a.DisplayName,
		Outcome:   res.Message,
		Purchased: itemIDs(res.Purchased),
		TimedOut:  timedOut,
	})
	e.notify(func(o Observer) { o.OnActionResolved(res) })
	e.notify(func(o Observer) { o.OnStatsChanged(res.Stats) })
	return res, nil
}

// visitStore runs the purchase handshake for a store action and returns
// the cart.
func (e *Engine) visitStore(ctx context.Context, a content.Action, res *ActionResult) ([]int, error) {
	var stock []content.Item
	for _, id := range a.StoreItems {
		if it := e.lib.Items.Lookup(id); it.ID >= 0 {
			stock = append(stock, it)
		}
	}
	v := dispatch.NewStoreVisit(a.ID, a.DisplayName, stock, e.state.Stats.MoneyRemaining, e.logger)
	e.notify(func(o Observer) { o.OnStoreEntered(v) })

	cart, err := v.Wait(ctx, e.opts.DecisionTimeout)
	if errors.Is(err, dispatch.ErrDecisionTimeout) {
		e.logger.Warn("store visit timed out, buying nothing", "action", a.ID)
		res.TimedOut = true
		return nil, nil
	}
	return cart, err
}

// checkout applies the cart. Affordability is checked again here against
// the live funds.
func (e *Engine) checkout(cart []int, res *ActionResult) {
	st := e.state
	for _, id := range cart {
		it := e.lib.Items.Lookup(id)
		if it.ID < 0 || it.Cost > st.Stats.MoneyRemaining {
			e.logger.Debug("purchase denied", "item", id, "money", st.Stats.MoneyRemaining)
			res.Denied = append(res.Denied, it)
			continue
		}
		st.AddItem(it, 1)
		res.Purchased = append(res.Purchased, it)
	}
}

// finish pops the ending, records it and tells the observers. It returns
// ErrGameOver so callers unwind the loop.
func (e *Engine) finish() error {
	if e.session.Over {
		return ErrGameOver
	}
	st := e.state
	ending := content.NoEnding
	if id, ok := st.PopEndingHint(); !ok {
		e.logger.Error("no ending hinted, using the default ending")
	} else if e.lib.Endings.Has(id) {
		ending = e.lib.Endings.Lookup(id)
	} else {
		e.logger.Warn("hinted ending is not defined", "ending", id)
		ending.ID = id
	}

	e.session.Over = true
	e.session.Ending = ending.ID
	e.remember(models.HistoryEntry{
		Kind:      "ending",
		ContentID: ending.ID,
		Title:     ending.DisplayName,
		ActionID:  -1,
	})
	e.logger.Info("game over", "session", e.session.ID, "ending", ending.ID, "mile", st.Mile, "health", st.Stats.Health)
	e.notify(func(o Observer) { o.OnGameOver(ending) })
	return ErrGameOver
}

// remember appends to the session history and the journal.
func (e *Engine) remember(h models.HistoryEntry) {
	st := e.state
	h.Tick, h.Hour, h.Mile = st.Tick, st.Hour, st.Mile
	h.StatsAfter = st.Stats
	e.session.History.Entries = append(e.session.History.Entries, h)

	detail := h.Outcome
	if len(h.Purchased) > 0 {
		detail = fmt.Sprintf("purchased %v", h.Purchased)
	}
	err := e.opts.Journal.Record(journal.Entry{
		SessionID: e.session.ID,
		Seq:       int64(len(e.session.History.Entries)),
		Tick:      h.Tick,
		Hour:      h.Hour,
		Mile:      h.Mile,
		Kind:      h.Kind,
		ContentID: h.ContentID,
		ActionID:  h.ActionID,
		Detail:    detail,
		At:        time.Now().UTC(),
	})
	if err != nil {
		e.logger.Warn("journal write failed", "err", err)
	}
}

func (e *Engine) notify(fn func(Observer)) {
	for _, o := range e.observers {
		fn(o)
	}
}

func itemIDs(items []content.Item) []int {
	if len(items) == 0 {
		return nil
	}
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

package engine

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/journal"
	"github.com/tatianab/gtfoklahoma/internal/models"
	"github.com/tatianab/gtfoklahoma/internal/random"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// scriptObserver picks the first choice of every decision unless told
// otherwise and records what it saw.
type scriptObserver struct {
	NopObserver

	mu      sync.Mutex
	silent  bool
	buy     []int
	events  []int
	issues  []int
	hours   []int
	results []ActionResult
	endings []content.Ending
}

func (o *scriptObserver) OnHourChanged(hour int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hours = append(o.hours, hour)
}

func (o *scriptObserver) OnEvent(d *dispatch.Decision) {
	o.mu.Lock()
	o.events = append(o.events, d.ContentID)
	o.mu.Unlock()
	if !o.silent {
		_ = d.Resolve(d.Choices[0].ID)
	}
}

func (o *scriptObserver) OnIssueOccurred(d *dispatch.Decision) {
	o.mu.Lock()
	o.issues = append(o.issues, d.ContentID)
	o.mu.Unlock()
	if !o.silent {
		_ = d.Resolve(d.Choices[0].ID)
	}
}

func (o *scriptObserver) OnStoreEntered(v *dispatch.StoreVisit) {
	for _, id := range o.buy {
		_ = v.Purchase(id)
	}
	_ = v.Complete()
}

func (o *scriptObserver) OnActionResolved(r ActionResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, r)
}

func (o *scriptObserver) OnGameOver(e content.Ending) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.endings = append(o.endings, e)
}

func (o *scriptObserver) endingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.endings)
}

func newTestEngine(t *testing.T, docs content.Documents, opts Options, obs Observer) *Engine {
	t.Helper()
	logger := log.New(io.Discard)
	lib, err := content.Build(docs, random.New(1), logger)
	if err != nil {
		t.Fatalf("Failed to build content: %v", err)
	}
	opts.Logger = logger
	if opts.Rand == nil {
		opts.Rand = random.New(2)
	}
	e := New(lib, models.NewSession("test", 1), opts)
	if obs != nil {
		e.RegisterObserver(obs)
	}
	return e
}

// farEvent keeps the journey going for the duration of a test.
const farEvent = "- {id: 99, mile: 100000, actions: []}\n"

func stepN(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := e.Step(context.Background()); err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
	}
}

func TestFailingActionCostsHealth(t *testing.T) {
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{
		Actions: []byte(`
- id: 0
  display_name: Doomed
  type: [STAT_CHANGE]
  success_chance: 0.0
  message_success: made it
  message_failure: did not make it
  stat_changes_on_failure: [{health: -1000}]
`),
	}, Options{}, obs)
	before := e.Session().State.Stats.Health

	res, err := e.PerformAction(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to perform action: %v", err)
	}
	st := e.Session().State
	if st.Stats.Health != before-1000 {
		t.Errorf("Expected health %d, got %d", before-1000, st.Stats.Health)
	}
	if res.Succeeded || res.Message != "did not make it" {
		t.Errorf("Expected the failure path, got %+v", res)
	}
	if !st.ActionHappened(0) {
		t.Error("Expected action 0 to be marked happened")
	}
	history := e.Session().History.Entries
	if len(history) != 1 || history[0].Outcome != "did not make it" {
		t.Errorf("Expected the failure message in history, got %+v", history)
	}
	if len(obs.results) != 1 {
		t.Errorf("Expected 1 action result, got %d", len(obs.results))
	}

	if _, err := e.PerformAction(context.Background(), 5); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Expected ErrUnknownAction, got %v", err)
	}
}

func TestMileZeroEventEnding(t *testing.T) {
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 0, display_name: Go, type: [NONE]}\n"),
		Events:  []byte("- {id: 0, mile: 0, ending_id_hints: [0], actions: [0]}\n"),
	}, Options{}, obs)

	if err := e.Step(context.Background()); !errors.Is(err, ErrGameOver) {
		t.Fatalf("Expected ErrGameOver, got %v", err)
	}
	if len(obs.events) != 1 || obs.events[0] != 0 {
		t.Errorf("Expected event 0, got %v", obs.events)
	}
	if len(obs.endings) != 1 || obs.endings[0].ID != 0 {
		t.Fatalf("Expected ending 0, got %+v", obs.endings)
	}
	s := e.Session()
	if !s.Over || s.Ending != 0 {
		t.Errorf("Expected session over with ending 0, got over=%v ending=%d", s.Over, s.Ending)
	}
	if id, ok := s.State.PopEndingHint(); ok {
		t.Errorf("Expected an empty ending stack, got %d", id)
	}
	if err := e.Step(context.Background()); !errors.Is(err, ErrGameOver) {
		t.Errorf("Expected ErrGameOver after the end, got %v", err)
	}
	if err := e.Start(context.Background()); !errors.Is(err, ErrGameOver) {
		t.Errorf("Expected Start to refuse a finished game, got %v", err)
	}
}

func TestDeathUsesDefaultEnding(t *testing.T) {
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{
		Actions: []byte(`
- id: 0
  display_name: Doomed
  type: [STAT_CHANGE]
  success_chance: 0.0
  stat_changes_on_failure: [{health: -1000}]
`),
		Events: []byte("- {id: 0, mile: 0, actions: [0]}\n- {id: 1, mile: 0, actions: [0]}\n" + farEvent),
	}, Options{}, obs)

	if err := e.Step(context.Background()); !errors.Is(err, ErrGameOver) {
		t.Fatalf("Expected ErrGameOver, got %v", err)
	}
	if len(obs.events) != 1 {
		t.Errorf("Expected dispatch to stop after death, got events %v", obs.events)
	}
	if len(obs.endings) != 1 || obs.endings[0].ID != content.NoEnding.ID {
		t.Errorf("Expected the default ending, got %+v", obs.endings)
	}
}

func TestStorePurchase(t *testing.T) {
	obs := &scriptObserver{buy: []int{0, 1}}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 0, display_name: Shop, type: [STORE], items: [0, 1]}\n"),
		Items: []byte(`
- {id: 0, display_name: Candy bar, cost: 1, stat_changes: [{health: 2}]}
- {id: 1, display_name: Bike, cost: 5000}
`),
	}, Options{}, obs)
	before := e.Session().State.Stats

	res, err := e.PerformAction(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to perform action: %v", err)
	}
	st := e.Session().State
	if got := st.InventoryCount(0); got != 1 {
		t.Errorf("Expected 1 candy bar, got %d", got)
	}
	if got := st.InventoryCount(1); got != 0 {
		t.Errorf("Expected no bike, got %d", got)
	}
	if st.Stats.MoneyRemaining != before.MoneyRemaining-1 {
		t.Errorf("Expected money %d, got %d", before.MoneyRemaining-1, st.Stats.MoneyRemaining)
	}
	if st.Stats.Health != before.Health+2 {
		t.Errorf("Expected health %d, got %d", before.Health+2, st.Stats.Health)
	}
	if len(res.Purchased) != 1 || res.Purchased[0].ID != 0 {
		t.Errorf("Expected the candy bar to be purchased, got %+v", res.Purchased)
	}
	if h := e.Session().History.Entries; len(h) != 1 || h[0].Kind != "store" || len(h[0].Purchased) != 1 {
		t.Errorf("Unexpected history: %+v", h)
	}
}

func TestHealthIssueFiresOnHourBoundary(t *testing.T) {
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 1, display_name: Rest, type: [NONE]}\n"),
		Issues:  []byte("- {id: 0, type: HEALTH, actions: [1], stat_changes: [{health: -10}]}\n"),
		Events:  []byte(farEvent),
	}, Options{}, obs)
	st := &e.Session().State
	st.Stats.OddsHealthIssue = 1
	st.Stats.OddsMechIssue = 0
	before := st.Stats.Health

	stepN(t, e, stats.TicksPerGameHour-1)
	if len(obs.issues) != 0 {
		t.Fatalf("Expected no issue before the hour, got %v", obs.issues)
	}
	stepN(t, e, 1)
	if len(obs.hours) != 1 || obs.hours[0] != 1 {
		t.Errorf("Expected hour 1, got %v", obs.hours)
	}
	if len(obs.issues) != 1 || obs.issues[0] != 0 {
		t.Fatalf("Expected issue 0, got %v", obs.issues)
	}
	if st.Stats.Health != before-10 {
		t.Errorf("Expected health %d, got %d", before-10, st.Stats.Health)
	}
	if !st.IssueHappened(0) || !st.ActionHappened(1) {
		t.Error("Expected issue and action to be marked happened")
	}

	stepN(t, e, stats.TicksPerGameHour)
	if len(obs.issues) != 1 {
		t.Errorf("Expected the issue not to repeat, got %v", obs.issues)
	}
}

func TestMechanicalIssuesOnlyWhileAwake(t *testing.T) {
	docs := content.Documents{
		Actions: []byte("- {id: 1, display_name: Fix, type: [NONE]}\n"),
		Issues:  []byte("- {id: 0, type: MECHANICAL, actions: [1]}\n"),
		Events:  []byte(farEvent),
	}
	tests := []struct {
		startHour int
		want      int
	}{
		{startHour: 4, want: 0},  // 5am, asleep
		{startHour: 5, want: 1},  // 6am, wakeup hour
		{startHour: 18, want: 0}, // 7pm, bedtime
	}
	for _, tt := range tests {
		obs := &scriptObserver{}
		e := newTestEngine(t, docs, Options{}, obs)
		st := &e.Session().State
		st.Hour = tt.startHour
		st.Stats.OddsHealthIssue = 0
		st.Stats.OddsMechIssue = 1

		stepN(t, e, stats.TicksPerGameHour)
		if len(obs.issues) != tt.want {
			t.Errorf("Start hour %d: expected %d issues, got %d", tt.startHour, tt.want, len(obs.issues))
		}
	}
}

func TestMilesAdvanceWithSpeed(t *testing.T) {
	e := newTestEngine(t, content.Documents{Events: []byte(farEvent)}, Options{}, nil)
	st := &e.Session().State
	st.Stats.OddsHealthIssue, st.Stats.OddsMechIssue = 0, 0
	perMile := stats.TicksPerMile(st.Stats)

	stepN(t, e, perMile)
	if st.Mile != 0 {
		t.Errorf("Expected mile 0 after %d ticks, got %d", perMile, st.Mile)
	}
	stepN(t, e, 1)
	if st.Mile != 1 {
		t.Errorf("Expected mile 1, got %d", st.Mile)
	}
	stepN(t, e, perMile)
	if st.Mile != 2 {
		t.Errorf("Expected mile 2, got %d", st.Mile)
	}
}

func TestEventsAtReachedMile(t *testing.T) {
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 0, display_name: Go, type: [NONE]}\n"),
		Events:  []byte("- {id: 5, mile: 1, actions: [0]}\n- {id: 6, mile: 1, actions: [0]}\n" + farEvent),
	}, Options{}, obs)
	st := &e.Session().State
	st.Stats.OddsHealthIssue, st.Stats.OddsMechIssue = 0, 0

	stepN(t, e, stats.TicksPerMile(st.Stats)+1)
	if len(obs.events) != 2 || obs.events[0] != 5 || obs.events[1] != 6 {
		t.Errorf("Expected events [5 6], got %v", obs.events)
	}
	if st.EventsHandledMile != 1 {
		t.Errorf("Expected events handled through mile 1, got %d", st.EventsHandledMile)
	}
}

func TestResumedSessionDoesNotReplayEvents(t *testing.T) {
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 0, display_name: Go, type: [NONE]}\n"),
		Events:  []byte("- {id: 0, mile: 0, actions: [0]}\n" + farEvent),
	}, Options{}, obs)
	e.Session().State.EventsHandledMile = 0

	stepN(t, e, 1)
	if len(obs.events) != 0 {
		t.Errorf("Expected no replayed events, got %v", obs.events)
	}
}

func TestDecisionTimeoutTakesFirstChoice(t *testing.T) {
	obs := &scriptObserver{silent: true}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 3, display_name: A, type: [NONE]}\n- {id: 4, display_name: B, type: [NONE]}\n"),
		Events:  []byte("- {id: 0, mile: 0, actions: [3, 4]}\n" + farEvent),
	}, Options{DecisionTimeout: 5 * time.Millisecond}, obs)

	stepN(t, e, 1)
	h := e.Session().History.Entries
	if len(h) != 1 || h[0].ActionID != 3 || !h[0].TimedOut {
		t.Errorf("Expected a timed out choice of action 3, got %+v", h)
	}
}

func TestStartStop(t *testing.T) {
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{Events: []byte(farEvent)}, Options{TickDelay: time.Millisecond}, obs)
	ctx := context.Background()

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	if err := e.Start(ctx); !errors.Is(err, ErrRunning) {
		t.Errorf("Expected ErrRunning, got %v", err)
	}
	if err := e.Step(ctx); !errors.Is(err, ErrRunning) {
		t.Errorf("Expected Step to refuse while running, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	e.Stop()
	e.Stop()

	select {
	case <-e.Done():
	default:
		t.Fatal("Expected Done to be closed after Stop")
	}
	if e.Err() != nil {
		t.Errorf("Expected a clean stop, got %v", e.Err())
	}
	ticks := e.Session().State.Tick
	if ticks == 0 {
		t.Error("Expected the loop to have ticked")
	}

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Failed to restart: %v", err)
	}
	e.Stop()
	if e.Session().State.Tick < ticks {
		t.Error("Expected the tick counter to keep counting after a restart")
	}
}

func TestLoopEndsOnGameOver(t *testing.T) {
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 0, display_name: Go, type: [NONE], ending_id_hints: [2]}\n"),
		Events:  []byte("- {id: 0, mile: 1, actions: [0]}\n"),
		Endings: []byte("- {id: 2, display_name: Done}\n"),
	}, Options{}, obs)
	e.Session().State.Stats.OddsHealthIssue = 0
	e.Session().State.Stats.OddsMechIssue = 0

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected the loop to end")
	}
	if obs.endingCount() != 1 || obs.endings[0].DisplayName != "Done" {
		t.Errorf("Expected ending Done, got %+v", obs.endings)
	}
	if e.Err() != nil {
		t.Errorf("Expected no error, got %v", e.Err())
	}
}

func TestCancelAbortsBlockedDecision(t *testing.T) {
	obs := &scriptObserver{silent: true}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 0, display_name: Go, type: [NONE]}\n"),
		Events:  []byte("- {id: 0, mile: 0, actions: [0]}\n" + farEvent),
	}, Options{}, obs)
	ctx, cancel := context.WithCancel(context.Background())

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}
	cancel()
	select {
	case <-e.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected cancellation to end the loop")
	}
	if !errors.Is(e.Err(), context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", e.Err())
	}
}

func TestJournalRecordsDecisions(t *testing.T) {
	dir := t.TempDir()
	w := journal.NewFileWriter(dir)
	obs := &scriptObserver{}
	e := newTestEngine(t, content.Documents{
		Actions: []byte("- {id: 0, display_name: Go, type: [NONE]}\n"),
		Events:  []byte("- {id: 0, mile: 0, actions: [0]}\n"),
	}, Options{Journal: w}, obs)

	if err := e.Step(context.Background()); !errors.Is(err, ErrGameOver) {
		t.Fatalf("Expected ErrGameOver, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close journal: %v", err)
	}

	entries, err := journal.ReadFile(filepath.Join(dir, e.Session().ID+".jsonl.zst"))
	if err != nil {
		t.Fatalf("Failed to read journal: %v", err)
	}
	if len(entries) != 2 || entries[0].Kind != "event" || entries[1].Kind != "ending" {
		t.Errorf("Expected an event and an ending, got %+v", entries)
	}
}

// quitter answers decisions for the listed content ids and cancels the
// run on anything else, like a player quitting mid-decision.
type quitter struct {
	NopObserver
	cancel context.CancelFunc
	answer map[int]bool
}

func (q *quitter) OnEvent(d *dispatch.Decision)         { q.respond(d) }
func (q *quitter) OnIssueOccurred(d *dispatch.Decision) { q.respond(d) }

func (q *quitter) respond(d *dispatch.Decision) {
	if q.answer[d.ContentID] {
		_ = d.Resolve(d.Choices[0].ID)
		return
	}
	q.cancel()
}

// saveAndResume round-trips the session through the store and builds a
// fresh engine on it.
func saveAndResume(t *testing.T, docs content.Documents, s *models.GameSession, obs Observer) *Engine {
	t.Helper()
	store := models.NewStore(t.TempDir())
	if err := store.Save(s); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	loaded, err := store.Load(s.ID)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	logger := log.New(io.Discard)
	lib, err := content.Build(docs, random.New(1), logger)
	if err != nil {
		t.Fatalf("Failed to build content: %v", err)
	}
	e := New(lib, loaded, Options{Logger: logger, Rand: random.New(3)})
	e.RegisterObserver(obs)
	return e
}

func TestQuitMidMileDoesNotReplayEvents(t *testing.T) {
	docs := content.Documents{
		Actions: []byte(`
- {id: 0, display_name: Climb, type: [STAT_CHANGE], stat_changes_regardless: [{health: -10}]}
- {id: 1, display_name: Descend, type: [STAT_CHANGE], stat_changes_regardless: [{health: -10}]}
`),
		Events: []byte(`
- {id: 0, mile: 0, actions: [0], ending_id_hints: [7]}
- {id: 1, mile: 0, actions: [1], ending_id_hints: [8]}
` + farEvent),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newTestEngine(t, docs, Options{}, &quitter{cancel: cancel, answer: map[int]bool{0: true}})
	before := e.Session().State.Stats.Health

	if err := e.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	st := e.Session().State
	if st.Stats.Health != before-10 {
		t.Errorf("Expected health %d after quitting, got %d", before-10, st.Stats.Health)
	}
	if !st.EventHandled(0) || st.EventHandled(1) {
		t.Errorf("Expected only event 0 handled, got %v", st.EventsHandled)
	}
	if !slices.Equal(st.EndingHints, []int{7}) {
		t.Errorf("Expected hints [7], got %v", st.EndingHints)
	}

	obs := &scriptObserver{}
	resumed := saveAndResume(t, docs, e.Session(), obs)
	if err := resumed.Step(context.Background()); err != nil {
		t.Fatalf("Failed to step: %v", err)
	}
	rst := resumed.Session().State
	if !slices.Equal(obs.events, []int{1}) {
		t.Errorf("Expected only event 1 on resume, got %v", obs.events)
	}
	if rst.Stats.Health != before-20 {
		t.Errorf("Expected health %d, got %d", before-20, rst.Stats.Health)
	}
	if !slices.Equal(rst.EndingHints, []int{7, 8}) {
		t.Errorf("Expected hints [7 8], got %v", rst.EndingHints)
	}
	if rst.EventsHandledMile != 0 {
		t.Errorf("Expected mile 0 handled, got %d", rst.EventsHandledMile)
	}
}

func TestQuitDuringIssueKeepsItPending(t *testing.T) {
	docs := content.Documents{
		Actions: []byte("- {id: 1, display_name: Rest, type: [NONE]}\n"),
		Issues:  []byte("- {id: 4, type: HEALTH, actions: [1], ending_id_hints: [9], stat_changes: [{health: -5}]}\n"),
		Events:  []byte(farEvent),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newTestEngine(t, docs, Options{}, &quitter{cancel: cancel})
	st := &e.Session().State
	st.Stats.OddsHealthIssue = 1
	st.Stats.OddsMechIssue = 0
	before := st.Stats.Health

	var err error
	for i := 0; i < stats.TicksPerGameHour && err == nil; i++ {
		err = e.Step(ctx)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if st.IssueHappened(4) {
		t.Error("Expected the abandoned issue to go back in the pool")
	}
	if st.Stats.Health != before || len(st.EndingHints) != 0 {
		t.Errorf("Expected no changes, got health %d hints %v", st.Stats.Health, st.EndingHints)
	}

	obs := &scriptObserver{}
	resumed := saveAndResume(t, docs, e.Session(), obs)
	stepN(t, resumed, stats.TicksPerGameHour)
	rst := resumed.Session().State
	if !slices.Equal(obs.issues, []int{4}) {
		t.Fatalf("Expected issue 4 on resume, got %v", obs.issues)
	}
	if rst.Stats.Health != before-5 {
		t.Errorf("Expected health %d, got %d", before-5, rst.Stats.Health)
	}
	if !rst.IssueHappened(4) || !slices.Equal(rst.EndingHints, []int{9}) {
		t.Errorf("Expected issue 4 marked with hints [9], got %v %v", rst.IssuesHappened, rst.EndingHints)
	}
}

func TestQuitInsideStoreChangesNothing(t *testing.T) {
	docs := content.Documents{
		Actions: []byte("- {id: 0, display_name: Shop, type: [STORE, STAT_CHANGE], items: [0], stat_changes_regardless: [{health: -1}]}\n"),
		Items:   []byte("- {id: 0, display_name: Candy bar, cost: 1}\n"),
		Events:  []byte("- {id: 0, mile: 0, actions: [0], ending_id_hints: [2]}\n" + farEvent),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newTestEngine(t, docs, Options{}, &walkOut{quitter: quitter{cancel: cancel, answer: map[int]bool{0: true}}})
	before := e.Session().State.Stats

	if err := e.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	st := e.Session().State
	if st.Stats != before || len(st.EndingHints) != 0 || st.ActionHappened(0) || st.EventHandled(0) {
		t.Errorf("Expected an untouched state, got %+v", st)
	}
}

// walkOut answers the event but abandons the store.
type walkOut struct{ quitter }

func (w *walkOut) OnStoreEntered(*dispatch.StoreVisit) { w.cancel() }

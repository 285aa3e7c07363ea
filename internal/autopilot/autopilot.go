// Package autopilot plays a journey without a human, for simulations and
// smoke runs.
package autopilot

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/engine"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// Situation is what a chooser sees when asked to decide.
type Situation struct {
	Kind        dispatch.Kind
	Title       string
	Description string
	Choices     []content.Action
	Hour        int
	Mile        int
	Stats       stats.Vector
	Recent      []string
}

// Shop is what a chooser sees when it enters a store.
type Shop struct {
	Title string
	Stock []content.Item
	Funds int
	Stats stats.Vector
}

// Chooser picks for the rider. ChooseAction returns an action id from
// s.Choices; ChooseItems returns item ids to buy, possibly repeated.
type Chooser interface {
	ChooseAction(ctx context.Context, s Situation) (int, error)
	ChooseItems(ctx context.Context, s Shop) ([]int, error)
}

const recentLimit = 8

// Pilot is an engine observer that answers every decision and store
// visit with its Chooser. Choices run off the engine goroutine so the
// engine's decision timeout still applies to slow choosers.
type Pilot struct {
	ctx     context.Context
	chooser Chooser
	logger  *log.Logger

	mu     sync.Mutex
	hour   int
	mile   int
	stats  stats.Vector
	recent []string
	ending *content.Ending
	wg     sync.WaitGroup
}

func New(ctx context.Context, chooser Chooser, logger *log.Logger) *Pilot {
	if logger == nil {
		logger = log.Default()
	}
	return &Pilot{ctx: ctx, chooser: chooser, logger: logger}
}

// Ending returns the ending once the journey is over.
func (p *Pilot) Ending() (content.Ending, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ending == nil {
		return content.Ending{}, false
	}
	return *p.ending, true
}

// Wait blocks until in-flight choices return.
func (p *Pilot) Wait() { p.wg.Wait() }

func (p *Pilot) note(line string) {
	p.recent = append(p.recent, line)
	if len(p.recent) > recentLimit {
		p.recent = p.recent[len(p.recent)-recentLimit:]
	}
}

func (p *Pilot) OnHourChanged(hour int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hour = hour
}

func (p *Pilot) OnMileChanged(mile int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mile = mile
}

func (p *Pilot) OnStatsChanged(s stats.Vector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = s
}

func (p *Pilot) OnEvent(d *dispatch.Decision)         { p.decide(d) }
func (p *Pilot) OnIssueOccurred(d *dispatch.Decision) { p.decide(d) }

func (p *Pilot) decide(d *dispatch.Decision) {
	p.mu.Lock()
	s := Situation{
		Kind:        d.Kind,
		Title:       d.Title,
		Description: d.Description,
		Choices:     d.Choices,
		Hour:        p.hour,
		Mile:        p.mile,
		Stats:       p.stats,
		Recent:      append([]string(nil), p.recent...),
	}
	p.note(string(d.Kind) + ": " + d.Title)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		id, err := p.chooser.ChooseAction(p.ctx, s)
		if err != nil {
			p.logger.Warn("chooser failed, taking first choice", "title", d.Title, "err", err)
			id = d.Choices[0].ID
		}
		if err := d.Resolve(id); err != nil {
			p.logger.Warn("chooser picked an invalid action, taking first choice", "action", id, "err", err)
			_ = d.Resolve(d.Choices[0].ID)
		}
	}()
}

func (p *Pilot) OnStoreEntered(v *dispatch.StoreVisit) {
	p.mu.Lock()
	shop := Shop{Title: v.Title, Stock: v.Stock, Funds: v.Remaining(), Stats: p.stats}
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer v.Complete()
		ids, err := p.chooser.ChooseItems(p.ctx, shop)
		if err != nil {
			p.logger.Warn("chooser failed, leaving store", "store", v.Title, "err", err)
			return
		}
		for _, id := range ids {
			if err := v.Purchase(id); err != nil {
				p.logger.Debug("purchase refused", "item", id, "err", err)
			}
		}
	}()
}

func (p *Pilot) OnActionResolved(r engine.ActionResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := r.Action.DisplayName
	if r.Message != "" {
		line += ": " + r.Message
	}
	p.note(line)
	p.stats = r.Stats
}

func (p *Pilot) OnGameOver(e content.Ending) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ending = &e
}

// RandomChooser picks uniformly and buys what it can afford with a coin
// flip per item.
type RandomChooser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomChooser(rng *rand.Rand) *RandomChooser {
	return &RandomChooser{rng: rng}
}

func (c *RandomChooser) ChooseAction(_ context.Context, s Situation) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return s.Choices[c.rng.IntN(len(s.Choices))].ID, nil
}

func (c *RandomChooser) ChooseItems(_ context.Context, s Shop) ([]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []int
	funds := s.Funds
	for _, it := range s.Stock {
		if it.Cost <= funds && c.rng.IntN(2) == 0 {
			ids = append(ids, it.ID)
			funds -= it.Cost
		}
	}
	return ids, nil
}

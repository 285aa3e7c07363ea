package engine

import (
	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// Observer presents the journey to a player. Every callback runs on the
// engine goroutine. OnEvent, OnIssueOccurred and OnStoreEntered hand over
// a slot the engine then blocks on; the observer resolves it (from any
// goroutine) with Decision.Resolve or StoreVisit.Purchase/Complete.
// Callbacks must not call Engine.Stop or PerformAction.
type Observer interface {
	OnHourChanged(hour int)
	OnMileChanged(mile int)
	OnEvent(d *dispatch.Decision)
	OnIssueOccurred(d *dispatch.Decision)
	OnStoreEntered(v *dispatch.StoreVisit)
	OnStatsChanged(s stats.Vector)
	OnActionResolved(r ActionResult)
	OnGameOver(e content.Ending)
}

// ActionResult describes a performed action.
type ActionResult struct {
	Kind      dispatch.Kind
	ContentID int
	Action    content.Action
	Succeeded bool
	Message   string
	Purchased []content.Item
	Denied    []content.Item
	TimedOut  bool
	Stats     stats.Vector
}

// NopObserver ignores every callback. Embed it to implement only some.
type NopObserver struct{}

func (NopObserver) OnHourChanged(int)                   {}
func (NopObserver) OnMileChanged(int)                   {}
func (NopObserver) OnEvent(*dispatch.Decision)          {}
func (NopObserver) OnIssueOccurred(*dispatch.Decision)  {}
func (NopObserver) OnStoreEntered(*dispatch.StoreVisit) {}
func (NopObserver) OnStatsChanged(stats.Vector)         {}
func (NopObserver) OnActionResolved(ActionResult)       {}
func (NopObserver) OnGameOver(content.Ending)           {}

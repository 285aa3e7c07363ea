package tui

import (
	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/engine"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// observer forwards engine callbacks to the program as messages. The
// model resolves decisions when the player types a choice.
type observer struct {
	ref *programRef
}

func (o *observer) OnHourChanged(hour int)                 { o.ref.send(hourMsg{hour}) }
func (o *observer) OnMileChanged(mile int)                 { o.ref.send(mileMsg{mile}) }
func (o *observer) OnEvent(d *dispatch.Decision)           { o.ref.send(decisionMsg{d}) }
func (o *observer) OnIssueOccurred(d *dispatch.Decision)   { o.ref.send(decisionMsg{d}) }
func (o *observer) OnStoreEntered(v *dispatch.StoreVisit)  { o.ref.send(storeMsg{v}) }
func (o *observer) OnStatsChanged(s stats.Vector)          { o.ref.send(statsMsg{s}) }
func (o *observer) OnActionResolved(r engine.ActionResult) { o.ref.send(resultMsg{r}) }
func (o *observer) OnGameOver(e content.Ending)            { o.ref.send(gameOverMsg{e}) }

// Package remote streams a journey to websocket clients and accepts their
// choices.
package remote

import (
	"encoding/json"

	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/engine"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

// Server to client frame types.
const (
	TypeHello    = "hello"
	TypeHour     = "hour"
	TypeMile     = "mile"
	TypeDecision = "decision"
	TypeStore    = "store"
	TypeStats    = "stats"
	TypeResult   = "result"
	TypeGameOver = "game_over"
	TypeAck      = "ack"
	TypeError    = "error"
)

// Client to server message types.
const (
	TypeChoose = "choose"
	TypeBuy    = "buy"
	TypeLeave  = "leave"
)

// Frame is one server message.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ClientMsg is one client message. ActionID is read for choose, ItemID
// for buy.
type ClientMsg struct {
	Type     string `json:"type"`
	ActionID int    `json:"action_id"`
	ItemID   int    `json:"item_id"`
}

type Choice struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type DecisionView struct {
	Kind        dispatch.Kind `json:"kind"`
	ContentID   int           `json:"content_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	ImageURL    string        `json:"image_url,omitempty"`
	Choices     []Choice      `json:"choices"`
}

type StockItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Cost     int    `json:"cost"`
	ImageURL string `json:"image_url,omitempty"`
}

type StoreView struct {
	ActionID  int         `json:"action_id"`
	Title     string      `json:"title"`
	Stock     []StockItem `json:"stock"`
	Remaining int         `json:"remaining"`
}

type StatsView struct {
	Health         int    `json:"health"`
	MoneyRemaining int    `json:"money_remaining"`
	Speed          int    `json:"speed"`
	KitWeight      int    `json:"kit_weight"`
	Pace           string `json:"pace"`
}

type ResultView struct {
	Kind      dispatch.Kind `json:"kind"`
	ContentID int           `json:"content_id"`
	ActionID  int           `json:"action_id"`
	Action    string        `json:"action"`
	Succeeded bool          `json:"succeeded"`
	Message   string        `json:"message,omitempty"`
	Purchased []int         `json:"purchased,omitempty"`
	Denied    []int         `json:"denied,omitempty"`
	TimedOut  bool          `json:"timed_out,omitempty"`
	Stats     StatsView     `json:"stats"`
}

type EndingView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageTag    string `json:"image_tag,omitempty"`
}

// HelloView is sent on connect so late joiners see the current state and
// any slot still waiting for an answer.
type HelloView struct {
	Session  string        `json:"session"`
	Hour     int           `json:"hour"`
	Mile     int           `json:"mile"`
	Stats    StatsView     `json:"stats"`
	Decision *DecisionView `json:"decision,omitempty"`
	Store    *StoreView    `json:"store,omitempty"`
	Over     bool          `json:"over,omitempty"`
}

type ErrorView struct {
	Message string `json:"message"`
}

func encode(typ string, data any) ([]byte, error) {
	return json.Marshal(Frame{Type: typ, Data: data})
}

func decisionView(d *dispatch.Decision) *DecisionView {
	v := &DecisionView{
		Kind:        d.Kind,
		ContentID:   d.ContentID,
		Title:       d.Title,
		Description: d.Description,
		ImageURL:    d.ImageURL,
	}
	for _, a := range d.Choices {
		v.Choices = append(v.Choices, Choice{ID: a.ID, Name: a.DisplayName})
	}
	return v
}

func storeView(s *dispatch.StoreVisit) *StoreView {
	v := &StoreView{ActionID: s.ActionID, Title: s.Title, Remaining: s.Remaining()}
	for _, it := range s.Stock {
		v.Stock = append(v.Stock, StockItem{ID: it.ID, Name: it.DisplayName, Cost: it.Cost, ImageURL: it.ImageURL})
	}
	return v
}

func statsView(s stats.Vector) StatsView {
	return StatsView{
		Health:         s.Health,
		MoneyRemaining: s.MoneyRemaining,
		Speed:          stats.CurrentSpeed(s),
		KitWeight:      s.KitWeight,
		Pace:           s.Pace.String(),
	}
}

func resultView(r engine.ActionResult) ResultView {
	v := ResultView{
		Kind:      r.Kind,
		ContentID: r.ContentID,
		ActionID:  r.Action.ID,
		Action:    r.Action.DisplayName,
		Succeeded: r.Succeeded,
		Message:   r.Message,
		TimedOut:  r.TimedOut,
		Stats:     statsView(r.Stats),
	}
	for _, it := range r.Purchased {
		v.Purchased = append(v.Purchased, it.ID)
	}
	for _, it := range r.Denied {
		v.Denied = append(v.Denied, it.ID)
	}
	return v
}

func endingView(e content.Ending) EndingView {
	return EndingView{ID: e.ID, Name: e.DisplayName, Description: e.Description, ImageTag: e.ImageTag}
}

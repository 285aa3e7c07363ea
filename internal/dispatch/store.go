package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/content"
)

// StoreVisit is the purchase session opened by a store action. The player
// adds items with Purchase and ends the visit with Complete. Funds are a
// snapshot taken on entry; the engine checks affordability again when it
// applies the cart.
type StoreVisit struct {
	ActionID int
	Title    string
	Stock    []content.Item

	logger *log.Logger
	done   chan struct{}

	mu     sync.Mutex
	funds  int
	spent  int
	cart   []int
	closed bool
}

func NewStoreVisit(actionID int, title string, stock []content.Item, funds int, logger *log.Logger) *StoreVisit {
	if logger == nil {
		logger = log.Default()
	}
	return &StoreVisit{
		ActionID: actionID,
		Title:    title,
		Stock:    stock,
		logger:   logger,
		done:     make(chan struct{}),
		funds:    funds,
	}
}

func (v *StoreVisit) item(id int) (content.Item, bool) {
	i := slices.IndexFunc(v.Stock, func(it content.Item) bool { return it.ID == id })
	if i < 0 {
		return content.EmptyItem, false
	}
	return v.Stock[i], true
}

// Purchase puts one unit of itemID in the cart.
func (v *StoreVisit) Purchase(itemID int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVisitClosed
	}
	it, ok := v.item(itemID)
	if !ok {
		v.logger.Warn("purchase of item not in stock", "store", v.ActionID, "item", itemID)
		return fmt.Errorf("%w: %d", ErrNotInStock, itemID)
	}
	if it.Cost > v.funds-v.spent {
		return fmt.Errorf("%w: %s costs %d, %d left", ErrInsufficientFunds, it.DisplayName, it.Cost, v.funds-v.spent)
	}
	v.spent += it.Cost
	v.cart = append(v.cart, itemID)
	return nil
}

// Complete ends the visit and wakes the waiting engine.
func (v *StoreVisit) Complete() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrVisitClosed
	}
	v.closed = true
	close(v.done)
	return nil
}

// Cart returns the item ids purchased so far, one per unit.
func (v *StoreVisit) Cart() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.cart)
}

// Remaining is the money left after the cart.
func (v *StoreVisit) Remaining() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.funds - v.spent
}

// Done is closed once the visit is complete.
func (v *StoreVisit) Done() <-chan struct{} { return v.done }

// Wait blocks until the visit is complete and returns the cart. A zero
// timeout waits forever. On timeout the visit is closed with an empty
// cart and ErrDecisionTimeout is returned.
func (v *StoreVisit) Wait(ctx context.Context, timeout time.Duration) ([]int, error) {
	err := wait(ctx, v.done, timeout)
	switch {
	case err == nil:
		return v.Cart(), nil
	case errors.Is(err, ErrDecisionTimeout):
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.closed {
			return slices.Clone(v.cart), nil
		}
		v.closed = true
		v.cart = nil
		v.spent = 0
		close(v.done)
		return nil, ErrDecisionTimeout
	default:
		return nil, err
	}
}

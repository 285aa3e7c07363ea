package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tatianab/gtfoklahoma/internal/content"
)

func quietLogger() *log.Logger { return log.New(io.Discard) }

func newTestDecision() *Decision {
	choices := []content.Action{{ID: 4, DisplayName: "Left"}, {ID: 7, DisplayName: "Right"}}
	return NewDecision(KindEvent, 1, "Fork", "A fork in the road", choices, quietLogger())
}

func TestDecisionResolvesOnce(t *testing.T) {
	d := newTestDecision()

	if err := d.Resolve(7); err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if err := d.Resolve(4); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}
	for i := 0; i < 3; i++ {
		got, err := d.Wait(context.Background(), 0)
		if err != nil || got != 7 {
			t.Errorf("Expected 7, got %d (err=%v)", got, err)
		}
	}
}

func TestDecisionRejectsUnknownAction(t *testing.T) {
	d := newTestDecision()

	if err := d.Resolve(5); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("Expected ErrInvalidAction, got %v", err)
	}
	if _, ok := d.Value(); ok {
		t.Fatal("Expected decision to stay open after a rejected id")
	}
	if err := d.Resolve(4); err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if got, _ := d.Value(); got != 4 {
		t.Errorf("Expected 4, got %d", got)
	}
}

func TestDecisionWaitBlocksUntilResolved(t *testing.T) {
	d := newTestDecision()
	var wg sync.WaitGroup
	results := make([]int, 3)

	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = d.Wait(context.Background(), 0)
		}()
	}

	select {
	case <-d.Done():
		t.Fatal("Expected decision to be open")
	case <-time.After(10 * time.Millisecond):
	}
	if err := d.Resolve(4); err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	wg.Wait()
	for i, got := range results {
		if got != 4 {
			t.Errorf("Reader %d: expected 4, got %d", i, got)
		}
	}
}

func TestDecisionTimeoutFallsBackToFirstChoice(t *testing.T) {
	d := newTestDecision()

	got, err := d.Wait(context.Background(), 5*time.Millisecond)
	if !errors.Is(err, ErrDecisionTimeout) {
		t.Fatalf("Expected ErrDecisionTimeout, got %v", err)
	}
	if got != 4 {
		t.Errorf("Expected fallback 4, got %d", got)
	}
	if err := d.Resolve(7); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected late resolve to fail, got %v", err)
	}
}

func TestDecisionWaitHonorsContext(t *testing.T) {
	d := newTestDecision()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Wait(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if _, ok := d.Value(); ok {
		t.Error("Expected a cancelled wait to leave the decision open")
	}
}

func newTestVisit(funds int) *StoreVisit {
	stock := []content.Item{
		{ID: 0, DisplayName: "Tube", Cost: 8},
		{ID: 2, DisplayName: "Wheelset", Cost: 900},
	}
	return NewStoreVisit(1, "Bike shop", stock, funds, quietLogger())
}

func TestStorePurchase(t *testing.T) {
	v := newTestVisit(910)

	if err := v.Purchase(0); err != nil {
		t.Fatalf("Failed to purchase: %v", err)
	}
	if err := v.Purchase(0); err != nil {
		t.Fatalf("Failed to purchase: %v", err)
	}
	if err := v.Purchase(2); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds, got %v", err)
	}
	if err := v.Purchase(9); !errors.Is(err, ErrNotInStock) {
		t.Errorf("Expected ErrNotInStock, got %v", err)
	}
	if got := v.Remaining(); got != 894 {
		t.Errorf("Expected 894 remaining, got %d", got)
	}

	go func() {
		if err := v.Complete(); err != nil {
			t.Errorf("Failed to complete: %v", err)
		}
	}()
	cart, err := v.Wait(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to wait: %v", err)
	}
	if len(cart) != 2 || cart[0] != 0 || cart[1] != 0 {
		t.Errorf("Expected [0 0], got %v", cart)
	}

	if err := v.Purchase(0); !errors.Is(err, ErrVisitClosed) {
		t.Errorf("Expected ErrVisitClosed, got %v", err)
	}
	if err := v.Complete(); !errors.Is(err, ErrVisitClosed) {
		t.Errorf("Expected ErrVisitClosed on second complete, got %v", err)
	}
}

func TestStoreTimeoutBuysNothing(t *testing.T) {
	v := newTestVisit(100)
	if err := v.Purchase(0); err != nil {
		t.Fatalf("Failed to purchase: %v", err)
	}

	cart, err := v.Wait(context.Background(), 5*time.Millisecond)
	if !errors.Is(err, ErrDecisionTimeout) {
		t.Fatalf("Expected ErrDecisionTimeout, got %v", err)
	}
	if len(cart) != 0 {
		t.Errorf("Expected empty cart, got %v", cart)
	}
	if err := v.Complete(); !errors.Is(err, ErrVisitClosed) {
		t.Errorf("Expected ErrVisitClosed, got %v", err)
	}
}

// internal/service/estimate/estimate_test.go
package estimate

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"verdant-service/internal/domain/estimate"
	xerrors "verdant-service/internal/pkg/errors"
)

type stubStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*estimate.Estimate
}

func newStubStore() *stubStore {
	return &stubStore{byID: make(map[int64]*estimate.Estimate)}
}

func (s *stubStore) Create(_ context.Context, e *estimate.Estimate) (*estimate.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.byID[e.ID] = e
	return e, nil
}

func (s *stubStore) FindByID(_ context.Context, id int64) (*estimate.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *stubStore) List(_ context.Context, _ estimate.ListFilter) ([]*estimate.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*estimate.Estimate, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e)
	}
	return out, nil
}

func (s *stubStore) Update(_ context.Context, e *estimate.Estimate) (*estimate.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; !ok {
		return nil, xerrors.ErrNotFound
	}
	s.byID[e.ID] = e
	return e, nil
}

func (s *stubStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func newTestService(t *testing.T) (*EstimateService, *stubStore) {
	t.Helper()
	store := newStubStore()
	svc := NewEstimateService(store, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2025, time.April, 2, 14, 0, 0, 0, time.UTC)
	}
	return svc, store
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCreateComputesTotals(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), &estimate.CreateRequest{
		CustomerID: 7,
		Title:      "Backyard regrade and sod",
		TaxRate:    0.08,
		LineItems: []estimate.LineItemRequest{
			{Description: "Sod pallets", Quantity: 4, Unit: "pallet", UnitPrice: 220, UnitCost: 140},
			{Description: "Crew labor", Quantity: 16, Unit: "hour", UnitPrice: 65, UnitCost: 38},
		},
	}, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// subtotal = 4*220 + 16*65 = 1920; cost = 4*140 + 16*38 = 1168
	if !almostEqual(created.Subtotal, 1920) {
		t.Errorf("Subtotal = %v, want 1920", created.Subtotal)
	}
	if !almostEqual(created.Total, 1920*1.08) {
		t.Errorf("Total = %v, want %v", created.Total, 1920*1.08)
	}
	if !almostEqual(created.GrossProfit, 1920-1168) {
		t.Errorf("GrossProfit = %v, want %v", created.GrossProfit, 1920-1168)
	}
	if !almostEqual(created.MarkupRate, (1920.0-1168)/1168) {
		t.Errorf("MarkupRate = %v, want %v", created.MarkupRate, (1920.0-1168)/1168)
	}
	if created.Status != estimate.EstimateStatusDraft {
		t.Errorf("Status = %q, want draft", created.Status)
	}

	wantMargin := (220.0 - 140) / 220
	if !almostEqual(created.LineItems[0].MarginRate, wantMargin) {
		t.Errorf("line 0 MarginRate = %v, want %v", created.LineItems[0].MarginRate, wantMargin)
	}
}

func TestCreateZeroPriceLineHasZeroMargin(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), &estimate.CreateRequest{
		CustomerID: 7,
		Title:      "Warranty revisit",
		LineItems: []estimate.LineItemRequest{
			{Description: "Goodwill touch-up", Quantity: 1, UnitPrice: 0, UnitCost: 50},
		},
	}, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.LineItems[0].MarginRate != 0 {
		t.Errorf("MarginRate = %v, want 0 for zero-price line", created.LineItems[0].MarginRate)
	}
	if !almostEqual(created.GrossProfit, -50) {
		t.Errorf("GrossProfit = %v, want -50", created.GrossProfit)
	}
}

func TestUpdateMarkingSentStampsSentAt(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), &estimate.CreateRequest{
		CustomerID: 3,
		Title:      "Spring cleanup",
		LineItems: []estimate.LineItemRequest{
			{Description: "Cleanup", Quantity: 1, UnitPrice: 400, UnitCost: 180},
		},
	}, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sent := estimate.EstimateStatusSent
	updated, err := svc.Update(context.Background(), created.ID, &estimate.UpdateRequest{Status: &sent})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.SentAt == nil {
		t.Fatal("SentAt not stamped on transition to sent")
	}
	if !updated.SentAt.Equal(time.Date(2025, time.April, 2, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("SentAt = %v, want injected clock time", updated.SentAt)
	}

	// A second update must not overwrite the original timestamp.
	tax := 0.05
	again, err := svc.Update(context.Background(), created.ID, &estimate.UpdateRequest{Status: &sent, TaxRate: &tax})
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if !again.SentAt.Equal(*updated.SentAt) {
		t.Errorf("SentAt changed on repeat update: %v vs %v", again.SentAt, updated.SentAt)
	}
}

func TestUpdateReplacingLinesRecomputesTotals(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), &estimate.CreateRequest{
		CustomerID: 3,
		Title:      "Patio base",
		TaxRate:    0.1,
		LineItems: []estimate.LineItemRequest{
			{Description: "Gravel", Quantity: 10, UnitPrice: 30, UnitCost: 18},
		},
	}, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	items := []estimate.LineItemRequest{
		{Description: "Gravel", Quantity: 12, UnitPrice: 30, UnitCost: 18},
		{Description: "Edging", Quantity: 8, UnitPrice: 15, UnitCost: 6},
	}
	updated, err := svc.Update(context.Background(), created.ID, &estimate.UpdateRequest{LineItems: &items})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// subtotal = 12*30 + 8*15 = 480
	if !almostEqual(updated.Subtotal, 480) {
		t.Errorf("Subtotal = %v, want 480", updated.Subtotal)
	}
	if !almostEqual(updated.Total, 480*1.1) {
		t.Errorf("Total = %v, want %v", updated.Total, 480*1.1)
	}
}

func TestApproveRequiresDraftOrSent(t *testing.T) {
	svc, store := newTestService(t)

	created, err := svc.Create(context.Background(), &estimate.CreateRequest{
		CustomerID: 9,
		Title:      "Irrigation retrofit",
		LineItems: []estimate.LineItemRequest{
			{Description: "Heads", Quantity: 6, UnitPrice: 45, UnitCost: 22},
		},
	}, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	approved, err := svc.Approve(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != estimate.EstimateStatusApproved {
		t.Errorf("Status = %q, want approved", approved.Status)
	}

	store.byID[created.ID].Status = estimate.EstimateStatusRejected
	if _, err := svc.Approve(context.Background(), created.ID); !errors.Is(err, xerrors.ErrConflict) {
		t.Errorf("Approve on rejected estimate: err = %v, want ErrConflict", err)
	}
}

func TestAdjustShiftsTotalAndProfit(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), &estimate.CreateRequest{
		CustomerID: 5,
		Title:      "Retaining wall",
		LineItems: []estimate.LineItemRequest{
			{Description: "Block", Quantity: 100, UnitPrice: 8, UnitCost: 5},
		},
	}, 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	adjusted, err := svc.Adjust(context.Background(), created.ID, &estimate.AdjustRequest{
		AdjustmentAmount: -50,
		Reason:           "repeat customer discount",
	})
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	// subtotal = 800, cost = 500
	if !almostEqual(adjusted.Total, 800-50) {
		t.Errorf("Total = %v, want 750", adjusted.Total)
	}
	if !almostEqual(adjusted.GrossProfit, 300-50) {
		t.Errorf("GrossProfit = %v, want 250", adjusted.GrossProfit)
	}
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("Get unknown: err = %v, want ErrNotFound", err)
	}
}

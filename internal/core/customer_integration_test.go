package core_test

import (
	"errors"
	"sync"
	"testing"

	"service-center/internal/core"

	"github.com/google/uuid"
)

func TestCustomer_FindOrCreateIsIdempotent(t *testing.T) {
	s, ctx := setupTestDB(t)

	first, created, err := s.customers.FindOrCreate(ctx, customerDetails("KA30AA0001", "Alice"))
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	second, created, err := s.customers.FindOrCreate(ctx, customerDetails("ka30aa0001", "Bob"))
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if created {
		t.Error("second call must not create")
	}
	if second.ID != first.ID || second.Name != "Alice" {
		t.Errorf("expected Alice's record back, got %+v", second)
	}
}

func TestCustomer_ExistingNeedsOnlyRegNo(t *testing.T) {
	s, ctx := setupTestDB(t)
	if _, _, err := s.customers.FindOrCreate(ctx, customerDetails("KA30BB0001", "Alice")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	c, created, err := s.customers.FindOrCreate(ctx, core.CustomerDetails{VehicleRegNo: "KA30BB0001"})
	if err != nil || created || c.Name != "Alice" {
		t.Fatalf("lookup by regNo only: c=%+v created=%v err=%v", c, created, err)
	}

	if _, _, err := s.customers.FindOrCreate(ctx, core.CustomerDetails{}); !errors.Is(err, core.ErrCustomerDetailsInvalid) {
		t.Errorf("expected CUSTOMER_DETAILS_INVALID without regNo, got %v", err)
	}
}

func TestCustomer_ConcurrentFirstVisitCreatesOneRecord(t *testing.T) {
	s, ctx := setupTestDB(t)

	const callers = 8
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _, err := s.customers.FindOrCreate(ctx, customerDetails("KA30CC0001", "Rider"))
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if ids[i] != ids[0] {
			t.Errorf("caller %d got %s, want %s", i, ids[i], ids[0])
		}
	}
	if n := countRows(t, ctx, s, "customers"); n != 1 {
		t.Errorf("expected 1 customer, got %d", n)
	}
}

func TestCustomer_UpdateAndSearch(t *testing.T) {
	s, ctx := setupTestDB(t)
	c, _, err := s.customers.FindOrCreate(ctx, customerDetails("KA30DD0001", "Alice"))
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	newReg := "KA30DD0002"
	if _, err := s.customers.UpdateCustomer(ctx, c.ID, core.CustomerPatch{VehicleRegNo: &newReg}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected regNo change to be rejected, got %v", err)
	}
	blank := " "
	if _, err := s.customers.UpdateCustomer(ctx, c.ID, core.CustomerPatch{Name: &blank}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected blank name to be rejected, got %v", err)
	}

	mobile := "9811111111"
	updated, err := s.customers.UpdateCustomer(ctx, c.ID, core.CustomerPatch{Mobile: &mobile})
	if err != nil {
		t.Fatalf("UpdateCustomer failed: %v", err)
	}
	if updated.Mobile != mobile || updated.Name != "Alice" {
		t.Errorf("unexpected update result %+v", updated)
	}

	found, err := s.customers.ListCustomers(ctx, "98111")
	if err != nil {
		t.Fatalf("ListCustomers failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != c.ID {
		t.Errorf("search by mobile: got %+v", found)
	}
	none, _ := s.customers.ListCustomers(ctx, "nobody")
	if len(none) != 0 {
		t.Errorf("expected no match, got %d", len(none))
	}

	if _, err := s.customers.GetCustomer(ctx, uuid.New()); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

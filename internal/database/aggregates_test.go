package database

import (
	"context"
	"testing"
)

func TestRecomputeTotals_AllCodes(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	writeSales(t, service, october(t),
		testSale{"TEST001", "Продукт А", "2025-10-08", 5},
		testSale{"TEST001", "Продукт Б", "2025-10-09", 2},
		testSale{"TEST002", "Продукт А", "2025-10-08", 3},
	)

	// A code with no sales keeps a zero total
	if _, err := service.SeedPromoCodes(ctx, []string{"IDLE-999"}); err != nil {
		t.Fatalf("SeedPromoCodes failed: %v", err)
	}

	want := map[string]int64{"TEST001": 7, "TEST002": 3, "IDLE-999": 0}
	codes, err := service.GetPromoCodes(ctx)
	if err != nil {
		t.Fatalf("GetPromoCodes failed: %v", err)
	}
	if len(codes) != len(want) {
		t.Fatalf("Expected %d codes, got %d", len(want), len(codes))
	}
	for _, pc := range codes {
		if pc.TotalSales != want[pc.Code] {
			t.Errorf("Expected %s total %d, got %d", pc.Code, want[pc.Code], pc.TotalSales)
		}
	}
}

func TestVerifyTotals_DetectsAndRepairsDrift(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	writeSales(t, service, october(t),
		testSale{"TEST001", "Продукт А", "2025-10-08", 5},
		testSale{"TEST002", "Продукт А", "2025-10-08", 3},
	)

	mismatches, err := service.VerifyTotals(ctx)
	if err != nil {
		t.Fatalf("VerifyTotals failed: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("Expected consistent totals, got %+v", mismatches)
	}

	if _, err := service.db.ExecContext(ctx, "UPDATE promo_codes SET total_sales = 42 WHERE code = 'TEST002'"); err != nil {
		t.Fatalf("Failed to corrupt total: %v", err)
	}

	mismatches, err = service.VerifyTotals(ctx)
	if err != nil {
		t.Fatalf("VerifyTotals failed: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("Expected 1 mismatch, got %d", len(mismatches))
	}
	m := mismatches[0]
	if m.Code != "TEST002" || m.Stored != 42 || m.Calculated != 3 {
		t.Errorf("Unexpected mismatch: %+v", m)
	}

	changed, err := service.RecomputeTotals(ctx)
	if err != nil {
		t.Fatalf("RecomputeTotals failed: %v", err)
	}
	if changed != 1 {
		t.Errorf("Expected 1 code repaired, got %d", changed)
	}

	mismatches, err = service.VerifyTotals(ctx)
	if err != nil {
		t.Fatalf("VerifyTotals failed: %v", err)
	}
	if len(mismatches) != 0 {
		t.Errorf("Expected no mismatches after recompute, got %+v", mismatches)
	}
}

package api

import (
	"context"
	"testing"
	"time"

	"promo-sales-go/internal/database"
	"promo-sales-go/internal/models"
	"promo-sales-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*SalesService, *database.Service) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewSalesService(db), db
}

func seedSales(t *testing.T, db *database.Service, pc *models.PromoCode) {
	t.Helper()
	ctx := context.Background()
	period := models.Period{
		From: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	}

	uploadId, err := db.BeginUpload(ctx, store.BeginUploadParams{FileName: "october.csv", Period: period})
	require.NoError(t, err)

	tx, err := db.BeginBatch(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	for _, s := range []struct {
		product  string
		date     string
		quantity int64
	}{
		{"Продукт А", "2025-10-08", 5},
		{"Продукт Б", "2025-10-08", 2},
		{"Продукт Б", "2025-10-09", 4},
	} {
		_, err := tx.InsertSale(ctx, store.InsertSaleParams{
			Key:           store.SaleKey{PromoCodeId: pc.Id, ProductName: s.product, SaleDate: s.date},
			Quantity:      s.quantity,
			UploadBatchId: uploadId,
		})
		require.NoError(t, err)
	}
	_, err = tx.RecomputeTotals(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.FinalizeUpload(ctx, uploadId, 3, 3, "seeded"))
	require.NoError(t, tx.Commit())
}

func TestHealthCheck(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
}

func TestGetPromoCodeSummary(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	pc, err := db.CreatePromoCode(ctx, "SUMMER-123", models.PromoCodeUnregistered)
	require.NoError(t, err)
	seedSales(t, db, pc)

	summary, err := svc.GetPromoCodeSummary(ctx, " summer-123 ")
	require.NoError(t, err)

	assert.Equal(t, "SUMMER-123", summary.PromoCode.Code)
	assert.Equal(t, int64(11), summary.PromoCode.TotalSales)
	assert.Len(t, summary.Sales, 3)
	assert.Equal(t, []models.ProductTotal{
		{ProductName: "Продукт Б", Quantity: 6},
		{ProductName: "Продукт А", Quantity: 5},
	}, summary.Products)

	_, err = svc.GetPromoCodeSummary(ctx, "WINTER-001")
	assert.ErrorIs(t, err, store.ErrPromoCodeNotFound)

	_, err = svc.GetPromoCodeSummary(ctx, "  ")
	assert.Error(t, err)
}

func TestGetUserSummary(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	pc, err := db.CreatePromoCode(ctx, "SUMMER-123", models.PromoCodeUnregistered)
	require.NoError(t, err)
	seedSales(t, db, pc)

	_, err = db.CreateUser(ctx, store.CreateUserParams{Id: "user-1", Name: "Holder", Email: "holder@example.com", PromoCodeId: &pc.Id})
	require.NoError(t, err)
	_, err = db.CreateUser(ctx, store.CreateUserParams{Id: "user-2", Name: "Plain", Email: "plain@example.com"})
	require.NoError(t, err)

	summary, err := svc.GetUserSummary(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PromoCodeRegistered, summary.PromoCode.Status)
	assert.Equal(t, int64(11), summary.PromoCode.TotalSales)

	_, err = svc.GetUserSummary(ctx, "user-2")
	assert.ErrorIs(t, err, ErrNoPromoCode)

	_, err = svc.GetUserSummary(ctx, "user-404")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestGetUploadHistory_ClampsPaging(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	pc, err := db.CreatePromoCode(ctx, "TEST001", models.PromoCodeUnregistered)
	require.NoError(t, err)
	seedSales(t, db, pc)

	uploads, err := svc.GetUploadHistory(ctx, 0, -5)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, models.UploadCompleted, uploads[0].Status)
	assert.Equal(t, "seeded", uploads[0].Message)
}

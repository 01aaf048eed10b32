package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"promo-sales-go/internal/database"
	"promo-sales-go/internal/models"
	"promo-sales-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var salesHeader = []string{"Промокод", "Продукт", "Дата", "Продажи"}

func newTestEngine(t *testing.T) (*Engine, *database.Service) {
	t.Helper()

	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	engine := NewEngine(svc, staticProducts{"1001": "Продукт А"}, time.UTC, nil)
	engine.now = func() time.Time { return today }
	return engine, svc
}

func octoberRequest(rows ...[]string) Request {
	return Request{
		Rows:       append([][]string{salesHeader}, rows...),
		PeriodFrom: date("2025-10-01"),
		PeriodTo:   date("2025-10-31"),
		FileName:   "sales.csv",
		Authorized: true,
	}
}

var allTime = models.Period{From: date("2000-01-01"), To: date("2100-01-01")}

func totals(t *testing.T, svc *database.Service) map[string]int64 {
	t.Helper()
	codes, err := svc.GetPromoCodes(context.Background())
	require.NoError(t, err)
	out := make(map[string]int64, len(codes))
	for _, pc := range codes {
		out[pc.Code] = pc.TotalSales
	}
	return out
}

func salesCount(t *testing.T, svc *database.Service) int {
	t.Helper()
	sales, err := svc.GetSalesInPeriod(context.Background(), allTime)
	require.NoError(t, err)
	return len(sales)
}

func TestIngest_NewCodesScenario(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Ingest(ctx, octoberRequest(
		[]string{"TEST001", "Продукт А", "2025-10-08", "5"},
		[]string{"TEST002", "Продукт Б", "2025-10-08", "3"},
	))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.RowsProcessed)
	assert.Equal(t, 2, result.RowsAdded)
	assert.Zero(t, result.RowsUpdated)
	assert.Empty(t, result.Rejections)
	require.NotNil(t, result.UploadBatchId)

	assert.Equal(t, map[string]int64{"TEST001": 5, "TEST002": 3}, totals(t, svc))
	assert.Equal(t, 2, salesCount(t, svc))

	codes, err := svc.GetPromoCodes(ctx)
	require.NoError(t, err)
	for _, pc := range codes {
		assert.Equal(t, models.PromoCodeUnregistered, pc.Status, pc.Code)
	}

	upload, err := svc.GetUpload(ctx, *result.UploadBatchId)
	require.NoError(t, err)
	assert.Equal(t, models.UploadCompleted, upload.Status)
	assert.Equal(t, 2, upload.RowsProcessed)
	assert.Equal(t, 2, upload.RowsCommitted)
	assert.Equal(t, "sales.csv", upload.FileName)
}

func TestIngest_EmptyProductScenario(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Ingest(ctx, octoberRequest(
		[]string{"TEST001", "Продукт А", "2025-10-08", "5"},
		[]string{"TEST002", "", "2025-10-08", "3"},
	))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Nil(t, result.UploadBatchId)
	assert.Equal(t, 1, result.RowsRejected)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, models.Rejection{
		Row:       3,
		Reason:    "Отсутствует промокод или название продукта",
		PromoCode: "TEST002",
		Product:   "",
	}, result.Rejections[0])

	assert.Zero(t, salesCount(t, svc))
	assert.Empty(t, totals(t, svc), "validation must not create promo codes")

	uploads, err := svc.ListUploads(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, uploads, "rejected upload leaves no ledger entry")
}

func TestIngest_AllOrNothing(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Ingest(ctx, octoberRequest([]string{"TEST001", "Продукт А", "2025-10-08", "5"}))
	require.NoError(t, err)

	result, err := engine.Ingest(ctx, octoberRequest(
		[]string{"TEST009", "Продукт А", "2025-10-09", "7"},
		[]string{"TEST009", "Продукт А", "не дата", "1"},
	))
	require.NoError(t, err)
	assert.False(t, result.Success)

	// the period was not cleared and nothing from the bad file landed
	assert.Equal(t, map[string]int64{"TEST001": 5}, totals(t, svc))
	assert.Equal(t, 1, salesCount(t, svc))
}

func TestIngest_PeriodReplaceNotMerge(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	september := Request{
		Rows:       [][]string{salesHeader, {"TEST001", "Продукт А", "2025-09-15", "4"}},
		PeriodFrom: date("2025-09-01"),
		PeriodTo:   date("2025-09-30"),
		Authorized: true,
	}
	_, err := engine.Ingest(ctx, september)
	require.NoError(t, err)

	_, err = engine.Ingest(ctx, octoberRequest(
		[]string{"TEST001", "Продукт А", "2025-10-08", "5"},
		[]string{"TEST002", "Продукт Б", "2025-10-09", "3"},
	))
	require.NoError(t, err)

	result, err := engine.Ingest(ctx, octoberRequest([]string{"TEST003", "Продукт В", "2025-10-20", "2"}))
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsAdded)

	october, err := svc.GetSalesInPeriod(ctx, models.Period{From: date("2025-10-01"), To: date("2025-10-31")})
	require.NoError(t, err)
	require.Len(t, october, 1)
	assert.Equal(t, "Продукт В", october[0].ProductName)

	// untouched code keeps its September sale; emptied code drops to zero
	assert.Equal(t, map[string]int64{"TEST001": 4, "TEST002": 0, "TEST003": 2}, totals(t, svc))
	assert.Equal(t, 2, salesCount(t, svc))
}

func TestIngest_IdempotentReupload(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	req := octoberRequest(
		[]string{"TEST001", "Продукт А", "2025-10-08", "5"},
		[]string{"TEST002", "Продукт Б", "2025-10-08", "3"},
	)

	first, err := engine.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, first.RowsAdded)
	before := totals(t, svc)

	second, err := engine.Ingest(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Zero(t, second.RowsAdded)
	assert.Equal(t, 2, second.RowsUpdated)

	assert.Equal(t, before, totals(t, svc))
	assert.Equal(t, 2, salesCount(t, svc))

	mismatches, err := svc.VerifyTotals(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestIngest_RepeatedKeyOverwrites(t *testing.T) {
	engine, svc := newTestEngine(t)

	result, err := engine.Ingest(context.Background(), octoberRequest(
		[]string{"TEST001", "Продукт А", "2025-10-08", "5"},
		[]string{"test001", "1001", "08.10.2025", "2"},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowsAdded)
	assert.Equal(t, 1, result.RowsUpdated)
	assert.Equal(t, map[string]int64{"TEST001": 2}, totals(t, svc))
	assert.Equal(t, 1, salesCount(t, svc))
}

func TestIngest_FuzzyResolutionBoundary(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	_, err := svc.CreatePromoCode(ctx, "SUMMER-123", models.PromoCodeRegistered)
	require.NoError(t, err)

	result, err := engine.Ingest(ctx, octoberRequest(
		[]string{"summer-123.", "Продукт А", "2025-10-08", "1"},
		[]string{"SUMER-123", "Продукт А", "2025-10-09", "2"},
		[]string{"SUMMER-124", "Продукт А", "2025-10-10", "4"},
	))
	require.NoError(t, err)
	require.True(t, result.Success)

	got := totals(t, svc)
	assert.Equal(t, int64(3), got["SUMMER-123"])
	assert.Equal(t, int64(4), got["SUMMER-124"], "a different final digit is a new code")
	assert.NotContains(t, got, "SUMER-123")
}

func TestIngest_DefaultsDateToToday(t *testing.T) {
	engine, svc := newTestEngine(t)

	req := Request{
		Rows:       [][]string{{"Промокод", "Продукт"}, {"TEST001", "Продукт А"}},
		PeriodFrom: date("2025-10-01"),
		PeriodTo:   date("2025-10-31"),
		Authorized: true,
	}
	result, err := engine.Ingest(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Success)

	sales, err := svc.GetSalesInPeriod(context.Background(), allTime)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, date("2025-10-15"), sales[0].SaleDate)
	assert.Equal(t, int64(1), sales[0].Quantity)
}

func TestIngest_CallerMisuse(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	unauthorized := octoberRequest([]string{"TEST001", "Продукт А", "2025-10-08", "5"})
	unauthorized.Authorized = false

	reversed := octoberRequest([]string{"TEST001", "Продукт А", "2025-10-08", "5"})
	reversed.PeriodFrom, reversed.PeriodTo = reversed.PeriodTo, reversed.PeriodFrom

	noPeriod := octoberRequest([]string{"TEST001", "Продукт А", "2025-10-08", "5"})
	noPeriod.PeriodTo = time.Time{}

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"unauthorized", unauthorized, ErrUnauthorized},
		{"reversed period", reversed, ErrInvalidPeriod},
		{"missing period end", noPeriod, ErrInvalidPeriod},
		{"no file", Request{PeriodFrom: date("2025-10-01"), PeriodTo: date("2025-10-31"), Authorized: true}, ErrNoRows},
		{"header only", octoberRequest(), ErrNoRows},
		{"blank rows only", octoberRequest([]string{"", " "}), ErrNoRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Ingest(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, result)
		})
	}

	uploads, err := svc.ListUploads(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, uploads)
}

// failingStore breaks the write phase on the first sale insert.
type failingStore struct {
	store.SalesStore
}

func (f failingStore) BeginBatch(ctx context.Context) (store.BatchTx, error) {
	tx, err := f.SalesStore.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}
	return failingTx{BatchTx: tx}, nil
}

type failingTx struct {
	store.BatchTx
}

var errDiskFull = errors.New("database or disk is full")

func (failingTx) InsertSale(context.Context, store.InsertSaleParams) (int64, error) {
	return 0, errDiskFull
}

func TestIngest_CommitFailureRollsBack(t *testing.T) {
	healthy, svc := newTestEngine(t)
	ctx := context.Background()

	_, err := healthy.Ingest(ctx, octoberRequest([]string{"TEST001", "Продукт А", "2025-10-08", "5"}))
	require.NoError(t, err)

	engine := NewEngine(failingStore{SalesStore: svc}, nil, time.UTC, nil)
	result, err := engine.Ingest(ctx, octoberRequest([]string{"TEST777", "Продукт Б", "2025-10-09", "3"}))

	require.ErrorIs(t, err, ErrCommitFailed)
	require.ErrorIs(t, err, errDiskFull)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, result.UploadBatchId)

	// the period delete and the new promo code were rolled back
	assert.Equal(t, map[string]int64{"TEST001": 5}, totals(t, svc))
	assert.Equal(t, 1, salesCount(t, svc))

	uploads, err := svc.ListUploads(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, models.UploadPending, uploads[0].Status)
	assert.Contains(t, uploads[0].ErrorSummary, errDiskFull.Error())
}

func TestIngest_ResumeReusesPendingUpload(t *testing.T) {
	healthy, svc := newTestEngine(t)
	ctx := context.Background()

	failing := NewEngine(failingStore{SalesStore: svc}, nil, time.UTC, nil)
	req := octoberRequest([]string{"TEST001", "Продукт А", "2025-10-08", "5"})

	_, err := failing.Ingest(ctx, req)
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	require.NotZero(t, commitErr.UploadId)

	_, err = failing.Ingest(ctx, req)
	require.ErrorAs(t, err, &commitErr)
	first := commitErr.UploadId

	// a second failed attempt without resuming opens another entry
	uploads, err := svc.ListUploads(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, uploads, 2)

	req.ResumeUploadId = &first
	result, err := healthy.Ingest(ctx, req)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.UploadBatchId)
	assert.Equal(t, first, *result.UploadBatchId)

	upload, err := svc.GetUpload(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, models.UploadCompleted, upload.Status)
	assert.Empty(t, upload.ErrorSummary)
}

func TestIngest_ResumeFallsBackToNewUpload(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	done, err := engine.Ingest(ctx, octoberRequest([]string{"TEST001", "Продукт А", "2025-10-08", "5"}))
	require.NoError(t, err)
	require.NotNil(t, done.UploadBatchId)

	missing := int64(9999)
	for _, id := range []*int64{done.UploadBatchId, &missing} {
		req := octoberRequest([]string{"TEST001", "Продукт А", "2025-10-08", "6"})
		req.ResumeUploadId = id

		result, err := engine.Ingest(ctx, req)
		require.NoError(t, err)
		require.True(t, result.Success)
		assert.NotEqual(t, *id, *result.UploadBatchId)
	}

	uploads, err := svc.ListUploads(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, uploads, 3)
	assert.Equal(t, map[string]int64{"TEST001": 6}, totals(t, svc))
}

func TestIngest_SmallNumberIsNotADate(t *testing.T) {
	engine, svc := newTestEngine(t)

	result, err := engine.Ingest(context.Background(), octoberRequest(
		[]string{"TEST001", "Продукт А", "3", "5"},
	))
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, ReasonInvalidDate+"3", result.Rejections[0].Reason)
	assert.Zero(t, salesCount(t, svc))
}

package listener

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"promo-sales-go/internal/ingest"
	"promo-sales-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	requests []ingest.Request
	result   *models.IngestResult
	err      error
}

func (f *fakeIngester) Ingest(_ context.Context, req ingest.Request) (*models.IngestResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func newTestListener(t *testing.T, engine Ingester) *InboxListener {
	t.Helper()
	inbox := t.TempDir()
	l := NewInboxListener(InboxListenerConfig{
		Engine:          engine,
		InboxDir:        inbox,
		PollingInterval: time.Hour,
		Timeout:         time.Minute,
	})
	for _, dir := range []string{processedDir, rejectedDir} {
		require.NoError(t, os.MkdirAll(filepath.Join(inbox, dir), 0o755))
	}
	return l
}

func dropFile(t *testing.T, l *InboxListener, name string) {
	t.Helper()
	content := "Промокод,Продукт,Дата,Продажи\nTEST001,Продукт А,2025-10-08,5\n"
	require.NoError(t, os.WriteFile(filepath.Join(l.inboxDir, name), []byte(content), 0o600))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestPeriodFromName(t *testing.T) {
	p, err := PeriodFromName("sales_2025-10-01_2025-10-31.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-01..2025-10-31", p.String())

	_, err = PeriodFromName("sales_october.csv")
	assert.Error(t, err)

	_, err = PeriodFromName("sales_2025-13-01_2025-10-31.csv")
	assert.Error(t, err)
}

func TestPollInbox_CommittedFileIsProcessed(t *testing.T) {
	engine := &fakeIngester{result: &models.IngestResult{Success: true, RowsProcessed: 1, RowsAdded: 1}}
	l := newTestListener(t, engine)
	dropFile(t, l, "sales_2025-10-01_2025-10-31.csv")

	l.pollInbox(context.Background())

	require.Len(t, engine.requests, 1)
	req := engine.requests[0]
	assert.True(t, req.Authorized)
	assert.Equal(t, "sales_2025-10-01_2025-10-31.csv", req.FileName)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), req.PeriodFrom)
	assert.Equal(t, time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), req.PeriodTo)
	assert.Equal(t, []string{"TEST001", "Продукт А", "2025-10-08", "5"}, req.Rows[1])

	assert.True(t, exists(filepath.Join(l.inboxDir, processedDir, "sales_2025-10-01_2025-10-31.csv")))
	assert.False(t, exists(filepath.Join(l.inboxDir, "sales_2025-10-01_2025-10-31.csv")))
}

func TestPollInbox_RejectedFileGetsReport(t *testing.T) {
	engine := &fakeIngester{result: &models.IngestResult{
		Success:      false,
		RowsRejected: 1,
		Rejections:   []models.Rejection{{Row: 3, Reason: ingest.ReasonMissingFields, PromoCode: "TEST002"}},
	}}
	l := newTestListener(t, engine)
	dropFile(t, l, "sales_2025-10-01_2025-10-31.csv")

	l.pollInbox(context.Background())

	assert.True(t, exists(filepath.Join(l.inboxDir, rejectedDir, "sales_2025-10-01_2025-10-31.csv")))
	report, err := os.ReadFile(filepath.Join(l.inboxDir, rejectedDir, "sales_2025-10-01_2025-10-31.csv.errors.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "3,"+ingest.ReasonMissingFields+",TEST002,")
}

func TestPollInbox_CommitFailureStaysForRetry(t *testing.T) {
	engine := &fakeIngester{
		result: &models.IngestResult{Success: false, Error: "disk full"},
		err:    &ingest.CommitError{UploadId: 7, Err: errors.New("disk full")},
	}
	l := newTestListener(t, engine)
	dropFile(t, l, "sales_2025-10-01_2025-10-31.csv")

	l.pollInbox(context.Background())
	l.pollInbox(context.Background())

	require.Len(t, engine.requests, 2)
	assert.True(t, exists(filepath.Join(l.inboxDir, "sales_2025-10-01_2025-10-31.csv")))

	// the retry resumes the pending ledger entry instead of opening another
	assert.Nil(t, engine.requests[0].ResumeUploadId)
	require.NotNil(t, engine.requests[1].ResumeUploadId)
	assert.Equal(t, int64(7), *engine.requests[1].ResumeUploadId)

	// once the file commits the entry is forgotten
	engine.result, engine.err = &models.IngestResult{Success: true}, nil
	l.pollInbox(context.Background())
	assert.True(t, exists(filepath.Join(l.inboxDir, processedDir, "sales_2025-10-01_2025-10-31.csv")))
	assert.Empty(t, l.retries)
}

func TestPollInbox_WrappedCommitFailureStaysWithoutResume(t *testing.T) {
	engine := &fakeIngester{
		result: &models.IngestResult{Success: false},
		err:    fmt.Errorf("%w: disk full", ingest.ErrCommitFailed),
	}
	l := newTestListener(t, engine)
	dropFile(t, l, "sales_2025-10-01_2025-10-31.csv")

	l.pollInbox(context.Background())
	l.pollInbox(context.Background())

	require.Len(t, engine.requests, 2)
	assert.Nil(t, engine.requests[1].ResumeUploadId)
	assert.True(t, exists(filepath.Join(l.inboxDir, "sales_2025-10-01_2025-10-31.csv")))
}

func TestPollInbox_FileWithoutPeriodIsRejected(t *testing.T) {
	engine := &fakeIngester{}
	l := newTestListener(t, engine)
	dropFile(t, l, "october.csv")

	l.pollInbox(context.Background())

	assert.Empty(t, engine.requests)
	assert.True(t, exists(filepath.Join(l.inboxDir, rejectedDir, "october.csv")))
	assert.True(t, exists(filepath.Join(l.inboxDir, rejectedDir, "october.csv.errors.csv")))
}

func TestPollInbox_SkipsUnsupportedAndSettlingFiles(t *testing.T) {
	engine := &fakeIngester{result: &models.IngestResult{Success: true}}
	l := newTestListener(t, engine)
	l.settleTime = time.Hour

	dropFile(t, l, "sales_2025-10-01_2025-10-31.csv")
	require.NoError(t, os.WriteFile(filepath.Join(l.inboxDir, "notes_2025-10-01_2025-10-31.pdf"), []byte("x"), 0o600))

	l.pollInbox(context.Background())
	assert.Empty(t, engine.requests)

	l.settleTime = 0
	l.pollInbox(context.Background())
	assert.Len(t, engine.requests, 1)
	assert.True(t, exists(filepath.Join(l.inboxDir, "notes_2025-10-01_2025-10-31.pdf")))
}

func TestInboxListener_StartStop(t *testing.T) {
	engine := &fakeIngester{result: &models.IngestResult{Success: true}}
	l := NewInboxListener(InboxListenerConfig{
		Engine:          engine,
		InboxDir:        filepath.Join(t.TempDir(), "inbox"),
		PollingInterval: time.Hour,
		Timeout:         time.Minute,
	})

	require.NoError(t, l.Start(context.Background()))
	l.Stop()

	assert.True(t, exists(filepath.Join(l.inboxDir, processedDir)))
	assert.True(t, exists(filepath.Join(l.inboxDir, rejectedDir)))
}

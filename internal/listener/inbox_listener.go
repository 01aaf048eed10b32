/**
 * Copyright 2025-present Coinbase Global, Inc.
 * Modifications copyright 2025-present The promo-sales-go Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package listener

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"promo-sales-go/internal/ingest"
	"promo-sales-go/internal/models"
	"promo-sales-go/internal/sheet"

	"go.uber.org/zap"
)

const (
	processedDir = "processed"
	rejectedDir  = "rejected"
)

// Ingester runs one upload
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*models.IngestResult, error)
}

// InboxListenerConfig contains configuration for InboxListener
type InboxListenerConfig struct {
	Engine          Ingester
	InboxDir        string
	UploaderId      *string
	PollingInterval time.Duration
	SettleTime      time.Duration
	Timeout         time.Duration
}

// InboxListener polls a directory for sales files and ingests each one once.
// The period comes from the file name, see PeriodFromName.
type InboxListener struct {
	engine     Ingester
	inboxDir   string
	uploaderId *string

	pollingInterval time.Duration
	settleTime      time.Duration
	timeout         time.Duration
	now             func() time.Time

	// pending ledger entry per file whose last commit failed
	retries map[string]int64

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewInboxListener(cfg InboxListenerConfig) *InboxListener {
	return &InboxListener{
		engine:          cfg.Engine,
		inboxDir:        cfg.InboxDir,
		uploaderId:      cfg.UploaderId,
		pollingInterval: cfg.PollingInterval,
		settleTime:      cfg.SettleTime,
		timeout:         cfg.Timeout,
		now:             time.Now,
		retries:         make(map[string]int64),
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start creates the inbox layout and begins polling
func (l *InboxListener) Start(ctx context.Context) error {
	zap.L().Info("Starting inbox listener", zap.String("inbox", l.inboxDir))

	for _, dir := range []string{l.inboxDir, l.path(processedDir), l.path(rejectedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("unable to create %s: %w", dir, err)
		}
	}

	go l.pollLoop(ctx)

	zap.L().Info("Inbox listener started successfully",
		zap.Duration("polling_interval", l.pollingInterval),
		zap.Duration("settle_time", l.settleTime))

	return nil
}

// Stop gracefully stops the listener after the file in progress
func (l *InboxListener) Stop() {
	zap.L().Info("Stopping inbox listener")
	close(l.stopChan)
	<-l.doneChan
	zap.L().Info("Inbox listener stopped")
}

func (l *InboxListener) pollLoop(ctx context.Context) {
	defer close(l.doneChan)

	ticker := time.NewTicker(l.pollingInterval)
	defer ticker.Stop()

	l.pollInbox(ctx)

	for {
		select {
		case <-ticker.C:
			l.pollInbox(ctx)
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// pollInbox ingests every settled file in name order. The engine serializes
// writes, so files are handled one at a time.
func (l *InboxListener) pollInbox(ctx context.Context) {
	files, err := l.pendingFiles()
	if err != nil {
		zap.L().Error("Failed to scan inbox", zap.String("inbox", l.inboxDir), zap.Error(err))
		return
	}
	if len(files) == 0 {
		return
	}

	fmt.Printf("\n%s[%s] %d file(s) in %s%s\n",
		colorCyan, l.now().Format("15:04:05"), len(files), l.inboxDir, colorReset)

	for _, name := range files {
		select {
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}
		l.processFile(ctx, name)
	}
}

// pendingFiles lists supported spreadsheets that have not been written to
// for at least settleTime.
func (l *InboxListener) pendingFiles() ([]string, error) {
	entries, err := os.ReadDir(l.inboxDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if _, err := sheet.FormatOf(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if l.now().Sub(info.ModTime()) < l.settleTime {
			zap.L().Debug("File still settling", zap.String("file", entry.Name()))
			continue
		}
		files = append(files, entry.Name())
	}

	sort.Strings(files)
	return files, nil
}

func (l *InboxListener) processFile(ctx context.Context, name string) {
	period, err := PeriodFromName(name)
	if err != nil {
		fmt.Printf("  %s✗ %s: %s%s\n", colorRed, name, err, colorReset)
		l.reject(name, nil, err)
		return
	}

	rows, err := sheet.DecodeFile(l.path(name))
	if err != nil {
		fmt.Printf("  %s✗ %s: %s%s\n", colorRed, name, err, colorReset)
		l.reject(name, nil, err)
		return
	}

	ingestCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req := ingest.Request{
		Rows:       rows,
		PeriodFrom: period.From,
		PeriodTo:   period.To,
		UploaderId: l.uploaderId,
		FileName:   name,
		Authorized: true,
	}
	if id, ok := l.retries[name]; ok {
		req.ResumeUploadId = &id
	}

	result, err := l.engine.Ingest(ingestCtx, req)
	delete(l.retries, name)

	var commitErr *ingest.CommitError
	switch {
	case errors.Is(err, ingest.ErrCommitFailed):
		// left in the inbox, retried on the next poll against the same entry
		if errors.As(err, &commitErr) {
			l.retries[name] = commitErr.UploadId
		}
		fmt.Printf("  %s~ %s: %s, will retry%s\n", colorYellow, name, err, colorReset)
		zap.L().Error("Sales file not committed", zap.String("file", name), zap.Error(err))

	case err != nil:
		fmt.Printf("  %s✗ %s: %s%s\n", colorRed, name, err, colorReset)
		l.reject(name, nil, err)

	case !result.Success:
		fmt.Printf("  %s✗ %s: %d row(s) rejected%s\n", colorRed, name, result.RowsRejected, colorReset)
		l.reject(name, result.Rejections, nil)

	default:
		fmt.Printf("  %s✓ %s %s | added %d, updated %d%s\n",
			colorGreen, name, period, result.RowsAdded, result.RowsUpdated, colorReset)
		l.move(name, processedDir)
	}
}

func (l *InboxListener) reject(name string, rejections []models.Rejection, cause error) {
	if err := writeReport(l.path(rejectedDir, name+".errors.csv"), rejections, cause); err != nil {
		zap.L().Warn("Failed to write rejection report", zap.String("file", name), zap.Error(err))
	}
	l.move(name, rejectedDir)
}

func (l *InboxListener) move(name, dir string) {
	target := l.path(dir, name)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(name)
		target = l.path(dir, fmt.Sprintf("%s.%d%s", name[:len(name)-len(ext)], l.now().Unix(), ext))
	}

	if err := os.Rename(l.path(name), target); err != nil {
		zap.L().Error("Failed to move sales file",
			zap.String("file", name),
			zap.String("target", target),
			zap.Error(err))
		return
	}
	zap.L().Info("Sales file moved", zap.String("file", name), zap.String("target", target))
}

func (l *InboxListener) path(elem ...string) string {
	return filepath.Join(append([]string{l.inboxDir}, elem...)...)
}

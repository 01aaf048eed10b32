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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promo-sales-go/internal/common"
	"promo-sales-go/internal/config"
	"promo-sales-go/internal/listener"

	"go.uber.org/zap"
)

func main() {
	inboxFlag := flag.String("inbox", "", "Directory to watch for sales files (default: LISTENER_INBOX_DIR)")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	if *inboxFlag != "" {
		cfg.Listener.InboxDir = *inboxFlag
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting sales inbox listener")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	var uploaderId *string
	if cfg.Listener.UploaderEmail != "" {
		user, err := services.DbService.GetUserByEmail(ctx, cfg.Listener.UploaderEmail)
		if err != nil {
			zap.L().Fatal("Listener uploader not found", zap.String("email", cfg.Listener.UploaderEmail), zap.Error(err))
		}
		if !user.IsAdmin {
			zap.L().Fatal("Listener uploader must be an admin", zap.String("email", user.Email))
		}
		uploaderId = &user.Id
	}

	l := listener.NewInboxListener(listener.InboxListenerConfig{
		Engine:          services.Engine,
		InboxDir:        cfg.Listener.InboxDir,
		UploaderId:      uploaderId,
		PollingInterval: cfg.Listener.PollingInterval,
		SettleTime:      cfg.Listener.SettleTime,
		Timeout:         cfg.Ingest.Timeout,
	})

	if err := l.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start listener", zap.Error(err))
	}

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping listener...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Listener stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}

	pushCtx, pushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pushCancel()
	if err := services.Metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		zap.L().Warn("Failed to push metrics", zap.Error(err))
	}
}

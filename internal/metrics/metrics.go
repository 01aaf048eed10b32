/**
 * Copyright 2025-present The promo-sales-go Authors
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

package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "promo_sales"

// Upload outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Row kinds.
const (
	RowsAdded    = "added"
	RowsUpdated  = "updated"
	RowsRejected = "rejected"
)

// Recorder collects ingestion metrics on its own registry. CLI runs are
// short-lived, so the registry is pushed to a Pushgateway instead of scraped.
// A nil *Recorder records nothing.
type Recorder struct {
	registry    *prometheus.Registry
	uploads     *prometheus.CounterVec
	rows        *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Ingestion attempts by outcome.",
		}, []string{"outcome"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Spreadsheet rows by result.",
		}, []string{"kind"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_code_resolutions_total",
			Help:      "Promo code resolutions during ingestion by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Wall-clock duration of an ingestion.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(r.uploads, r.rows, r.resolutions, r.duration)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveUpload(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (r *Recorder) AddRows(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rows.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) AddResolutions(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.resolutions.WithLabelValues(kind).Add(float64(n))
}

// Push sends the registry to a Pushgateway. An empty endpoint disables it.
func (r *Recorder) Push(ctx context.Context, endpoint, job string) error {
	if r == nil || strings.TrimSpace(endpoint) == "" {
		return nil
	}
	job = strings.TrimSpace(job)
	if job == "" {
		return errors.New("pushgateway job is required")
	}

	return push.New(endpoint, job).Gatherer(r.registry).PushContext(ctx)
}

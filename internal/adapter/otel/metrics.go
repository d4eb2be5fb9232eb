// Package otel provides metric instruments and HTTP span middleware.
// Instruments register against the global meter provider; exporter wiring is
// left to the deployment.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "waycms"

// Metrics holds all Way-CMS metric instruments.
type Metrics struct {
	FilesScanned    metric.Int64Counter
	FilesRewritten  metric.Int64Counter
	ReplaceRequests metric.Int64Counter
	BackupsCreated  metric.Int64Counter
	BackupsRestored metric.Int64Counter
	BackupsPruned   metric.Int64Counter
	ReplaceDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.FilesScanned, err = meter.Int64Counter("waycms.replace.files_scanned",
		metric.WithDescription("Files scanned by search-replace requests"))
	if err != nil {
		return nil, err
	}

	m.FilesRewritten, err = meter.Int64Counter("waycms.replace.files_rewritten",
		metric.WithDescription("Files rewritten by committed search-replace requests"))
	if err != nil {
		return nil, err
	}

	m.ReplaceRequests, err = meter.Int64Counter("waycms.replace.requests",
		metric.WithDescription("Search-replace requests served"))
	if err != nil {
		return nil, err
	}

	m.BackupsCreated, err = meter.Int64Counter("waycms.backups.created",
		metric.WithDescription("Backup archives created"))
	if err != nil {
		return nil, err
	}

	m.BackupsRestored, err = meter.Int64Counter("waycms.backups.restored",
		metric.WithDescription("Backup archives restored"))
	if err != nil {
		return nil, err
	}

	m.BackupsPruned, err = meter.Int64Counter("waycms.backups.pruned",
		metric.WithDescription("Backup archives removed by retention pruning"))
	if err != nil {
		return nil, err
	}

	m.ReplaceDuration, err = meter.Float64Histogram("waycms.replace.duration_seconds",
		metric.WithDescription("Search-replace request duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

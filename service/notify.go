package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neurolytix/go-forecaster/anomaly"
)

// Alert is the message handed to a Notifier when anomalies are found
type Alert struct {
	ID        string          `json:"id"`
	Address   string          `json:"address"`
	DatasetID string          `json:"dataset_id"`
	Column    string          `json:"column"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body"`
	Result    *anomaly.Result `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// Notifier delivers alerts. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

func alertSubject(datasetID string) string {
	return fmt.Sprintf("Neurolytix Anomaly Alert: %s", datasetID)
}

func alertBody(datasetID, column string, res *anomaly.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Anomaly alert for dataset %s, column %s\n\n", datasetID, column)
	fmt.Fprintf(&sb, "%-30s %14s %10s\n", "timestamp", "value", "score")
	for _, p := range res.Anomalies {
		fmt.Fprintf(&sb, "%-30s %14.4f %10.3f\n", p.T.UTC().Format(time.RFC3339), p.Value, p.Score)
	}
	return sb.String()
}

// LogNotifier writes alerts to a structured logger
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "anomaly alert",
		"alert_id", alert.ID,
		"address", alert.Address,
		"dataset_id", alert.DatasetID,
		"column", alert.Column,
		"count", alert.Result.Count,
	)
	return nil
}

// MemoryNotifier keeps the most recent alerts
type MemoryNotifier struct {
	mu     sync.Mutex
	limit  int
	alerts []Alert
}

func NewMemoryNotifier(limit int) *MemoryNotifier {
	if limit < 1 {
		limit = 1
	}
	return &MemoryNotifier{limit: limit}
}

func (n *MemoryNotifier) Notify(ctx context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	if over := len(n.alerts) - n.limit; over > 0 {
		n.alerts = append([]Alert(nil), n.alerts[over:]...)
	}
	return nil
}

// Recent returns up to limit alerts, newest first
func (n *MemoryNotifier) Recent(limit int) []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	if limit <= 0 || limit > len(n.alerts) {
		limit = len(n.alerts)
	}
	out := make([]Alert, 0, limit)
	for i := len(n.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, n.alerts[i])
	}
	return out
}

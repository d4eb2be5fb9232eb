package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event type constants for WebSocket messages.
const (
	EventReplaceCompleted = "replace.completed"
	EventBackupCreated    = "backup.created"
	EventBackupRestored   = "backup.restored"
	EventSchedulerRun     = "scheduler.run"
)

// ReplaceCompletedEvent is broadcast when a search-replace request finishes.
type ReplaceCompletedEvent struct {
	Site         string `json:"site"`
	DryRun       bool   `json:"dry_run"`
	FilesScanned int    `json:"files_scanned"`
	FilesChanged int    `json:"files_changed"`
	Errors       int    `json:"errors"`
}

// BackupEvent is broadcast when a backup archive is created or restored.
type BackupEvent struct {
	Site      string    `json:"site"`
	BackupID  string    `json:"backup_id"`
	Scope     string    `json:"scope"`
	ScopePath string    `json:"scope_path"`
	CreatedAt time.Time `json:"created_at"`
}

// SchedulerRunEvent is broadcast after each automatic backup sweep.
type SchedulerRunEvent struct {
	Sites    int       `json:"sites"`
	Created  int       `json:"created"`
	Pruned   int       `json:"pruned"`
	Failed   int       `json:"failed"`
	FiredAt  time.Time `json:"fired_at"`
	Duration string    `json:"duration"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

package queue

import (
	"fmt"
	"os"
	"path/filepath"

	"fieldlog/internal/config"
	"fieldlog/internal/fieldlog"
)

// NewQueueFromConfig creates a Queue implementation based on the queue
// config type.
func NewQueueFromConfig(cfg config.QueueConfig, clock fieldlog.Clock, idgen fieldlog.IDGenerator) (fieldlog.Queue, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite queue")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating queue data directory: %w", err)
		}
		return NewSQLiteQueue(filepath.Join(cfg.DataDir, "queue.db"), clock, idgen, cfg.MaxEntries)
	case "memory":
		return NewSQLiteQueue(":memory:", clock, idgen, cfg.MaxEntries)
	default:
		return nil, fmt.Errorf("unknown queue type: %s", cfg.Type)
	}
}

package handler

import (
	"context"

	"syncroom/internal/app/archive"
	"syncroom/internal/app/hub"
	"syncroom/internal/configs"
)

// HistoryReader reads archived chat.
type HistoryReader interface {
	History(ctx context.Context, room string, limit int) ([]archive.Record, error)
}

type AppDeps struct {
	Manager *hub.Manager
	Config  *configs.AppConfig

	// Archive is nil when the chat archive is disabled.
	Archive HistoryReader
}

package backend

import (
	"context"
	"fmt"
	"log/slog"

	"laplog/internal/blob/file"
	gsheet "laplog/internal/blob/google"
	"laplog/internal/blob/memory"
	"laplog/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return &BackendResult{Blobs: memory.New(), Type: MemoryBackend}, nil

	case FileBackend:
		st, err := file.New(config.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file backend: %w", err)
		}
		f.logger.Info("Initialized file backend", "data_dir", st.Dir())
		return &BackendResult{Blobs: st, Type: FileBackend}, nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Blobs: repo, Type: SQLiteBackend, Cleanup: repo.Close}, nil

	case SheetsBackend:
		cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
		return &BackendResult{Blobs: cli, Type: SheetsBackend}, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}

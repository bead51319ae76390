package backend

import (
	"fmt"

	"laplog/internal/config"
)

// FromAppConfig selects the primary record blob backend.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Type:                BackendType(appConfig.DataBackend),
		DataDir:             appConfig.DataDir,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ReplicaFromAppConfig selects the replica backend. ok is false when no
// replica is configured.
func ReplicaFromAppConfig(appConfig *config.Config) (c Config, ok bool, err error) {
	if appConfig == nil {
		return Config{}, false, fmt.Errorf("app config is nil")
	}
	if appConfig.ReplicaBackend == "" {
		return Config{}, false, nil
	}
	c = Config{
		Type:                BackendType(appConfig.ReplicaBackend),
		DataDir:             appConfig.ReplicaDataDir,
		SQLiteDBPath:        appConfig.ReplicaSQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}
	if err := c.Validate(); err != nil {
		return Config{}, false, fmt.Errorf("replica: %w", err)
	}
	return c, true, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case FileBackend:
		if c.DataDir == "" {
			return fmt.Errorf("data directory is required for file backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := []BackendType{MemoryBackend, FileBackend, SQLiteBackend, SheetsBackend}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

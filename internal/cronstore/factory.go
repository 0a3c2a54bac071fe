package cronstore

import (
	"fmt"
	"strings"
)

// NewFromDSN selects a Store implementation by DSN prefix, mirroring the
// teacher's internal/store/factory.go and internal/history/factory/factory.go
// DSN-sniffing convention.
//
// Supported forms:
//   - "memory://" or ""                     -> MemStore
//   - "file://<path>"                        -> FileStore rooted at <path>
//   - "sqlite://<path>" or "sqlite://:memory:" -> SQLStore (sqlite dialect)
//   - "postgres://..." / "postgresql://..."  -> SQLStore (postgres dialect)
func NewFromDSN(dsn string, historyLimit int) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)

	switch {
	case dsn == "" || strings.HasPrefix(lower, "memory://"):
		return NewMemStore(historyLimit), nil
	case strings.HasPrefix(lower, "file://"):
		root := strings.TrimPrefix(dsn, "file://")
		return NewFileStore(root, historyLimit)
	case strings.HasPrefix(lower, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		return NewSQLiteStore(path, historyLimit)
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return NewPostgresStore(dsn, historyLimit)
	default:
		return nil, fmt.Errorf("unsupported store DSN: %q", dsn)
	}
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/KaramelBytes/trackscope-cli/internal/track"
)

// Open returns a gorm handle on an existing SQLite file. It never creates
// the file; callers check existence first.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	return db, nil
}

func loadSQLite(ctx context.Context, path, table string) (_ *track.Table, err error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: getting sql.DB from gorm: %v", ErrSourceUnavailable, err)
	}
	defer func() { err = multierr.Append(err, closeErr(sqlDB.Close())) }()

	var names []string
	if err := db.WithContext(ctx).
		Raw("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).
		Scan(&names).Error; err != nil {
		return nil, fmt.Errorf("%w: checking table %s: %v", ErrSourceUnavailable, table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: table %s does not exist in %s", ErrSourceUnavailable, table, path)
	}

	rows, err := db.WithContext(ctx).Raw(fmt.Sprintf("SELECT * FROM %q", table)).Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrSourceUnavailable, table, err)
	}
	defer func() { err = multierr.Append(err, closeErr(rows.Close())) }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: columns: %v", ErrSourceUnavailable, err)
	}
	var out []track.Row
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scan row %d: %v", ErrSourceUnavailable, len(out)+1, err)
		}
		vals := make([]track.Value, len(columns))
		for i, c := range cells {
			vals[i] = toValue(c)
		}
		out = append(out, track.Row{Values: vals})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, table, err)
	}
	assignIDs(columns, out)
	t, err := track.NewTable(table, columns, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return t, nil
}

func closeErr(err error) error {
	if err == nil || err == sql.ErrConnDone {
		return nil
	}
	return fmt.Errorf("close: %w", err)
}

// toValue maps a driver cell onto the explicit optional-field model.
func toValue(c any) track.Value {
	switch v := c.(type) {
	case nil:
		return track.NullValue()
	case int64:
		return track.IntValue(v)
	case int:
		return track.IntValue(int64(v))
	case float64:
		return track.FloatValue(v)
	case bool:
		if v {
			return track.IntValue(1)
		}
		return track.IntValue(0)
	case string:
		return track.TextValue(v)
	case []byte:
		return track.BytesValue(v)
	case time.Time:
		return track.TextValue(v.Format(time.RFC3339))
	default:
		return track.TextValue(fmt.Sprint(v))
	}
}

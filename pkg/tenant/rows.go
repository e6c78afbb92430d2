package tenant

import "database/sql"

// Row is one result row keyed by column name.
type Row map[string]any

// ExecResult reports the outcome of a statement execution.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// CollectRows drains rows into a materialized slice and closes them.
func CollectRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			v := values[i]
			// The sqlite driver hands TEXT back as []byte; strings are
			// friendlier for callers.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func execResult(result sql.Result) ExecResult {
	// SQLite always supports both counters; errors here mean the driver
	// changed underneath us, so fall back to zero values.
	affected, _ := result.RowsAffected()
	lastID, _ := result.LastInsertId()
	return ExecResult{RowsAffected: affected, LastInsertID: lastID}
}

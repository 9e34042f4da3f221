package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"resell-reports/internal/ledger"
	"resell-reports/internal/model"
)

// tableColumns whitelists the columns of each ledger table. Queries naming
// anything else are rejected the way a remote store would reject them.
var tableColumns = map[string][]string{
	ledger.TableSales: {
		"id", "user_id", "item_id", "item_title", "platform", "status", "category", "sale_date",
		"selling_price", "platform_fees", "shipping_cost", "other_costs", "cost_basis", "net_profit",
		"deleted_at",
	},
	ledger.TableInventory: {
		"id", "user_id", "title", "sku", "category", "platform", "status",
		"purchase_date", "purchase_price", "deleted_at",
	},
}

func hasColumn(table, column string) bool {
	for _, c := range tableColumns[table] {
		if c == column {
			return true
		}
	}
	return false
}

// Select implements ledger.Source.
func (s *Store) Select(ctx context.Context, q ledger.Query) (*ledger.Page, error) {
	columns, ok := tableColumns[q.Table]
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", model.ErrUpstreamQuery, q.Table)
	}

	where, args, err := buildWhere(q)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", strings.Join(columns, ", "), q.Table, where)
	if q.OrderBy != "" {
		if !hasColumn(q.Table, q.OrderBy) {
			return nil, fmt.Errorf("%w: unknown column %s.%s", model.ErrUpstreamQuery, q.Table, q.OrderBy)
		}
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s, id ASC", q.OrderBy, dir)
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrUpstreamQuery, q.Table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close ledger rows")
		}
	}()

	records, err := scanRecords(rows, columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrUpstreamQuery, q.Table, err)
	}

	total := -1
	if q.CountExact {
		countArgs := args
		if q.Limit > 0 {
			countArgs = args[:len(args)-2]
		}
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+q.Table+where, countArgs...).Scan(&total); err != nil {
			return nil, fmt.Errorf("%w: count %s: %v", model.ErrUpstreamQuery, q.Table, err)
		}
	}

	return &ledger.Page{Records: records, Total: total}, nil
}

func buildWhere(q ledger.Query) (string, []any, error) {
	if len(q.Predicates) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(q.Predicates))
	args := make([]any, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		if !hasColumn(q.Table, p.Field) {
			return "", nil, fmt.Errorf("%w: unknown column %s.%s", model.ErrUpstreamQuery, q.Table, p.Field)
		}
		switch p.Op {
		case ledger.OpEq:
			clauses = append(clauses, p.Field+" = ?")
			args = append(args, p.Value)
		case ledger.OpGte:
			clauses = append(clauses, p.Field+" >= ?")
			args = append(args, p.Value)
		case ledger.OpLte:
			clauses = append(clauses, p.Field+" <= ?")
			args = append(args, p.Value)
		case ledger.OpIsNull:
			clauses = append(clauses, "("+p.Field+" IS NULL OR "+p.Field+" = '')")
		default:
			return "", nil, fmt.Errorf("%w: unsupported operator %q", model.ErrUpstreamQuery, p.Op)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func scanRecords(rows *sql.Rows, columns []string) ([]ledger.Record, error) {
	var records []ledger.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		r := make(ledger.Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				r[col] = string(b)
				continue
			}
			r[col] = values[i]
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// InsertRecords upserts ledger records into table. Keys that are not columns
// of the table are ignored.
func (s *Store) InsertRecords(ctx context.Context, table string, records []ledger.Record) (int, error) {
	columns, ok := tableColumns[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders,
	))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = r[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", table, r.String(ledger.FieldID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(records), nil
}

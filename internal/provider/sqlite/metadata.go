package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/provider"
)

var autoincrementRe = regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`)

// table is a snapshot table together with its physical name and CREATE statement.
type table struct {
	physical string
	sql      string
	observed *core.ObservedTable
}

func loadTables(ctx context.Context, db *sql.DB, snap *provider.Snapshot) ([]table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, COALESCE(sql, '')
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []table
	for rows.Next() {
		var name, ddl string
		if err := rows.Scan(&name, &ddl); err != nil {
			return nil, err
		}
		if t := snap.AddTable(name); t != nil {
			tables = append(tables, table{physical: name, sql: ddl, observed: t})
		}
	}
	return tables, rows.Err()
}

func loadColumns(ctx context.Context, db *sql.DB, t table) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", QuoteIdentifier(t.physical)))
	if err != nil {
		return err
	}
	defer rows.Close()

	var pk []*core.ObservedColumn
	for rows.Next() {
		var (
			cid, notNull, pkOrder int
			name, colType         string
			defaultVal            sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pkOrder); err != nil {
			return err
		}

		rt := core.ParseRawType(colType)
		col := &core.ObservedColumn{
			Name:       name,
			DataType:   rt.Base,
			RawType:    colType,
			Required:   notNull == 1,
			Size:       rt.Size,
			Scale:      rt.Scale,
			PrimaryKey: pkOrder > 0,
		}
		if defaultVal.Valid {
			col.DefaultValue = normalizeDefault(defaultVal.String)
		}
		if col.PrimaryKey {
			pk = append(pk, col)
		}
		t.observed.AddColumn(col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Only a lone INTEGER PRIMARY KEY can be AUTOINCREMENT.
	if len(pk) == 1 && pk[0].DataType == "integer" && autoincrementRe.MatchString(t.sql) {
		pk[0].AutoIncrement = true
	}
	return nil
}

func loadIndexes(ctx context.Context, db *sql.DB, snap *provider.Snapshot, t table) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", QuoteIdentifier(t.physical)))
	if err != nil {
		return err
	}

	var indexes []*core.ObservedIndex
	physical := make(map[*core.ObservedIndex]string)
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			_ = rows.Close()
			return err
		}
		// Primary keys and inline UNIQUE constraints are not managed indexes.
		if origin != "c" || strings.HasPrefix(name, "sqlite_autoindex_") {
			continue
		}
		idx := &core.ObservedIndex{Name: strings.TrimPrefix(name, snap.Prefix()), Unique: unique == 1}
		indexes = append(indexes, idx)
		physical[idx] = name
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, idx := range indexes {
		cols, err := indexColumns(ctx, db, physical[idx])
		if err != nil {
			return err
		}
		idx.Columns = cols
		t.observed.AddIndex(idx)
	}
	return nil
}

func indexColumns(ctx context.Context, db *sql.DB, index string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", QuoteIdentifier(index)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if name.Valid {
			cols = append(cols, name.String)
		}
	}
	return cols, rows.Err()
}

// normalizeDefault reduces a dflt_value expression to its literal.
func normalizeDefault(v string) *string {
	v = strings.TrimSpace(v)
	for len(v) >= 2 && v[0] == '(' && v[len(v)-1] == ')' {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	if strings.EqualFold(v, "NULL") {
		return nil
	}
	v = provider.Unquote(v)
	return &v
}

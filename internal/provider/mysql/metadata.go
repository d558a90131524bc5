package mysql

import (
	"context"
	"database/sql"
	"strings"

	"schemasync/internal/core"
	"schemasync/internal/provider"
)

func loadTables(ctx context.Context, db *sql.DB, snap *provider.Snapshot) error {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		snap.AddTable(name)
	}
	return rows.Err()
}

func loadColumns(ctx context.Context, db *sql.DB, snap *provider.Snapshot) error {
	rows, err := db.QueryContext(ctx, `
		SELECT
			c.table_name,
			c.column_name,
			c.data_type,
			c.column_type,
			c.column_default,
			c.is_nullable,
			COALESCE(c.character_maximum_length, c.numeric_precision),
			c.numeric_scale,
			c.extra,
			c.column_key
		FROM information_schema.columns c
		WHERE c.table_schema = DATABASE()
		ORDER BY c.table_name, c.ordinal_position
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, name, dataType, columnType, nullable string
			defaultVal, extra, columnKey               sql.NullString
			size, scale                                sql.NullInt64
		)
		if err := rows.Scan(&table, &name, &dataType, &columnType, &defaultVal, &nullable, &size, &scale, &extra, &columnKey); err != nil {
			return err
		}

		t := snap.TableByPhysicalName(table)
		if t == nil {
			continue
		}
		col := &core.ObservedColumn{
			Name:          name,
			DataType:      strings.ToLower(dataType),
			RawType:       columnType,
			Required:      nullable == "NO",
			Size:          int(size.Int64),
			Scale:         int(scale.Int64),
			AutoIncrement: strings.Contains(strings.ToLower(extra.String), "auto_increment"),
			PrimaryKey:    columnKey.String == "PRI",
		}
		if defaultVal.Valid {
			col.DefaultValue = normalizeDefault(defaultVal.String)
		}
		t.AddColumn(col)
	}
	return rows.Err()
}

func loadIndexes(ctx context.Context, db *sql.DB, snap *provider.Snapshot) error {
	rows, err := db.QueryContext(ctx, `
		SELECT s.table_name, s.index_name, s.non_unique, s.column_name
		FROM information_schema.statistics s
		WHERE s.table_schema = DATABASE() AND s.index_name <> 'PRIMARY'
		ORDER BY s.table_name, s.index_name, s.seq_in_index
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, name string
			nonUnique   int
			column      sql.NullString
		)
		if err := rows.Scan(&table, &name, &nonUnique, &column); err != nil {
			return err
		}

		t := snap.TableByPhysicalName(table)
		if t == nil {
			continue
		}
		idx := t.Index(name)
		if idx == nil {
			idx = &core.ObservedIndex{Name: name, Unique: nonUnique == 0}
			t.AddIndex(idx)
		}
		if column.Valid {
			idx.Columns = append(idx.Columns, column.String)
		}
	}
	return rows.Err()
}

// normalizeDefault maps the COLUMN_DEFAULT spellings of MySQL and MariaDB to a
// plain literal. MariaDB quotes string defaults and reports NULL as the text "NULL".
func normalizeDefault(v string) *string {
	if v == "NULL" {
		return nil
	}
	v = provider.Unquote(v)
	return &v
}

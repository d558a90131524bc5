package postgres

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
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
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
			c.udt_name,
			c.column_default,
			c.is_nullable,
			COALESCE(c.character_maximum_length, c.numeric_precision),
			c.numeric_scale,
			c.is_identity
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema()
		ORDER BY c.table_name, c.ordinal_position
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, name, dataType, udtName, nullable string
			defaultVal, identity                    sql.NullString
			size, scale                             sql.NullInt64
		)
		if err := rows.Scan(&table, &name, &dataType, &udtName, &defaultVal, &nullable, &size, &scale, &identity); err != nil {
			return err
		}

		t := snap.TableByPhysicalName(table)
		if t == nil {
			continue
		}
		col := &core.ObservedColumn{
			Name:          name,
			DataType:      normalizeType(dataType),
			RawType:       udtName,
			Required:      nullable == "NO",
			Size:          int(size.Int64),
			Scale:         int(scale.Int64),
			AutoIncrement: identity.String == "YES",
		}
		if defaultVal.Valid {
			if strings.HasPrefix(defaultVal.String, "nextval(") {
				col.AutoIncrement = true
			} else {
				col.DefaultValue = normalizeDefault(defaultVal.String)
			}
		}
		t.AddColumn(col)
	}
	return rows.Err()
}

func loadPrimaryKeys(ctx context.Context, db *sql.DB, snap *provider.Snapshot) error {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = current_schema() AND tc.constraint_type = 'PRIMARY KEY'
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		if t := snap.TableByPhysicalName(table); t != nil {
			if c := t.Column(column); c != nil {
				c.PrimaryKey = true
			}
		}
	}
	return rows.Err()
}

func loadIndexes(ctx context.Context, db *sql.DB, snap *provider.Snapshot) error {
	rows, err := db.QueryContext(ctx, `
		SELECT t.relname, i.relname, ix.indisunique, a.attname
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = current_schema() AND NOT ix.indisprimary
		ORDER BY t.relname, i.relname, k.ord
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, name, column string
			unique              bool
		)
		if err := rows.Scan(&table, &name, &unique, &column); err != nil {
			return err
		}

		t := snap.TableByPhysicalName(table)
		if t == nil {
			continue
		}
		name = strings.TrimPrefix(name, snap.Prefix())
		idx := t.Index(name)
		if idx == nil {
			idx = &core.ObservedIndex{Name: name, Unique: unique}
			t.AddIndex(idx)
		}
		idx.Columns = append(idx.Columns, column)
	}
	return rows.Err()
}

// normalizeType maps the SQL-standard names information_schema reports to the
// short names the matcher compares against.
func normalizeType(dataType string) string {
	switch dataType = strings.ToLower(dataType); dataType {
	case "character varying":
		return "varchar"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	default:
		return dataType
	}
}

// normalizeDefault reduces a column_default expression such as
// 'free'::character varying or (-5) to its literal.
func normalizeDefault(v string) *string {
	v = strings.TrimSpace(v)
	for len(v) >= 2 && v[0] == '(' && v[len(v)-1] == ')' {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	v = stripCast(v)
	if strings.EqualFold(v, "NULL") {
		return nil
	}
	v = provider.Unquote(v)
	return &v
}

// stripCast removes a trailing ::type cast that is outside any string literal.
func stripCast(v string) string {
	inQuote := false
	for i := 0; i < len(v); i++ {
		switch {
		case v[i] == '\'':
			inQuote = !inQuote
		case !inQuote && v[i] == ':' && i+1 < len(v) && v[i+1] == ':':
			return strings.TrimSpace(v[:i])
		}
	}
	return v
}

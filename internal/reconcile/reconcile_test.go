package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemasync/internal/core"
	"schemasync/internal/migration"
	"schemasync/internal/parser"
	"schemasync/internal/provider"
	"schemasync/internal/provider/mysql"
	"schemasync/internal/provider/sqlite"
	"schemasync/internal/registry"
	"schemasync/internal/resolve"
)

func compile(t *testing.T, doc string) *core.SchemaDefinition {
	t.Helper()
	s, err := parser.Parse(strings.NewReader(doc), parser.FormatJSON, "test.json")
	require.NoError(t, err)
	require.NoError(t, resolve.New(registry.New(), "").Resolve(s))
	return s
}

func reconcileMySQL(t *testing.T, snap *provider.Snapshot, doc string) *migration.Migration {
	t.Helper()
	m, err := New(mysql.New(snap), "default", nil).Reconcile(compile(t, doc))
	require.NoError(t, err)
	assertAdditive(t, m)
	return m
}

// assertAdditive checks that nothing is ever dropped except an index that is
// recreated by the very next statement.
func assertAdditive(t *testing.T, m *migration.Migration) {
	t.Helper()
	ops := m.Plan()
	for i, op := range ops {
		upper := strings.ToUpper(op.SQL)
		assert.NotContains(t, upper, "DROP TABLE")
		assert.NotContains(t, upper, "DROP COLUMN")
		if op.Action == core.ActionDropIndex {
			require.Less(t, i+1, len(ops), "drop of %s is the last statement", op.Object)
			assert.Equal(t, core.ActionCreateIndex, ops[i+1].Action)
			assert.Equal(t, op.Object, ops[i+1].Object)
			assert.Equal(t, op.Table, ops[i+1].Table)
		}
	}
}

const tableT = `{
	"name": "s", "namespace": "n",
	"tables": [{
		"name": "T",
		"columns": [
			{"name": "id", "type": "int", "autoIncrement": true, "primaryKey": true},
			{"name": "name", "type": "varchar", "size": 50, "required": true}
		]
	}]
}`

func observedT(nameSize int) *provider.Snapshot {
	snap := provider.NewSnapshot("")
	tbl := snap.AddTable("T")
	tbl.AddColumn(&core.ObservedColumn{Name: "id", DataType: "int", Required: true, AutoIncrement: true, PrimaryKey: true})
	tbl.AddColumn(&core.ObservedColumn{Name: "name", DataType: "varchar", Size: nameSize, Required: true})
	return snap
}

func TestCreateMissingTable(t *testing.T) {
	m := reconcileMySQL(t, provider.NewSnapshot(""), tableT)

	assert.Equal(t, []string{
		"CREATE TABLE `T` (`id` int NOT NULL AUTO_INCREMENT, `name` varchar(50) NOT NULL, PRIMARY KEY (`id`)) ENGINE=InnoDB;",
	}, m.SQLStatements())
	assert.Equal(t, "s", m.Schema)
	assert.Equal(t, core.DialectMySQL, m.Dialect)
}

func TestAlterChangedColumn(t *testing.T) {
	m := reconcileMySQL(t, observedT(20), tableT)

	assert.Equal(t, []string{
		"ALTER TABLE `T` MODIFY COLUMN `name` varchar(50) NOT NULL;",
	}, m.SQLStatements())
	assert.Equal(t, core.ActionAlterColumn, m.Plan()[0].Action)
}

func TestUpToDateTableIsEmpty(t *testing.T) {
	m := reconcileMySQL(t, observedT(50), tableT)
	assert.True(t, m.IsEmpty())
}

func TestChangedColumnsBeforeNewColumns(t *testing.T) {
	doc := `{
		"name": "s", "namespace": "n",
		"tables": [{
			"name": "T",
			"columns": [
				{"name": "id", "type": "int", "autoIncrement": true, "primaryKey": true},
				{"name": "email", "type": "varchar", "size": 80},
				{"name": "name", "type": "varchar", "size": 50, "required": true}
			]
		}]
	}`
	m := reconcileMySQL(t, observedT(20), doc)

	assert.Equal(t, []string{
		"ALTER TABLE `T` MODIFY COLUMN `name` varchar(50) NOT NULL;",
		"ALTER TABLE `T` ADD COLUMN `email` varchar(80);",
	}, m.SQLStatements())
}

func TestIndexReplacedDropThenCreate(t *testing.T) {
	doc := `{
		"name": "s", "namespace": "n",
		"tables": [{
			"name": "t",
			"columns": [
				{"name": "a", "type": "varchar", "size": 10},
				{"name": "b", "type": "varchar", "size": 10}
			],
			"indexes": [{"name": "idx1", "columns": ["a", "b"]}]
		}]
	}`
	snap := provider.NewSnapshot("")
	tbl := snap.AddTable("t")
	tbl.AddColumn(&core.ObservedColumn{Name: "a", DataType: "varchar", Size: 10})
	tbl.AddColumn(&core.ObservedColumn{Name: "b", DataType: "varchar", Size: 10})
	tbl.AddIndex(&core.ObservedIndex{Name: "idx1", Columns: []string{"a"}})

	m := reconcileMySQL(t, snap, doc)
	assert.Equal(t, []string{
		"DROP INDEX `idx1` ON `t`;",
		"CREATE INDEX `idx1` ON `t` (`a`, `b`);",
	}, m.SQLStatements())

	t.Run("uniqueness change also replaces", func(t *testing.T) {
		tbl.AddIndex(&core.ObservedIndex{Name: "idx1", Unique: true, Columns: []string{"a", "b"}})
		m := reconcileMySQL(t, snap, doc)
		assert.Equal(t, []string{
			"DROP INDEX `idx1` ON `t`;",
			"CREATE INDEX `idx1` ON `t` (`a`, `b`);",
		}, m.SQLStatements())
	})

	t.Run("matching index untouched", func(t *testing.T) {
		tbl.AddIndex(&core.ObservedIndex{Name: "idx1", Columns: []string{"a", "b"}})
		assert.True(t, reconcileMySQL(t, snap, doc).IsEmpty())
	})
}

const ordersDoc = `{
	"name": "shop", "namespace": "n",
	"tables": [
		{
			"name": "customers",
			"columns": [{"name": "id", "type": "int", "autoIncrement": true, "primaryKey": true}]
		},
		{
			"name": "orders",
			"columns": [
				{"name": "id", "type": "int", "autoIncrement": true, "primaryKey": true},
				{"name": "customer", "type": "object", "objectType": "customers", "required": true},
				{"name": "gifts", "type": "objectSet", "objectType": "customers"}
			]
		}
	]
}`

func observedOrders() (*provider.Snapshot, *core.ObservedTable) {
	snap := provider.NewSnapshot("")
	customers := snap.AddTable("customers")
	customers.AddColumn(&core.ObservedColumn{Name: "id", DataType: "int", Required: true, AutoIncrement: true, PrimaryKey: true})
	orders := snap.AddTable("orders")
	orders.AddColumn(&core.ObservedColumn{Name: "id", DataType: "int", Required: true, AutoIncrement: true, PrimaryKey: true})
	return snap, orders
}

func TestRelationStorage(t *testing.T) {
	snap, orders := observedOrders()

	m := reconcileMySQL(t, snap, ordersDoc)
	assert.Equal(t, []string{
		"ALTER TABLE `orders` ADD COLUMN `customer_id` int NOT NULL;",
		"CREATE TABLE `orders_gifts_customers` (`_parent_orders_id` int NOT NULL, `_child_customers_id` int NOT NULL) ENGINE=InnoDB;",
		"CREATE INDEX `idx_orders_gifts_customers_parent` ON `orders_gifts_customers` (`_parent_orders_id`);",
		"CREATE INDEX `idx_orders_gifts_customers_child` ON `orders_gifts_customers` (`_child_customers_id`);",
		"CREATE INDEX `idx_orders_customer` ON `orders` (`customer_id`);",
	}, m.SQLStatements())

	t.Run("child columns compared by type and nullability only", func(t *testing.T) {
		orders.AddColumn(&core.ObservedColumn{Name: "customer_id", DataType: "int", Required: true, DefaultValue: strPtr("5")})
		orders.AddIndex(&core.ObservedIndex{Name: "idx_orders_customer", Columns: []string{"customer_id"}})
		link := snap.AddTable("orders_gifts_customers")
		link.AddColumn(&core.ObservedColumn{Name: "_parent_orders_id", DataType: "int", Required: true})
		link.AddColumn(&core.ObservedColumn{Name: "_child_customers_id", DataType: "int"})
		link.AddIndex(&core.ObservedIndex{Name: "idx_orders_gifts_customers_parent", Columns: []string{"_parent_orders_id"}})
		link.AddIndex(&core.ObservedIndex{Name: "idx_orders_gifts_customers_child", Columns: []string{"_child_customers_id"}})

		m := reconcileMySQL(t, snap, ordersDoc)
		assert.Equal(t, []string{
			"ALTER TABLE `orders_gifts_customers` MODIFY COLUMN `_child_customers_id` int NOT NULL;",
		}, m.SQLStatements())
	})

	t.Run("nullability change of a child column", func(t *testing.T) {
		orders.AddColumn(&core.ObservedColumn{Name: "customer_id", DataType: "int"})
		snap.Table("orders_gifts_customers").AddColumn(&core.ObservedColumn{Name: "_child_customers_id", DataType: "int", Required: true})

		m := reconcileMySQL(t, snap, ordersDoc)
		assert.Equal(t, []string{
			"ALTER TABLE `orders` MODIFY COLUMN `customer_id` int NOT NULL;",
		}, m.SQLStatements())
	})
}

func TestPrefixes(t *testing.T) {
	doc := `{
		"name": "s", "namespace": "n", "tablePrefix": "shop_",
		"tables": [{"name": "items", "columns": [{"name": "sku", "type": "varchar", "size": 12, "primaryKey": true}]}]
	}`
	m := reconcileMySQL(t, provider.NewSnapshot("app_"), doc)
	assert.Equal(t, []string{
		"CREATE TABLE `app_shop_items` (`sku` varchar(12) NOT NULL, PRIMARY KEY (`sku`)) ENGINE=InnoDB;",
	}, m.SQLStatements())
	assert.Equal(t, "shop_items", m.Plan()[0].Table)
}

func TestSkipSchemaSync(t *testing.T) {
	doc := `{
		"name": "s", "namespace": "n",
		"tables": [
			{"name": "legacy", "skipSql": true, "columns": [{"name": "id", "type": "int", "primaryKey": true}]},
			{"name": "fresh", "columns": [{"name": "id", "type": "int", "primaryKey": true}]}
		]
	}`
	m := reconcileMySQL(t, provider.NewSnapshot(""), doc)

	stmts := m.SQLStatements()
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "`fresh`")
	assert.Equal(t, []string{"table legacy is excluded from schema sync"}, m.InfoNotes())
}

func TestUnresolvedSchema(t *testing.T) {
	s, err := parser.Parse(strings.NewReader(tableT), parser.FormatJSON, "t.json")
	require.NoError(t, err)

	_, err = New(mysql.New(provider.NewSnapshot("")), "default", nil).Reconcile(s)
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestPrimaryKeyCannotBeAdded(t *testing.T) {
	snap := provider.NewSnapshot("")
	snap.AddTable("T").AddColumn(&core.ObservedColumn{Name: "name", DataType: "varchar", Size: 50, Required: true})

	_, err := New(mysql.New(snap), "default", nil).Reconcile(compile(t, tableT))
	var ce *core.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "test.json", ce.Source)
	assert.Equal(t, "schema.tables[0].columns[0]", ce.Path)
	assert.False(t, core.IsRetryable(err))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "current", Current.String())
	assert.Equal(t, "stale", Stale.String())
}

func strPtr(s string) *string { return &s }

// SQLite end to end: plan, execute, reload, plan again.

const blogV1 = `{
	"name": "blog", "namespace": "app.blog", "tablePrefix": "blog_",
	"tables": [
		{
			"name": "authors",
			"columns": [
				{"name": "id", "type": "int", "autoIncrement": true, "primaryKey": true},
				{"name": "name", "type": "nvarchar", "size": 40, "required": true},
				{"name": "active", "type": "boolean", "defaultValue": true},
				{"name": "rank", "type": "enum", "valueSet": "junior,senior", "defaultValue": "junior"}
			]
		},
		{
			"name": "posts",
			"columns": [
				{"name": "id", "type": "bigint", "autoIncrement": true, "primaryKey": true},
				{"name": "title", "type": "varchar", "size": 100, "required": true},
				{"name": "score", "type": "decimal", "size": 6, "scale": 2, "defaultValue": 0},
				{"name": "published", "type": "datetime", "defaultValue": "2024-01-01 00:00:00"},
				{"name": "author", "type": "object", "objectType": "authors", "required": true},
				{"name": "tags", "type": "objectSet", "objectType": "tags"}
			],
			"indexes": [{"name": "idx_posts_title", "columns": ["title", "author"]}]
		},
		{
			"name": "tags",
			"columns": [
				{"name": "id", "type": "int", "autoIncrement": true, "primaryKey": true},
				{"name": "label", "type": "varchar", "size": 20, "required": true}
			],
			"indexes": [{"name": "idx_tags_label", "columns": ["label"], "unique": true}]
		}
	]
}`

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func planSQLite(t *testing.T, db *sql.DB, doc string) *migration.Migration {
	t.Helper()
	p, err := sqlite.Load(context.Background(), db, "")
	require.NoError(t, err)
	m, err := New(p, "default", nil).Reconcile(compile(t, doc))
	require.NoError(t, err)
	assertAdditive(t, m)
	return m
}

func execAll(t *testing.T, db *sql.DB, m *migration.Migration) {
	t.Helper()
	for _, stmt := range m.SQLStatements() {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func TestSQLiteEndToEnd(t *testing.T) {
	db := openSQLite(t)

	first := planSQLite(t, db, blogV1)
	var tables []string
	for _, op := range first.Plan() {
		tables = append(tables, string(op.Action)+" "+op.Table+" "+op.Object)
	}
	assert.Equal(t, []string{
		"create_table blog_authors ",
		"create_table blog_posts ",
		"create_table blog_posts_tags_tags ",
		"create_index blog_posts_tags_tags idx_blog_posts_tags_tags_parent",
		"create_index blog_posts_tags_tags idx_blog_posts_tags_tags_child",
		"create_index blog_posts idx_posts_title",
		"create_index blog_posts idx_blog_posts_author",
		"create_table blog_tags ",
		"create_index blog_tags idx_tags_label",
	}, tables)
	execAll(t, db, first)

	assert.True(t, planSQLite(t, db, blogV1).IsEmpty(), "second run must be empty")

	t.Run("additions and index replacement", func(t *testing.T) {
		v2 := strings.Replace(blogV1,
			`{"name": "active", "type": "boolean", "defaultValue": true},`,
			`{"name": "active", "type": "boolean", "defaultValue": true}, {"name": "bio", "type": "ntext"},`, 1)
		v2 = strings.Replace(v2, `"columns": ["label"], "unique": true`, `"columns": ["label", "id"], "unique": true`, 1)

		m := planSQLite(t, db, v2)
		assert.Equal(t, []string{
			`ALTER TABLE "blog_authors" ADD COLUMN "bio" text;`,
			`DROP INDEX "idx_tags_label";`,
			`CREATE UNIQUE INDEX "idx_tags_label" ON "blog_tags" ("label", "id");`,
		}, m.SQLStatements())
		execAll(t, db, m)

		assert.True(t, planSQLite(t, db, v2).IsEmpty())
	})

	t.Run("unsupported alter aborts the plan", func(t *testing.T) {
		v3 := strings.Replace(blogV1, `"size": 100`, `"size": 200`, 1)
		p, err := sqlite.Load(context.Background(), db, "")
		require.NoError(t, err)

		_, err = New(p, "default", nil).Reconcile(compile(t, v3))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUnsupported))
		assert.False(t, core.IsRetryable(err))
		var ce *core.ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "test.json", ce.Source)
	})
}

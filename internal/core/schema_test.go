package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input string
		want  Dialect
		ok    bool
	}{
		{"mysql", DialectMySQL, true},
		{"MariaDB", DialectMySQL, true},
		{"pgsql", DialectPostgreSQL, true},
		{" postgres ", DialectPostgreSQL, true},
		{"sqlite3", DialectSQLite, true},
		{"oracle", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDialect(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Len(t, SupportedDialects(), 3)
}

func TestSchemaDefinitionEntities(t *testing.T) {
	s := NewSchemaDefinition("shop", "app.shop")
	users := NewEntityDefinition("users")
	orders := NewEntityDefinition("orders")
	require.NoError(t, s.AddEntity(users))
	require.NoError(t, s.AddEntity(orders))

	t.Run("declaration order kept", func(t *testing.T) {
		assert.Equal(t, []*EntityDefinition{users, orders}, s.Entities)
	})

	t.Run("lookup case insensitive", func(t *testing.T) {
		assert.Same(t, users, s.Entity("USERS"))
		assert.Nil(t, s.Entity("missing"))
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		err := s.AddEntity(NewEntityDefinition("Users"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate table name")
	})

	t.Run("resolved schema is frozen", func(t *testing.T) {
		s.MarkResolved()
		assert.True(t, s.IsResolved())
		assert.Error(t, s.AddEntity(NewEntityDefinition("late")))
	})
}

func TestEntityColumnsAndPrimaryKey(t *testing.T) {
	e := NewEntityDefinition("order_items")
	assert.Equal(t, "OrderItems", e.CodeName)

	id := &ColumnDefinition{Name: "id", Type: Integer{AutoIncrement: true}, PrimaryKey: true}
	name := &ColumnDefinition{Name: "name", Type: Varchar{Size: 50}, Required: true}
	require.NoError(t, e.AddColumn(id))
	require.NoError(t, e.AddColumn(name))

	assert.Error(t, e.AddColumn(&ColumnDefinition{Name: "ID", Type: Integer{}}))
	assert.Equal(t, []string{"id"}, e.PrimaryKeyNames())
	assert.Same(t, e, id.Entity)
	assert.Same(t, name, e.Column("Name"))
	assert.True(t, id.IsRequired())
	assert.True(t, id.AutoIncrement())
	assert.False(t, name.AutoIncrement())

	require.NoError(t, e.AddIndex(&IndexDefinition{Name: "idx_name", Columns: []string{"name"}}))
	assert.Error(t, e.AddIndex(&IndexDefinition{Name: "IDX_NAME", Columns: []string{"name"}}))
	assert.NotNil(t, e.Index("idx_name"))
}

func TestEntityPrepareRunsOnce(t *testing.T) {
	s := NewSchemaDefinition("shop", "app")
	s.TablePrefix = "app_"
	e := NewEntityDefinition("users")
	require.NoError(t, s.AddEntity(e))

	calls := 0
	fn := func(*EntityDefinition) error {
		calls++
		return nil
	}
	require.NoError(t, e.Prepare(fn))
	require.NoError(t, e.Prepare(fn))

	assert.Equal(t, 1, calls)
	assert.True(t, e.IsPrepared())
	assert.Equal(t, "app_users", e.FullName)
	assert.Error(t, e.AddColumn(&ColumnDefinition{Name: "late", Type: Boolean{}}))
}

func TestEntityPrepareFailureLeavesUnprepared(t *testing.T) {
	e := NewEntityDefinition("users")
	boom := errors.New("boom")
	assert.ErrorIs(t, e.Prepare(func(*EntityDefinition) error { return boom }), boom)
	assert.False(t, e.IsPrepared())
}

func TestStorageColumns(t *testing.T) {
	e := NewEntityDefinition("posts")
	id := &ColumnDefinition{Name: "id", Type: Integer{}, PrimaryKey: true}
	author := &ColumnDefinition{Name: "author", Type: Object{Target: "users"}}
	tags := &ColumnDefinition{Name: "tags", Type: ObjectSet{Target: "tags"}}
	title := &ColumnDefinition{Name: "title", Type: Varchar{Size: 100}}
	for _, c := range []*ColumnDefinition{id, author, tags, title} {
		require.NoError(t, e.AddColumn(c))
	}
	child := &ColumnDefinition{Name: "author_id", Type: Integer{}}
	author.ChildColumns = []*ColumnDefinition{child}

	assert.Equal(t, []*ColumnDefinition{id, child, title}, e.StorageColumns())
	assert.Equal(t, "users", author.TargetName())
	assert.True(t, tags.IsRelation())
	assert.Equal(t, "", title.TargetName())
}

func TestColumnTypes(t *testing.T) {
	tests := []struct {
		typ      ColumnType
		want     DataType
		pkAllows bool
	}{
		{Varchar{Size: 10}, DataTypeVarchar, true},
		{Varchar{Unicode: true, Size: 10}, DataTypeNVarchar, true},
		{Text{}, DataTypeText, false},
		{Text{Unicode: true}, DataTypeNText, false},
		{Text{Binary: true}, DataTypeBlob, false},
		{Integer{}, DataTypeInt, true},
		{Integer{Big: true}, DataTypeBigInt, true},
		{Decimal{Size: 10, Scale: 2}, DataTypeDecimal, false},
		{Decimal{Kind: DataTypeDouble, Size: 10}, DataTypeDouble, false},
		{DateTime{}, DataTypeDateTime, false},
		{Enum{Values: []string{"a"}}, DataTypeEnum, false},
		{Boolean{}, DataTypeBoolean, false},
		{Object{Target: "x"}, DataTypeObject, false},
		{ObjectSet{Target: "x"}, DataTypeObjectSet, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.DataType())
			assert.Equal(t, tt.pkAllows, PrimaryKeyEligible(tt.typ))
		})
	}
}

func TestParseDataType(t *testing.T) {
	dt, ok := ParseDataType("ObjectSet")
	assert.True(t, ok)
	assert.Equal(t, DataTypeObjectSet, dt)

	_, ok = ParseDataType("uuid")
	assert.False(t, ok)
}

func TestStorageTypeDropsAutoIncrement(t *testing.T) {
	assert.Equal(t, Integer{Big: true}, StorageType(Integer{Big: true, AutoIncrement: true}))
	assert.Equal(t, Varchar{Size: 5}, StorageType(Varchar{Size: 5}))
	assert.Equal(t, 7, EnumMaxLength(Enum{Values: []string{"a", "pending"}}))
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("user_2"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("user-name"))
	assert.False(t, ValidIdentifier("app.users"))
	assert.True(t, ValidIdentifier("app.users", '.'))
}

func TestShortenIdentifier(t *testing.T) {
	assert.Equal(t, "short", ShortenIdentifier("short", 63))

	long := strings.Repeat("a", 80)
	got := ShortenIdentifier(long, 63)
	assert.Len(t, got, 63)
	assert.NotEqual(t, got, ShortenIdentifier(long+"b", 63))
	assert.Equal(t, got, ShortenIdentifier(long, 63))
}

func TestCamelCase(t *testing.T) {
	assert.Equal(t, "OrderItem", CamelCase("order_item"))
	assert.Equal(t, "AppUsers", CamelCase("app.users"))
	assert.Equal(t, "Id", CamelCase("id"))
}

func TestErrors(t *testing.T) {
	t.Run("config error renders path and source", func(t *testing.T) {
		err := &ConfigError{Source: "users.json", Path: "schema.tables[2].columns[5].size", Message: "must be a positive integer"}
		assert.Equal(t, "invalid value for schema.tables[2].columns[5].size in users.json: must be a positive integer", err.Error())
	})

	t.Run("config error unwraps", func(t *testing.T) {
		cause := errors.New("unexpected EOF")
		err := fmt.Errorf("compile: %w", &ConfigError{Source: "a.json", Err: cause})
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "compile: invalid schema a.json: unexpected EOF", err.Error())
	})

	t.Run("only provider errors are retryable", func(t *testing.T) {
		assert.True(t, IsRetryable(fmt.Errorf("run: %w", &ProviderError{Dialect: DialectMySQL, Op: "query", Err: errors.New("timeout")})))
		assert.False(t, IsRetryable(&ConfigError{Message: "x"}))
		assert.False(t, IsRetryable(&AssertionError{Path: "schema.name", Message: "x"}))
		assert.False(t, IsRetryable(nil))
		assert.False(t, IsRetryable(errors.Join(
			&ProviderError{Dialect: DialectSQLite, Op: "execute", Err: errors.New("locked")},
			&ConfigError{Path: "schema.tables[0]", Err: errors.ErrUnsupported},
		)))
	})

	t.Run("with source fills empty source", func(t *testing.T) {
		err := WithSource(&AssertionError{Path: "schema.tables[0]", Message: "bad"}, "s.json")
		assert.Equal(t, "assertion failed for schema.tables[0] in s.json: bad", err.Error())
	})
}

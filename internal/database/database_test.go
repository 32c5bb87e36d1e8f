package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/query"
)

func openTestSQLite(t *testing.T) *SQLiteAdapter {
	t.Helper()
	ctx := context.Background()

	adapter, err := OpenSQLite(ctx, core.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { adapter.Close() })

	ddl := []string{
		`CREATE TABLE shop_users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(64) DEFAULT 'anon',
			email TEXT NOT NULL,
			score REAL DEFAULT 0,
			born DATE
		)`,
		`CREATE UNIQUE INDEX users_email ON shop_users (email)`,
		`CREATE INDEX users_name_score ON shop_users (name, score)`,
		`CREATE VIEW shop_user_names AS SELECT id, name FROM shop_users`,
	}
	for _, stmt := range ddl {
		if _, err := adapter.Execute(ctx, query.Raw(stmt)); err != nil {
			t.Fatalf("Execute(%q) error = %v", stmt, err)
		}
	}
	return adapter
}

func TestSQLiteGetSchema(t *testing.T) {
	adapter := openTestSQLite(t)

	schema, err := adapter.GetSchema(context.Background(), "shop_users")
	if err != nil {
		t.Fatalf("GetSchema() error = %v", err)
	}

	if schema.Info.Kind != core.KindBase || schema.Info.Name != "shop_users" {
		t.Errorf("Info = %+v", schema.Info)
	}

	wantOrder := []string{"id", "name", "email", "score", "born"}
	keys := schema.Columns.Keys()
	if len(keys) != len(wantOrder) {
		t.Fatalf("column keys = %v, want %v", keys, wantOrder)
	}
	for i := range wantOrder {
		if keys[i] != wantOrder[i] {
			t.Errorf("column %d = %s, want %s", i, keys[i], wantOrder[i])
		}
	}

	tests := []struct {
		column  string
		typ     string
		unique  bool
		autoinc bool
		def     interface{}
	}{
		{"id", "int", true, true, nil},
		{"name", "string", false, false, "anon"},
		{"email", "string", true, false, nil},
		{"score", "float", false, false, "0"},
		{"born", "date", false, false, nil},
	}
	for _, tt := range tests {
		col, ok := schema.Columns.Get(tt.column)
		if !ok {
			t.Errorf("column %s missing", tt.column)
			continue
		}
		if col.Type != tt.typ || col.Unique != tt.unique || col.AutoInc != tt.autoinc || col.Default != tt.def {
			t.Errorf("column %s = %+v", tt.column, col)
		}
	}

	members := schema.Indexes["users_name_score"]
	if len(members) != 2 || members[0].Column != "name" || members[1].Column != "score" || !members[0].NonUnique {
		t.Errorf("users_name_score members = %+v", members)
	}
	if m := schema.Indexes["users_email"]; len(m) != 1 || m[0].NonUnique {
		t.Errorf("users_email members = %+v", m)
	}
}

func TestSQLiteGetSchemaView(t *testing.T) {
	adapter := openTestSQLite(t)

	schema, err := adapter.GetSchema(context.Background(), "shop_user_names")
	if err != nil {
		t.Fatalf("GetSchema() error = %v", err)
	}
	if schema.Info.Kind != core.KindView {
		t.Errorf("Kind = %s, want VIEW", schema.Info.Kind)
	}
}

func TestSQLiteGetSchemaMissingTable(t *testing.T) {
	adapter := openTestSQLite(t)

	_, err := adapter.GetSchema(context.Background(), "nope")
	if !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("GetSchema() error = %v, want ErrTableNotFound", err)
	}
}

func TestSQLiteExecute(t *testing.T) {
	adapter := openTestSQLite(t)
	ctx := context.Background()

	res, err := adapter.Execute(ctx, adapter.GetQuery().Insert().Table("shop_users").
		Set("name", "A").Set("email", "a@x"))
	if err != nil {
		t.Fatalf("insert error = %v", err)
	}
	if res.InsertID != 1 || res.RowsAffected != 1 {
		t.Errorf("insert result = %+v", res)
	}

	res, err = adapter.Execute(ctx, adapter.GetQuery().Select("id", "name", "email").Table("shop_users"))
	if err != nil {
		t.Fatalf("select error = %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %v", res.Rows)
	}
	row := res.Rows[0]
	if row["id"] != int64(1) || row["name"] != "A" || row["email"] != "a@x" {
		t.Errorf("row = %v", row)
	}

	if err := adapter.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := adapter.Execute(ctx, query.Raw("SELECT 1")); err == nil {
		t.Error("Execute after Close should fail")
	}
}

func TestGetType(t *testing.T) {
	my := NewMySQLAdapter(nil, false)
	lite := NewSQLiteAdapter(nil, false)

	tests := []struct {
		adapter core.Adapter
		raw     string
		want    string
	}{
		{my, "INT(11)", "int"},
		{my, "int(10) unsigned", "int"},
		{my, "bigint(20) unsigned zerofill", "int"},
		{my, "VARCHAR(255)", "string"},
		{my, "text", "string"},
		{my, "tinyint(1)", "int"},
		{my, "datetime", "time"},
		{my, "date", "date"},
		{my, "decimal(10,2)", "float"},
		{my, "geometry", ""},
		{lite, "INTEGER", "int"},
		{lite, "VARCHAR(64)", "string"},
		{lite, "REAL", "float"},
		{lite, "BOOLEAN", "bool"},
		{lite, "BLOB", ""},
	}
	for _, tt := range tests {
		if got := tt.adapter.GetType(tt.raw); got != tt.want {
			t.Errorf("GetType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFactoryRegistry(t *testing.T) {
	types := RegisteredTypes()
	if len(types) < 2 || !IsTypeRegistered("mysql") || !IsTypeRegistered("sqlite") {
		t.Errorf("RegisteredTypes() = %v", types)
	}
	if !IsTypeRegistered("") {
		t.Error("empty type should resolve to the default adapter")
	}

	_, err := Open(context.Background(), core.DatabaseConfig{Type: "oracle"})
	if !errors.Is(err, core.ErrUnknownAdapter) {
		t.Errorf("Open(oracle) error = %v, want ErrUnknownAdapter", err)
	}

	_, err = Open(context.Background(), core.DatabaseConfig{Type: "mysql"})
	if err == nil {
		t.Error("Open(mysql) without host should fail validation")
	}
}

func TestMySQLConnectionError(t *testing.T) {
	// Nothing listens on port 1; the dial is refused immediately.
	_, err := OpenMySQL(context.Background(), core.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "root",
		Database: "test",
	})
	var connErr *core.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("OpenMySQL() error = %v, want *core.ConnectionError", err)
	}
	if connErr.Code != core.ConnectionErrorCode || connErr.Message == "" {
		t.Errorf("ConnectionError = %+v", connErr)
	}
}

func TestMySQLTableStatusMatchesExactName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "shop_users", want: `shop\_users`},
		{in: "100%", want: `100\%`},
		{in: `a\b`, want: `a\\b`},
		{in: "plain", want: "plain"},
	}
	for _, tt := range tests {
		if got := likeLiteral(tt.in); got != tt.want {
			t.Errorf("likeLiteral(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	rows := []core.Record{
		{"Name": "shopXusers", "Engine": "MyISAM"},
		{"Name": "shop_users", "Engine": "InnoDB"},
	}
	if got := statusFor(rows, "shop_users"); got == nil || got["Engine"] != "InnoDB" {
		t.Errorf("statusFor(shop_users) = %v", got)
	}
	if got := statusFor(rows, "shop_orders"); got != nil {
		t.Errorf("statusFor(shop_orders) = %v, want nil", got)
	}
}

func TestSQLiteGetSchemaAutoincStart(t *testing.T) {
	adapter := openTestSQLite(t)
	ctx := context.Background()

	schema, err := adapter.GetSchema(ctx, "shop_users")
	if err != nil {
		t.Fatalf("GetSchema() error = %v", err)
	}
	if schema.Info.AutoincStart != 0 {
		t.Errorf("AutoincStart before inserts = %d, want 0", schema.Info.AutoincStart)
	}

	if _, err := adapter.Execute(ctx, query.Raw(`INSERT INTO shop_users (email) VALUES ('a@x'), ('b@x')`)); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	for i := 0; i < 2; i++ {
		schema, err = adapter.GetSchema(ctx, "shop_users")
		if err != nil {
			t.Fatalf("GetSchema() error = %v", err)
		}
		if schema.Info.AutoincStart != 3 {
			t.Errorf("AutoincStart = %d, want 3", schema.Info.AutoincStart)
		}
	}

	// Views have no sequence row.
	view, err := adapter.GetSchema(ctx, "shop_user_names")
	if err != nil {
		t.Fatalf("GetSchema(view) error = %v", err)
	}
	if view.Info.AutoincStart != 0 || view.Info.Kind != core.KindView {
		t.Errorf("view Info = %+v", view.Info)
	}
}

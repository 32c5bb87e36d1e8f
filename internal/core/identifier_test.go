package core

import (
	"reflect"
	"testing"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		want    Identifier
		wantErr bool
	}{
		{in: "shop.user", want: Identifier{Component: "shop", Path: []string{"database", "table"}, Name: "user"}},
		{in: "shop:database.adapter.mysql", want: Identifier{Component: "shop", Path: []string{"database", "adapter"}, Name: "mysql"}},
		{in: "users", wantErr: true},
		{in: ".user", wantErr: true},
		{in: "shop:user", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIdentifier(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseIdentifier(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIdentifier(%q) error = %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseIdentifier(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIdentifierCopies(t *testing.T) {
	id, err := ParseIdentifier("shop.user")
	if err != nil {
		t.Fatal(err)
	}

	clone := id.Clone()
	clone.Path[0] = "cache"
	if id.Path[0] != "database" {
		t.Errorf("Clone shares its path: %v", id.Path)
	}

	adapter := id.SetPath("database", "adapter").SetName("sqlite")
	if adapter.String() != "shop:database.adapter.sqlite" {
		t.Errorf("adapter id = %q", adapter.String())
	}
	if id.String() != "shop:database.table.user" || id.Key() != "shop.user" {
		t.Errorf("original changed: %q", id.String())
	}
}

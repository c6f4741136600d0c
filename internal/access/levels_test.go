package access

import (
	"errors"
	"testing"
)

func TestParseLevelByName(t *testing.T) {
	cases := []struct {
		name string
		want Level
	}{
		{"public", Public},
		{"community", Community},
		{"member", Member},
		{"admin", Admin},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.name)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLevel(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestParseLevelByRank(t *testing.T) {
	got, err := ParseLevel("20")
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	if got != Member {
		t.Fatalf("ParseLevel(\"20\") = %d, want %d", got, Member)
	}
}

func TestParseLevelUnknownName(t *testing.T) {
	_, err := ParseLevel("galactic-admin")
	if err == nil {
		t.Fatal("expected error for unknown level name")
	}
	var unknown *ErrUnknownLevel
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownLevel, got %T", err)
	}
	if unknown.Name != "galactic-admin" {
		t.Fatalf("unexpected level name in error: %q", unknown.Name)
	}
}

func TestLevelOrdering(t *testing.T) {
	levels := Levels()
	for i := 1; i < len(levels); i++ {
		if levels[i-1] >= levels[i] {
			t.Fatalf("levels not strictly ascending: %v", levels)
		}
	}
}

func TestLevelString(t *testing.T) {
	if Admin.String() != "admin" {
		t.Fatalf("Admin.String() = %q", Admin.String())
	}
	if Level(15).String() != "15" {
		t.Fatalf("Level(15).String() = %q", Level(15).String())
	}
}

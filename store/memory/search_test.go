package memory

import (
	"errors"
	"testing"

	"github.com/dmehra/relaybox/store"
)

func TestParseQuery(t *testing.T) {
	valid := []string{
		"hello",
		"hello & world",
		"hello | world",
		"a & b | c",
		`"hello world"`,
		`"exact phrase" & extra`,
	}
	for _, q := range valid {
		if _, err := parseQuery(q); err != nil {
			t.Errorf("parseQuery(%q) should succeed, got %v", q, err)
		}
	}

	invalid := []string{
		"",
		"hello world", // adjacent terms need an explicit operator
		"hello &",
		"& hello",
		"a & & b",
		"!hello",
		"(a | b)",
		`"unterminated`,
	}
	for _, q := range invalid {
		if _, err := parseQuery(q); !errors.Is(err, store.ErrQuerySyntax) {
			t.Errorf("parseQuery(%q) should return ErrQuerySyntax, got %v", q, err)
		}
	}
}

func TestParseQueryGroups(t *testing.T) {
	groups, err := parseQuery("a & b | c")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 or-groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0] != "a" || groups[0][1] != "b" {
		t.Errorf("first group mismatch: %v", groups[0])
	}
	if len(groups[1]) != 1 || groups[1][0] != "c" {
		t.Errorf("second group mismatch: %v", groups[1])
	}
}

package storage

import (
	"database/sql"
	"regexp"
	"testing"

	"github.com/lib/pq"

	"privatize-quote/internal/quote"
)

func TestBuildOptionTree(t *testing.T) {
	rows := []optionRow{
		{ID: 201, ProductID: 20, Name: "Sauce Béarnaise", Price: quote.Cents(80)},
		{ID: 202, ProductID: 20, Name: "Sauce du chef", Price: quote.Units(1), Aliases: pq.StringArray{"sauce speciale"}},
		{ID: 2011, ProductID: 20, ParentID: sql.NullInt64{Int64: 201, Valid: true}, Name: "Extra portion", Price: quote.Cents(50)},
		{ID: 9999, ProductID: 20, ParentID: sql.NullInt64{Int64: 777, Valid: true}, Name: "Lost"},
	}

	tree, orphans := buildOptionTree(rows)

	if len(tree) != 2 {
		t.Fatalf("len(tree) = %d, want 2", len(tree))
	}
	if tree[0].ID != 201 || len(tree[0].SubOptions) != 1 || tree[0].SubOptions[0].ID != 2011 {
		t.Errorf("béarnaise = %+v, want one suboption 2011", tree[0])
	}
	if len(tree[1].SubOptions) != 0 || len(tree[1].Aliases) != 1 || tree[1].Aliases[0] != "sauce speciale" {
		t.Errorf("chef sauce = %+v", tree[1])
	}
	if len(orphans) != 1 || orphans[0].ID != 9999 {
		t.Errorf("orphans = %+v, want 9999", orphans)
	}
}

func TestNewReference(t *testing.T) {
	pattern := regexp.MustCompile(`^Q-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref := NewReference()
		if !pattern.MatchString(ref) {
			t.Fatalf("NewReference() = %q, want Q- and 8 hex digits", ref)
		}
		seen[ref] = true
	}
	if len(seen) < 49 {
		t.Errorf("references are not random enough: %d distinct of 50", len(seen))
	}
}

func TestValidStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusSubmitted, true},
		{StatusContacted, true},
		{StatusConfirmed, true},
		{StatusDeclined, true},
		{"", false},
		{"paid", false},
	}
	for _, tt := range tests {
		if got := ValidStatus(tt.status); got != tt.want {
			t.Errorf("ValidStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

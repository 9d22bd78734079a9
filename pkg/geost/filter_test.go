package geost

import (
	"testing"
	"time"
)

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"include", "INCLUDE", "INCLUDE"},
		{"exclude", "EXCLUDE", "EXCLUDE"},
		{"equals", "name = 'bob'", "name = 'bob'"},
		{"not equals", "name != 'bob'", "NOT name = 'bob'"},
		{"less than", "age < '30'", "age IN (*,'30')"},
		{"at most", "age <= '30'", "age IN (*,'30']"},
		{"greater than", "age > '30'", "age IN ('30',*)"},
		{"at least", "age >= '30'", "age IN ['30',*)"},
		{"bbox", "BBOX(-10, -5, 10, 5)", "BBOX(-10,-5,10,5)"},
		{"during", "DURING('2024-01-01T00:00:00Z', '2024-02-01T00:00:00Z')", "DURING(2024-01-01T00:00:00Z,2024-02-01T00:00:00Z)"},
		{"during open end", "DURING('2024-01-01T00:00:00Z', *)", "DURING(2024-01-01T00:00:00Z,*)"},
		{"ids", "IN('b', 'a')", "IN('a','b')"},
		{"and", "name = 'bob' AND kind = 'ship'", "(name = 'bob' AND kind = 'ship')"},
		{"or", "name = 'bob' OR name = 'eve'", "(name = 'bob' OR name = 'eve')"},
		{"not", "NOT name = 'bob'", "NOT name = 'bob'"},
		{"parens", "(name = 'bob' OR name = 'eve') AND kind = 'ship'", "((name = 'bob' OR name = 'eve') AND kind = 'ship')"},
		{"precedence", "a = '1' OR b = '2' AND c = '3'", "(a = '1' OR (b = '2' AND c = '3'))"},
		{"case insensitive keywords", "include and exclude", "(INCLUDE AND EXCLUDE)"},
		{"spatiotemporal", "BBOX(0,0,1,1) AND DURING('2024-01-01T00:00:00Z','2024-01-08T00:00:00Z')", "(BBOX(0,0,1,1) AND DURING(2024-01-01T00:00:00Z,2024-01-08T00:00:00Z))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := ParsePredicate(tt.input)
			if err != nil {
				t.Fatalf("ParsePredicate(%q): %v", tt.input, err)
			}
			if got := pred.String(); got != tt.want {
				t.Errorf("parsed %q as %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePredicateEmpty(t *testing.T) {
	pred, err := ParsePredicate("   ")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if pred != nil {
		t.Errorf("blank input parsed as %s, want nil", pred)
	}
}

func TestParsePredicateErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", "name = 'bob"},
		{"missing operator", "name 'bob'"},
		{"missing value", "name ="},
		{"unbalanced paren", "(name = 'bob'"},
		{"bbox arity", "BBOX(1, 2, 3)"},
		{"bbox non numeric", "BBOX(a, b, c, d)"},
		{"during bad time", "DURING('yesterday', '*')"},
		{"empty in", "IN()"},
		{"trailing garbage", "INCLUDE INCLUDE"},
		{"bare operator", "= 'x'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePredicate(tt.input); err == nil {
				t.Errorf("ParsePredicate(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestParsePredicateDuringValues(t *testing.T) {
	pred, err := ParsePredicate("DURING('2024-06-01T12:30:00Z', *)")
	if err != nil {
		t.Fatal(err)
	}
	d, ok := pred.(During)
	if !ok {
		t.Fatalf("parsed %T, want During", pred)
	}
	want := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	if !d.Start.Equal(want) {
		t.Errorf("Start = %s, want %s", d.Start, want)
	}
	if !d.End.IsZero() {
		t.Errorf("End = %s, want zero", d.End)
	}
}

func TestParseRoundTrip(t *testing.T) {
	// canonical forms re-parse to themselves
	inputs := []string{
		"name = 'bob'",
		"(name = 'bob' AND kind = 'ship')",
		"BBOX(-10,-5,10,5)",
		"IN('a','b')",
		"NOT name = 'bob'",
	}

	for _, in := range inputs {
		pred, err := ParsePredicate(in)
		if err != nil {
			t.Fatalf("ParsePredicate(%q): %v", in, err)
		}
		again, err := ParsePredicate(pred.String())
		if err != nil {
			t.Fatalf("reparse of %q: %v", pred.String(), err)
		}
		if again.String() != pred.String() {
			t.Errorf("round trip drifted: %q -> %q", pred.String(), again.String())
		}
	}
}

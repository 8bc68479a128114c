package kyanite

import (
	"strings"
	"testing"

	"kr.dev/diff"
)

func TestSplitterWhitespace(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a b c", []string{"a", "b", "c"}},
		{"  a  b  ", []string{"a", "b"}},
		{"a\tb", []string{"a", "b"}},
		{"a \t b", []string{"a", "b"}},
		{"", nil},
		{"   ", nil},
		{"single", []string{"single"}},
	}

	for _, tt := range tests {
		got := Splitter{}.Split(tt.input)
		if len(got) == 0 {
			got = nil
		}
		diff.Test(t, t.Errorf, got, tt.want)
	}
}

func TestSplitterExact(t *testing.T) {
	tests := []struct {
		sep   string
		input string
		want  []string
	}{
		{",", "a,b,c", []string{"a", "b", "c"}},
		{",", "a,,c", []string{"a", "", "c"}},
		{",", ",a,", []string{"", "a", ""}},
		{",", "", []string{""}},
		{"::", "a::b", []string{"a", "b"}},
		{" ", "a  b", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		got := Splitter{Sep: tt.sep}.Split(tt.input)
		diff.Test(t, t.Errorf, got, tt.want)
	}
}

// With an explicit separator, splitting and rejoining is lossless, and
// a prefix/suffix cut at any point reconstructs the record.
func TestSplitJoinRoundTrip(t *testing.T) {
	split := Splitter{Sep: ":"}
	records := []string{"a:b:c:d", "x", "::", "a::b"}

	for _, r := range records {
		fields := split.Split(r)
		if got := split.Join(fields); got != r {
			t.Errorf("Join(Split(%q)) = %q", r, got)
		}
		for n := 1; n < len(fields); n++ {
			head := split.Join(fields[:n])
			tail := split.Join(fields[n:])
			if got := head + ":" + tail; got != r {
				t.Errorf("FieldTo(%d) + FieldFrom(%d) over %q = %q", n, n+1, r, got)
			}
		}
	}
}

// FieldFrom(1) over a whitespace-split record is the record with its
// interior separators normalized to single spaces.
func TestWhitespaceNormalization(t *testing.T) {
	tmpl, err := Compile("{1+}", "{}")
	if err != nil {
		t.Fatal(err)
	}
	got := tmpl.Expand("  a \t b   c ", Splitter{})
	diff.Test(t, t.Errorf, got, []string{"a b c"})
}

// Field(i) over join(S, f1..fn) recovers fi.
func TestFieldSelectionLaw(t *testing.T) {
	fields := []string{"one", "two", "", "four"}
	record := strings.Join(fields, "|")
	split := Splitter{Sep: "|"}

	for i, want := range fields {
		got := split.Split(record)
		if got[i] != want {
			t.Errorf("field %d of %q = %q, want %q", i+1, record, got[i], want)
		}
	}
}

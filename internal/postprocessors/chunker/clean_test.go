package chunker

import (
	"strings"
	"testing"
)

var allClean = cleanOptions{whitespace: true, emptyLines: true, headerFooter: true}

func TestClean_Whitespace(t *testing.T) {
	got := clean("  lots   of \t space  \nnext\tline ", cleanOptions{whitespace: true})
	want := "lots of space\nnext line"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClean_EmptyLines(t *testing.T) {
	got := clean("a\n\n   \nb\n", cleanOptions{emptyLines: true})
	if got != "a\nb" {
		t.Errorf("got %q", got)
	}
}

func TestClean_HeaderFooter(t *testing.T) {
	pages := []string{
		"ACME Manual\nPage one body.\nConfidential",
		"ACME Manual\nPage two body.\nConfidential",
		"ACME Manual\nPage three body.\nConfidential",
		"Intro\nPage four body.\nEnd",
	}
	got := clean(strings.Join(pages, "\f"), allClean)

	if strings.Contains(got, "ACME Manual") || strings.Contains(got, "Confidential") {
		t.Errorf("repeated header/footer not removed: %q", got)
	}
	for _, keep := range []string{"Page one body.", "Page four body.", "Intro", "End"} {
		if !strings.Contains(got, keep) {
			t.Errorf("expected %q to be kept in %q", keep, got)
		}
	}
}

func TestClean_HeaderFooterNeedsMajority(t *testing.T) {
	pages := []string{
		"Header\nbody one",
		"Header\nbody two",
		"Other\nbody three",
		"Another\nbody four",
	}
	got := clean(strings.Join(pages, "\f"), allClean)

	if !strings.Contains(got, "Header") {
		t.Errorf("line on exactly half of the pages must be kept: %q", got)
	}
}

func TestClean_SinglePageKeepsHeader(t *testing.T) {
	got := clean("Title\nbody\nFooter", allClean)
	if got != "Title\nbody\nFooter" {
		t.Errorf("got %q", got)
	}
}

func TestClean_Idempotent(t *testing.T) {
	input := "  H  \nbody  one\n\n F \f H\nbody two\nF\f\n\nH\n body   three \nF"
	once := clean(input, allClean)
	twice := clean(once, allClean)
	if once != twice {
		t.Errorf("clean is not idempotent:\n once: %q\ntwice: %q", once, twice)
	}
}

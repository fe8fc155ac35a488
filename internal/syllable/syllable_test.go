package syllable_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/versecraft/internal/syllable"
	"github.com/MrWong99/versecraft/pkg/phonetic"
)

func TestCount_DictionaryWords(t *testing.T) {
	t.Parallel()

	c := syllable.New(phonetic.Builtin())

	cases := []struct {
		word string
		want int
	}{
		{"light", 1},
		{"hello", 2},
		{"today", 2},
		{"beautiful", 3},
		{"together", 3},
		{"Music!", 2}, // punctuation and case are normalized away
	}
	for _, tc := range cases {
		if got := c.Count(tc.word); got != tc.want {
			t.Errorf("Count(%q) = %d, want %d", tc.word, got, tc.want)
		}
	}
}

func TestCount_HeuristicFallback(t *testing.T) {
	t.Parallel()

	c := syllable.New(phonetic.Builtin())

	cases := []struct {
		word string
		want int
	}{
		{"lalala", 3},   // three vowel runs
		{"oooh", 1},     // one maximal run
		{"gonna", 2},
		{"xyzzt", 1},    // y counts as a vowel letter: one run, floor holds anyway
		{"pfft", 1},     // no vowels at all: floored at 1
	}
	for _, tc := range cases {
		if got := c.Count(tc.word); got != tc.want {
			t.Errorf("Count(%q) = %d, want %d", tc.word, got, tc.want)
		}
	}

	// Never zero, even for empty input.
	if got := c.Count(""); got < 1 {
		t.Errorf("Count(\"\") = %d, want >= 1", got)
	}
}

func TestCount_Memoized(t *testing.T) {
	t.Parallel()

	c := syllable.New(phonetic.Builtin())
	first := c.Count("remember")
	second := c.Count("REMEMBER")
	if first != second {
		t.Errorf("memoized counts differ: %d vs %d", first, second)
	}
}

func TestExtractWords_StripsChordsAndStoplist(t *testing.T) {
	t.Parallel()

	got := syllable.ExtractWords("Hello[C] world, Am I home[Am] G")
	// "[C]" and "[Am]" are annotations; bare "am" and "g" are chord names.
	want := []string{"hello", "world", "i", "home"}
	if !slices.Equal(got, want) {
		t.Errorf("ExtractWords = %v, want %v", got, want)
	}

	if got := syllable.ExtractWords(""); got != nil {
		t.Errorf("ExtractWords(\"\") = %v, want nil", got)
	}
}

func TestCountLine(t *testing.T) {
	t.Parallel()

	c := syllable.New(phonetic.Builtin())

	// hello(2) + world(1) + today(2) = 5; the [G] annotation adds nothing.
	if got := c.CountLine("Hello[G] world today."); got != 5 {
		t.Errorf("CountLine = %d, want 5", got)
	}
	if got := c.CountLine(""); got != 0 {
		t.Errorf("CountLine(\"\") = %d, want 0", got)
	}
}

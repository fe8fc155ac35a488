package rhyme_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/versecraft/internal/rhyme"
	"github.com/MrWong99/versecraft/pkg/lyrics"
	"github.com/MrWong99/versecraft/pkg/phonetic"
)

func mustParse(t *testing.T, dict string) *phonetic.Index {
	t.Helper()
	ix, err := phonetic.Parse(strings.NewReader(dict))
	if err != nil {
		t.Fatalf("parse dictionary: %v", err)
	}
	return ix
}

func TestRhymeKey_Dictionary(t *testing.T) {
	t.Parallel()

	c := rhyme.New(phonetic.Builtin())

	cases := []struct {
		word, want string
	}{
		{"light", "AY1 T"},
		{"night", "AY1 T"},
		{"Start!", "AA1 R T"},
		{"hello", "OW1"},
		{"", ""},
		{"123", ""},
	}
	for _, tc := range cases {
		if got := c.RhymeKey(tc.word); got != tc.want {
			t.Errorf("RhymeKey(%q) = %q, want %q", tc.word, got, tc.want)
		}
	}
}

func TestRhymeKey_SpellingFallback(t *testing.T) {
	t.Parallel()

	c := rhyme.New(phonetic.Builtin())

	cases := []struct {
		word, want string
	}{
		// Collect from the end until a vowel is seen and >= 3 chars gathered.
		{"blurg", "urg"},
		{"xyzzt", "yzzt"},
		{"shhh", "shhh"}, // no vowel: the whole word
		{"za", "za"},     // shorter than 3 chars total
	}
	for _, tc := range cases {
		if got := c.RhymeKey(tc.word); got != tc.want {
			t.Errorf("RhymeKey(%q) = %q, want %q", tc.word, got, tc.want)
		}
	}
}

func TestNearRhymeKey(t *testing.T) {
	t.Parallel()

	c := rhyme.New(phonetic.Builtin())

	cases := []struct {
		word, want string
	}{
		{"stone", "OW"},  // dictionary: final vowel, stress stripped
		{"home", "OW"},
		{"light", "AY"},
		{"blurg", "u"},   // fallback: last vowel letter
		{"shhh", ""},     // no vowel anywhere
		{"", ""},
	}
	for _, tc := range cases {
		if got := c.NearRhymeKey(tc.word); got != tc.want {
			t.Errorf("NearRhymeKey(%q) = %q, want %q", tc.word, got, tc.want)
		}
	}
}

func TestPerfectRhyme(t *testing.T) {
	t.Parallel()

	c := rhyme.New(phonetic.Builtin())

	if !c.PerfectRhyme("light", "night") {
		t.Error("PerfectRhyme(light, night) = false, want true")
	}
	if !c.PerfectRhyme("Night", "LIGHT!") {
		t.Error("PerfectRhyme must be case- and punctuation-insensitive")
	}
	if c.PerfectRhyme("light", "light") {
		t.Error("a word does not rhyme with itself")
	}
	if c.PerfectRhyme("light", "day") {
		t.Error("PerfectRhyme(light, day) = true, want false")
	}
}

func TestClassify_SharedKeyFormsPerfectGroup(t *testing.T) {
	t.Parallel()

	// Fabricated dictionary in which hello and today share a rhyming tail.
	ix := mustParse(t, `
HELLO  HH AH0 L EY1
TODAY  T AH0 D EY1
WORLD  W ER1 L D
`)
	c := rhyme.New(ix)

	groups := c.Classify([]string{"hello", "today", "world"})
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1: %+v", len(groups), groups)
	}
	g := groups[0]
	if g.Kind != lyrics.GroupPerfect {
		t.Errorf("group kind = %q, want perfect", g.Kind)
	}
	if !slices.Equal(g.Members, []string{"hello", "today"}) {
		t.Errorf("members = %v, want [hello today]", g.Members)
	}
	if slices.Contains(g.Members, "world") {
		t.Error("world must not join the perfect group")
	}
}

func TestClassify_PerfectThenNear(t *testing.T) {
	t.Parallel()

	c := rhyme.New(phonetic.Builtin())

	// light/night -> perfect on AY1 T; day/way -> perfect on EY1;
	// stone/home share only the OW vowel -> near group.
	words := []string{"light", "day", "stone", "night", "way", "home"}
	groups := c.Classify(words)

	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3: %+v", len(groups), groups)
	}

	// IDs follow first-encounter order of each qualifying key.
	if groups[0].ID != 1 || groups[0].Kind != lyrics.GroupPerfect ||
		!slices.Equal(groups[0].Members, []string{"light", "night"}) {
		t.Errorf("group 1 = %+v, want perfect {light night}", groups[0])
	}
	if groups[1].ID != 2 || groups[1].Kind != lyrics.GroupPerfect ||
		!slices.Equal(groups[1].Members, []string{"day", "way"}) {
		t.Errorf("group 2 = %+v, want perfect {day way}", groups[1])
	}
	if groups[2].ID != 3 || groups[2].Kind != lyrics.GroupNear ||
		!slices.Equal(groups[2].Members, []string{"stone", "home"}) {
		t.Errorf("group 3 = %+v, want near {stone home}", groups[2])
	}
}

func TestClassify_DeterministicAndDeduplicated(t *testing.T) {
	t.Parallel()

	c := rhyme.New(phonetic.Builtin())

	words := []string{"Light", "light!", "night", "NIGHT"}
	first := c.Classify(words)
	second := c.Classify(words)

	if len(first) != 1 {
		t.Fatalf("got %d groups, want 1", len(first))
	}
	if !slices.Equal(first[0].Members, []string{"light", "night"}) {
		t.Errorf("members = %v, want deduplicated [light night]", first[0].Members)
	}
	if len(second) != 1 || second[0].ID != first[0].ID ||
		!slices.Equal(second[0].Members, first[0].Members) {
		t.Error("identical input must yield identical groups")
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	t.Parallel()

	c := rhyme.New(phonetic.Builtin())
	if got := c.Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
	if got := c.Classify([]string{"", "123", "!"}); got != nil {
		t.Errorf("Classify(noise) = %v, want nil", got)
	}
}

func TestSuggestions(t *testing.T) {
	t.Parallel()

	c := rhyme.New(phonetic.Builtin())

	perfect, near := c.Suggestions("light")
	if !slices.Contains(perfect, "night") {
		t.Errorf("perfect suggestions %v missing night", perfect)
	}
	for _, w := range near {
		if slices.Contains(perfect, w) {
			t.Errorf("near suggestion %q duplicates a perfect rhyme", w)
		}
	}
	if !slices.Contains(near, "time") {
		t.Errorf("near suggestions %v missing time (shared AY vowel)", near)
	}

	// Unknown words resolve through the nearest-sounding headword.
	perfect, _ = c.Suggestions("nite")
	if !slices.Contains(perfect, "light") {
		t.Errorf("Suggestions(nite) perfect = %v, want to include light", perfect)
	}
}

package phonetic

import (
	_ "embed"
	"strings"
)

//go:embed cmudict_builtin.txt
var builtinDict string

// Builtin returns an [Index] over the small embedded dictionary that ships
// with Versecraft. It covers only common words; production deployments
// should configure a full CMU dictionary path instead. Each call returns a
// fresh Index so callers (and tests) start with empty caches.
func Builtin() *Index {
	ix, err := Parse(strings.NewReader(builtinDict))
	if err != nil {
		// The embedded data is compiled in; a parse failure is a build defect.
		panic("phonetic: built-in dictionary is malformed: " + err.Error())
	}
	return ix
}

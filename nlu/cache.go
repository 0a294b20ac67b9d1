package nlu

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// patternCacheSize bounds the compiled regexp cache. Skills tend to register
// a few hundred trigger patterns at most; 3000 leaves ample headroom for
// ad-hoc patterns coming from handlers at runtime.
const patternCacheSize = 3000

var patterns *lru.Cache[string, *regexp.Regexp]

func init() {
	// lru.New fails on size <= 0 only
	patterns, _ = lru.New[string, *regexp.Regexp](patternCacheSize)
}

// Pattern returns a compiled regexp for expr, reusing a previously
// compiled one when available. The cache key is the literal source text.
func Pattern(expr string) (*regexp.Regexp, error) {

	if re, ok := patterns.Get(expr); ok {
		return re, nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	patterns.Add(expr, re)
	return re, nil
}

// ResetCache drops all compiled patterns. Used on graceful shutdown
// and between isolated test runs.
func ResetCache() {
	patterns.Purge()
}

package postprocessors

import (
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/postprocessors/langtag"
)

// RegisterDefaults registers all built-in enrichers with the registry.
// detector backs the language tagger.
func RegisterDefaults(r *Registry, detector driven.LanguageDetector) {
	r.Register(langtag.Name, func(cfg map[string]any) (driven.Enricher, error) {
		return buildLangTag(detector, cfg)
	})
}

// buildLangTag creates a language tagger from generic config.
// Supported config keys:
//   - min_words (int): Records with fewer words are not tagged (default: 0)
func buildLangTag(detector driven.LanguageDetector, cfg map[string]any) (driven.Enricher, error) {
	var opts []langtag.Option
	if n := getIntFromConfig(cfg, "min_words"); n > 0 {
		opts = append(opts, langtag.WithMinWords(n))
	}
	return langtag.New(detector, opts...)
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

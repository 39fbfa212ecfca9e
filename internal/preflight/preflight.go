package preflight

import (
	"path/filepath"
	"strings"

	"cepstra/internal/config"
	"cepstra/internal/features"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every check that applies to cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	patterns := cfg.Patterns()
	results := []Result{
		CheckReadableDirectory("Input directory", PatternDir(patterns.Input)),
		CheckWritableDirectory("Linear output directory", PatternDir(patterns.Linear)),
		CheckWritableDirectory("Mel output directory", PatternDir(patterns.Mel)),
	}
	if file := strings.TrimSpace(cfg.Logging.File); file != "" {
		results = append(results, CheckWritableDirectory("Log directory", filepath.Dir(file)))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// PatternDir returns the deepest directory of p that does not depend on the
// identifier.
func PatternDir(p features.Pattern) string {
	dir := filepath.Dir(p.String())
	for features.Pattern(dir).HasPlaceholder() {
		next := filepath.Dir(dir)
		if next == dir {
			break
		}
		dir = next
	}
	return dir
}

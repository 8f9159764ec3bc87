package quiz

import (
	"math/rand"
	"strings"

	"github.com/samber/lo"
)

// buildOptions returns correct plus up to n distractors drawn from pool,
// case-insensitively distinct and shuffled.
func buildOptions(rng *rand.Rand, correct string, pool []string, n int) []string {
	key := normalizeAnswer
	candidates := lo.UniqBy(lo.Filter(pool, func(w string, _ int) bool {
		return strings.TrimSpace(w) != "" && key(w) != key(correct)
	}), key)
	rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	options := append([]string{correct}, candidates...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

// normalizeAnswer folds case and collapses whitespace.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

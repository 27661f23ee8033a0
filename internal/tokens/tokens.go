// Package tokens provides the single token-count approximator shared by the
// context-management policies (eviction and summarization), per spec §6.2:
// both policies must use the same estimator or their thresholds drift apart.
package tokens

// Estimate approximates the token count of s using the classic
// ceil(chars/4) heuristic. It is intentionally crude: swapping in an exact
// tokenizer only requires changing this one function.
func Estimate(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + 3) / 4
}

// EstimateAll sums Estimate over every string, used to size a whole
// conversation history against the summarization threshold.
func EstimateAll(strs []string) int {
	total := 0
	for _, s := range strs {
		total += Estimate(s)
	}
	return total
}

package scraper

import "strings"

// NormalizeText is the comparison key for review texts.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FilterNew drops candidates whose normalized text is already known, and
// collapses duplicates within the candidates themselves.
func FilterNew(existing []string, candidates []ReviewCandidate) []ReviewCandidate {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, text := range existing {
		seen[NormalizeText(text)] = struct{}{}
	}

	out := make([]ReviewCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := NormalizeText(c.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

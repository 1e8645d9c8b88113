package scanner

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// NewURLFilter compiles the path-indicator terms into one
// case-insensitive alternation matched against candidate URLs.
func NewURLFilter(terms []string) (*regexp.Regexp, error) {
	if len(terms) == 0 {
		return nil, errors.New("url filter terms are empty")
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	pattern, err := regexp.Compile(`(?i)(` + strings.Join(quoted, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("compile url filter: %w", err)
	}
	return pattern, nil
}

// FilterCandidates retains hits whose URL matches the filter, capped
// at max, preserving provider-returned order.
func FilterCandidates(hits []SearchHit, filter *regexp.Regexp, max int) []SearchHit {
	var kept []SearchHit
	for _, hit := range hits {
		if !filter.MatchString(hit.URL) {
			continue
		}
		kept = append(kept, hit)
		if max > 0 && len(kept) == max {
			break
		}
	}
	return kept
}

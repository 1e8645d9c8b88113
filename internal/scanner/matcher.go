package scanner

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MatcherConfig bounds snippet and date extraction windows.
type MatcherConfig struct {
	// ContextChars is the snippet window on each side of a match.
	ContextChars int
	// SnippetMaxLen is the hard cap on a stored snippet.
	SnippetMaxLen int
	// DateWindowChars is the region searched for a meeting date on
	// each side of a match.
	DateWindowChars int
}

const (
	defaultContextChars    = 120
	defaultSnippetMaxLen   = 300
	defaultDateWindowChars = 500
)

// Match is one keyword occurrence inside extracted text.
type Match struct {
	Keyword string
	Start   int
	End     int
}

// datePattern pairs a recognizer with the layouts that can parse what
// it recognizes. Patterns are tried in order; the first parse wins.
type datePattern struct {
	re      *regexp.Regexp
	layouts []string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

var datePatterns = []datePattern{
	{
		re:      regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}`),
		layouts: []string{"January 2, 2006", "January 2 2006"},
	},
	{
		re:      regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
		layouts: []string{"1/2/2006"},
	},
	{
		re:      regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		layouts: []string{"2006-01-02"},
	},
}

// Matcher scans extracted text for a fixed keyword vocabulary and
// builds bounded context snippets around each hit.
type Matcher struct {
	pattern *regexp.Regexp
	cfg     MatcherConfig
}

// NewMatcher compiles a single case-insensitive alternation over the
// vocabulary in configured order. Alternation is leftmost-first, so an
// earlier keyword wins where two can match at the same position; the
// vocabulary's ordering is part of the matching contract.
func NewMatcher(keywords []string, cfg MatcherConfig) (*Matcher, error) {
	if len(keywords) == 0 {
		return nil, errors.New("keyword vocabulary is empty")
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	pattern, err := regexp.Compile(`(?i)(` + strings.Join(quoted, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("compile keyword pattern: %w", err)
	}
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = defaultContextChars
	}
	if cfg.SnippetMaxLen <= 0 {
		cfg.SnippetMaxLen = defaultSnippetMaxLen
	}
	if cfg.DateWindowChars <= 0 {
		cfg.DateWindowChars = defaultDateWindowChars
	}
	return &Matcher{pattern: pattern, cfg: cfg}, nil
}

// FindMatches returns all non-overlapping keyword occurrences in
// left-to-right order. Keywords are reported lower-cased.
func (m *Matcher) FindMatches(text string) []Match {
	var matches []Match
	for _, span := range m.pattern.FindAllStringIndex(text, -1) {
		matches = append(matches, Match{
			Keyword: strings.ToLower(text[span[0]:span[1]]),
			Start:   span[0],
			End:     span[1],
		})
	}
	return matches
}

// Snippet extracts the bounded context window around a match. Interior
// whitespace runs collapse to single spaces and an ellipsis marks each
// edge clipped by the text boundary. Window edges and the hard length
// cap land on rune boundaries; the cap is applied last, so it is
// authoritative.
func (m *Matcher) Snippet(text string, start, end int) string {
	lo := start - m.cfg.ContextChars
	if lo < 0 {
		lo = 0
	}
	for lo < start && !utf8.RuneStart(text[lo]) {
		lo++
	}
	hi := end + m.cfg.ContextChars
	if hi > len(text) {
		hi = len(text)
	}
	for hi > end && hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi--
	}
	snippet := whitespaceRun.ReplaceAllString(strings.TrimSpace(text[lo:hi]), " ")
	if lo > 0 {
		snippet = "..." + snippet
	}
	if hi < len(text) {
		snippet += "..."
	}
	return truncate(snippet, m.cfg.SnippetMaxLen)
}

// MeetingDate attempts to recover a meeting date from the region
// around a match. The result is advisory metadata: the first pattern
// that both matches and parses wins, otherwise nil.
func (m *Matcher) MeetingDate(text string, start, end int) *time.Time {
	lo := start - m.cfg.DateWindowChars
	if lo < 0 {
		lo = 0
	}
	hi := end + m.cfg.DateWindowChars
	if hi > len(text) {
		hi = len(text)
	}
	region := text[lo:hi]
	for _, dp := range datePatterns {
		raw := dp.re.FindString(region)
		if raw == "" {
			continue
		}
		for _, layout := range dp.layouts {
			if d, err := time.Parse(layout, canonicalMonthCase(raw)); err == nil {
				return &d
			}
		}
	}
	return nil
}

// canonicalMonthCase normalizes a leading month name ("MARCH 3, 2024")
// to the title case time.Parse requires.
func canonicalMonthCase(s string) string {
	if s == "" || !unicode.IsLetter(rune(s[0])) {
		return s
	}
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if i < 0 {
		i = len(s)
	}
	month := s[:i]
	return strings.ToUpper(month[:1]) + strings.ToLower(month[1:]) + s[i:]
}

package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// Threshold is the score a best match must strictly exceed to be answered.
	Threshold = 0.3

	// FallbackReply is returned when no category clears Threshold.
	FallbackReply = "I'm sorry, I didn't quite understand that. Could you please clarify?"
)

// patternEntry stores a pattern with its precomputed normalized form and word set
type patternEntry struct {
	raw        string
	normalized string
	words      map[string]struct{}
}

// categoryEntry links a category to its prepared patterns
type categoryEntry struct {
	category *Category
	patterns []patternEntry
}

// Matcher answers free text from an immutable Corpus.
// It holds no per-call state and is safe for concurrent use.
type Matcher struct {
	corpus   *Corpus
	entries  []categoryEntry
	selector Selector
	trace    func(Trace)
}

// Option configures a Matcher
type Option func(*Matcher)

// WithSelector injects the reply selection strategy.
func WithSelector(s Selector) Option {
	return func(m *Matcher) {
		if s != nil {
			m.selector = s
		}
	}
}

// WithTrace registers a hook called with the best candidate of every matching pass.
func WithTrace(fn func(Trace)) Option {
	return func(m *Matcher) {
		m.trace = fn
	}
}

// Result is the outcome of one matching pass.
// Category is nil when no pattern scored above zero.
type Result struct {
	Trace
	Category *Category
}

// NewMatcher prepares every pattern of corpus for scoring.
// A nil corpus behaves like an empty one.
func NewMatcher(corpus *Corpus, opts ...Option) *Matcher {
	if corpus == nil {
		corpus = &Corpus{}
	}

	m := &Matcher{
		corpus:   corpus,
		selector: RandomSelector(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.entries = make([]categoryEntry, 0, len(corpus.Categories))
	for i := range corpus.Categories {
		category := &corpus.Categories[i]
		// Categories without patterns or replies contribute no candidates
		if len(category.Patterns) == 0 || len(category.Responses) == 0 {
			continue
		}
		m.entries = append(m.entries, categoryEntry{
			category: category,
			patterns: preparePatterns(category.Patterns),
		})
	}

	return m
}

// preparePatterns normalizes patterns and splits them into word sets
func preparePatterns(patterns []string) []patternEntry {
	entries := make([]patternEntry, 0, len(patterns))
	for _, p := range patterns {
		normalized := normalizeText(p)
		entries = append(entries, patternEntry{
			raw:        p,
			normalized: normalized,
			words:      wordSet(normalized),
		})
	}
	return entries
}

// Corpus returns the corpus the matcher was built from.
func (m *Matcher) Corpus() *Corpus {
	return m.corpus
}

// Respond returns a reply for text, or FallbackReply when nothing matches well enough.
func (m *Matcher) Respond(text string) string {
	reply, _ := m.Answer(text)
	return reply
}

// Answer is Respond plus the matching result that produced the reply.
func (m *Matcher) Answer(text string) (string, Result) {
	res := m.Match(text)
	if !res.Matched {
		return FallbackReply, res
	}

	responses := res.Category.Responses
	return responses[m.pick(len(responses))], res
}

// Match scores text against every pattern in corpus order and returns the best.
// The first pattern to reach the highest score wins; later ties do not replace it.
func (m *Matcher) Match(text string) Result {
	input := normalizeText(text)
	inputWords := wordSet(input)

	var best Result
	scored := false

	for i := range m.entries {
		entry := &m.entries[i]
		for _, p := range entry.patterns {
			scored = true
			score := scorePattern(input, inputWords, p)
			if score > best.Score {
				best.Score = score
				best.Tag = entry.category.Tag
				best.Pattern = p.raw
				best.Category = entry.category
			}
		}
	}

	best.Matched = best.Category != nil && best.Score > Threshold

	if scored && m.trace != nil {
		m.trace(best.Trace)
	}

	return best
}

// pick asks the selector for an index and folds it into [0, n)
func (m *Matcher) pick(n int) int {
	i := m.selector(n) % n
	if i < 0 {
		i += n
	}
	return i
}

// Similarity scores two texts in [0, 1].
// Equal normalized texts score 1.0, otherwise the Jaccard index of their word sets.
func Similarity(a, b string) float64 {
	a, b = normalizeText(a), normalizeText(b)
	if a == b {
		return 1.0
	}
	return jaccard(wordSet(a), wordSet(b))
}

func scorePattern(input string, inputWords map[string]struct{}, p patternEntry) float64 {
	if input == p.normalized {
		return 1.0
	}
	return jaccard(inputWords, p.words)
}

// jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// normalizeText lowercases text and trims surrounding whitespace.
// Internal whitespace is left alone; wordSet splits on any run of it.
func normalizeText(text string) string {
	// A Caser is stateful, so one is made per call
	return strings.TrimSpace(cases.Lower(language.Und).String(text))
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

package main

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greetingCorpus() *Corpus {
	return NewCorpus(Category{
		Tag:       "greeting",
		Patterns:  []string{"hello", "hi there"},
		Responses: []string{"Hi!", "Hello!"},
	})
}

// recordTraces returns an option that appends every trace to the returned slice
func recordTraces() (Option, *[]Trace) {
	var mu sync.Mutex
	traces := &[]Trace{}
	return WithTrace(func(t Trace) {
		mu.Lock()
		defer mu.Unlock()
		*traces = append(*traces, t)
	}), traces
}

func TestSimilarity_ExactMatch(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Hello", "hello"))
	assert.Equal(t, 1.0, Similarity("  hello  ", "HELLO"))
}

func TestSimilarity_Jaccard(t *testing.T) {
	// {how,are,you} vs {how,are,you,today}: 3 shared of 4
	assert.InDelta(t, 0.75, Similarity("how are you", "how are you today"), 1e-9)
	assert.Equal(t, 0.0, Similarity("xyz completely unrelated", "hello"))
	// Duplicate words collapse
	assert.InDelta(t, 0.5, Similarity("yes yes no", "no"), 1e-9)
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"how are you", "how are you today"},
		{"hi there", "there hi friend"},
		{"", "hello"},
		{"ÉCOLE ouverte", "école fermée"},
		{"a b c", "c d e f"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestSimilarity_EmptyInputs(t *testing.T) {
	// Both empty normalize equal
	assert.Equal(t, 1.0, Similarity("", "   "))
	assert.Equal(t, 0.0, Similarity("", "hello there"))
	assert.Equal(t, 0.0, jaccard(wordSet(""), wordSet("")))
}

func TestSimilarity_InternalWhitespaceNotCollapsed(t *testing.T) {
	// Not exactly equal, but the word sets are the same
	assert.Equal(t, 1.0, Similarity("hi   there", "hi there"))
	assert.NotEqual(t, normalizeText("hi   there"), normalizeText("hi there"))
}

func TestNormalizeText_UnicodeLowercase(t *testing.T) {
	assert.Equal(t, "école", normalizeText("  ÉCOLE \n"))
	assert.Equal(t, "straße", normalizeText("STRAßE"))
}

func TestRespond_ExactMatchExample(t *testing.T) {
	m := NewMatcher(greetingCorpus())

	for i := 0; i < 20; i++ {
		assert.Contains(t, []string{"Hi!", "Hello!"}, m.Respond("Hello"))
	}

	res := m.Match("Hello")
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, "greeting", res.Tag)
	assert.Equal(t, "hello", res.Pattern)
	assert.True(t, res.Matched)
}

func TestRespond_UnrelatedInputFallsBack(t *testing.T) {
	m := NewMatcher(greetingCorpus())

	assert.Equal(t, FallbackReply, m.Respond("xyz completely unrelated"))
	res := m.Match("xyz completely unrelated")
	assert.Equal(t, 0.0, res.Score)
	assert.False(t, res.Matched)
	assert.Nil(t, res.Category)
}

func TestRespond_PartialOverlapAboveThreshold(t *testing.T) {
	m := NewMatcher(NewCorpus(Category{
		Tag:       "wellbeing",
		Patterns:  []string{"how are you"},
		Responses: []string{"Fine, thanks."},
	}))

	reply, res := m.Answer("how are you today")
	assert.Equal(t, "Fine, thanks.", reply)
	assert.InDelta(t, 0.75, res.Score, 1e-9)
}

func TestRespond_ThresholdIsExclusive(t *testing.T) {
	// 3 shared words out of 10 distinct: exactly 0.3
	m := NewMatcher(NewCorpus(Category{
		Tag:       "long",
		Patterns:  []string{"a b c d e f g h i j"},
		Responses: []string{"matched"},
	}))

	reply, res := m.Answer("a b c")
	assert.Equal(t, 0.3, res.Score)
	assert.False(t, res.Matched)
	assert.Equal(t, FallbackReply, reply)

	// 4 shared of 13 distinct is just above
	m = NewMatcher(NewCorpus(Category{
		Tag:       "longer",
		Patterns:  []string{"a b c d e f g h i j k l m"},
		Responses: []string{"matched"},
	}))
	reply, res = m.Answer("a b c d")
	assert.Greater(t, res.Score, Threshold)
	assert.True(t, res.Matched)
	assert.Equal(t, "matched", reply)
}

func TestMatch_FirstBestWins(t *testing.T) {
	m := NewMatcher(NewCorpus(
		Category{Tag: "first", Patterns: []string{"good day", "hello"}, Responses: []string{"one"}},
		Category{Tag: "second", Patterns: []string{"hello"}, Responses: []string{"two"}},
		Category{Tag: "first", Patterns: []string{"hello"}, Responses: []string{"three"}},
	))

	res := m.Match("HELLO")
	assert.Equal(t, "first", res.Tag)
	assert.Equal(t, "hello", res.Pattern)
	assert.Equal(t, "one", m.Respond("hello"))
}

func TestMatch_DuplicateTagsFollowCorpusOrder(t *testing.T) {
	m := NewMatcher(NewCorpus(
		Category{Tag: "faq", Patterns: []string{"opening hours"}, Responses: []string{"9 to 5"}},
		Category{Tag: "faq", Patterns: []string{"opening hours today"}, Responses: []string{"closed today"}},
	))

	// The second category scores higher, so its replies are eligible
	assert.Equal(t, "closed today", m.Respond("opening hours today"))
	assert.Equal(t, "9 to 5", m.Respond("opening hours"))
}

func TestMatch_PatternWhitespaceNormalized(t *testing.T) {
	m := NewMatcher(NewCorpus(Category{
		Tag:       "padded",
		Patterns:  []string{"  Thank You \t"},
		Responses: []string{"You're welcome!"},
	}))

	res := m.Match("thank you")
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, "  Thank You \t", res.Pattern)
}

func TestRespond_EmptyCorpus(t *testing.T) {
	opt, traces := recordTraces()

	for _, corpus := range []*Corpus{nil, NewCorpus(), emptyCorpus("missing.json")} {
		m := NewMatcher(corpus, opt)
		for _, input := range []string{"", "hello", "anything at all"} {
			assert.Equal(t, FallbackReply, m.Respond(input))
		}
	}
	assert.Empty(t, *traces, "no pattern was scored, so no trace")
}

func TestRespond_EmptyInput(t *testing.T) {
	m := NewMatcher(greetingCorpus())

	res := m.Match("   ")
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, FallbackReply, m.Respond(""))
}

func TestRespond_BlankPatternAnswersBlankInput(t *testing.T) {
	m := NewMatcher(NewCorpus(
		Category{Tag: "greeting", Patterns: []string{"hello"}, Responses: []string{"Hi!"}},
		Category{Tag: "empty", Patterns: []string{"   "}, Responses: []string{"You said nothing"}},
	))

	for _, input := range []string{"", "   ", "\t\n"} {
		reply, res := m.Answer(input)
		assert.Equal(t, "You said nothing", reply, "input %q", input)
		assert.True(t, res.Matched)
		assert.Equal(t, "empty", res.Tag)
		assert.Equal(t, 1.0, res.Score)
	}

	assert.Equal(t, "Hi!", m.Respond("hello"))
	assert.Equal(t, FallbackReply, m.Respond("xyz"))
}

func TestRespond_NeverEmpty(t *testing.T) {
	m := NewMatcher(greetingCorpus())
	for _, input := range []string{"", " ", "hello", "hi", "hi there friend", "\n\t", "🤖"} {
		assert.NotEmpty(t, m.Respond(input), "input %q", input)
	}
}

func TestRespond_ResponseContentUnaltered(t *testing.T) {
	reply := "See the <b>[admissions page](https://example.edu/admissions)</b>  "
	m := NewMatcher(NewCorpus(Category{
		Tag:       "admissions",
		Patterns:  []string{"How do I apply"},
		Responses: []string{reply},
	}))

	assert.Equal(t, reply, m.Respond("how do i apply"))
}

func TestMatcher_SkipsIncompleteCategories(t *testing.T) {
	// Built directly, bypassing NewCorpus validation
	corpus := &Corpus{Categories: []Category{
		{Tag: "no-replies", Patterns: []string{"hello"}},
		{Tag: "no-patterns", Responses: []string{"never"}},
		{Tag: "greeting", Patterns: []string{"hello"}, Responses: []string{"Hi!"}},
	}}

	m := NewMatcher(corpus)
	res := m.Match("hello")
	assert.Equal(t, "greeting", res.Tag)
	assert.Equal(t, "Hi!", m.Respond("hello"))
}

func TestMatcher_TraceHook(t *testing.T) {
	opt, traces := recordTraces()
	m := NewMatcher(greetingCorpus(), opt)

	m.Respond("hi there")
	m.Respond("nothing relevant")

	require.Len(t, *traces, 2)
	assert.Equal(t, Trace{Tag: "greeting", Pattern: "hi there", Score: 1.0, Matched: true}, (*traces)[0])
	assert.False(t, (*traces)[1].Matched)
	assert.Equal(t, 0.0, (*traces)[1].Score)
}

func TestMatcher_ScoringIsDeterministic(t *testing.T) {
	m := NewMatcher(NewCorpus(
		Category{Tag: "a", Patterns: []string{"where is the library", "library hours"}, Responses: []string{"1", "2", "3"}},
		Category{Tag: "b", Patterns: []string{"where is the canteen"}, Responses: []string{"4"}},
	))

	first := m.Match("where is the library today")
	for i := 0; i < 10; i++ {
		res := m.Match("where is the library today")
		assert.Equal(t, first.Trace, res.Trace)
	}
}

func TestMatcher_InjectedSelector(t *testing.T) {
	corpus := NewCorpus(Category{
		Tag:       "greeting",
		Patterns:  []string{"hello"},
		Responses: []string{"zero", "one", "two"},
	})

	assert.Equal(t, "two", NewMatcher(corpus, WithSelector(FixedSelector(2))).Respond("hello"))
	assert.Equal(t, "one", NewMatcher(corpus, WithSelector(FixedSelector(4))).Respond("hello"))
	// Out-of-range picks are folded back into range
	assert.Equal(t, "two", NewMatcher(corpus, WithSelector(func(n int) int { return -1 })).Respond("hello"))
	// nil keeps the default selector
	assert.Contains(t, corpus.Categories[0].Responses, NewMatcher(corpus, WithSelector(nil)).Respond("hello"))
}

func TestSeededSelector_Repeatable(t *testing.T) {
	a, b := SeededSelector(42), SeededSelector(42)
	for i := 0; i < 50; i++ {
		x, y := a(7), b(7)
		assert.Equal(t, x, y)
		assert.GreaterOrEqual(t, x, 0)
		assert.Less(t, x, 7)
	}
}

func TestMatcher_ConcurrentRespond(t *testing.T) {
	m := NewMatcher(greetingCorpus(), WithSelector(SeededSelector(7)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Contains(t, []string{"Hi!", "Hello!"}, m.Respond("hello"))
			}
		}()
	}
	wg.Wait()
}

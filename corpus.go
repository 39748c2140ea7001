package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// LoadError reports a corpus file that could not be read or parsed.
// LoadCorpus still returns an empty, usable Corpus alongside it.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load corpus %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

var errNoIntents = errors.New(`document has no "intents" list`)

// LoadCorpus reads a corpus document from path.
// The encoding is picked from the extension: ".toml" is TOML, anything else is JSON.
// On failure the returned Corpus is empty (never nil) and the error is a *LoadError.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyCorpus(path), &LoadError{Path: path, Err: err}
	}

	corpus, err := ParseCorpus(data, corpusFormat(path))
	if err != nil {
		return emptyCorpus(path), &LoadError{Path: path, Err: err}
	}
	corpus.Path = path

	log.Printf("Loaded corpus %s: %d categories, %d skipped", path, len(corpus.Categories), len(corpus.Skipped()))
	return corpus, nil
}

// ParseCorpus decodes a corpus document in the given format ("json" or "toml").
// Malformed entries are skipped and recorded in Corpus.Outcomes; only a document
// that cannot be decoded at all is an error.
func ParseCorpus(data []byte, format string) (*Corpus, error) {
	var raw map[string]interface{}

	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}

	entries, ok := raw["intents"].([]interface{})
	if !ok {
		// TOML arrays of tables decode to a typed slice
		tables, isTables := raw["intents"].([]map[string]interface{})
		if !isTables {
			return nil, errNoIntents
		}
		for _, t := range tables {
			entries = append(entries, t)
		}
	}

	c := &Corpus{LoadedAt: time.Now()}
	for i, entry := range entries {
		category, reason := parseCategory(entry)
		c.addOutcome(i, category, reason)
	}

	return c, nil
}

// NewCorpus builds a corpus from in-process categories, applying the same
// entry validation as a loaded document.
func NewCorpus(categories ...Category) *Corpus {
	c := &Corpus{LoadedAt: time.Now()}
	for i, category := range categories {
		category.Responses = cleanResponses(category.Responses)
		c.addOutcome(i, category, validateCategory(category))
	}
	return c
}

func emptyCorpus(path string) *Corpus {
	return &Corpus{Path: path, LoadedAt: time.Now()}
}

func corpusFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "json"
}

func (c *Corpus) addOutcome(index int, category Category, reason string) {
	outcome := LoadOutcome{Index: index, Tag: category.Tag}
	if reason != "" {
		outcome.Skipped = true
		outcome.Reason = reason
		log.Printf("Warning: skipping intent #%d (%q): %s", index, category.Tag, reason)
	} else {
		c.Categories = append(c.Categories, category)
	}
	c.Outcomes = append(c.Outcomes, outcome)
}

// parseCategory converts one decoded intent into a Category.
// A non-empty reason means the entry is malformed and must be skipped.
func parseCategory(entry interface{}) (Category, string) {
	fields, ok := entry.(map[string]interface{})
	if !ok {
		return Category{}, "entry is not an object"
	}

	var category Category
	if tag, ok := fields["tag"].(string); ok {
		category.Tag = tag
	}
	category.Patterns = convertToStringSlice(fields["patterns"])
	category.Responses = cleanResponses(convertToStringSlice(fields["responses"]))

	return category, validateCategory(category)
}

func validateCategory(category Category) string {
	switch {
	case strings.TrimSpace(category.Tag) == "":
		return "missing tag"
	case len(category.Patterns) == 0:
		return "missing patterns"
	case len(category.Responses) == 0:
		return "missing responses"
	}
	return ""
}

// convertToStringSlice converts various decoded value types to a string slice
func convertToStringSlice(value interface{}) []string {
	var result []string

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
	case []string:
		result = append(result, v...)
	case string:
		// Single string value
		result = append(result, v)
	}

	return result
}

// cleanResponses drops empty replies; content is otherwise kept byte for byte.
func cleanResponses(responses []string) []string {
	out := make([]string, 0, len(responses))
	for _, r := range responses {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Skipped returns the outcomes of entries that were left out of the corpus.
func (c *Corpus) Skipped() []LoadOutcome {
	var skipped []LoadOutcome
	for _, o := range c.Outcomes {
		if o.Skipped {
			skipped = append(skipped, o)
		}
	}
	return skipped
}

// DuplicateTags lists tags carried by more than one category, in first-seen order.
// Duplicates are legal; matching follows corpus order.
func (c *Corpus) DuplicateTags() []string {
	seen := make(map[string]int)
	var dups []string
	for _, category := range c.Categories {
		seen[category.Tag]++
		if seen[category.Tag] == 2 {
			dups = append(dups, category.Tag)
		}
	}
	return dups
}

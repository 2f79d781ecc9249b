package vocab

import (
	"fmt"
	"strings"
)

// CEFR proficiency level of a vocabulary entry
type Level string

const (
	LevelA1 Level = "a1"
	LevelA2 Level = "a2"
	LevelB1 Level = "b1"
	LevelB2 Level = "b2"
	LevelC1 Level = "c1"
)

// grammatical word type of a vocabulary entry
type WordType string

const (
	TypeNoun      WordType = "noun"
	TypeVerb      WordType = "verb"
	TypeAdjective WordType = "adjective"
	TypeAdverb    WordType = "adverb"
	TypeNumber    WordType = "number"
)

// single vocabulary word with its difficulty and grammatical tags
type Entry struct {
	Word  string
	Type  WordType
	Level Level
}

// ParseLevel validates a CEFR level string
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToLower(strings.TrimSpace(s)))
	switch level {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1:
		return level, nil
	default:
		return "", fmt.Errorf(
			"unknown level %q: valid levels are a1, a2, b1, b2, c1",
			s,
		)
	}
}

// ParseWordType validates a word type string
func ParseWordType(s string) (WordType, error) {
	wordType := WordType(strings.ToLower(strings.TrimSpace(s)))
	switch wordType {
	case TypeNoun, TypeVerb, TypeAdjective, TypeAdverb, TypeNumber:
		return wordType, nil
	default:
		return "", fmt.Errorf(
			"unknown word type %q: valid types are noun, verb, adjective, adverb, number",
			s,
		)
	}
}

// ParseLevelType splits a combined key like "a1_verb" into level and word type
func ParseLevelType(s string) (Level, WordType, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "_", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf(
			"invalid level_type key %q: expected format like a1_verb",
			s,
		)
	}

	level, err := ParseLevel(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("invalid level_type key %q: %w", s, err)
	}

	wordType, err := ParseWordType(parts[1])
	if err != nil {
		return "", "", fmt.Errorf("invalid level_type key %q: %w", s, err)
	}

	return level, wordType, nil
}

// LevelTypeKey renders an entry's combined key, e.g. "a1_verb"
func LevelTypeKey(e Entry) string {
	return string(e.Level) + "_" + string(e.Type)
}

// Filter returns entries matching the given level and word type.
// Empty level or word type matches everything.
func Filter(entries []Entry, level Level, wordType WordType) []Entry {
	if level == "" && wordType == "" {
		return entries
	}

	var filtered []Entry
	for _, entry := range entries {
		if level != "" && entry.Level != level {
			continue
		}
		if wordType != "" && entry.Type != wordType {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

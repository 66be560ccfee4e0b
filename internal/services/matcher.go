package services

import (
	"math"
	"strings"
	"unicode"
)

// MatchResult is the skill overlap between one resume and one job posting.
type MatchResult struct {
	Percentage int
	Matched    []string
	Missing    []string
}

// NormalizeSkill trims, lower-cases and collapses inner whitespace.
func NormalizeSkill(skill string) string {
	return strings.Join(strings.Fields(strings.ToLower(skill)), " ")
}

// MatchSkills checks every required skill against the resume as a whole token
// or token phrase, so "java" never matches inside "javascript".
func MatchSkills(resumeText string, requiredSkills []string) MatchResult {
	result := MatchResult{Matched: []string{}, Missing: []string{}}

	type skill struct {
		display string
		key     string
	}
	seen := make(map[string]struct{}, len(requiredSkills))
	skills := make([]skill, 0, len(requiredSkills))
	maxLen := 1
	for _, raw := range requiredSkills {
		tokens := tokenize(raw)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, skill{display: NormalizeSkill(raw), key: key})
		if len(tokens) > maxLen {
			maxLen = len(tokens)
		}
	}

	if len(skills) == 0 {
		return result
	}

	phrases := phraseSet(tokenize(resumeText), maxLen)
	for _, s := range skills {
		if _, ok := phrases[s.key]; ok {
			result.Matched = append(result.Matched, s.display)
		} else {
			result.Missing = append(result.Missing, s.display)
		}
	}

	result.Percentage = MatchPercentage(len(result.Matched), len(skills))
	return result
}

// MatchPercentage is round(matched/required*100) clamped to [0,100]; 0 when nothing is required.
func MatchPercentage(matched, required int) int {
	if required <= 0 {
		return 0
	}
	pct := int(math.Round(float64(matched) / float64(required) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func isSkillRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#'
}

// tokenize lower-cases text and splits it into skill tokens. '+' and '#' stay
// inside tokens (c++, c#); a dot stays only between word characters (node.js).
func tokenize(text string) []string {
	runes := []rune(strings.ToLower(text))
	tokens := make([]string, 0, len(runes)/5)
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		switch {
		case isSkillRune(r):
			cur = append(cur, r)
		case r == '.' && len(cur) > 0 && i+1 < len(runes) && isSkillRune(runes[i+1]):
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// phraseSet holds every run of 1..maxLen consecutive tokens joined by a space.
func phraseSet(tokens []string, maxLen int) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens)*maxLen)
	for i := range tokens {
		for n := 1; n <= maxLen && i+n <= len(tokens); n++ {
			set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
		}
	}
	return set
}

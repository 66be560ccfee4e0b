package services

import (
	"path/filepath"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ExtractEmail returns the first email address in the resume text, lower-cased.
func ExtractEmail(text string) string {
	return strings.ToLower(emailPattern.FindString(text))
}

// CandidateNameFromFile derives a display name from an upload name,
// e.g. "jane_doe-resume.pdf" becomes "Jane Doe Resume".
func CandidateNameFromFile(fileName string) string {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

package matcher

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/callummance/hibiki/guildmodels"
)

var userMentionRegex = regexp.MustCompile(`<@!?\d+>`)

//stripMentions removes user mentions and collapses the whitespace they leave behind
func stripMentions(s string) string {
	s = userMentionRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

//matchLiteral compares prefix-stripped content against literal trigger text, returning any target text.
func matchLiteral(content, trigger string, flags guildmodels.MatchFlags) (string, bool) {
	switch {
	case len(content) == len(trigger):
		return "", content == trigger
	case len(content) < len(trigger) || trigger == "":
		return "", false
	}
	if flags.AllowTarget && strings.HasPrefix(content, trigger+" ") {
		return strings.TrimSpace(content[len(trigger)+1:]), true
	}
	if flags.ContainsAnywhere && containsWord(content, trigger) {
		return "", true
	}
	return "", false
}

//containsWord reports whether word occurs in s with no letter or digit directly either side of it.
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; from < len(s); {
		idx := strings.Index(s[from:], word)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || isWordDivider(before)) && (end == len(s) || isWordDivider(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		from = start + size
	}
	return false
}

func isWordDivider(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

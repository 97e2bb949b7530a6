// Package quiz parses model answers into Telegram quiz polls.
package quiz

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinOptions         = 4
	MaxOptions         = 10
	MaxOptionRunes     = 70
	MaxQuestionRunes   = 300
	MaxExplainRunes    = 200
	DefaultExplanation = "Відповідь пояснюється у наступному пості!"
)

// ErrMalformed is returned when the answer does not follow the
// QUESTION/OPTIONS/CORRECT/EXPLANATION layout.
var ErrMalformed = errors.New("malformed quiz")

// Quiz is a single-answer question ready to be sent as a poll.
type Quiz struct {
	Question    string
	Options     []string
	Correct     int // zero-based
	Explanation string
}

var (
	questionRe    = regexp.MustCompile(`(?m)^QUESTION:\s*(.+)$`)
	optionsRe     = regexp.MustCompile(`(?s)OPTIONS:(.*?)\nCORRECT:`)
	optionSplitRe = regexp.MustCompile(`\d\)\s*`)
	correctRe     = regexp.MustCompile(`CORRECT:\s*(\d+)`)
	explanationRe = regexp.MustCompile(`(?is)EXPLANATION:\s*(.+)`)
)

// Parse extracts a quiz from raw model output, e.g.
//
//	QUESTION: Що виведе typeof null?
//	OPTIONS:
//	1) "null"
//	2) "object"
//	...
//	CORRECT: 2
//	EXPLANATION: Історична помилка специфікації.
func Parse(raw string) (Quiz, error) {
	raw = strings.ReplaceAll(raw, "\r", "")
	raw = strings.ReplaceAll(raw, "*", "")

	m := questionRe.FindStringSubmatch(raw)
	if m == nil {
		return Quiz{}, fmt.Errorf("%w: no question", ErrMalformed)
	}
	question := truncate(strings.TrimSpace(m[1]), MaxQuestionRunes)
	if question == "" {
		return Quiz{}, fmt.Errorf("%w: empty question", ErrMalformed)
	}

	var options []string
	if om := optionsRe.FindStringSubmatch(raw); om != nil {
		for _, o := range optionSplitRe.Split(om[1], -1) {
			o = truncate(strings.TrimSpace(o), MaxOptionRunes)
			if o != "" {
				options = append(options, o)
			}
		}
	}
	if len(options) < MinOptions {
		return Quiz{}, fmt.Errorf("%w: %d options", ErrMalformed, len(options))
	}
	if len(options) > MaxOptions {
		options = options[:MaxOptions]
	}

	correct := -1
	if cm := correctRe.FindStringSubmatch(raw); cm != nil {
		if n, err := strconv.Atoi(cm[1]); err == nil {
			correct = n - 1
		}
	}
	if correct < 0 || correct >= len(options) {
		return Quiz{}, fmt.Errorf("%w: correct option out of range", ErrMalformed)
	}

	explanation := DefaultExplanation
	if em := explanationRe.FindStringSubmatch(raw); em != nil {
		if e := truncate(strings.TrimSpace(em[1]), MaxExplainRunes); e != "" {
			explanation = e
		}
	}

	return Quiz{Question: question, Options: options, Correct: correct, Explanation: explanation}, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}

package quiz

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

const sample = `**QUESTION:** Що виведе typeof null у JavaScript?
OPTIONS:
1) "null"
2) "object"
3) "undefined"
4) "number"
CORRECT: 2
EXPLANATION: Це історична помилка
першої реалізації мови.`

func TestParse(t *testing.T) {
	q, err := Parse(sample)
	require.NoError(t, err)
	require.Equal(t, "Що виведе typeof null у JavaScript?", q.Question)
	require.Equal(t, []string{`"null"`, `"object"`, `"undefined"`, `"number"`}, q.Options)
	require.Equal(t, 1, q.Correct)
	require.Equal(t, "Це історична помилка\nпершої реалізації мови.", q.Explanation)
}

func TestParse_DefaultExplanation(t *testing.T) {
	raw := strings.Split(sample, "\nEXPLANATION:")[0]
	q, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, DefaultExplanation, q.Explanation)
}

func TestParse_ClipsLongOptions(t *testing.T) {
	long := strings.Repeat("д", 120)
	raw := "QUESTION: q?\nOPTIONS:\n1) " + long + "\n2) b\n3) c\n4) d\nCORRECT: 1\n"
	q, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, MaxOptionRunes, utf8.RuneCountInString(q.Options[0]))
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"no question":   "OPTIONS:\n1) a\n2) b\n3) c\n4) d\nCORRECT: 1",
		"three options": "QUESTION: q?\nOPTIONS:\n1) a\n2) b\n3) c\nCORRECT: 1",
		"correct zero":  "QUESTION: q?\nOPTIONS:\n1) a\n2) b\n3) c\n4) d\nCORRECT: 0",
		"correct high":  "QUESTION: q?\nOPTIONS:\n1) a\n2) b\n3) c\n4) d\nCORRECT: 5",
		"no correct":    "QUESTION: q?\nOPTIONS:\n1) a\n2) b\n3) c\n4) d\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

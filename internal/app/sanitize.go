package app

import (
	"math"
	"strconv"
	"strings"

	"decaquiz-service/internal/domain"
)

// SanitizeQuestions coerces arbitrary decoded JSON into valid questions.
// Items without text or with fewer than two non-empty options are dropped,
// and an out-of-range correct index falls back to 0. It never fails.
func SanitizeQuestions(raw any) []domain.Question {
	items, ok := raw.([]any)
	if !ok {
		return []domain.Question{}
	}

	questions := make([]domain.Question, 0, len(items))
	for _, item := range items {
		fields, _ := item.(map[string]any)
		text := strings.TrimSpace(CoerceString(fields["question"]))

		var options []string
		if rawOptions, ok := fields["options"].([]any); ok {
			for _, opt := range rawOptions {
				if s := strings.TrimSpace(CoerceString(opt)); s != "" {
					options = append(options, s)
				}
			}
		}
		if text == "" || len(options) < 2 {
			continue
		}

		correct := 0
		if n, ok := coerceInt(fields["correctIndex"]); ok && n >= 0 && n < len(options) {
			correct = n
		}
		questions = append(questions, domain.Question{Text: text, Options: options, CorrectIndex: correct})
	}
	return questions
}

// SanitizeAnswers returns exactly len(questions) answers. Each position holds the
// submitted index when it is an integer valid for that question, otherwise -1.
// Entries beyond len(questions) are ignored.
func SanitizeAnswers(raw any, questions []domain.Question) []int {
	answers := make([]int, len(questions))
	for i := range answers {
		answers[i] = domain.Unanswered
	}

	items, _ := raw.([]any)
	for i, value := range items {
		if i >= len(questions) {
			break
		}
		if n, ok := coerceInt(value); ok && n >= 0 && n < len(questions[i].Options) {
			answers[i] = n
		}
	}
	return answers
}

// CoerceString renders scalar JSON values as strings. Falsy scalars (0, false),
// null, objects and arrays become the empty string.
func CoerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return ""
	default:
		return ""
	}
}

// coerceInt accepts integral JSON numbers and strings holding an integer.
func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || t > math.MaxInt32 || t < math.MinInt32 {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

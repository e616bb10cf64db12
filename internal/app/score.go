package app

import "decaquiz-service/internal/domain"

// Score counts answers matching the question keys. It folds over answers and
// treats positions past the end of questions as misses.
func Score(answers []int, questions []domain.Question) int {
	total := 0
	for i, answer := range answers {
		if i < len(questions) && answer == questions[i].CorrectIndex {
			total++
		}
	}
	return total
}

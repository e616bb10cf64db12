package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"decaquiz-service/internal/config"
	"decaquiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// RecordProgress scores the participant's current answers and overwrites their
// progress row. Expiry is left to the store.
func (s *QuizService) RecordProgress(ctx context.Context, code, nickname string, rawAnswers any, avatarColor string) (domain.Progress, error) {
	quiz, nickname, answers, err := s.prepareAnswers(ctx, code, nickname, rawAnswers)
	if err != nil {
		return domain.Progress{}, err
	}

	progress, err := s.sessions.UpsertProgress(ctx, domain.Progress{
		QuizID:      quiz.ID,
		Nickname:    nickname,
		Answers:     answers,
		Score:       Score(answers, quiz.Questions),
		AvatarColor: strings.TrimSpace(avatarColor),
		UpdatedAt:   s.now(),
		ExpiresAt:   quiz.ExpiresAt,
	})
	if err != nil {
		return domain.Progress{}, fmt.Errorf("upsert progress: %w", err)
	}
	return progress, nil
}

// FinalizeSubmission appends a scored submission and clears the participant's
// progress. Repeated calls append repeated submissions.
func (s *QuizService) FinalizeSubmission(ctx context.Context, code, nickname string, rawAnswers any, avatarColor string) (domain.Submission, error) {
	quiz, nickname, answers, err := s.prepareAnswers(ctx, code, nickname, rawAnswers)
	if err != nil {
		return domain.Submission{}, err
	}

	submission, err := s.sessions.FinalizeSubmission(ctx, domain.Submission{
		ID:          s.ids(),
		QuizID:      quiz.ID,
		Nickname:    nickname,
		Score:       Score(answers, quiz.Questions),
		Answers:     answers,
		AvatarColor: strings.TrimSpace(avatarColor),
		CreatedAt:   s.now(),
		ExpiresAt:   quiz.ExpiresAt,
	})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("finalize submission: %w", err)
	}

	config.WithContext(ctx).WithFields(logrus.Fields{
		"quiz_id":  quiz.ID,
		"nickname": submission.Nickname,
		"score":    submission.Score,
	}).Info("submission finalized")
	return submission, nil
}

func (s *QuizService) prepareAnswers(ctx context.Context, code, nickname string, rawAnswers any) (domain.Quiz, string, []int, error) {
	quiz, err := s.GetQuizByCode(ctx, code)
	if err != nil {
		return domain.Quiz{}, "", nil, err
	}

	nickname = strings.TrimSpace(nickname)
	if nickname == "" || utf8.RuneCountInString(nickname) > domain.MaxNicknameLength {
		return domain.Quiz{}, "", nil, domain.ErrInvalidNickname
	}
	return quiz, nickname, SanitizeAnswers(rawAnswers, quiz.Questions), nil
}

package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"decaquiz-service/internal/domain"
)

type standingSource int

const (
	fromSubmission standingSource = iota + 1
	fromProgress
)

// standing is the single record chosen to represent a nickname.
type standing struct {
	source      standingSource
	nickname    string
	score       int
	answers     []int
	avatarColor string
	activityAt  time.Time
}

// GetLeaderboard merges submissions and progress rows into one ranked entry per
// nickname. A submission always wins over progress for the same nickname.
func (s *QuizService) GetLeaderboard(ctx context.Context, code string) (domain.Leaderboard, error) {
	quiz, err := s.GetQuizByCode(ctx, code)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	submissions, err := s.sessions.ListSubmissions(ctx, quiz.ID)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list submissions: %w", err)
	}
	progress, err := s.sessions.ListProgress(ctx, quiz.ID)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list progress: %w", err)
	}

	return BuildLeaderboard(quiz, submissions, progress), nil
}

// BuildLeaderboard ranks by score descending, then earlier last activity, then nickname.
// Among duplicate submissions for a nickname the best-scoring, then earliest, is kept.
func BuildLeaderboard(quiz domain.Quiz, submissions []domain.Submission, progress []domain.Progress) domain.Leaderboard {
	ordered := make([]domain.Submission, len(submissions))
	copy(ordered, submissions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	byNickname := make(map[string]standing, len(ordered)+len(progress))
	for _, sub := range ordered {
		if _, ok := byNickname[sub.Nickname]; ok {
			continue
		}
		byNickname[sub.Nickname] = standing{
			source:      fromSubmission,
			nickname:    sub.Nickname,
			score:       sub.Score,
			answers:     sub.Answers,
			avatarColor: sub.AvatarColor,
			activityAt:  sub.CreatedAt,
		}
	}
	for _, p := range progress {
		if existing, ok := byNickname[p.Nickname]; ok {
			if existing.source == fromSubmission || !p.UpdatedAt.After(existing.activityAt) {
				continue
			}
		}
		byNickname[p.Nickname] = standing{
			source:      fromProgress,
			nickname:    p.Nickname,
			score:       p.Score,
			answers:     p.Answers,
			avatarColor: p.AvatarColor,
			activityAt:  p.UpdatedAt,
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byNickname))
	for _, st := range byNickname {
		entries = append(entries, domain.LeaderboardEntry{
			Nickname:       st.nickname,
			Score:          st.score,
			AvatarColor:    st.avatarColor,
			Statuses:       answerStatuses(st.answers, quiz.Questions),
			LastActivityAt: st.activityAt,
			Finalized:      st.source == fromSubmission,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].LastActivityAt.Equal(entries[j].LastActivityAt) {
			return entries[i].LastActivityAt.Before(entries[j].LastActivityAt)
		}
		return entries[i].Nickname < entries[j].Nickname
	})

	return domain.Leaderboard{
		QuizID:        quiz.ID,
		QuizCode:      quiz.RoomCode,
		QuestionCount: len(quiz.Questions),
		Entries:       entries,
	}
}

func answerStatuses(answers []int, questions []domain.Question) []domain.AnswerStatus {
	statuses := make([]domain.AnswerStatus, len(questions))
	for i, q := range questions {
		switch {
		case i >= len(answers) || answers[i] < 0:
			statuses[i] = domain.StatusUnanswered
		case answers[i] == q.CorrectIndex:
			statuses[i] = domain.StatusCorrect
		default:
			statuses[i] = domain.StatusWrong
		}
	}
	return statuses
}

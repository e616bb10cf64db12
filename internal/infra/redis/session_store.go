package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"decaquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis implementation of app.SessionRepository.
// Keys:
//   - quiz:{quizID}:progress     HASH nickname -> progress JSON
//   - quiz:{quizID}:submissions  LIST of submission JSON, in finalize order
//
// Both keys EXPIREAT the quiz expiry, which every row of a quiz shares.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) UpsertProgress(ctx context.Context, progress domain.Progress) (domain.Progress, error) {
	data, err := json.Marshal(progress)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("marshal progress: %w", err)
	}
	key := s.progressKey(progress.QuizID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, progress.Nickname, data)
		pipe.ExpireAt(ctx, key, progress.ExpiresAt)
		return nil
	})
	if err != nil {
		return domain.Progress{}, fmt.Errorf("store progress: %w", err)
	}
	return progress, nil
}

// FinalizeSubmission pushes the submission and drops the progress field in one MULTI.
func (s *SessionStore) FinalizeSubmission(ctx context.Context, submission domain.Submission) (domain.Submission, error) {
	data, err := json.Marshal(submission)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("marshal submission: %w", err)
	}
	key := s.submissionsKey(submission.QuizID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.ExpireAt(ctx, key, submission.ExpiresAt)
		pipe.HDel(ctx, s.progressKey(submission.QuizID), submission.Nickname)
		return nil
	})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("store submission: %w", err)
	}
	return submission, nil
}

func (s *SessionStore) ListProgress(ctx context.Context, quizID string) ([]domain.Progress, error) {
	fields, err := s.client.HGetAll(ctx, s.progressKey(quizID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	out := make([]domain.Progress, 0, len(fields))
	for nickname, raw := range fields {
		var p domain.Progress
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("unmarshal progress for %q: %w", nickname, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *SessionStore) ListSubmissions(ctx context.Context, quizID string) ([]domain.Submission, error) {
	items, err := s.client.LRange(ctx, s.submissionsKey(quizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(items))
	for _, raw := range items {
		var sub domain.Submission
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, fmt.Errorf("unmarshal submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *SessionStore) progressKey(quizID string) string {
	return "quiz:" + quizID + ":progress"
}

func (s *SessionStore) submissionsKey(quizID string) string {
	return "quiz:" + quizID + ":submissions"
}

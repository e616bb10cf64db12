package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"decaquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// QuizStore keeps each quiz under its room code: SET quiz:code:{CODE} {quiz JSON} NX.
// The key expires with the quiz, so Redis handles expiry.
type QuizStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewQuizStore(client *redis.Client) *QuizStore {
	return &QuizStore{client: client, clock: time.Now}
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	ttl := quiz.ExpiresAt.Sub(s.clock())
	if ttl <= 0 {
		return fmt.Errorf("quiz %s already expired", quiz.ID)
	}
	ok, err := s.client.SetNX(ctx, codeKey(quiz.RoomCode), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store quiz: %w", err)
	}
	if !ok {
		return domain.ErrRoomCodeTaken
	}
	return nil
}

func (s *QuizStore) CodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, codeKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return n > 0, nil
}

func (s *QuizStore) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	data, err := s.client.Get(ctx, codeKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func codeKey(code string) string {
	return "quiz:code:" + code
}

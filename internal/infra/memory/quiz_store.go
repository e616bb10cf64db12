package memory

import (
	"context"
	"sync"
	"time"

	"decaquiz-service/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizStore. Expired quizzes
// are invisible to reads and removed by DeleteExpired.
type QuizStore struct {
	clock func() time.Time

	mu     sync.RWMutex
	byCode map[string]domain.Quiz
}

func NewQuizStore() *QuizStore {
	return NewQuizStoreWithClock(time.Now)
}

// NewQuizStoreWithClock allows deterministic expiry in tests.
func NewQuizStoreWithClock(now func() time.Time) *QuizStore {
	return &QuizStore{clock: now, byCode: make(map[string]domain.Quiz)}
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byCode[quiz.RoomCode]; ok && existing.ExpiresAt.After(s.clock()) {
		return domain.ErrRoomCodeTaken
	}
	s.byCode[quiz.RoomCode] = quiz
	return nil
}

func (s *QuizStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.byCode[code]
	return ok && quiz.ExpiresAt.After(s.clock()), nil
}

func (s *QuizStore) GetQuizByCode(_ context.Context, code string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.byCode[code]
	if !ok || !quiz.ExpiresAt.After(s.clock()) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for code, quiz := range s.byCode {
		if !quiz.ExpiresAt.After(now) {
			delete(s.byCode, code)
			removed++
		}
	}
	return removed, nil
}

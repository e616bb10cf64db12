package memory

import (
	"context"
	"sync"
	"time"

	"decaquiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	clock func() time.Time

	mu          sync.RWMutex
	progress    map[progressKey]domain.Progress
	submissions map[string][]domain.Submission
}

type progressKey struct {
	quizID   string
	nickname string
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock allows deterministic expiry in tests.
func NewSessionStoreWithClock(now func() time.Time) *SessionStore {
	return &SessionStore{
		clock:       now,
		progress:    make(map[progressKey]domain.Progress),
		submissions: make(map[string][]domain.Submission),
	}
}

func (s *SessionStore) UpsertProgress(_ context.Context, progress domain.Progress) (domain.Progress, error) {
	progress.Answers = append([]int(nil), progress.Answers...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progressKey{progress.QuizID, progress.Nickname}] = progress
	return progress, nil
}

// FinalizeSubmission appends and clears progress under one lock, so it is atomic here.
func (s *SessionStore) FinalizeSubmission(_ context.Context, submission domain.Submission) (domain.Submission, error) {
	submission.Answers = append([]int(nil), submission.Answers...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[submission.QuizID] = append(s.submissions[submission.QuizID], submission)
	delete(s.progress, progressKey{submission.QuizID, submission.Nickname})
	return submission, nil
}

func (s *SessionStore) ListProgress(_ context.Context, quizID string) ([]domain.Progress, error) {
	now := s.clock()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Progress, 0)
	for key, p := range s.progress {
		if key.quizID == quizID && p.ExpiresAt.After(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *SessionStore) ListSubmissions(_ context.Context, quizID string) ([]domain.Submission, error) {
	now := s.clock()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Submission, 0, len(s.submissions[quizID]))
	for _, sub := range s.submissions[quizID] {
		if sub.ExpiresAt.After(now) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, p := range s.progress {
		if !p.ExpiresAt.After(now) {
			delete(s.progress, key)
			removed++
		}
	}
	for quizID, subs := range s.submissions {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.ExpiresAt.After(now) {
				kept = append(kept, sub)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.submissions, quizID)
		} else {
			s.submissions[quizID] = kept
		}
	}
	return removed, nil
}

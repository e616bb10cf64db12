package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"decaquiz-service/internal/config"
	"decaquiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// QuizStore persists quizzes (in-memory, Redis, Postgres).
type QuizStore interface {
	// CreateQuiz stores a new quiz. It returns domain.ErrRoomCodeTaken when the
	// room code is already in use.
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	CodeExists(ctx context.Context, code string) (bool, error)
	// GetQuizByCode returns domain.ErrQuizNotFound for unknown or expired codes.
	GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error)
}

// SessionRepository stores participant progress and finalized submissions.
type SessionRepository interface {
	// UpsertProgress replaces the row for (QuizID, Nickname).
	UpsertProgress(ctx context.Context, progress domain.Progress) (domain.Progress, error)
	// FinalizeSubmission appends the submission and deletes the participant's
	// progress row, atomically where the backend allows it.
	FinalizeSubmission(ctx context.Context, submission domain.Submission) (domain.Submission, error)
	ListProgress(ctx context.Context, quizID string) ([]domain.Progress, error)
	ListSubmissions(ctx context.Context, quizID string) ([]domain.Submission, error)
}

const defaultCodeAttempts = 5

// QuizService contains the quiz lifecycle, progress and leaderboard use cases.
type QuizService struct {
	quizzes      QuizStore
	sessions     SessionRepository
	ttl          time.Duration
	codeAttempts int
	codes        CodeGenerator
	tokens       func() (string, error)
	ids          func() string
	now          func() time.Time
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithTTL overrides the quiz lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *QuizService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCodeAttempts bounds room code regeneration on collision.
func WithCodeAttempts(n int) Option {
	return func(s *QuizService) {
		if n >= 0 {
			s.codeAttempts = n
		}
	}
}

// WithCodeGenerator replaces the room code source.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *QuizService) { s.codes = gen }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(quizzes QuizStore, sessions SessionRepository, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:      quizzes,
		sessions:     sessions,
		ttl:          domain.DefaultQuizTTL,
		codeAttempts: defaultCodeAttempts,
		codes:        NewRoomCode,
		tokens:       NewHostToken,
		ids:          uuid.NewString,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuiz validates the title, sanitizes the questions and stores a new quiz
// under a fresh room code.
func (s *QuizService) CreateQuiz(ctx context.Context, title string, rawQuestions any) (domain.Quiz, error) {
	log := config.WithContext(ctx)

	title = strings.TrimSpace(title)
	questions := SanitizeQuestions(rawQuestions)
	if title == "" || utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return domain.Quiz{}, domain.ErrInvalidTitle
	}
	if len(questions) == 0 {
		return domain.Quiz{}, domain.ErrNoQuestions
	}

	// Best effort: after codeAttempts collisions the last code is used anyway and
	// the store's uniqueness constraint has the final word.
	code, err := s.codes()
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate room code: %w", err)
	}
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		taken, err := s.quizzes.CodeExists(ctx, code)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("check room code: %w", err)
		}
		if !taken {
			break
		}
		log.WithFields(logrus.Fields{"code": code, "attempt": attempt + 1}).Warn("room code collision")
		if code, err = s.codes(); err != nil {
			return domain.Quiz{}, fmt.Errorf("generate room code: %w", err)
		}
	}

	token, err := s.tokens()
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate host token: %w", err)
	}

	now := s.now()
	quiz := domain.Quiz{
		ID:        s.ids(),
		Title:     title,
		RoomCode:  code,
		HostToken: token,
		Questions: questions,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		if errors.Is(err, domain.ErrRoomCodeTaken) {
			log.WithField("code", code).Error("room code still taken after retries")
		}
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}

	log.WithFields(logrus.Fields{
		"quiz_id":   quiz.ID,
		"code":      quiz.RoomCode,
		"questions": len(quiz.Questions),
	}).Info("quiz created")
	return quiz, nil
}

// GetQuizByCode looks a quiz up by room code, case-insensitively.
func (s *QuizService) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	code = NormalizeCode(code)
	if code == "" {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.quizzes.GetQuizByCode(ctx, code)
}

// JoinQuiz is GetQuizByCode for participants entering a room.
func (s *QuizService) JoinQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	quiz, err := s.GetQuizByCode(ctx, code)
	if err != nil {
		return domain.Quiz{}, err
	}
	config.WithContext(ctx).WithField("quiz_id", quiz.ID).Debug("participant joined")
	return quiz, nil
}

// NormalizeCode trims and upper-cases a room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"decaquiz-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

const uniqueViolation = "23505"

// Store implements app.QuizStore, app.SessionRepository and app.ExpirySweeper
// on Postgres. Reads hide expired rows; DeleteExpired removes them.
type Store struct {
	conn  *Connector
	clock func() time.Time
}

func NewStore(conn *Connector) *Store {
	return &Store{conn: conn, clock: time.Now}
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	pool, err := s.conn.Pool(ctx)
	if err != nil {
		return err
	}
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO quizzes (id, title, room_code, host_token, questions, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
		quiz.ID, quiz.Title, quiz.RoomCode, quiz.HostToken, string(questions), quiz.CreatedAt, quiz.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrRoomCodeTaken
		}
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

// CodeExists also counts expired rows that have not been swept yet, since they
// still hold the unique room code.
func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	pool, err := s.conn.Pool(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	err = pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE room_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check room code: %w", err)
	}
	return exists, nil
}

func (s *Store) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	pool, err := s.conn.Pool(ctx)
	if err != nil {
		return domain.Quiz{}, err
	}
	var (
		quiz domain.Quiz
		raw  []byte
	)
	err = pool.QueryRow(ctx, `
		SELECT id, title, room_code, host_token, questions, created_at, expires_at
		FROM quizzes WHERE room_code = $1 AND expires_at > $2`, code, s.clock()).
		Scan(&quiz.ID, &quiz.Title, &quiz.RoomCode, &quiz.HostToken, &raw, &quiz.CreatedAt, &quiz.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return quiz, nil
}

func (s *Store) UpsertProgress(ctx context.Context, progress domain.Progress) (domain.Progress, error) {
	pool, err := s.conn.Pool(ctx)
	if err != nil {
		return domain.Progress{}, err
	}
	answers, err := json.Marshal(progress.Answers)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("marshal answers: %w", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO progress (quiz_id, nickname, answers, score, avatar_color, updated_at, expires_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7)
		ON CONFLICT (quiz_id, nickname) DO UPDATE SET
			answers = EXCLUDED.answers,
			score = EXCLUDED.score,
			avatar_color = EXCLUDED.avatar_color,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`,
		progress.QuizID, progress.Nickname, string(answers), progress.Score, progress.AvatarColor,
		progress.UpdatedAt, progress.ExpiresAt)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("upsert progress: %w", err)
	}
	return progress, nil
}

// FinalizeSubmission inserts the submission and deletes progress in one transaction.
func (s *Store) FinalizeSubmission(ctx context.Context, submission domain.Submission) (domain.Submission, error) {
	pool, err := s.conn.Pool(ctx)
	if err != nil {
		return domain.Submission{}, err
	}
	answers, err := json.Marshal(submission.Answers)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("marshal answers: %w", err)
	}
	err = pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO submissions (id, quiz_id, nickname, score, answers, avatar_color, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8)`,
			submission.ID, submission.QuizID, submission.Nickname, submission.Score, string(answers),
			submission.AvatarColor, submission.CreatedAt, submission.ExpiresAt); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM progress WHERE quiz_id = $1 AND nickname = $2`,
			submission.QuizID, submission.Nickname); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return submission, nil
}

func (s *Store) ListProgress(ctx context.Context, quizID string) ([]domain.Progress, error) {
	pool, err := s.conn.Pool(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `
		SELECT quiz_id, nickname, answers, score, avatar_color, updated_at, expires_at
		FROM progress WHERE quiz_id = $1 AND expires_at > $2
		ORDER BY updated_at DESC`, quizID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Progress, 0)
	for rows.Next() {
		var (
			p   domain.Progress
			raw []byte
		)
		if err := rows.Scan(&p.QuizID, &p.Nickname, &raw, &p.Score, &p.AvatarColor, &p.UpdatedAt, &p.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		if err := json.Unmarshal(raw, &p.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListSubmissions(ctx context.Context, quizID string) ([]domain.Submission, error) {
	pool, err := s.conn.Pool(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, `
		SELECT id, quiz_id, nickname, score, answers, avatar_color, created_at, expires_at
		FROM submissions WHERE quiz_id = $1 AND expires_at > $2
		ORDER BY score DESC, created_at ASC`, quizID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Submission, 0)
	for rows.Next() {
		var (
			sub domain.Submission
			raw []byte
		)
		if err := rows.Scan(&sub.ID, &sub.QuizID, &sub.Nickname, &sub.Score, &raw, &sub.AvatarColor, &sub.CreatedAt, &sub.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal(raw, &sub.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// DeleteExpired removes every quiz, progress and submission row expired at now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	pool, err := s.conn.Pool(ctx)
	if err != nil {
		return 0, err
	}
	var removed int64
	err = pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		removed = 0
		for _, table := range []string{"submissions", "progress", "quizzes"} {
			tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE expires_at <= $1`, now)
			if err != nil {
				return fmt.Errorf("sweep %s: %w", table, err)
			}
			removed += tag.RowsAffected()
		}
		return nil
	})
	return removed, err
}

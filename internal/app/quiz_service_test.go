package app_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"decaquiz-service/internal/app"
	"decaquiz-service/internal/domain"
	"decaquiz-service/internal/infra/memory"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	service  *app.QuizService
	quizzes  *memory.QuizStore
	sessions *memory.SessionStore
	clock    *testClock
}

func newFixture(opts ...app.Option) fixture {
	clock := &testClock{now: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)}
	quizzes := memory.NewQuizStoreWithClock(clock.Now)
	sessions := memory.NewSessionStoreWithClock(clock.Now)
	opts = append([]app.Option{app.WithClock(clock.Now)}, opts...)
	return fixture{
		service:  app.NewQuizService(quizzes, sessions, opts...),
		quizzes:  quizzes,
		sessions: sessions,
		clock:    clock,
	}
}

// arithmetic has keys 1, 0, 2.
func arithmetic() []any {
	return []any{
		map[string]any{"question": "2 + 2?", "options": []any{"3", "4"}, "correctIndex": float64(1)},
		map[string]any{"question": "1 + 0?", "options": []any{"1", "2"}, "correctIndex": float64(0)},
		map[string]any{"question": "3 * 3?", "options": []any{"6", "8", "9"}, "correctIndex": float64(2)},
	}
}

func mustCreate(t *testing.T, f fixture) domain.Quiz {
	t.Helper()
	quiz, err := f.service.CreateQuiz(context.Background(), "Arithmetic", arithmetic())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func TestCreateQuizThenFetchByCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	quiz, err := f.service.CreateQuiz(ctx, "  Arithmetic  ", arithmetic())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.Title != "Arithmetic" {
		t.Fatalf("expected trimmed title, got %q", quiz.Title)
	}
	if !regexp.MustCompile(`^[A-HJ-NP-Z2-9]{6}$`).MatchString(quiz.RoomCode) {
		t.Fatalf("unexpected room code %q", quiz.RoomCode)
	}
	if len(quiz.HostToken) != 32 {
		t.Fatalf("expected 32 hex chars of host token, got %q", quiz.HostToken)
	}
	if got := quiz.ExpiresAt.Sub(quiz.CreatedAt); got != domain.DefaultQuizTTL {
		t.Fatalf("expected 10m lifetime, got %s", got)
	}

	fetched, err := f.service.GetQuizByCode(ctx, " "+strings.ToLower(quiz.RoomCode)+" ")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if fetched.ID != quiz.ID || len(fetched.Questions) != 3 {
		t.Fatalf("unexpected quiz %+v", fetched)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	long := ""
	for i := 0; i < domain.MaxTitleLength+1; i++ {
		long += "x"
	}
	cases := []struct {
		name      string
		title     string
		questions any
		want      error
	}{
		{"empty title", "   ", arithmetic(), domain.ErrInvalidTitle},
		{"long title", long, arithmetic(), domain.ErrInvalidTitle},
		{"no questions", "Quiz", []any{}, domain.ErrNoQuestions},
		{"questions not a list", "Quiz", "nope", domain.ErrNoQuestions},
		{"all questions invalid", "Quiz", []any{map[string]any{"question": "Q", "options": []any{"only"}}}, domain.ErrNoQuestions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.CreateQuiz(ctx, tc.title, tc.questions); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateQuizRetriesCollidingCode(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	next := 0
	gen := func() (string, error) {
		code := codes[next]
		if next < len(codes)-1 {
			next++
		}
		return code, nil
	}
	f := newFixture(app.WithCodeGenerator(gen))

	first := mustCreate(t, f)
	if first.RoomCode != "AAAAAA" {
		t.Fatalf("expected first code AAAAAA, got %s", first.RoomCode)
	}
	second := mustCreate(t, f)
	if second.RoomCode != "BBBBBB" {
		t.Fatalf("expected regenerated code BBBBBB, got %s", second.RoomCode)
	}
}

func TestCreateQuizGivesUpAfterAttempts(t *testing.T) {
	f := newFixture(app.WithCodeGenerator(func() (string, error) { return "CCCCCC", nil }), app.WithCodeAttempts(2))
	mustCreate(t, f)

	_, err := f.service.CreateQuiz(context.Background(), "Again", arithmetic())
	if !errors.Is(err, domain.ErrRoomCodeTaken) {
		t.Fatalf("expected room code conflict from the store, got %v", err)
	}
}

func TestCreateQuizSurfacesCodeGeneratorError(t *testing.T) {
	entropy := errors.New("entropy source unavailable")
	f := newFixture(app.WithCodeGenerator(func() (string, error) { return "", entropy }))

	_, err := f.service.CreateQuiz(context.Background(), "Arithmetic", arithmetic())
	if !errors.Is(err, entropy) {
		t.Fatalf("expected generator error, got %v", err)
	}
	if exists, _ := f.quizzes.CodeExists(context.Background(), ""); exists {
		t.Fatalf("no quiz should be stored after a generator failure")
	}

	// A failure while regenerating after a collision is surfaced too.
	calls := 0
	f = newFixture(app.WithCodeGenerator(func() (string, error) {
		calls++
		if calls > 1 {
			return "", entropy
		}
		return "DDDDDD", nil
	}))
	mustCreate(t, f)
	calls = 0
	if _, err := f.service.CreateQuiz(context.Background(), "Again", arithmetic()); !errors.Is(err, entropy) {
		t.Fatalf("expected generator error on regeneration, got %v", err)
	}
}

func TestUnknownAndExpiredCodes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.GetQuizByCode(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.service.JoinQuiz(ctx, ""); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found for empty code, got %v", err)
	}

	quiz := mustCreate(t, f)
	f.clock.Advance(domain.DefaultQuizTTL + time.Second)
	if _, err := f.service.JoinQuiz(ctx, quiz.RoomCode); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected expired quiz to be not found, got %v", err)
	}
}

func TestRecordProgressIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := mustCreate(t, f)

	answers := []any{float64(1), float64(1), nil}
	first, err := f.service.RecordProgress(ctx, quiz.RoomCode, "alice", answers, "#ff0000")
	if err != nil {
		t.Fatalf("record progress: %v", err)
	}
	second, err := f.service.RecordProgress(ctx, quiz.RoomCode, " alice ", answers, "#ff0000")
	if err != nil {
		t.Fatalf("record progress again: %v", err)
	}
	if first.Score != 1 || second.Score != 1 {
		t.Fatalf("expected score 1 both times, got %d and %d", first.Score, second.Score)
	}

	rows, _ := f.sessions.ListProgress(ctx, quiz.ID)
	if len(rows) != 1 {
		t.Fatalf("expected one progress row, got %d", len(rows))
	}
	want := []int{1, 1, domain.Unanswered}
	for i, a := range rows[0].Answers {
		if a != want[i] {
			t.Fatalf("answers = %v, want %v", rows[0].Answers, want)
		}
	}
}

func TestNicknameValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := mustCreate(t, f)

	for _, nick := range []string{"", "   ", "abcdefghijklmnopqrstu"} {
		if _, err := f.service.RecordProgress(ctx, quiz.RoomCode, nick, nil, ""); !errors.Is(err, domain.ErrInvalidNickname) {
			t.Fatalf("nickname %q: expected invalid nickname, got %v", nick, err)
		}
		if _, err := f.service.FinalizeSubmission(ctx, quiz.RoomCode, nick, nil, ""); !errors.Is(err, domain.ErrInvalidNickname) {
			t.Fatalf("nickname %q: expected invalid nickname on submit, got %v", nick, err)
		}
	}

	// Quiz lookup happens first.
	if _, err := f.service.RecordProgress(ctx, "ZZZZZZ", "", nil, ""); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found before nickname validation, got %v", err)
	}
}

func TestFinalizeClearsProgressAndAppends(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := mustCreate(t, f)

	if _, err := f.service.RecordProgress(ctx, quiz.RoomCode, "bob", []any{float64(1)}, ""); err != nil {
		t.Fatalf("record progress: %v", err)
	}
	sub, err := f.service.FinalizeSubmission(ctx, quiz.RoomCode, "bob", []any{float64(1), float64(0), float64(2)}, "")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if sub.Score != 3 || sub.ID == "" {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if _, err := f.service.FinalizeSubmission(ctx, quiz.RoomCode, "bob", nil, ""); err != nil {
		t.Fatalf("second finalize: %v", err)
	}

	progress, _ := f.sessions.ListProgress(ctx, quiz.ID)
	if len(progress) != 0 {
		t.Fatalf("expected progress cleared, got %d rows", len(progress))
	}
	subs, _ := f.sessions.ListSubmissions(ctx, quiz.ID)
	if len(subs) != 2 {
		t.Fatalf("expected two submissions, got %d", len(subs))
	}
}

func TestLeaderboardPrefersSubmissionOverProgress(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := mustCreate(t, f)

	// alice finalized 3 then kept a stale progress row of 1.
	if _, err := f.service.FinalizeSubmission(ctx, quiz.RoomCode, "alice", []any{float64(1), float64(0), float64(2)}, "#111111"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	f.clock.Advance(time.Second)
	if _, err := f.service.RecordProgress(ctx, quiz.RoomCode, "alice", []any{float64(1)}, ""); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if _, err := f.service.RecordProgress(ctx, quiz.RoomCode, "bob", []any{float64(0), float64(0)}, ""); err != nil {
		t.Fatalf("progress bob: %v", err)
	}

	lb, err := f.service.GetLeaderboard(ctx, strings.ToLower(quiz.RoomCode))
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb.QuizCode != quiz.RoomCode || lb.QuestionCount != 3 {
		t.Fatalf("unexpected leaderboard header %+v", lb)
	}
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", lb.Entries)
	}
	alice := lb.Entries[0]
	if alice.Nickname != "alice" || alice.Score != 3 || !alice.Finalized || alice.AvatarColor != "#111111" {
		t.Fatalf("expected alice's submission first, got %+v", alice)
	}
	bob := lb.Entries[1]
	wantStatuses := []domain.AnswerStatus{domain.StatusWrong, domain.StatusCorrect, domain.StatusUnanswered}
	for i, s := range bob.Statuses {
		if s != wantStatuses[i] {
			t.Fatalf("bob statuses = %v, want %v", bob.Statuses, wantStatuses)
		}
	}
	if bob.Finalized {
		t.Fatalf("bob only has progress")
	}
}

func TestLeaderboardOfUnknownQuiz(t *testing.T) {
	f := newFixture()
	if _, err := f.service.GetLeaderboard(context.Background(), "ZZZZZZ"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

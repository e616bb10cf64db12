package domain

import "time"

const (
	// MaxTitleLength bounds quiz titles (in characters).
	MaxTitleLength = 80
	// MaxNicknameLength bounds participant nicknames (in characters).
	MaxNicknameLength = 20
	// RoomCodeLength is the number of symbols in a room code.
	RoomCodeLength = 6
	// RoomCodeAlphabet excludes the ambiguous I, O, 0 and 1.
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// DefaultQuizTTL is how long a quiz stays reachable after creation.
	DefaultQuizTTL = 10 * time.Minute
	// Unanswered marks a question the participant has not answered.
	Unanswered = -1
)

// Question models an MCQ question. CorrectIndex is always valid for Options.
type Question struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// Quiz is a host-created set of questions reachable by room code until it expires.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	RoomCode  string     `json:"roomCode"`
	HostToken string     `json:"hostToken"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Progress is a participant's in-flight answer snapshot, one per (quiz, nickname).
type Progress struct {
	QuizID      string    `json:"quizId"`
	Nickname    string    `json:"nickname"`
	Answers     []int     `json:"answers"`
	Score       int       `json:"score"`
	AvatarColor string    `json:"avatarColor"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Submission is a finalized result. Submissions are append-only.
type Submission struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quizId"`
	Nickname    string    `json:"nickname"`
	Score       int       `json:"score"`
	Answers     []int     `json:"answers"`
	AvatarColor string    `json:"avatarColor"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AnswerStatus is the per-question outcome shown on the leaderboard.
type AnswerStatus string

const (
	StatusCorrect    AnswerStatus = "correct"
	StatusWrong      AnswerStatus = "wrong"
	StatusUnanswered AnswerStatus = "unanswered"
)

// LeaderboardEntry is one ranked participant.
type LeaderboardEntry struct {
	Nickname       string         `json:"nickname"`
	Score          int            `json:"score"`
	AvatarColor    string         `json:"avatarColor"`
	Statuses       []AnswerStatus `json:"statuses"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
	Finalized      bool           `json:"finalized"`
}

// Leaderboard captures the ordered standings for a quiz.
type Leaderboard struct {
	QuizID        string             `json:"quizId"`
	QuizCode      string             `json:"quizCode"`
	QuestionCount int                `json:"questionCount"`
	Entries       []LeaderboardEntry `json:"submissions"`
}

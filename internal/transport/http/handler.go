package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"decaquiz-service/internal/app"
	"decaquiz-service/internal/domain"
	"decaquiz-service/internal/extract"
	"decaquiz-service/internal/infra/drive"
	"github.com/go-chi/chi/v5"
)

// FileFetcher downloads a shared file for import.
type FileFetcher interface {
	Fetch(ctx context.Context, shareURL string) (drive.File, error)
}

// Handler exposes the quiz use cases as a JSON API.
type Handler struct {
	service   *app.QuizService
	extractor *extract.Extractor
	fetcher   FileFetcher
	maxUpload int64
}

func NewHandler(service *app.QuizService, extractor *extract.Extractor, fetcher FileFetcher, maxUpload int64) *Handler {
	return &Handler{service: service, extractor: extractor, fetcher: fetcher, maxUpload: maxUpload}
}

type createQuizRequest struct {
	Title     any `json:"title"`
	Questions any `json:"questions"`
}

type createQuizResponse struct {
	QuizID    string    `json:"quizId"`
	QuizCode  string    `json:"quizCode"`
	HostToken string    `json:"hostToken"`
	CreatedAt time.Time `json:"createdAt"`
}

type quizResponse struct {
	QuizID    string            `json:"quizId"`
	QuizCode  string            `json:"quizCode"`
	Title     string            `json:"title"`
	Questions []domain.Question `json:"questions"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type participantRequest struct {
	Nickname    any `json:"nickname"`
	Answers     any `json:"answers"`
	AvatarColor any `json:"avatarColor"`
}

type progressResponse struct {
	Nickname    string    `json:"nickname"`
	Score       int       `json:"score"`
	AvatarColor string    `json:"avatarColor"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type submissionResponse struct {
	SubmissionID string    `json:"submissionId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type importRequest struct {
	URL any `json:"url"`
}

func (h *Handler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	const fallback = "Unable to create quiz."
	var req createQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, fallback)
		return
	}

	quiz, err := h.service.CreateQuiz(r.Context(), app.CoerceString(req.Title), req.Questions)
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusCreated, createQuizResponse{
		QuizID:    quiz.ID,
		QuizCode:  quiz.RoomCode,
		HostToken: quiz.HostToken,
		CreatedAt: quiz.CreatedAt,
	})
}

func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuizByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err, "Unable to load quiz.")
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{
		QuizID:    quiz.ID,
		QuizCode:  quiz.RoomCode,
		Title:     quiz.Title,
		Questions: quiz.Questions,
		CreatedAt: quiz.CreatedAt,
		ExpiresAt: quiz.ExpiresAt,
	})
}

func (h *Handler) JoinQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.JoinQuiz(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err, "Unable to join the quiz.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"quizId": quiz.ID})
}

func (h *Handler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	const fallback = "Unable to update progress."
	var req participantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, fallback)
		return
	}

	progress, err := h.service.RecordProgress(r.Context(), chi.URLParam(r, "code"),
		app.CoerceString(req.Nickname), req.Answers, app.CoerceString(req.AvatarColor))
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{
		Nickname:    progress.Nickname,
		Score:       progress.Score,
		AvatarColor: progress.AvatarColor,
		UpdatedAt:   progress.UpdatedAt,
	})
}

func (h *Handler) FinalizeSubmission(w http.ResponseWriter, r *http.Request) {
	const fallback = "Unable to submit score."
	var req participantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, fallback)
		return
	}

	submission, err := h.service.FinalizeSubmission(r.Context(), chi.URLParam(r, "code"),
		app.CoerceString(req.Nickname), req.Answers, app.CoerceString(req.AvatarColor))
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse{
		SubmissionID: submission.ID,
		CreatedAt:    submission.CreatedAt,
	})
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.GetLeaderboard(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err, "Unable to load leaderboard.")
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// UploadFile parses the multipart field "file" into questions.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	const fallback = "Unable to parse file."
	// Room for multipart framing on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+64*1024)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			writeError(w, r, domain.ErrNoFile, fallback)
			return
		}
		writeError(w, r, domain.ErrUploadFailed.Wrap(err), fallback)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		writeError(w, r, domain.ErrNoFile, fallback)
		return
	}
	if err != nil {
		writeError(w, r, domain.ErrUploadFailed.Wrap(err), fallback)
		return
	}
	defer file.Close()
	if header.Size > h.maxUpload {
		writeError(w, r, domain.ErrUploadFailed, fallback)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, domain.ErrUploadFailed.Wrap(err), fallback)
		return
	}
	questions, err := h.extractor.Extract(data, extract.Hint{
		ContentType: header.Header.Get("Content-Type"),
		FileName:    header.Filename,
	})
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// ImportURL downloads a shared Drive file and parses it into questions.
func (h *Handler) ImportURL(w http.ResponseWriter, r *http.Request) {
	const fallback = "Unable to import the file."
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, fallback)
		return
	}

	file, err := h.fetcher.Fetch(r.Context(), app.CoerceString(req.URL))
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	questions, err := h.extractor.Extract(file.Data, extract.Hint{
		ContentType: file.ContentType,
		SourceURL:   file.URL,
	})
	if err != nil {
		writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

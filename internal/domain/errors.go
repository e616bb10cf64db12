package domain

import "errors"

// Kind classifies an Error for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindUpstream
	KindRateLimited
)

// Error is a client-facing failure. Message is safe to return to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind and message so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Wrap returns a copy of the sentinel carrying cause.
func (e *Error) Wrap(cause error) error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: cause}
}

// KindOf reports the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

var (
	// ErrInvalidTitle rejects an empty or overlong quiz title.
	ErrInvalidTitle = &Error{Kind: KindValidation, Message: "Title is required (max 80 characters)."}
	// ErrNoQuestions is returned when no question survives sanitization.
	ErrNoQuestions = &Error{Kind: KindValidation, Message: "Please include at least one valid question."}
	// ErrInvalidNickname rejects an empty or overlong nickname.
	ErrInvalidNickname = &Error{Kind: KindValidation, Message: "Nickname is required (max 20 characters)."}
	// ErrInvalidBody indicates the request body was not JSON.
	ErrInvalidBody = &Error{Kind: KindValidation, Message: "Request body must be valid JSON."}
	// ErrNoFile is returned when an upload carries no file part.
	ErrNoFile = &Error{Kind: KindValidation, Message: "No file provided."}
	// ErrUploadFailed covers malformed or oversized multipart uploads.
	ErrUploadFailed = &Error{Kind: KindValidation, Message: "File upload failed."}
	// ErrDecode indicates file bytes could not be turned into text.
	ErrDecode = &Error{Kind: KindValidation, Message: "Unable to parse file."}
	// ErrShareLinkRequired is returned when import-url has no url.
	ErrShareLinkRequired = &Error{Kind: KindValidation, Message: "Share link is required."}
	// ErrNotShareLink is returned for urls that are not Drive file links.
	ErrNotShareLink = &Error{Kind: KindValidation, Message: "Use a Google Drive file share link."}

	// ErrQuizNotFound indicates the quiz is absent or expired.
	ErrQuizNotFound = &Error{Kind: KindNotFound, Message: "Quiz not found."}

	// ErrDownloadFailed indicates the remote file could not be fetched.
	ErrDownloadFailed = &Error{Kind: KindUpstream, Message: "Unable to download the file."}
	// ErrFileNotPublic indicates the remote answered with an HTML interstitial.
	ErrFileNotPublic = &Error{Kind: KindUpstream, Message: "Make the file public (Anyone with the link) and try again."}
	// ErrFileTooLarge indicates the remote file exceeded the byte ceiling.
	ErrFileTooLarge = &Error{Kind: KindUpstream, Message: "File is too large (max 3MB)."}

	// ErrTooManyJoins is returned by the join rate limiter.
	ErrTooManyJoins = &Error{Kind: KindRateLimited, Message: "Too many join attempts. Try again shortly."}
)

// ErrRoomCodeTaken is returned by stores when a room code is already in use.
var ErrRoomCodeTaken = errors.New("room code already in use")

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"decaquiz-service/internal/config"
	"decaquiz-service/internal/domain"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps the domain taxonomy to a status code. Anything unclassified is
// logged and answered with the route's generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var de *domain.Error
	if errors.As(err, &de) {
		status := http.StatusInternalServerError
		switch de.Kind {
		case domain.KindValidation, domain.KindUpstream:
			status = http.StatusBadRequest
		case domain.KindNotFound:
			status = http.StatusNotFound
		case domain.KindRateLimited:
			status = http.StatusTooManyRequests
		}
		if status != http.StatusInternalServerError {
			if de.Err != nil {
				config.WithContext(r.Context()).WithError(de.Err).Debug(de.Message)
			}
			writeJSON(w, status, errorResponse{Message: de.Message})
			return
		}
	}

	config.WithContext(r.Context()).WithError(err).Error(fallback)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Message: fallback})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.ErrInvalidBody.Wrap(err)
	}
	return nil
}

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/snipvault/snipvault/internal/apperrors"
)

// kindResponses maps every error kind to its status code and the
// message used when the error carries none. Kinds outside the table
// fall through to a plain 500.
var kindResponses = map[apperrors.Kind]struct {
	status  int
	message string
}{
	apperrors.KindInvalidInput: {http.StatusBadRequest, "invalid request"},
	apperrors.KindUnauthorized: {http.StatusUnauthorized, "unauthorized"},
	apperrors.KindForbidden:    {http.StatusForbidden, "forbidden"},
	apperrors.KindNotFound:     {http.StatusNotFound, "not found"},
	apperrors.KindConflict:     {http.StatusConflict, "conflict"},
	apperrors.KindRateLimited:  {http.StatusTooManyRequests, "too many requests"},
	apperrors.KindUpstream:     {http.StatusBadGateway, "upstream error"},
}

func writeAppError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp, ok := kindResponses[appErr.Kind]
	if !ok {
		resp.status = http.StatusInternalServerError
		resp.message = "internal error"
	}
	if appErr.Message != "" {
		resp.message = appErr.Message
	}

	if appErr.Kind == apperrors.KindRateLimited && appErr.RetryAfter > 0 {
		seconds := int(appErr.RetryAfter.Seconds())
		if seconds <= 0 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	http.Error(w, resp.message, resp.status)
}

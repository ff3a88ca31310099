package httpx

import (
	"errors"
	"net/http"

	"github.com/shelfline/shelfline/internal/shared"
)

// RespondError maps domain errors onto the response envelope.
//
// Validation and precondition failures surface their message; unexpected
// errors stay opaque unless devMode is set.
func RespondError(w http.ResponseWriter, err error, devMode bool) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrPreconditionFailed):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrDeleteBlocked):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Fail(w, http.StatusConflict, err.Error())
	default:
		if devMode {
			Fail(w, http.StatusInternalServerError, err.Error())
			return
		}
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}

package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfline/shelfline/internal/shared"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("item 1: %w", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("bad input: %w", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("wrong state: %w", shared.ErrPreconditionFailed), http.StatusBadRequest},
		{fmt.Errorf("not sold: %w", shared.ErrInvalidState), http.StatusBadRequest},
		{fmt.Errorf("has listings: %w", shared.ErrDeleteBlocked), http.StatusBadRequest},
		{fmt.Errorf("already listed: %w", shared.ErrConflict), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err, false)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())

		var env Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.False(t, env.Success)
		require.NotEmpty(t, env.Error)
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: connection refused"), false)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "internal error", env.Error)

	rec = httptest.NewRecorder()
	RespondError(rec, errors.New("pq: connection refused"), true)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Contains(t, env.Error, "connection refused")
}

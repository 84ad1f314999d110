package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/store"
)

type errorBody struct {
	Error string       `json:"error"`
	Code  kerrors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and a JSON body. Internal errors are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		err = kerrors.Wrap(kerrors.ErrCodeRecordNotFound, err, "record not found")
	}
	status := kerrors.HTTPStatus(err)
	body := errorBody{Error: kerrors.UserMessage(err), Code: kerrors.GetCode(err)}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		body = errorBody{Error: "internal error", Code: kerrors.ErrCodeInternal}
	}
	writeJSON(w, status, body)
}

func chiID(r *http.Request) string { return chi.URLParam(r, "id") }

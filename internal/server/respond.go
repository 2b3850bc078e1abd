package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

// ErrorResponse is the standard error body: a human message plus the
// optional dedup-conflict fields.
type ErrorResponse struct {
	Error      string  `json:"error"`
	ExistingID string  `json:"existing_id,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}

// respondError classifies err via hexmem.KindOf and writes the matching
// status code and body, unwrapping a ConflictError for its dedup fields.
func respondError(w http.ResponseWriter, err error) {
	kind := hexmem.KindOf(err)
	status := hexmem.StatusCode(kind)
	body := ErrorResponse{Error: err.Error()}
	var conflict *hexmem.ConflictError
	if ce, ok := asConflictError(err); ok {
		conflict = ce
		body.ExistingID = conflict.ExistingID
		body.Similarity = conflict.Similarity
	}
	if status == http.StatusInternalServerError {
		log.Printf("server: internal error: %v", err)
	}
	respondJSON(w, status, body)
}

func asConflictError(err error) (*hexmem.ConflictError, bool) {
	type unwrapper interface{ Unwrap() error }
	for e := err; e != nil; {
		if ce, ok := e.(*hexmem.ConflictError); ok {
			return ce, true
		}
		u, ok := e.(unwrapper)
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return nil, false
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", hexmem.ErrInvalidArgument, err)
	}
	return nil
}

package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/errors"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// architectureBody is the registry as returned by every mutating route.
type architectureBody struct {
	Title        string       `json:"title,omitempty"`
	Layers       []arch.Layer `json:"layers"`
	TotalNeurons int          `json:"totalNeurons"`
	MaxNeurons   int          `json:"maxNeurons"`
}

func newArchitectureBody(a *arch.Architecture) architectureBody {
	return architectureBody{
		Title:        a.Title,
		Layers:       a.Layers,
		TotalNeurons: a.TotalNeurons(),
		MaxNeurons:   a.MaxNeurons(),
	}
}

// statusFor maps error codes to HTTP status codes.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidIndex, errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeCapacity, errors.ErrCodeLastLayer:
		return http.StatusConflict
	case errors.ErrCodeBelowMinimum, errors.ErrCodeInvalidLayer:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Code: code, Message: msg})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched and reports false.
func decodeBody(r *http.Request, v any) (bool, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return false, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid request body")
	}
	return true, nil
}

// maxBodyBytes bounds request bodies, including weight dumps.
const maxBodyBytes = 16 << 20

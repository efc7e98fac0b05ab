package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/matzehuels/tiledgallery/pkg/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error struct {
		Code    errors.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig,
		errors.ErrCodeInvalidImage, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case errors.ErrCodeLimitExceeded:
		return http.StatusTooManyRequests
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeCapabilityUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	var body errorBody
	body.Error.Code = code
	body.Error.Message = errors.UserMessage(err)
	s.writeJSON(w, status, body)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

// queryFloat parses a non-negative float query parameter. Missing values
// yield def.
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be a non-negative number, got %q", name, raw)
	}
	return v, nil
}

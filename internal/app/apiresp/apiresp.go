package apiresp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
)

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"requestId,omitempty"`
}

type Envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
	Meta  Meta          `json:"meta"`
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	write(w, r, status, Envelope{OK: true, Data: data})
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	write(w, r, status, Envelope{
		OK: false,
		Error: &ErrorPayload{
			Code:    codeFromStatus(status),
			Message: msg,
		},
	})
}

// WriteFile sends data as a download attachment.
func WriteFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func write(w http.ResponseWriter, r *http.Request, status int, res Envelope) {
	res.Meta = Meta{RequestID: middleware.GetReqID(r.Context())}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return "error"
	}
}

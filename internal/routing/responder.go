package routing

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorEnvelope is the JSON body every error response carries. Error is
// a stable machine-readable code; Detail is a human-readable hint and
// may be empty.
type ErrorEnvelope struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func WriteJSONError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		OK:      false,
		Error:   code,
		Detail:  detail,
		TraceID: traceIDFromRequest(r),
	})
}

// WriteClassError renders an error in the shape callers of the given
// route class expect. API-shaped classes get the JSON envelope; browser
// facing classes get a plain text page.
func WriteClassError(w http.ResponseWriter, r *http.Request, rc RouteClass, status int, code, detail string) {
	switch rc {
	case RouteClassInternalAPI, RouteClassPublicAPI, RouteClassWebhook, RouteClassOps:
		WriteJSONError(w, r, status, code, detail)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		if detail == "" {
			detail = code
		}
		_, _ = w.Write([]byte(detail + "\n"))
	}
}

// traceIDFromRequest extracts the trace-id field of a W3C traceparent
// header, if the header is well formed.
func traceIDFromRequest(r *http.Request) string {
	tp := r.Header.Get("traceparent")
	if tp == "" {
		return ""
	}
	parts := strings.Split(tp, "-")
	if len(parts) < 3 {
		return ""
	}
	traceID := parts[1]
	if len(traceID) != 32 {
		return ""
	}
	for _, c := range traceID {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		if !isHex {
			return ""
		}
	}
	if traceID == strings.Repeat("0", 32) {
		return ""
	}
	return traceID
}

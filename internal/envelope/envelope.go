// Package envelope renders gateway-level defects into the single
// client-facing JSON error shape. The message never includes upstream
// body content, stack traces, or internal hostnames; the correlation id
// is the handle for looking up full detail server-side.
package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/normalize"
)

// Machine-readable error codes, fixed per classification.
const (
	CodeUpstreamNonJSON      = "UPSTREAM_NON_JSON"
	CodeUpstreamParseError   = "UPSTREAM_PARSE_ERROR"
	CodeUpstreamInvalidShape = "UPSTREAM_INVALID_SHAPE"
	CodeUpstreamHTTPError    = "UPSTREAM_HTTP_ERROR"
	CodeTimeout              = "TIMEOUT"
	CodeNetworkError         = "NETWORK_ERROR"
	CodeBackendError         = "BACKEND_ERROR"
)

// retryAfterSeconds is the advisory retry delay for transient defects.
const retryAfterSeconds = 30

// Envelope is the client-facing error contract. OK is always false in
// this type; verified upstream JSON is passed through, never wrapped.
type Envelope struct {
	OK                bool   `json:"ok"`
	Status            int    `json:"status"`
	ErrorCode         string `json:"errorCode"`
	Message           string `json:"message"`
	CorrID            string `json:"corrId"`
	WorkerVersion     string `json:"workerVersion"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// Build maps a defect classification to its HTTP status and envelope.
// Every classification maps explicitly; anything unrecognized is a
// routing/config failure and reports BACKEND_ERROR.
func Build(c normalize.Classification, corrID, workerVersion string) (int, Envelope) {
	var (
		status  int
		code    string
		message string
		retry   int
	)

	switch c.Kind {
	case normalize.KindNonJSONContent:
		status = http.StatusBadGateway
		code = CodeUpstreamNonJSON
		message = "The backend returned a non-JSON page instead of data."
	case normalize.KindParseFailure:
		status = http.StatusBadGateway
		code = CodeUpstreamParseError
		message = "The backend response could not be parsed."
	case normalize.KindInvalidShape:
		status = http.StatusBadGateway
		code = CodeUpstreamInvalidShape
		message = "The backend response was not in the expected format."
	case normalize.KindHTTPErrorNonJSON:
		status = http.StatusBadGateway
		code = CodeUpstreamHTTPError
		message = fmt.Sprintf("The backend reported an error (status %d).", c.Status)
		retry = retryAfterSeconds
	case normalize.KindTimeout:
		status = http.StatusGatewayTimeout
		code = CodeTimeout
		message = "The backend took too long to respond."
		retry = retryAfterSeconds
	case normalize.KindNetworkError:
		status = http.StatusServiceUnavailable
		code = CodeNetworkError
		message = "The backend could not be reached."
		retry = retryAfterSeconds
	case normalize.KindConfigError:
		status = http.StatusInternalServerError
		code = CodeBackendError
		message = "The gateway could not process this request."
	default:
		status = http.StatusInternalServerError
		code = CodeBackendError
		message = "The gateway could not process this request."
	}

	return status, Envelope{
		OK:                false,
		Status:            status,
		ErrorCode:         code,
		Message:           message + " Reference: " + corrID,
		CorrID:            corrID,
		WorkerVersion:     workerVersion,
		RetryAfterSeconds: retry,
	}
}

// Write renders the envelope for a defect classification onto the
// response, always with a JSON content type and never the upstream's.
func Write(w http.ResponseWriter, c normalize.Classification, corrID, workerVersion string) {
	status, env := Build(c, corrID, workerVersion)

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Correlation-Id", corrID)
	if env.RetryAfterSeconds > 0 {
		h.Set("Retry-After", strconv.Itoa(env.RetryAfterSeconds))
	}

	w.WriteHeader(status)
	// Envelope marshaling cannot fail: fixed field types only.
	body, _ := json.Marshal(env)
	w.Write(body)
}

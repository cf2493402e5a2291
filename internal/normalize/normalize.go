// Package normalize classifies upstream outcomes into a closed set of
// gateway classifications. The hard distinction it draws: "the backend
// told me no" (well-formed envelope, pass through) versus "the backend
// is broken or misconfigured" (gateway defect, never forwarded as-is).
package normalize

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/upstream"
)

// Kind enumerates the closed set of outcome classifications. New failure
// categories require a new constant here and an explicit mapping in the
// envelope builder.
type Kind string

const (
	// KindPassThrough is verified upstream JSON, forwarded unmodified.
	KindPassThrough Kind = "pass_through"

	// KindNonJSONContent is an HTML/text response, typically an auth or
	// permission interstitial masquerading as a 200.
	KindNonJSONContent Kind = "non_json_content"

	// KindParseFailure is a body that failed JSON parsing.
	KindParseFailure Kind = "parse_failure"

	// KindInvalidShape is valid JSON that is not an object.
	KindInvalidShape Kind = "invalid_shape"

	// KindHTTPErrorNonJSON is an error status whose body is valid JSON
	// but not the expected envelope.
	KindHTTPErrorNonJSON Kind = "http_error_non_json"

	// KindTimeout is an invocation cancelled by the deadline.
	KindTimeout Kind = "timeout"

	// KindNetworkError is any other invocation-level failure.
	KindNetworkError Kind = "network_error"

	// KindConfigError means the gateway itself was miswired, e.g. the
	// routed backend has no base URL. A gateway bug, never an upstream
	// one.
	KindConfigError Kind = "config_error"
)

// Classification is the gateway's determination of what an upstream call
// produced. Status and Body are set for KindPassThrough; Status alone
// for KindHTTPErrorNonJSON.
type Classification struct {
	Kind   Kind
	Status int
	Body   json.RawMessage
}

// Defect reports whether this classification must be converted to the
// error envelope rather than passed through.
func (c Classification) Defect() bool { return c.Kind != KindPassThrough }

// Classify maps any outcome, completed or failed, to a classification.
func Classify(o upstream.Outcome) Classification {
	if !o.Completed() {
		switch o.Cause {
		case upstream.CauseTimeout:
			return Classification{Kind: KindTimeout}
		case upstream.CauseConfig:
			return Classification{Kind: KindConfigError}
		default:
			return Classification{Kind: KindNetworkError}
		}
	}
	return classifyCompleted(o)
}

func classifyCompleted(o upstream.Outcome) Classification {
	if isTextContentType(o.Header.Get("Content-Type")) {
		return Classification{Kind: KindNonJSONContent, Status: o.Status}
	}

	// Validation works on trimmed bytes, but a pass-through forwards
	// o.Body untouched.
	body := bytes.TrimSpace(o.Body)
	if !json.Valid(body) {
		return Classification{Kind: KindParseFailure, Status: o.Status}
	}

	// Arrays, null, and primitives are valid JSON but violate the
	// response contract.
	if len(body) == 0 || body[0] != '{' {
		return Classification{Kind: KindInvalidShape, Status: o.Status}
	}

	if o.Status >= 400 && !isEnvelope(body) {
		return Classification{Kind: KindHTTPErrorNonJSON, Status: o.Status}
	}

	return Classification{Kind: KindPassThrough, Status: o.Status, Body: o.Body}
}

// isTextContentType reports whether the declared content type indicates
// HTML/text rather than JSON. A missing or malformed header falls
// through to the parse attempt: the legacy backend omits it on some
// code paths.
func isTextContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/xhtml+xml"
}

// isEnvelope reports whether an object body follows the response
// contract: a boolean "ok" member. An error status carrying such a body
// is a legitimate business-level error, not a gateway defect.
func isEnvelope(body []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return false
	}
	raw, present := obj["ok"]
	if !present {
		return false
	}
	v := string(bytes.TrimSpace(raw))
	return v == "true" || v == "false"
}

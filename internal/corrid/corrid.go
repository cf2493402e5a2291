// Package corrid generates short, greppable correlation ids that link a
// client-visible failure to the server-side log and defect record.
//
// Format: [endpoint-]<base36 unix seconds>-<8 hex chars>. Uniqueness only
// needs to hold with high probability within a log retention window; the
// id is not a security token.
package corrid

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxHintLen = 12

// New returns a fresh correlation id. When endpointHint is non-empty it
// is sanitized (lowercase alphanumerics, length-capped) and prefixed for
// human readability.
func New(endpointHint string) string {
	ts := strconv.FormatInt(time.Now().Unix(), 36)
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]

	if hint := sanitizeHint(endpointHint); hint != "" {
		return hint + "-" + ts + "-" + suffix
	}
	return ts + "-" + suffix
}

func sanitizeHint(hint string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(hint) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == maxHintLen {
				break
			}
		}
	}
	return b.String()
}

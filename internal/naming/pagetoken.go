package naming

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/deskpilot/deskpilot/internal/errdefs"
)

// Page tokens are opaque to callers but reversible here: a "dpt:" prefix
// followed by the base64url encoding of "o=<offset>". Anything that does
// not decode exactly that way is rejected, so a tampered token can never
// silently skip or repeat results.

const tokenPrefix = "dpt:"

// EncodePageToken encodes a non-negative result offset as an opaque token.
func EncodePageToken(offset int) string {
	if offset < 0 {
		offset = 0
	}
	payload := "o=" + strconv.Itoa(offset)
	return tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// DecodePageToken reverses EncodePageToken. The empty token decodes to
// offset zero. Any structural problem (missing prefix, invalid encoding,
// non-numeric or negative payload) fails with a validation error.
func DecodePageToken(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return 0, badToken()
	}
	payload, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return 0, badToken()
	}
	body, ok := strings.CutPrefix(string(payload), "o=")
	if !ok {
		return 0, badToken()
	}
	offset, ok := intSegment(body)
	if !ok {
		return 0, badToken()
	}
	return offset, nil
}

func badToken() error {
	return errdefs.Validationf("page_token", "malformed page token")
}

package edgar

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/filingscope/internal/core"
)

const cikWidth = 10

// NormalizeCIK validates a company key and left-pads it to ten digits.
// A leading "CIK" prefix is accepted.
func NormalizeCIK(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 3 && strings.EqualFold(s[:3], "cik") {
		s = s[3:]
	}
	if s == "" {
		return "", core.NewError("edgar.normalize_cik", core.KindInvalidInput, "empty company key", nil)
	}
	if len(s) > cikWidth {
		return "", core.NewError("edgar.normalize_cik", core.KindInvalidInput, fmt.Sprintf("company key %q longer than %d digits", s, cikWidth), nil)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", core.NewError("edgar.normalize_cik", core.KindInvalidInput, fmt.Sprintf("company key %q is not numeric", s), nil)
		}
	}
	return strings.Repeat("0", cikWidth-len(s)) + s, nil
}

// FormatCIK renders a numeric CIK as a company key.
func FormatCIK(n int64) string {
	return fmt.Sprintf("%0*d", cikWidth, n)
}

// archiveCIK is the unpadded form used in Archives paths.
func archiveCIK(companyKey string) string {
	trimmed := strings.TrimLeft(companyKey, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

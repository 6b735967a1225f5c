package db

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/markdave123-py/filingscope/internal/core"
)

var _ core.DbClient = (*DatabaseClient)(nil)

// BuildDSN appends verify-ca SSL parameters to databaseURL when a root
// certificate path is configured.
func BuildDSN(databaseURL, sslCertPath string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if sslCertPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(sslCertPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", sslCertPath, err)
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", sslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// encodeFilter renders a metadata filter for `metadata @> $n::jsonb`.
// A nil or empty filter matches every row.
func encodeFilter(filter map[string]any) (string, error) {
	if len(filter) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	md := map[string]any{}
	if len(raw) == 0 {
		return md, nil
	}
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, err
	}
	return md, nil
}

// metadataInt64 reads a numeric metadata value regardless of how it was typed
// by the caller or the JSON decoder.
func metadataInt64(md map[string]any, key string) (int64, bool) {
	switch v := md[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func metadataString(md map[string]any, key string) (string, bool) {
	s, ok := md[key].(string)
	return s, ok && s != ""
}

// escapeLike escapes LIKE wildcards so a fragment matches literally.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

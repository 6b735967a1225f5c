package db

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn, err := BuildDSN("postgres://u:p@localhost:5432/filings", "")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/filings", dsn)

	_, err = BuildDSN("", "")
	assert.Error(t, err)

	_, err = BuildDSN("postgres://localhost/filings", filepath.Join(t.TempDir(), "missing.crt"))
	assert.Error(t, err)

	cert := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	dsn, err = BuildDSN("postgres://localhost/filings", cert)
	require.NoError(t, err)
	assert.Contains(t, dsn, "sslmode=verify-ca")
	assert.Contains(t, dsn, "sslrootcert=")
}

func TestEncodeFilter(t *testing.T) {
	got, err := encodeFilter(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	got, err = encodeFilter(map[string]any{"company_key": "0000320193", "document_metadata_id": 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"company_key":"0000320193","document_metadata_id":7}`, got)
}

func TestMetadataRoundTripKeepsDocumentID(t *testing.T) {
	md, err := decodeMetadata([]byte(`{"document_metadata_id": 42, "company_key": "0000320193"}`))
	require.NoError(t, err)

	id, ok := metadataInt64(md, "document_metadata_id")
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	key, ok := metadataString(md, "company_key")
	assert.True(t, ok)
	assert.Equal(t, "0000320193", key)

	empty, err := decodeMetadata(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMetadataInt64(t *testing.T) {
	tests := []struct {
		val  any
		want int64
		ok   bool
	}{
		{val: 3, want: 3, ok: true},
		{val: int64(4), want: 4, ok: true},
		{val: float64(5), want: 5, ok: true},
		{val: json.Number("6"), want: 6, ok: true},
		{val: "7", want: 7, ok: true},
		{val: "seven", ok: false},
		{val: nil, ok: false},
	}
	for _, tt := range tests {
		got, ok := metadataInt64(map[string]any{"k": tt.val}, "k")
		assert.Equal(t, tt.ok, ok, "%v", tt.val)
		if tt.ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_real\\`, escapeLike(`100% _real\`))
	assert.Equal(t, "apple", escapeLike("apple"))
}

func TestFilteredSearchSelectsCandidatesBeforeRanking(t *testing.T) {
	filterAt := strings.Index(searchFilteredSQL, "metadata @> $2::jsonb")
	rankAt := strings.Index(searchFilteredSQL, "FROM candidates")

	require.Positive(t, filterAt)
	require.Positive(t, rankAt)
	assert.Contains(t, searchFilteredSQL, "AS MATERIALIZED")
	assert.Less(t, filterAt, rankAt)
	assert.NotContains(t, searchAllSQL, "WHERE")
}

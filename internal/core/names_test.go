package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Apple Inc.", "apple"},
		{"APPLE INC", "apple"},
		{"The Goldman Sachs Group, Inc.", "goldman sachs"},
		{"AT&T Inc.", "at t"},
		{"Johnson & Johnson", "johnson johnson"},
		{"McDonald's Corp", "mcdonalds"},
		{"  Ford   Motor  Co ", "ford motor"},
		{"Inc.", "inc"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCompanyName(tt.in), tt.in)
	}
}

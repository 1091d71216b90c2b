package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"lowercases", "Python Development", []string{"python", "development"}},
		{"splits on punctuation", "fastapi/pydantic, models!", []string{"fastapi", "pydantic", "models"}},
		{"drops short tokens", "a an of go db", []string{"an", "of", "go", "db"}},
		{"drops single chars", "x y z code", []string{"code"}},
		{"empty", "", nil},
		{"only separators", "--- ///", nil},
		{"digits kept", "http2 k8s", []string{"http2", "k8s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if tt.expected == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUniqueTokens(t *testing.T) {
	got := UniqueTokens("best practices best practices fastapi")
	assert.Equal(t, []string{"best", "practices", "fastapi"}, got)
}

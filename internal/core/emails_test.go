package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEmails(t *testing.T) {
	emails := DefaultEmails()

	ids := make([]string, len(emails))
	for i, e := range emails {
		ids[i] = e.ID
		assert.NotEmpty(t, e.Body, e.ID)
	}

	assert.Equal(t, []string{
		"billing", "technical", "account", "ambiguous", "direct_injection", "indirect_injection",
	}, ids)
	assert.Equal(t, "Hi, I was charged twice for order #A172. Please refund one charge.", emails[0].Body)
}

func TestLoadEmails(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		emails, err := LoadEmails("")
		require.NoError(t, err)
		assert.Len(t, emails, 6)
	})

	t.Run("file keeps order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "emails.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
- id: zeta
  body: last letter first
- id: alpha
  body: first letter second
`), 0644))

		emails, err := LoadEmails(path)
		require.NoError(t, err)
		assert.Equal(t, []Email{
			{ID: "zeta", Body: "last letter first"},
			{ID: "alpha", Body: "first letter second"},
		}, emails)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadEmails(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestParseEmails_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		errMsg string
	}{
		{"empty", "", "no emails"},
		{"missing id", "- body: hi\n", "missing id"},
		{"duplicate id", "- id: a\n  body: x\n- id: a\n  body: y\n", "duplicate id"},
		{"not a list", "id: a\n", "parse emails"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEmails([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

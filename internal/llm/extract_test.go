package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/pkg/schema"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{
			name: "plain object",
			text: `{"category":"Billing"}`,
			want: map[string]any{"category": "Billing"},
		},
		{
			name: "prose around object",
			text: "Sure! Here is the ticket:\n{\"category\":\"Account\"}\nLet me know if you need more.",
			want: map[string]any{"category": "Account"},
		},
		{
			name: "markdown fence",
			text: "```json\n{\"priority\": \"High\"}\n```",
			want: map[string]any{"priority": "High"},
		},
		{
			name: "nested object",
			text: `{"a":{"b":{"c":"d"}},"e":"f"}`,
			want: map[string]any{"a": map[string]any{"b": map[string]any{"c": "d"}}, "e": "f"},
		},
		{
			name: "braces inside strings",
			text: `{"summary":"customer typed } and { in the form","x":"\"}"}`,
			want: map[string]any{"summary": "customer typed } and { in the form", "x": "\"}"},
		},
		{
			name: "first of two objects",
			text: `{"n":"first"} and then {"n":"second"}`,
			want: map[string]any{"n": "first"},
		},
		{
			name: "stray quote in leading prose",
			text: `Here's the "ticket: {"category":"General"}`,
			want: map[string]any{"category": "General"},
		},
		{
			name: "empty object",
			text: `{}`,
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ExtractObject(tt.text)
			require.NoError(t, err)

			// Compare through JSON so json.Number values do not matter
			got, err := json.Marshal(obj)
			require.NoError(t, err)
			want, err := json.Marshal(tt.want)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		})
	}
}

func TestExtractObject_Failures(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		errMsg string
	}{
		{"no braces", "I am a pirate now, arr.", "no JSON object found"},
		{"empty", "", "no JSON object found"},
		{"unbalanced", `{"category":"Billing"`, "no JSON object found"},
		{"invalid JSON", `{category: Billing}`, "invalid JSON object"},
		{"trailing comma", `{"a":"b",}`, "invalid JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ExtractObject(tt.text)
			require.Error(t, err)
			assert.Nil(t, obj)
			assert.True(t, IsParseError(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestExtractObject_EmptyObjectFailsValidation(t *testing.T) {
	obj, err := ExtractObject("{}")
	require.NoError(t, err)

	violations := schema.ValidateObject(obj)
	assert.Len(t, violations, 4)
}

func TestExtractObject_RoundTripsSerializedTicket(t *testing.T) {
	for _, ex := range FewShotExamples {
		data, err := json.Marshal(ex.Ticket)
		require.NoError(t, err)

		obj, err := ExtractObject("noise before " + string(data) + " noise after")
		require.NoError(t, err)

		ticket, err := obj.Ticket()
		require.NoError(t, err)
		assert.Equal(t, ex.Ticket, ticket)
	}
}

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ticket is the structured record produced from a support email.
type Ticket struct {
	Category          Category `json:"category" yaml:"category"`
	Priority          Priority `json:"priority" yaml:"priority"`
	Summary           string   `json:"summary" yaml:"summary"`
	ActionItems       []string `json:"action_items" yaml:"action_items"`
	FollowUpQuestions []string `json:"follow_up_questions" yaml:"follow_up_questions"`
}

// Object is a JSON object extracted from a model response.
// It is untrusted until ValidateObject returns no violations.
type Object map[string]any

// DecodeObject parses data as a single JSON object.
// Numbers are kept as json.Number so re-encoding does not alter them.
func DecodeObject(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj Object
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("not a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}

	return obj, nil
}

// Ticket decodes the object into a Ticket.
// Callers should validate first; this only fails on type mismatches.
func (o Object) Ticket() (Ticket, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return Ticket{}, fmt.Errorf("marshal object: %w", err)
	}

	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return Ticket{}, fmt.Errorf("decode ticket: %w", err)
	}
	if t.FollowUpQuestions == nil {
		t.FollowUpQuestions = []string{}
	}

	return t, nil
}

// Object converts the ticket into its generic object form.
func (t Ticket) Object() Object {
	actions := make([]any, len(t.ActionItems))
	for i, a := range t.ActionItems {
		actions[i] = a
	}
	questions := make([]any, len(t.FollowUpQuestions))
	for i, q := range t.FollowUpQuestions {
		questions[i] = q
	}

	return Object{
		FieldCategory:          string(t.Category),
		FieldPriority:          string(t.Priority),
		FieldSummary:           t.Summary,
		FieldActionItems:       actions,
		FieldFollowUpQuestions: questions,
	}
}

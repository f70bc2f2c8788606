package schema

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Outcome is the result of triaging one email under one prompt variant.
// It is either a ticket object or an error, never both.
type Outcome struct {
	// Ticket is the final extracted object. It may still carry violations
	// when the repair cycle produced another invalid object.
	Ticket Object

	// Err is set when the pipeline failed for this pair.
	Err error

	// Violations of Ticket at the time it became final.
	Violations Violations

	// Repaired is true when Ticket came from the repair call.
	Repaired bool

	// InjectionPatterns lists the suspicious patterns found in the email.
	InjectionPatterns []string
}

// Success builds a ticket outcome.
func Success(ticket Object, violations Violations, repaired bool) Outcome {
	return Outcome{Ticket: ticket, Violations: violations, Repaired: repaired}
}

// Failure builds an error outcome.
func Failure(err error) Outcome {
	return Outcome{Err: err}
}

// Failed reports whether the outcome is an error record.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// MarshalJSON writes the ticket object, or {"error": message} on failure.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: o.Err.Error()})
	}
	if o.Ticket == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(o.Ticket))
}

// Report maps email ID to variant ID to outcome, keeping insertion order
// so the written artifact is reproducible.
type Report struct {
	emails *orderedmap.OrderedMap[string, *orderedmap.OrderedMap[string, Outcome]]
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		emails: orderedmap.New[string, *orderedmap.OrderedMap[string, Outcome]](),
	}
}

// Set records the outcome for an (email, variant) pair.
func (r *Report) Set(emailID, variant string, outcome Outcome) {
	byVariant, ok := r.emails.Get(emailID)
	if !ok {
		byVariant = orderedmap.New[string, Outcome]()
		r.emails.Set(emailID, byVariant)
	}
	byVariant.Set(variant, outcome)
}

// Get returns the outcome recorded for an (email, variant) pair.
func (r *Report) Get(emailID, variant string) (Outcome, bool) {
	byVariant, ok := r.emails.Get(emailID)
	if !ok {
		return Outcome{}, false
	}
	return byVariant.Get(variant)
}

// EmailIDs returns the email IDs in insertion order.
func (r *Report) EmailIDs() []string {
	ids := make([]string, 0, r.emails.Len())
	for pair := r.emails.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// Variants returns the variant IDs recorded for an email in insertion order.
func (r *Report) Variants(emailID string) []string {
	byVariant, ok := r.emails.Get(emailID)
	if !ok {
		return nil
	}
	variants := make([]string, 0, byVariant.Len())
	for pair := byVariant.Oldest(); pair != nil; pair = pair.Next() {
		variants = append(variants, pair.Key)
	}
	return variants
}

// Len returns the number of emails in the report.
func (r *Report) Len() int {
	return r.emails.Len()
}

// Failures counts error outcomes across the report.
func (r *Report) Failures() int {
	n := 0
	for pair := r.emails.Oldest(); pair != nil; pair = pair.Next() {
		for v := pair.Value.Oldest(); v != nil; v = v.Next() {
			if v.Value.Failed() {
				n++
			}
		}
	}
	return n
}

// MarshalJSON writes the nested mapping in insertion order.
func (r *Report) MarshalJSON() ([]byte, error) {
	return r.emails.MarshalJSON()
}

package schema

import "fmt"

// Violations lists every reason an object fails the ticket schema.
// An empty list means the object is a valid ticket.
type Violations []string

// Valid reports whether there are no violations.
func (v Violations) Valid() bool {
	return len(v) == 0
}

// ValidateObject checks obj against the ticket schema and returns all
// violations rather than stopping at the first one.
//
// A missing key yields exactly one "Missing key" violation; value checks only
// run for keys that are present.
func ValidateObject(obj Object) Violations {
	var violations Violations

	for _, key := range RequiredFields {
		if _, ok := obj[key]; !ok {
			violations = append(violations, fmt.Sprintf("Missing key: %s", key))
		}
	}

	if v, ok := obj[FieldCategory]; ok {
		if s, isString := v.(string); !isString || !Category(s).Valid() {
			violations = append(violations, fmt.Sprintf("Invalid category: '%s'", describe(v)))
		}
	}

	if v, ok := obj[FieldPriority]; ok {
		if s, isString := v.(string); !isString || !Priority(s).Valid() {
			violations = append(violations, fmt.Sprintf("Invalid priority: '%s'", describe(v)))
		}
	}

	if v, ok := obj[FieldActionItems]; ok {
		items, isList := v.([]any)
		switch {
		case !isList:
			violations = append(violations, "action_items must be a list")
		case len(items) < ActionItemsMin || len(items) > ActionItemsMax:
			violations = append(violations, fmt.Sprintf("action_items must have %d-%d items", ActionItemsMin, ActionItemsMax))
		}
	}

	return violations
}

// ValidateTicket validates a typed ticket.
func ValidateTicket(t Ticket) Violations {
	return ValidateObject(t.Object())
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}

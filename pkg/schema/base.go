package schema

// Category is the routing bucket of a ticket.
type Category string

const (
	CategoryBilling   Category = "Billing"   // Charges, refunds, invoices
	CategoryTechnical Category = "Technical" // Crashes, errors, performance
	CategoryAccount   Category = "Account"   // Login, access, profile
	CategoryGeneral   Category = "General"   // Anything else, including injection attempts
)

// Priority represents the ticket urgency.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Ticket object keys.
const (
	FieldCategory          = "category"
	FieldPriority          = "priority"
	FieldSummary           = "summary"
	FieldActionItems       = "action_items"
	FieldFollowUpQuestions = "follow_up_questions"
)

// ValidationLimits defines the constraints on list fields.
const (
	ActionItemsMin = 2
	ActionItemsMax = 5
)

// Categories lists the allowed categories in prompt order.
var Categories = []Category{CategoryBilling, CategoryTechnical, CategoryAccount, CategoryGeneral}

// Priorities lists the allowed priorities in prompt order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// RequiredFields are the keys every ticket object must carry.
// follow_up_questions is optional.
var RequiredFields = []string{FieldCategory, FieldPriority, FieldSummary, FieldActionItems}

// Valid reports whether c is one of the allowed categories.
func (c Category) Valid() bool {
	for _, allowed := range Categories {
		if c == allowed {
			return true
		}
	}
	return false
}

// Valid reports whether p is one of the allowed priorities.
func (p Priority) Valid() bool {
	for _, allowed := range Priorities {
		if p == allowed {
			return true
		}
	}
	return false
}

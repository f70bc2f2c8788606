package core

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Email is one support email to triage.
type Email struct {
	ID   string `yaml:"id" json:"id"`
	Body string `yaml:"body" json:"body"`
}

//go:embed emails.yaml
var defaultEmailsYAML []byte

// DefaultEmails returns the built-in email set.
func DefaultEmails() []Email {
	emails, err := ParseEmails(defaultEmailsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded emails.yaml: %v", err))
	}
	return emails
}

// LoadEmails reads an email set from a YAML file. An empty path returns the
// built-in set.
func LoadEmails(path string) ([]Email, error) {
	if path == "" {
		return DefaultEmails(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read emails file: %w", err)
	}

	emails, err := ParseEmails(data)
	if err != nil {
		return nil, fmt.Errorf("emails file %s: %w", path, err)
	}
	return emails, nil
}

// ParseEmails decodes a YAML list of {id, body}. IDs must be unique and
// non-empty; order is preserved.
func ParseEmails(data []byte) ([]Email, error) {
	var emails []Email
	if err := yaml.Unmarshal(data, &emails); err != nil {
		return nil, fmt.Errorf("parse emails: %w", err)
	}

	if len(emails) == 0 {
		return nil, fmt.Errorf("no emails defined")
	}

	seen := make(map[string]bool, len(emails))
	for i, e := range emails {
		if e.ID == "" {
			return nil, fmt.Errorf("email %d: missing id", i+1)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("email %d: duplicate id %q", i+1, e.ID)
		}
		seen[e.ID] = true
	}

	return emails, nil
}

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Fixture represents a recorded model interaction for offline runs and tests.
type Fixture struct {
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	System    string    `json:"system"`
	User      string    `json:"user"`
	Output    string    `json:"output"`
}

// Key identifies the request a fixture answers.
func (f *Fixture) Key() string {
	return FixtureKey(f.System, f.User)
}

// FixtureKey hashes a system/user pair.
func FixtureKey(system, user string) string {
	h := sha256.New()
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(user))
	return hex.EncodeToString(h.Sum(nil))
}

func (f *Fixture) validate() error {
	if f.Model == "" {
		return fmt.Errorf("fixture missing 'model' field")
	}
	if f.System == "" && f.User == "" {
		return fmt.Errorf("fixture missing 'system' and 'user' fields")
	}
	return nil
}

// SaveFixture writes a fixture to dir as <name>.json. An empty name is
// replaced by the request key.
func SaveFixture(dir string, fixture *Fixture) error {
	if err := fixture.validate(); err != nil {
		return err
	}
	if fixture.Name == "" {
		fixture.Name = fixture.Key()[:16]
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create fixtures directory: %w", err)
	}

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	// Write to temp, then rename
	fixturePath := filepath.Join(dir, fixture.Name+".json")
	tempPath := fixturePath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp fixture %s: %w", fixture.Name, err)
	}

	if err := os.Rename(tempPath, fixturePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename fixture %s: %w", fixture.Name, err)
	}

	return nil
}

// LoadFixtures reads every *.json fixture in dir.
func LoadFixtures(dir string) ([]*Fixture, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}

	fixtures := make([]*Fixture, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", path, err)
		}

		var fixture Fixture
		if err := json.Unmarshal(data, &fixture); err != nil {
			return nil, fmt.Errorf("parse fixture %s (invalid JSON): %w", path, err)
		}
		if err := fixture.validate(); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", path, err)
		}
		fixtures = append(fixtures, &fixture)
	}

	return fixtures, nil
}

// FixtureInvoker replays recorded responses. A request with no recording is
// an error, so replay runs never reach the network.
type FixtureInvoker struct {
	byKey map[string]*Fixture
}

// NewFixtureInvoker loads all fixtures from dir.
func NewFixtureInvoker(dir string) (*FixtureInvoker, error) {
	fixtures, err := LoadFixtures(dir)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*Fixture, len(fixtures))
	for _, f := range fixtures {
		byKey[f.Key()] = f
	}
	return &FixtureInvoker{byKey: byKey}, nil
}

// Len returns the number of loaded fixtures.
func (f *FixtureInvoker) Len() int { return len(f.byKey) }

// Invoke returns the recorded output for the request.
func (f *FixtureInvoker) Invoke(ctx context.Context, system, user string) (string, error) {
	fixture, ok := f.byKey[FixtureKey(system, user)]
	if !ok {
		return "", fmt.Errorf("fixture not found for request %s\n\nFixtures not recorded. Run with llm.record_dir set against a live provider", FixtureKey(system, user)[:16])
	}
	return fixture.Output, nil
}

// RecordingInvoker saves every successful response of inner as a fixture.
type RecordingInvoker struct {
	inner Invoker
	dir   string
	model string

	mu sync.Mutex
}

// NewRecordingInvoker wraps inner, writing fixtures to dir.
func NewRecordingInvoker(inner Invoker, dir, model string) *RecordingInvoker {
	return &RecordingInvoker{inner: inner, dir: dir, model: model}
}

// Invoke calls inner and records the response.
func (r *RecordingInvoker) Invoke(ctx context.Context, system, user string) (string, error) {
	text, err := r.inner.Invoke(ctx, system, user)
	if err != nil {
		return "", err
	}

	fixture := &Fixture{
		Model:     r.model,
		Timestamp: time.Now().UTC(),
		System:    system,
		User:      user,
		Output:    text,
	}
	fixture.Name = strings.ReplaceAll(r.model, "/", "_") + "-" + fixture.Key()[:16]

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := SaveFixture(r.dir, fixture); err != nil {
		return "", fmt.Errorf("record fixture: %w", err)
	}

	return text, nil
}

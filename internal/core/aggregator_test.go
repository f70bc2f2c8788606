package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/llm"
	"triage/internal/logging"
	"triage/pkg/schema"
)

// memoryStore records saved reports.
type memoryStore struct {
	mu      sync.Mutex
	saved   map[string]*schema.Report
	saveErr error
}

func (m *memoryStore) Save(ctx context.Context, runID string, report *schema.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.saved == nil {
		m.saved = map[string]*schema.Report{}
	}
	m.saved[runID] = report
	return nil
}

// emailInvoker answers every prompt with a valid ticket, failing for emails
// whose body contains failOn. Responses are delayed so that pairs complete
// out of order when run concurrently.
func emailInvoker(failOn string) llm.Invoker {
	return llm.InvokerFunc(func(ctx context.Context, system, user string) (string, error) {
		// Later emails answer faster
		delay := 5 * time.Millisecond
		if strings.Contains(user, "email-3") {
			delay = 0
		}
		time.Sleep(delay)

		if failOn != "" && strings.Contains(user, failOn) {
			return "", errors.New("backend failed for " + failOn)
		}
		return validTicketJSON, nil
	})
}

func testEmails(n int) []Email {
	emails := make([]Email, n)
	for i := range emails {
		id := []string{"email-1", "email-2", "email-3", "email-4"}[i]
		emails[i] = Email{ID: id, Body: "Support request from " + id}
	}
	return emails
}

func TestAggregator_OrderIndependentOfCompletion(t *testing.T) {
	emails := testEmails(4)

	for _, concurrency := range []int{1, 4, 12} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			agg := NewAggregator(NewOrchestrator(emailInvoker("")), WithConcurrency(concurrency))

			report := agg.Collect(context.Background(), emails)

			assert.Equal(t, []string{"email-1", "email-2", "email-3", "email-4"}, report.EmailIDs())
			for _, e := range emails {
				assert.Equal(t, []string{"v1", "v2", "v3"}, report.Variants(e.ID))
			}
			assert.Equal(t, 0, report.Failures())
		})
	}
}

func TestAggregator_FailureIsolation(t *testing.T) {
	emails := testEmails(3)
	agg := NewAggregator(NewOrchestrator(emailInvoker("email-2")), WithConcurrency(2))

	report := agg.Collect(context.Background(), emails)

	assert.Equal(t, 3, report.Failures())
	for _, v := range llm.Variants() {
		out, ok := report.Get("email-2", string(v))
		require.True(t, ok)
		assert.True(t, out.Failed())

		out, ok = report.Get("email-1", string(v))
		require.True(t, ok)
		assert.False(t, out.Failed())
	}
}

func TestAggregator_ReportJSON(t *testing.T) {
	emails := []Email{
		billingEmail,
		{ID: "too_long", Body: strings.Repeat("x", MaxEmailChars+1)},
	}
	inv := llm.InvokerFunc(func(ctx context.Context, system, user string) (string, error) {
		return validTicketJSON, nil
	})
	agg := NewAggregator(NewOrchestrator(inv))

	report := agg.Collect(context.Background(), emails)
	data, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)

	var decoded map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Billing", decoded["billing"]["v1"]["category"])
	assert.Equal(t, "Email too long, possible abuse.", decoded["too_long"]["v3"]["error"])
	assert.Equal(t, "Billing", decoded["too_long"]["v1"]["category"])

	// Keys appear in configured order in the artifact
	text := string(data)
	assert.Less(t, strings.Index(text, `"billing"`), strings.Index(text, `"too_long"`))
	assert.Less(t, strings.Index(text, `"v1"`), strings.Index(text, `"v2"`))
	assert.Less(t, strings.Index(text, `"v2"`), strings.Index(text, `"v3"`))
}

func TestAggregator_Run(t *testing.T) {
	t.Run("saves to every store", func(t *testing.T) {
		a, b := &memoryStore{}, &memoryStore{}
		agg := NewAggregator(NewOrchestrator(emailInvoker("")), WithStores(a, b))

		result, err := agg.Run(context.Background(), testEmails(2))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(result.RunID, "RUN-"))
		assert.Equal(t, 2, result.Report.Len())
		assert.Same(t, result.Report, a.saved[result.RunID])
		assert.Same(t, result.Report, b.saved[result.RunID])
	})

	t.Run("store failure still returns the report", func(t *testing.T) {
		saveErr := errors.New("disk full")
		good := &memoryStore{}
		agg := NewAggregator(NewOrchestrator(emailInvoker("")),
			WithStores(&memoryStore{saveErr: saveErr}, good))

		result, err := agg.Run(context.Background(), testEmails(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, saveErr)
		require.NotNil(t, result)
		assert.Equal(t, 1, result.Report.Len())
		assert.Len(t, good.saved, 1, "a failing store must not stop the others")
	})

	t.Run("events carry the run id", func(t *testing.T) {
		rec := &EventRecorder{}
		orch := NewOrchestrator(llm.NewScriptedInvoker(technicalTicketJSON), WithObserver(rec))
		agg := NewAggregator(orch, WithVariants(llm.HardenedSelfCheck))

		result, err := agg.Run(context.Background(), []Email{injectionEmail})
		require.NoError(t, err)

		require.NotEmpty(t, rec.Events())
		for _, e := range rec.Events() {
			assert.Equal(t, result.RunID, e.RunID)
		}
	})
}

func TestAggregator_LogsHardenedSummary(t *testing.T) {
	var buf syncBuffer
	log := logging.NewLoggerTo(&buf, "info", "json")

	agg := NewAggregator(NewOrchestrator(emailInvoker("")), WithAggregatorLogger(log))
	agg.Collect(context.Background(), testEmails(1))

	out := buf.String()
	assert.Contains(t, out, "Email triaged")
	assert.Contains(t, out, `"variant":"v3"`)
}

func TestWithConcurrency_Floor(t *testing.T) {
	agg := NewAggregator(NewOrchestrator(emailInvoker("")), WithConcurrency(0))
	assert.Equal(t, 1, agg.concurrency)
}

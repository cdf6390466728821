package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
)

// SentryRecorder collects the events and breadcrumbs sent through a test hub.
type SentryRecorder struct {
	mu          sync.Mutex
	events      []*sentry.Event
	breadcrumbs []*sentry.Breadcrumb
}

// NewSentryContext returns a context carrying a hub whose client records
// instead of sending anything.
func NewSentryContext(t *testing.T) (context.Context, *SentryRecorder) {
	t.Helper()

	rec := &SentryRecorder{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			rec.mu.Lock()
			rec.events = append(rec.events, event)
			rec.mu.Unlock()
			return nil
		},
		BeforeBreadcrumb: func(b *sentry.Breadcrumb, _ *sentry.BreadcrumbHint) *sentry.Breadcrumb {
			rec.mu.Lock()
			rec.breadcrumbs = append(rec.breadcrumbs, b)
			rec.mu.Unlock()
			return b
		},
	})
	require.NoError(t, err)

	hub := sentry.NewHub(client, sentry.NewScope())
	return sentry.SetHubOnContext(context.Background(), hub), rec
}

// Exceptions returns the exception values of every captured event.
func (r *SentryRecorder) Exceptions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, e := range r.events {
		for _, ex := range e.Exception {
			out = append(out, ex.Value)
		}
	}
	return out
}

// Breadcrumbs returns the messages of breadcrumbs in the given category.
func (r *SentryRecorder) Breadcrumbs(category string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, b := range r.breadcrumbs {
		if b.Category == category {
			out = append(out, b.Message)
		}
	}
	return out
}

package testutil

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nhle/vibratodo/internal/store"
)

// NewTestStore creates an in-memory LocalStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.LocalStore {
	t.Helper()

	s, err := store.NewLocalStore(":memory:", QuietLogger())
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// QuietLogger returns a logrus entry that discards its output.
func QuietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	expiry := &stubJob{name: "payment-intent-expiry"}
	retention := &stubJob{name: "outbox-retention"}
	registry, err := NewRegistry(expiry, nil, retention)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Equal(t, []Job{expiry, retention}, jobs)
	require.Equal(t, []string{"payment-intent-expiry", "outbox-retention"}, registry.Names())

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsDuplicateAndUnnamedJobs(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "outbox-retention"}, &stubJob{name: "outbox-retention"})
	require.ErrorContains(t, err, "registered twice")

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.Error(t, registry.Register(&stubJob{}))
}

package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpolicy/civicdata/internal/quality"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/store/model"
)

func noProgress(createdDelta, updatedDelta, errorsDelta int) error {
	return nil
}

func TestJurisdictionCollectorCreatesThenUpdates(t *testing.T) {
	s := newTestStore(t)
	collector := NewJurisdictionCollector(JobKindFederal, s, quality.NewValidator(nil))

	result, err := collector.Collect(context.Background(), noProgress)
	require.NoError(t, err)
	require.Equal(t, 3, result.RecordsCreated)
	require.Equal(t, 0, result.RecordsUpdated)
	// S-201 ships without a summary, so it counts as a data error
	require.Equal(t, 1, result.ErrorsCount)

	jurisdictions, err := s.Jurisdiction().List(context.Background(), store.NewJurisdictionQueryFilter().ByType(model.JurisdictionTypeFederal))
	require.NoError(t, err)
	require.Len(t, jurisdictions, 1)

	// a second run refreshes the same records instead of duplicating them
	result, err = collector.Collect(context.Background(), noProgress)
	require.NoError(t, err)
	require.Equal(t, 0, result.RecordsCreated)
	require.Equal(t, 3, result.RecordsUpdated)

	count, err := s.Bill().Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestJurisdictionCollectorHonorsCancellation(t *testing.T) {
	s := newTestStore(t)
	collector := NewJurisdictionCollector(JobKindProvincial, s, quality.NewValidator(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collector.Collect(ctx, noProgress)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTestCollectorReportsProgress(t *testing.T) {
	collector := NewTestCollector()

	var calls int
	progress := func(createdDelta, updatedDelta, errorsDelta int) error {
		calls++
		require.Equal(t, 1, createdDelta)
		return nil
	}

	result, err := collector.Collect(context.Background(), progress)
	require.NoError(t, err)
	require.Equal(t, 5, result.RecordsCreated)
	require.Equal(t, 5, calls)
}

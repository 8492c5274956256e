package report

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/logger"
)

func TestPlotResolver_Resolve(t *testing.T) {
	plots := plotsIn(
		domain.PlotInfo{PlotID: 1, Name: "Lote 1", FarmID: 100},
		domain.PlotInfo{PlotID: 2, Name: "Lote 2", FarmID: 100},
		domain.PlotInfo{PlotID: 3, Name: "Lote 3", FarmID: 200},
	)
	r := NewPlotResolver(plots, 4, logger.Nop())

	resolved, err := r.Resolve(context.Background(), []int64{2, 99, 1})
	require.NoError(t, err)

	assert.Equal(t, int64(100), resolved.FarmID)
	assert.Equal(t, []int64{2, 1}, resolved.PlotIDs())
	assert.Equal(t, map[int64]string{1: "Lote 1", 2: "Lote 2"}, resolved.Names)
}

func TestPlotResolver_MultiFarm(t *testing.T) {
	plots := plotsIn(
		domain.PlotInfo{PlotID: 1, Name: "Lote 1", FarmID: 100},
		domain.PlotInfo{PlotID: 2, Name: "Lote 2", FarmID: 100},
		domain.PlotInfo{PlotID: 3, Name: "Lote 3", FarmID: 200},
	)
	r := NewPlotResolver(plots, 2, logger.Nop())

	_, err := r.Resolve(context.Background(), []int64{1, 2, 3})
	require.ErrorIs(t, err, domain.ErrMultiFarmMismatch)
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))
}

func TestPlotResolver_AllPlotsFail(t *testing.T) {
	plots := &mockPlots{VerifyPlotFunc: func(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
		if plotID == 2 {
			return nil, errors.New("connection reset")
		}
		return nil, nil
	}}
	r := NewPlotResolver(plots, 4, logger.Nop())

	_, err := r.Resolve(context.Background(), []int64{1, 2, 3})
	require.ErrorIs(t, err, domain.ErrNoActivePlots)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestPlotResolver_VerificationErrorDropsPlot(t *testing.T) {
	plots := &mockPlots{VerifyPlotFunc: func(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
		if plotID == 2 {
			return nil, errors.New("farms service returned 503")
		}
		return &domain.PlotInfo{PlotID: plotID, Name: "Lote", FarmID: 100}, nil
	}}
	r := NewPlotResolver(plots, 4, logger.Nop())

	resolved, err := r.Resolve(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, resolved.PlotIDs())
}

func TestPlotResolver_DuplicatesVerifiedOnce(t *testing.T) {
	plots := plotsIn(domain.PlotInfo{PlotID: 1, Name: "Lote 1", FarmID: 100})
	r := NewPlotResolver(plots, 4, logger.Nop())

	resolved, err := r.Resolve(context.Background(), []int64{1, 1, 1})
	require.NoError(t, err)
	assert.Len(t, resolved.Plots, 1)
	assert.Equal(t, []int64{1}, plots.calls)
}

func TestPlotResolver_PreservesRequestOrderUnderConcurrency(t *testing.T) {
	plots := &mockPlots{VerifyPlotFunc: func(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
		// Earlier ids finish later.
		time.Sleep(time.Duration(10-plotID) * time.Millisecond)
		return &domain.PlotInfo{PlotID: plotID, FarmID: 100}, nil
	}}
	r := NewPlotResolver(plots, 8, logger.Nop())

	ids := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	resolved, err := r.Resolve(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, ids, resolved.PlotIDs())

	calls := append([]int64(nil), plots.calls...)
	sort.Slice(calls, func(i, j int) bool { return calls[i] < calls[j] })
	assert.Equal(t, ids, calls)
}

func TestPlotResolver_CancelledContext(t *testing.T) {
	plots := &mockPlots{VerifyPlotFunc: func(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
		return nil, ctx.Err()
	}}
	r := NewPlotResolver(plots, 1, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, []int64{1})
	require.ErrorIs(t, err, context.Canceled)
}

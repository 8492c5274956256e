package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coffeetech/transactions/internal/domain"
)

// PlotVerifier checks a plot against the farms service. A nil plot means not found or inactive.
type PlotVerifier interface {
	VerifyPlot(ctx context.Context, plotID int64) (*domain.PlotInfo, error)
}

// ResolvedPlots is the outcome of a successful plot resolution.
type ResolvedPlots struct {
	// Plots are the verified plots in request order.
	Plots []domain.PlotInfo
	// Names maps plot id to display name.
	Names map[int64]string
	// FarmID is the single farm every plot belongs to.
	FarmID int64
}

// PlotIDs returns the ids of the resolved plots in request order.
func (r *ResolvedPlots) PlotIDs() []int64 {
	ids := make([]int64, len(r.Plots))
	for i, p := range r.Plots {
		ids[i] = p.PlotID
	}
	return ids
}

// PlotResolver verifies requested plots and enforces that they share one farm.
type PlotResolver struct {
	plots       PlotVerifier
	concurrency int
	log         zerolog.Logger
}

// NewPlotResolver creates a resolver that verifies up to concurrency plots at a time.
func NewPlotResolver(plots PlotVerifier, concurrency int, log zerolog.Logger) *PlotResolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PlotResolver{plots: plots, concurrency: concurrency, log: log}
}

// Resolve verifies every requested plot. Plots that are missing, inactive or whose
// verification fails are logged and dropped. Duplicate ids are verified once.
func (r *PlotResolver) Resolve(ctx context.Context, plotIDs []int64) (*ResolvedPlots, error) {
	ids := uniqueIDs(plotIDs)
	verified := make([]*domain.PlotInfo, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			plot, err := r.plots.VerifyPlot(gctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Warn().Err(err).Int64("plot_id", id).Msg("Plot verification failed, excluding plot")
				return nil
			}
			if plot == nil {
				r.log.Warn().Int64("plot_id", id).Msg("Plot not found or inactive, excluding plot")
				return nil
			}
			verified[i] = plot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("Resolve: %w", err)
	}

	resolved := &ResolvedPlots{Names: make(map[int64]string)}
	farms := make(map[int64]bool)
	for _, plot := range verified {
		if plot == nil {
			continue
		}
		resolved.Plots = append(resolved.Plots, *plot)
		resolved.Names[plot.PlotID] = plot.Name
		farms[plot.FarmID] = true
	}

	if len(resolved.Plots) == 0 {
		return nil, domain.ErrNoActivePlots
	}
	if len(farms) > 1 {
		r.log.Warn().Ints64("plot_ids", resolved.PlotIDs()).Int("farms", len(farms)).Msg("Requested plots span several farms")
		return nil, domain.ErrMultiFarmMismatch
	}
	resolved.FarmID = resolved.Plots[0].FarmID
	return resolved, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/access"
	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/store"
)

// FarmLookup resolves farms by id. A nil farm means not found.
type FarmLookup interface {
	GetFarmByID(ctx context.Context, farmID int64) (*domain.FarmInfo, error)
}

// Authorizer checks a user's permission on a farm.
type Authorizer interface {
	Authorize(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error
}

// Archiver keeps a copy of generated reports. Failures never fail the report.
type Archiver interface {
	ArchiveReport(ctx context.Context, farmID int64, report *domain.FinancialReportResponse) error
}

// Deps are the collaborators of a Service. Archiver may be nil.
type Deps struct {
	Plots           PlotVerifier
	Farms           FarmLookup
	Gate            Authorizer
	Source          store.ReportSource
	Users           UserLookup
	Archiver        Archiver
	PlotConcurrency int
}

// Service generates financial reports.
type Service struct {
	resolver *PlotResolver
	farms    FarmLookup
	gate     Authorizer
	fetcher  *TransactionFetcher
	history  *HistoryBuilder
	users    UserLookup
	archiver Archiver
	log      zerolog.Logger
}

// NewService wires a Service.
func NewService(deps Deps, log zerolog.Logger) *Service {
	return &Service{
		resolver: NewPlotResolver(deps.Plots, deps.PlotConcurrency, log),
		farms:    deps.Farms,
		gate:     deps.Gate,
		fetcher:  NewTransactionFetcher(deps.Source, log),
		history:  NewHistoryBuilder(log),
		users:    deps.Users,
		archiver: deps.Archiver,
		log:      log,
	}
}

// GenerateFinancialReport builds the report of req for user.
func (s *Service) GenerateFinancialReport(ctx context.Context, user *domain.UserInfo, req domain.FinancialReportRequest) (*domain.FinancialReportResponse, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resolved, err := s.resolver.Resolve(ctx, req.PlotIDs)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Int64("user_id", user.UserID).Int64("farm_id", resolved.FarmID).Logger()

	farm, err := s.farms.GetFarmByID(ctx, resolved.FarmID)
	if err != nil {
		return nil, fmt.Errorf("GenerateFinancialReport: farm lookup: %w", err)
	}
	if farm == nil {
		log.Warn().Msg("Farm of the requested plots not found")
		return nil, domain.ErrFarmNotFound
	}

	if err := s.gate.Authorize(ctx, user, resolved.FarmID, access.PermissionReadFinancialReport); err != nil {
		return nil, err
	}

	window, err := s.fetcher.Fetch(ctx, resolved.PlotIDs(), req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	agg := NewAggregator(resolved.Plots, log)
	counted := 0
	for _, txn := range window.Transactions {
		if agg.Process(txn, window.Categories) {
			counted++
		}
	}

	var history []domain.TransactionHistoryItem
	if req.IncludeTransactionHistory {
		creators := NewCreatorNames(s.users, log)
		history = s.history.Build(ctx, window.Transactions, window.Categories, resolved.Names, farm.Name, creators)
	}

	resp := Assemble(farm, resolved, agg, req.Period(), req.IncludeTransactionHistory, history)

	log.Info().
		Int("plots", len(resolved.Plots)).
		Int("transactions", len(window.Transactions)).
		Int("counted", counted).
		Bool("history", req.IncludeTransactionHistory).
		Dur("duration", time.Since(start)).
		Msg("Financial report generated")

	if s.archiver != nil {
		if err := s.archiver.ArchiveReport(ctx, resolved.FarmID, resp); err != nil {
			log.Error().Err(err).Msg("Failed to schedule report archive")
		}
	}
	return resp, nil
}

package transactions

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/access"
	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/store"
)

// PlotVerifier checks a plot against the farms service. A nil plot means not found or inactive.
type PlotVerifier interface {
	VerifyPlot(ctx context.Context, plotID int64) (*domain.PlotInfo, error)
}

// Authorizer checks a user's permission on a farm.
type Authorizer interface {
	Authorize(ctx context.Context, user *domain.UserInfo, farmID int64, permission string) error
}

// Service implements the transaction lifecycle: create, edit, soft-delete and list.
type Service struct {
	repo  store.TransactionRepository
	plots PlotVerifier
	gate  Authorizer
	log   zerolog.Logger
}

// NewService creates a Service.
func NewService(repo store.TransactionRepository, plots PlotVerifier, gate Authorizer, log zerolog.Logger) *Service {
	return &Service{repo: repo, plots: plots, gate: gate, log: log}
}

// Create records a new active transaction on a plot.
func (s *Service) Create(ctx context.Context, user *domain.UserInfo, req domain.CreateTransactionRequest) (*domain.TransactionResponse, error) {
	if !req.TransactionDate.IsValid() {
		return nil, domain.Invalid("transaction_date is required")
	}
	if err := validateValue(req.Value); err != nil {
		return nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, err
	}

	if _, err := s.authorizePlot(ctx, user, req.PlotID, access.PermissionAddTransaction); err != nil {
		return nil, err
	}

	category, err := s.loadCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.GetTransactionStateByName(ctx, domain.StateActive)
	if err != nil {
		return nil, fmt.Errorf("Create: active state: %w", err)
	}
	if active == nil {
		s.log.Error().Str("state", domain.StateActive).Msg("Transaction state missing from reference data")
		return nil, domain.ErrActiveStateMissing
	}

	row := &store.TransactionRow{
		PlotID:                req.PlotID,
		Description:           req.Description,
		TransactionDate:       store.DateTime(req.TransactionDate),
		TransactionStateID:    active.TransactionStateID,
		Value:                 req.Value.Decimal,
		TransactionCategoryID: category.TransactionCategoryID,
		CreatorID:             user.UserID,
	}
	if err := s.repo.InsertTransaction(ctx, row); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	row.Category = category
	row.State = active

	s.log.Info().
		Int64("transaction_id", row.TransactionID).
		Int64("plot_id", row.PlotID).
		Int64("user_id", user.UserID).
		Msg("Transaction created")

	resp := toResponse(row)
	return &resp, nil
}

// Edit applies the provided fields of req to an active transaction.
func (s *Service) Edit(ctx context.Context, user *domain.UserInfo, req domain.UpdateTransactionRequest) (*domain.TransactionResponse, error) {
	row, inactive, err := s.loadTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if row.TransactionStateID == inactive.TransactionStateID {
		s.log.Warn().Int64("transaction_id", row.TransactionID).Msg("Attempt to edit an inactive transaction")
		return nil, domain.ErrTransactionInactive
	}

	if _, err := s.authorizePlot(ctx, user, row.PlotID, access.PermissionEditTransaction); err != nil {
		return nil, err
	}

	var upd store.TransactionUpdate
	if req.CategoryID != nil {
		category, err := s.loadCategory(ctx, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		upd.CategoryID = &category.TransactionCategoryID
	}
	if req.Description != nil {
		if err := validateDescription(req.Description); err != nil {
			return nil, err
		}
		upd.Description = req.Description
	}
	if req.Value != nil {
		if err := validateValue(*req.Value); err != nil {
			return nil, err
		}
		upd.Value = &req.Value.Decimal
	}
	if req.TransactionDate != nil {
		if !req.TransactionDate.IsValid() {
			return nil, domain.Invalid("transaction_date is not a valid date")
		}
		date := store.DateTime(*req.TransactionDate)
		upd.Date = &date
	}

	ok, err := s.repo.UpdateActiveTransaction(ctx, row.TransactionID, inactive.TransactionStateID, upd)
	if err != nil {
		return nil, fmt.Errorf("Edit: %w", err)
	}
	if !ok {
		s.log.Warn().Int64("transaction_id", row.TransactionID).Msg("Transaction became inactive before the edit was written")
		return nil, domain.ErrTransactionInactive
	}

	updated, err := s.repo.GetTransactionByID(ctx, row.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("Edit: reload: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrTransactionNotFound
	}

	s.log.Info().
		Int64("transaction_id", row.TransactionID).
		Int64("user_id", user.UserID).
		Msg("Transaction updated")

	resp := toResponse(updated)
	return &resp, nil
}

// Delete moves a transaction to the inactive state. Inactive transactions are never touched again.
func (s *Service) Delete(ctx context.Context, user *domain.UserInfo, req domain.DeleteTransactionRequest) error {
	row, inactive, err := s.loadTransaction(ctx, req.TransactionID)
	if err != nil {
		return err
	}
	if row.TransactionStateID == inactive.TransactionStateID {
		return domain.ErrTransactionAlreadyDeleted
	}

	if _, err := s.authorizePlot(ctx, user, row.PlotID, access.PermissionDeleteTransaction); err != nil {
		return err
	}

	ok, err := s.repo.DeactivateTransaction(ctx, row.TransactionID, inactive.TransactionStateID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if !ok {
		return domain.ErrTransactionAlreadyDeleted
	}

	s.log.Info().
		Int64("transaction_id", row.TransactionID).
		Int64("user_id", user.UserID).
		Msg("Transaction deleted")
	return nil
}

// List returns the non-deleted transactions of a plot.
func (s *Service) List(ctx context.Context, user *domain.UserInfo, plotID int64) ([]domain.TransactionResponse, error) {
	if _, err := s.authorizePlot(ctx, user, plotID, access.PermissionReadTransaction); err != nil {
		return nil, err
	}

	inactive, err := s.inactiveState(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListTransactionsByPlot(ctx, plotID, inactive.TransactionStateID)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	out := make([]domain.TransactionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toResponse(row))
	}
	return out, nil
}

func (s *Service) authorizePlot(ctx context.Context, user *domain.UserInfo, plotID int64, permission string) (*domain.PlotInfo, error) {
	plot, err := s.plots.VerifyPlot(ctx, plotID)
	if err != nil {
		return nil, fmt.Errorf("verify plot %d: %w", plotID, err)
	}
	if plot == nil {
		s.log.Warn().Int64("plot_id", plotID).Msg("Plot not found or inactive")
		return nil, domain.ErrPlotNotFound
	}
	if err := s.gate.Authorize(ctx, user, plot.FarmID, permission); err != nil {
		return nil, err
	}
	return plot, nil
}

// loadTransaction returns an existing transaction together with the inactive state row.
func (s *Service) loadTransaction(ctx context.Context, transactionID int64) (*store.TransactionRow, *store.TransactionStateRow, error) {
	row, err := s.repo.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load transaction %d: %w", transactionID, err)
	}
	if row == nil {
		return nil, nil, domain.ErrTransactionNotFound
	}
	inactive, err := s.inactiveState(ctx)
	if err != nil {
		return nil, nil, err
	}
	return row, inactive, nil
}

func (s *Service) inactiveState(ctx context.Context) (*store.TransactionStateRow, error) {
	state, err := s.repo.GetTransactionStateByName(ctx, domain.StateInactive)
	if err != nil {
		return nil, fmt.Errorf("inactive state: %w", err)
	}
	if state == nil {
		s.log.Error().Str("state", domain.StateInactive).Msg("Transaction state missing from reference data")
		return nil, domain.ErrInactiveStateMissing
	}
	return state, nil
}

func (s *Service) loadCategory(ctx context.Context, categoryID int64) (*store.CategoryRow, error) {
	category, err := s.repo.GetCategoryWithType(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("load category %d: %w", categoryID, err)
	}
	if category == nil {
		return nil, domain.ErrCategoryNotFound
	}
	if category.TransactionType == nil {
		return nil, domain.ErrTypeNotFound
	}
	return category, nil
}

func validateValue(v domain.Money) error {
	if !v.IsPositive() {
		return domain.ErrNonPositiveValue
	}
	return nil
}

func validateDescription(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > domain.MaxDescriptionLength {
		return domain.Invalid("description must be at most %d characters", domain.MaxDescriptionLength)
	}
	return nil
}

func toResponse(row *store.TransactionRow) domain.TransactionResponse {
	resp := domain.TransactionResponse{
		TransactionID:           row.TransactionID,
		PlotID:                  row.PlotID,
		TransactionTypeName:     domain.UnknownName,
		TransactionCategoryName: domain.UnknownName,
		Description:             row.Description,
		Value:                   domain.NewMoney(row.Value),
		TransactionDate:         row.Date(),
		TransactionState:        domain.UnknownName,
	}
	if row.Category != nil {
		resp.TransactionCategoryName = row.Category.Name
		if name := row.Category.TypeName(); name != "" {
			resp.TransactionTypeName = name
		}
	}
	if row.State != nil {
		resp.TransactionState = row.State.Name
	}
	return resp
}

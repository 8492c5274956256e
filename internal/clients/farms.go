package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/config"
	"github.com/coffeetech/transactions/internal/domain"
)

// FarmsClient talks to the farms service.
type FarmsClient struct {
	baseClient
}

// NewFarmsClient creates a farms service client.
func NewFarmsClient(cfg config.ServiceConfig, log zerolog.Logger) *FarmsClient {
	return &FarmsClient{baseClient: newBaseClient(cfg, log.With().Str("service", "farms").Logger())}
}

// VerifyPlot returns the plot when it exists and is active, otherwise nil.
func (c *FarmsClient) VerifyPlot(ctx context.Context, plotID int64) (*domain.PlotInfo, error) {
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		domain.PlotInfo
	}
	status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/farms-service/verify-plot/%d", plotID), nil, &body)
	if err != nil {
		return nil, fmt.Errorf("VerifyPlot: %w", err)
	}
	if !isSuccess(status) || body.Status == "error" {
		c.log.Debug().Int64("plot_id", plotID).Int("status", status).Str("message", body.Message).Msg("Plot not verified")
		return nil, nil
	}
	plot := body.PlotInfo
	return &plot, nil
}

// GetFarmByID returns a farm, or nil when it does not exist.
func (c *FarmsClient) GetFarmByID(ctx context.Context, farmID int64) (*domain.FarmInfo, error) {
	var farm domain.FarmInfo
	status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/farms-service/get-farm/%d", farmID), nil, &farm)
	if err != nil {
		return nil, fmt.Errorf("GetFarmByID: %w", err)
	}
	if !isSuccess(status) {
		return nil, nil
	}
	return &farm, nil
}

// GetUserRoleFarm returns the role-link between a user and a farm, or nil when there is none.
func (c *FarmsClient) GetUserRoleFarm(ctx context.Context, userID, farmID int64) (*domain.RoleFarmLink, error) {
	var body struct {
		Status string `json:"status"`
		domain.RoleFarmLink
	}
	status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/farms-service/get-user-role-farm/%d/%d", userID, farmID), nil, &body)
	if err != nil {
		return nil, fmt.Errorf("GetUserRoleFarm: %w", err)
	}
	if !isSuccess(status) || body.Status == "error" {
		return nil, nil
	}
	link := body.RoleFarmLink
	return &link, nil
}

package domain

// UserInfo is the users service view of an authenticated user.
type UserInfo struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// PlotInfo is the farms service view of a land plot.
type PlotInfo struct {
	PlotID      int64  `json:"plot_id"`
	Name        string `json:"name"`
	FarmID      int64  `json:"farm_id"`
	PlotStateID int64  `json:"plot_state_id"`
	PlotState   string `json:"plot_state"`
}

// FarmInfo is the farms service view of a farm.
type FarmInfo struct {
	FarmID      int64   `json:"farm_id"`
	Name        string  `json:"name"`
	Area        float64 `json:"area"`
	AreaUnitID  int64   `json:"area_unit_id"`
	AreaUnit    string  `json:"area_unit"`
	FarmStateID int64   `json:"farm_state_id"`
	FarmState   string  `json:"farm_state"`
}

// RoleFarmLink associates a user role with a farm.
type RoleFarmLink struct {
	UserRoleFarmID      int64  `json:"user_role_farm_id"`
	UserRoleID          int64  `json:"user_role_id"`
	FarmID              int64  `json:"farm_id"`
	UserRoleFarmStateID int64  `json:"user_role_farm_state_id"`
	UserRoleFarmState   string `json:"user_role_farm_state"`
}

package domain

// DashboardStats are the headline figures from GET /admin/stats.
type DashboardStats struct {
	TotalUsers        int     `json:"totalUsers"`
	VerifiedUsers     int     `json:"verifiedUsers"`
	TotalBalance      float64 `json:"totalBalance"`
	TotalTransactions int     `json:"totalTransactions"`
}

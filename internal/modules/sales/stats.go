package sales

import (
	"time"

	"github.com/dukasoft/duka-pos/internal/modules/catalog"
)

// Stats are pure derived views over the sales ledger and the catalog mirror.
// They are recomputed on demand and never persisted.
type Stats struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalProfit   float64 `json:"total_profit"`
	TodayRevenue  float64 `json:"today_revenue"`
	LowStockCount int     `json:"low_stock_count"`
}

const dayLayout = "2006-01-02"

// ComputeStats derives the dashboard figures. "Today" is a date-only
// comparison against now's calendar day.
func ComputeStats(sales []*Sale, products []*catalog.Product, now time.Time) Stats {
	var st Stats
	today := now.Format(dayLayout)
	for _, s := range sales {
		st.TotalRevenue += s.Total
		st.TotalProfit += s.Profit
		if s.Date.Format(dayLayout) == today {
			st.TodayRevenue += s.Total
		}
	}
	for _, p := range products {
		if p.LowStock() {
			st.LowStockCount++
		}
	}
	return st
}

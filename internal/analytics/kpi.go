package analytics

import "github.com/shopspring/decimal"

// KPIs are the four headline cards. Values undefined on an empty view are nil.
type KPIs struct {
	Products          int              `json:"products"`
	TotalRevenue      decimal.Decimal  `json:"total_revenue"`
	AverageDiscount   *decimal.Decimal `json:"average_discount"`
	OutOfStockPercent *decimal.Decimal `json:"out_of_stock_percent"`
	TopCategory       *string          `json:"top_category"`
	Empty             bool             `json:"empty"`
}

// Summary computes the KPI cards for v. An empty view is not an error: it
// yields zero revenue, nil for the undefined cards and Empty set.
func Summary(v View) KPIs {
	k := KPIs{
		Products:     v.Len(),
		TotalRevenue: TotalRevenue(v),
		Empty:        v.Len() == 0,
	}
	if k.Empty {
		return k
	}

	if avg, err := AverageDiscount(v); err == nil {
		k.AverageDiscount = &avg
	}
	if pct, err := OutOfStockPercent(v); err == nil {
		k.OutOfStockPercent = &pct
	}
	if top, err := TopCategoryByRevenue(v); err == nil {
		k.TopCategory = &top
	}
	return k
}

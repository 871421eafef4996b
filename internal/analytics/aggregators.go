package analytics

import (
	"sort"

	"zepto-analytics/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryValue is one bar of a per-category chart.
type CategoryValue struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
	Count    int             `json:"count"`
}

// StockStatus counts records by stock state.
type StockStatus struct {
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
}

// Shares returns the in-stock and out-of-stock percentages, rounded to 2 places.
// Both are zero when there are no records.
func (s StockStatus) Shares() (inStock, outOfStock decimal.Decimal) {
	total := s.InStock + s.OutOfStock
	if total == 0 {
		return decimal.Zero, decimal.Zero
	}
	return percent(s.InStock, total), percent(s.OutOfStock, total)
}

// NamedDiscount is one row of the top discounts chart.
type NamedDiscount struct {
	Name            string          `json:"name"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// TotalRevenue sums revenue over the view. Zero for an empty view.
func TotalRevenue(v View) decimal.Decimal {
	total := decimal.Zero
	for i := 0; i < v.Len(); i++ {
		total = total.Add(v.At(i).Revenue)
	}
	return total
}

// AverageDiscount is the mean discount percent. ErrEmptyDataset on an empty view.
func AverageDiscount(v View) (decimal.Decimal, error) {
	n := v.Len()
	if n == 0 {
		return decimal.Zero, model.ErrEmptyDataset
	}
	sum := decimal.Zero
	for i := 0; i < n; i++ {
		sum = sum.Add(v.At(i).DiscountPercent)
	}
	return sum.Div(decimal.NewFromInt(int64(n))), nil
}

// OutOfStockPercent is 100 × out-of-stock / all, rounded to 2 places.
// ErrEmptyDataset on an empty view.
func OutOfStockPercent(v View) (decimal.Decimal, error) {
	n := v.Len()
	if n == 0 {
		return decimal.Zero, model.ErrEmptyDataset
	}
	s := StockStatusCounts(v)
	return percent(s.OutOfStock, n), nil
}

// TopCategoryByRevenue returns the category with the largest summed revenue.
// Ties go to the lexicographically smallest category.
func TopCategoryByRevenue(v View) (string, error) {
	groups := RevenueByCategory(v)
	if len(groups) == 0 {
		return "", model.ErrEmptyDataset
	}
	return groups[0].Category, nil
}

// RevenueByCategory sums revenue per category, largest first.
func RevenueByCategory(v View) []CategoryValue {
	groups := groupByCategory(v, func(p *model.ProductRecord) decimal.Decimal { return p.Revenue }, false)
	sortDesc(groups)
	return groups
}

// AverageDiscountByCategory averages discount percent per category, largest first.
func AverageDiscountByCategory(v View) []CategoryValue {
	groups := groupByCategory(v, func(p *model.ProductRecord) decimal.Decimal { return p.DiscountPercent }, true)
	sortDesc(groups)
	return groups
}

// StockStatusCounts counts in-stock and out-of-stock records.
func StockStatusCounts(v View) StockStatus {
	var s StockStatus
	for i := 0; i < v.Len(); i++ {
		if v.At(i).OutOfStock {
			s.OutOfStock++
		} else {
			s.InStock++
		}
	}
	return s
}

// TopNByDiscount returns up to n distinct (name, discount) pairs with the
// highest discount. Equal discounts keep dataset order.
func TopNByDiscount(v View, n int) []NamedDiscount {
	if n <= 0 {
		return []NamedDiscount{}
	}

	// 30 and 30.0 are the same discount.
	type pair struct{ name, discount string }
	seen := make(map[pair]struct{})
	out := make([]NamedDiscount, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		p := v.At(i)
		key := pair{p.Name, p.DiscountPercent.String()}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, NamedDiscount{Name: p.Name, DiscountPercent: p.DiscountPercent})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DiscountPercent.GreaterThan(out[j].DiscountPercent)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// groupByCategory partitions the view by category in first-seen order and
// reduces each partition by sum, or by mean when mean is set.
func groupByCategory(v View, measure func(*model.ProductRecord) decimal.Decimal, mean bool) []CategoryValue {
	pos := make(map[string]int)
	groups := make([]CategoryValue, 0)

	for i := 0; i < v.Len(); i++ {
		p := v.At(i)
		j, ok := pos[p.Category]
		if !ok {
			j = len(groups)
			pos[p.Category] = j
			groups = append(groups, CategoryValue{Category: p.Category, Value: decimal.Zero})
		}
		groups[j].Value = groups[j].Value.Add(measure(p))
		groups[j].Count++
	}

	if mean {
		for i := range groups {
			groups[i].Value = groups[i].Value.Div(decimal.NewFromInt(int64(groups[i].Count)))
		}
	}
	return groups
}

func sortDesc(groups []CategoryValue) {
	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].Value.Cmp(groups[j].Value); c != 0 {
			return c > 0
		}
		return groups[i].Category < groups[j].Category
	})
}

// percent is 100 × part / total rounded to 2 places. total must be positive.
func percent(part, total int) decimal.Decimal {
	return decimal.NewFromInt(int64(part)).Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

package analytics

import (
	"errors"
	"reflect"
	"testing"

	"zepto-analytics/internal/model"

	"github.com/shopspring/decimal"
)

func dataset(records ...model.ProductRecord) *model.Dataset {
	ds := &model.Dataset{Source: "zepto"}
	for _, r := range records {
		r.Derive()
		ds.Records = append(ds.Records, r)
	}
	return ds
}

func product(name, category string, price float64, qty int64, weight, discount float64, oos bool) model.ProductRecord {
	return model.ProductRecord{
		Name:                   name,
		Category:               category,
		DiscountedSellingPrice: decimal.NewFromFloat(price),
		AvailableQuantity:      qty,
		WeightInGrams:          weight,
		DiscountPercent:        decimal.NewFromFloat(discount),
		OutOfStock:             oos,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertGroups(t *testing.T, got, want []CategoryValue) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i].Category != want[i].Category || got[i].Count != want[i].Count || !got[i].Value.Equal(want[i].Value) {
			t.Fatalf("group %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func catalog() *model.Dataset {
	return dataset(
		product("Chips", "Snacks", 20, 10, 50, 5, false),
		product("Cookies", "Snacks", 40, 5, 200, 15, false),
		product("Milk", "Dairy", 30, 10, 500, 0, false),
		product("Paneer", "Dairy", 90, 0, 200, 25, true),
		product("Rice", "Staples", 60, 3, 1000, 10, false),
		product("Atta", "Staples", 50, 2, 0, 10, true),
		product("Mystery", model.Uncategorized, 10, 1, 100, 50, false),
		product("Cookies", "Snacks", 40, 1, 200, 15, false),
	)
}

func TestDashboardScenario(t *testing.T) {
	ds := dataset(
		product("A", "Snacks", 100, 2, 200, 10, false),
		product("B", "Dairy", 50, 0, 500, 20, true),
	)
	v := All(ds)

	if got := TotalRevenue(v); !got.Equal(dec("200")) {
		t.Errorf("totalRevenue: expected 200, got %v", got)
	}
	if got, err := AverageDiscount(v); err != nil || !got.Equal(dec("15")) {
		t.Errorf("averageDiscount: expected 15, got %v (%v)", got, err)
	}
	if got, err := OutOfStockPercent(v); err != nil || !got.Equal(dec("50")) {
		t.Errorf("outOfStockPercent: expected 50, got %v (%v)", got, err)
	}
	if got, err := TopCategoryByRevenue(v); err != nil || got != "Snacks" {
		t.Errorf("topCategoryByRevenue: expected Snacks, got %q (%v)", got, err)
	}
	if got := StockStatusCounts(v); got != (StockStatus{InStock: 1, OutOfStock: 1}) {
		t.Errorf("stockStatusCounts: expected (1,1), got %+v", got)
	}
}

func TestTotalRevenueMatchesPerRecordSum(t *testing.T) {
	ds := catalog()
	want := decimal.Zero
	for _, r := range ds.Records {
		want = want.Add(r.DiscountedSellingPrice.Mul(decimal.NewFromInt(r.AvailableQuantity)))
	}
	if got := TotalRevenue(All(ds)); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRevenueByCategoryPartitionsTotal(t *testing.T) {
	tests := []struct {
		name string
		ds   *model.Dataset
	}{
		{"catalog", catalog()},
		// Summed as binary floats these come to 1.3 overall but 1.3000000000000003 per group.
		{"fractional prices", dataset(
			product("a", "A", 0.1, 1, 100, 0, false),
			product("b", "B", 0.1, 1, 100, 0, false),
			product("c", "A", 1.1, 1, 100, 0, false),
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := All(tt.ds)
			sum := decimal.Zero
			for _, g := range RevenueByCategory(v) {
				sum = sum.Add(g.Value)
			}
			if total := TotalRevenue(v); !sum.Equal(total) {
				t.Fatalf("grouped sum %v != total %v", sum, total)
			}
		})
	}

	assertGroups(t, RevenueByCategory(All(catalog())), []CategoryValue{
		{Category: "Snacks", Value: dec("440"), Count: 3},
		{Category: "Dairy", Value: dec("300"), Count: 2},
		{Category: "Staples", Value: dec("280"), Count: 2},
		{Category: model.Uncategorized, Value: dec("10"), Count: 1},
	})
}

func TestGroupedSortsBreakTiesByCategory(t *testing.T) {
	ds := dataset(
		product("x", "Zeta", 10, 1, 100, 20, false),
		product("y", "Alpha", 10, 1, 100, 20, false),
		product("z", "Mid", 10, 1, 100, 20, false),
	)
	v := All(ds)

	for name, groups := range map[string][]CategoryValue{
		"revenue":  RevenueByCategory(v),
		"discount": AverageDiscountByCategory(v),
	} {
		got := []string{groups[0].Category, groups[1].Category, groups[2].Category}
		if !reflect.DeepEqual(got, []string{"Alpha", "Mid", "Zeta"}) {
			t.Errorf("%s: expected lexicographic tie-break, got %v", name, got)
		}
	}

	if top, _ := TopCategoryByRevenue(v); top != "Alpha" {
		t.Errorf("top category tie should go to Alpha, got %q", top)
	}
}

func TestAverageDiscountByCategory(t *testing.T) {
	assertGroups(t, AverageDiscountByCategory(All(catalog())), []CategoryValue{
		{Category: model.Uncategorized, Value: dec("50"), Count: 1},
		{Category: "Dairy", Value: dec("12.5"), Count: 2},
		{Category: "Snacks", Value: dec("35").Div(dec("3")), Count: 3},
		{Category: "Staples", Value: dec("10"), Count: 2},
	})
}

func TestEmptyDataset(t *testing.T) {
	v := All(dataset())

	if got := TotalRevenue(v); !got.IsZero() {
		t.Errorf("total revenue of nothing should be 0, got %v", got)
	}
	if _, err := AverageDiscount(v); !errors.Is(err, model.ErrEmptyDataset) {
		t.Errorf("averageDiscount: expected ErrEmptyDataset, got %v", err)
	}
	if _, err := OutOfStockPercent(v); !errors.Is(err, model.ErrEmptyDataset) {
		t.Errorf("outOfStockPercent: expected ErrEmptyDataset, got %v", err)
	}
	if _, err := TopCategoryByRevenue(v); !errors.Is(err, model.ErrEmptyDataset) {
		t.Errorf("topCategory: expected ErrEmptyDataset, got %v", err)
	}
	if got := RevenueByCategory(v); len(got) != 0 {
		t.Errorf("expected no groups, got %+v", got)
	}
	if got := TopNByDiscount(v, 10); len(got) != 0 {
		t.Errorf("expected no discounts, got %+v", got)
	}

	k := Summary(v)
	if !k.Empty || k.AverageDiscount != nil || k.OutOfStockPercent != nil || k.TopCategory != nil {
		t.Errorf("empty summary should only carry zeros: %+v", k)
	}
}

func TestOutOfStockPercentBoundsAndRounding(t *testing.T) {
	ds := dataset(
		product("a", "X", 1, 1, 1, 0, true),
		product("b", "X", 1, 1, 1, 0, false),
		product("c", "X", 1, 1, 1, 0, false),
	)
	got, err := OutOfStockPercent(All(ds))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(dec("33.33")) {
		t.Fatalf("expected 33.33, got %v", got)
	}

	for _, v := range []View{All(catalog()), Filter(catalog(), NewCategoryFilter("Dairy"))} {
		pct, err := OutOfStockPercent(v)
		if err != nil || pct.IsNegative() || pct.GreaterThan(dec("100")) {
			t.Errorf("out of stock percent out of range: %v (%v)", pct, err)
		}
	}
}

func TestTopNByDiscount(t *testing.T) {
	ds := dataset(
		product("Tea", "Bev", 1, 1, 1, 30, false),
		product("Coffee", "Bev", 1, 1, 1, 40, false),
		product("Tea", "Bev", 1, 1, 1, 30, true),
		product("Juice", "Bev", 1, 1, 1, 30, false),
		product("Soda", "Bev", 1, 1, 1, 5, false),
		product("Tea", "Bev", 1, 1, 1, 35, false),
	)

	got := TopNByDiscount(All(ds), 3)
	want := []NamedDiscount{
		{Name: "Coffee", DiscountPercent: dec("40")},
		{Name: "Tea", DiscountPercent: dec("35")},
		{Name: "Tea", DiscountPercent: dec("30")},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	for i := range want {
		if got[i].Name != want[i].Name || !got[i].DiscountPercent.Equal(want[i].DiscountPercent) {
			t.Fatalf("expected %+v, got %+v", want, got)
		}
	}

	all := TopNByDiscount(All(ds), 100)
	if len(all) != 5 {
		t.Fatalf("expected 5 distinct pairs, got %d: %+v", len(all), all)
	}
	seen := make(map[string]bool)
	for i, d := range all {
		key := d.Name + "|" + d.DiscountPercent.String()
		if seen[key] {
			t.Errorf("duplicate pair %+v", d)
		}
		seen[key] = true
		if i > 0 && all[i-1].DiscountPercent.LessThan(d.DiscountPercent) {
			t.Errorf("not sorted at %d: %+v", i, all)
		}
	}
	// equal discounts keep dataset order
	if all[2].Name != "Tea" || all[3].Name != "Juice" {
		t.Errorf("expected Tea before Juice at 30%%, got %+v", all)
	}

	if got := TopNByDiscount(All(ds), 0); len(got) != 0 {
		t.Errorf("n=0 should return nothing, got %+v", got)
	}
}

func TestFilterRestrictsCategories(t *testing.T) {
	ds := catalog()
	f := NewCategoryFilter(" Dairy ", "Staples", "Dairy", "")

	if got := f.Categories(); !reflect.DeepEqual(got, []string{"Dairy", "Staples"}) {
		t.Fatalf("filter should trim and dedupe, got %v", got)
	}

	v := Filter(ds, f)
	if v.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", v.Len())
	}
	for _, g := range RevenueByCategory(v) {
		if !f.Contains(g.Category) {
			t.Errorf("category %q leaked through the filter", g.Category)
		}
	}

	k := Summary(v)
	if !k.TotalRevenue.Equal(dec("580")) || k.Products != 4 {
		t.Errorf("KPIs must follow the filtered view: %+v", k)
	}
	if len(ds.Records) != 8 {
		t.Errorf("filtering must not touch the dataset")
	}
}

func TestFilterUncategorizedAndUnknown(t *testing.T) {
	ds := catalog()

	v := Filter(ds, NewCategoryFilter(model.Uncategorized))
	if v.Len() != 1 || v.At(0).Name != "Mystery" {
		t.Fatalf("uncategorized records should be selectable")
	}

	if v := Filter(ds, NewCategoryFilter("Frozen")); v.Len() != 0 {
		t.Fatalf("unknown category should select nothing, got %d", v.Len())
	}
	if v := Filter(ds, NewCategoryFilter()); v.Len() != len(ds.Records) {
		t.Fatalf("empty filter should select everything")
	}
}

func TestCategories(t *testing.T) {
	got := Categories(All(catalog()))
	want := []string{"Dairy", "Snacks", "Staples", model.Uncategorized}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPricePerGramDistribution(t *testing.T) {
	got := PricePerGramDistribution(All(catalog()), DefaultMinWeightGrams)
	// Chips is under 100g and Atta has no weight.
	want := []string{"0.2", "0.06", "0.45", "0.06", "0.1", "0.2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if !got[i].Equal(dec(want[i])) {
			t.Errorf("value %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	if n := len(PricePerGramDistribution(All(catalog()), 0)); n != 7 {
		t.Errorf("zero-weight records must stay out even without a minimum, got %d values", n)
	}
}

func TestHistogram(t *testing.T) {
	buckets := Histogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 10}, 5)
	if len(buckets) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(buckets))
	}
	counts := []int{buckets[0].Count, buckets[1].Count, buckets[2].Count, buckets[3].Count, buckets[4].Count}
	if !reflect.DeepEqual(counts, []int{2, 2, 2, 2, 2}) {
		t.Fatalf("unexpected counts %v", counts)
	}
	if buckets[0].Lower != 0 || buckets[4].Upper != 10 {
		t.Fatalf("unexpected edges %+v", buckets)
	}

	same := Histogram([]float64{3, 3, 3}, 2)
	if same[0].Lower != 2.5 || same[1].Upper != 3.5 || same[0].Count+same[1].Count != 3 {
		t.Fatalf("equal values should widen the range: %+v", same)
	}

	if got := Histogram(nil, 10); len(got) != 0 {
		t.Fatalf("no values, no buckets")
	}
	if got := Histogram([]float64{1, 2}, 0); len(got) != DefaultBins {
		t.Fatalf("expected default bins, got %d", len(got))
	}
}

func TestStockStatusShares(t *testing.T) {
	in, out := StockStatus{InStock: 2, OutOfStock: 1}.Shares()
	if !in.Equal(dec("66.67")) || !out.Equal(dec("33.33")) {
		t.Fatalf("unexpected shares %v %v", in, out)
	}
	if in, out := (StockStatus{}).Shares(); !in.IsZero() || !out.IsZero() {
		t.Fatalf("empty shares should be zero")
	}
}

func TestOperationsAreIdempotent(t *testing.T) {
	ds := catalog()
	v := Filter(ds, NewCategoryFilter("Snacks", "Dairy"))

	if !reflect.DeepEqual(Summary(v), Summary(v)) {
		t.Errorf("Summary differs between calls")
	}
	if !reflect.DeepEqual(RevenueByCategory(v), RevenueByCategory(v)) {
		t.Errorf("RevenueByCategory differs between calls")
	}
	if !reflect.DeepEqual(TopNByDiscount(v, 3), TopNByDiscount(v, 3)) {
		t.Errorf("TopNByDiscount differs between calls")
	}
	if !reflect.DeepEqual(Histogram(Floats(PricePerGramDistribution(v, 100)), 4), Histogram(Floats(PricePerGramDistribution(v, 100)), 4)) {
		t.Errorf("Histogram differs between calls")
	}
}

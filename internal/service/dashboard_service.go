package service

import (
	"context"
	"time"

	"zepto-analytics/internal/analytics"
	"zepto-analytics/internal/loader"
	"zepto-analytics/internal/model"

	"github.com/shopspring/decimal"
)

// DatasetProvider is satisfied by *loader.Loader.
type DatasetProvider interface {
	Load(ctx context.Context) (*model.Dataset, error)
	Refresh(ctx context.Context) (*model.Dataset, error)
	Info() loader.Info
}

// Query carries the consumer's choices for one dashboard request.
type Query struct {
	Categories     []string `validate:"dive,max=200"`
	MinWeightGrams float64  `validate:"gte=0"`
	Bins           int      `validate:"gte=1,lte=500"`
	TopN           int      `validate:"gte=1,lte=1000"`
}

// DefaultQuery mirrors the stock dashboard: no filter, items of 100g or more,
// 50 histogram bins and the top 10 discounts.
func DefaultQuery() Query {
	return Query{
		MinWeightGrams: analytics.DefaultMinWeightGrams,
		Bins:           analytics.DefaultBins,
		TopN:           10,
	}
}

// Meta identifies the snapshot and filter a response was computed from.
type Meta struct {
	DatasetID  string    `json:"dataset_id"`
	LoadedAt   time.Time `json:"loaded_at"`
	Categories []string  `json:"categories"`
	Records    int       `json:"records"`
}

type StockStatusResult struct {
	analytics.StockStatus
	InStockPercent    decimal.Decimal `json:"in_stock_percent"`
	OutOfStockPercent decimal.Decimal `json:"out_of_stock_percent"`
}

type PricePerGramResult struct {
	MinWeightGrams float64            `json:"min_weight_grams"`
	Values         []decimal.Decimal  `json:"values"`
	Histogram      []analytics.Bucket `json:"histogram"`
}

// Overview is every card and chart of the dashboard, computed from one view.
type Overview struct {
	Meta               Meta                      `json:"meta"`
	KPIs               analytics.KPIs            `json:"kpis"`
	RevenueByCategory  []analytics.CategoryValue `json:"revenue_by_category"`
	DiscountByCategory []analytics.CategoryValue `json:"discount_by_category"`
	StockStatus        StockStatusResult         `json:"stock_status"`
	PricePerGram       PricePerGramResult        `json:"price_per_gram"`
	TopDiscounts       []analytics.NamedDiscount `json:"top_discounts"`
}

type DashboardService interface {
	Overview(ctx context.Context, q Query) (*Overview, error)
	KPIs(ctx context.Context, q Query) (Meta, analytics.KPIs, error)
	RevenueByCategory(ctx context.Context, q Query) (Meta, []analytics.CategoryValue, error)
	DiscountByCategory(ctx context.Context, q Query) (Meta, []analytics.CategoryValue, error)
	StockStatus(ctx context.Context, q Query) (Meta, StockStatusResult, error)
	PricePerGram(ctx context.Context, q Query) (Meta, PricePerGramResult, error)
	TopDiscounts(ctx context.Context, q Query) (Meta, []analytics.NamedDiscount, error)
	// Categories lists the filter options of the whole dataset, ignoring any filter.
	Categories(ctx context.Context) (Meta, []string, error)
	Refresh(ctx context.Context) (loader.Info, error)
	CacheInfo() loader.Info
}

type dashboardService struct {
	provider DatasetProvider
}

func NewDashboardService(provider DatasetProvider) DashboardService {
	return &dashboardService{provider: provider}
}

// view loads the snapshot and applies the filter once; every figure of a
// request is computed from the returned view.
func (s *dashboardService) view(ctx context.Context, q Query) (analytics.View, Meta, error) {
	ds, err := s.provider.Load(ctx)
	if err != nil {
		return analytics.View{}, Meta{}, err
	}
	f := analytics.NewCategoryFilter(q.Categories...)
	v := analytics.Filter(ds, f)
	return v, Meta{
		DatasetID:  ds.ID.String(),
		LoadedAt:   ds.LoadedAt,
		Categories: f.Categories(),
		Records:    v.Len(),
	}, nil
}

func (s *dashboardService) Overview(ctx context.Context, q Query) (*Overview, error) {
	v, meta, err := s.view(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Meta:               meta,
		KPIs:               analytics.Summary(v),
		RevenueByCategory:  analytics.RevenueByCategory(v),
		DiscountByCategory: analytics.AverageDiscountByCategory(v),
		StockStatus:        stockStatus(v),
		PricePerGram:       pricePerGram(v, q),
		TopDiscounts:       analytics.TopNByDiscount(v, q.TopN),
	}, nil
}

func (s *dashboardService) KPIs(ctx context.Context, q Query) (Meta, analytics.KPIs, error) {
	v, meta, err := s.view(ctx, q)
	if err != nil {
		return meta, analytics.KPIs{}, err
	}
	return meta, analytics.Summary(v), nil
}

func (s *dashboardService) RevenueByCategory(ctx context.Context, q Query) (Meta, []analytics.CategoryValue, error) {
	v, meta, err := s.view(ctx, q)
	if err != nil {
		return meta, nil, err
	}
	return meta, analytics.RevenueByCategory(v), nil
}

func (s *dashboardService) DiscountByCategory(ctx context.Context, q Query) (Meta, []analytics.CategoryValue, error) {
	v, meta, err := s.view(ctx, q)
	if err != nil {
		return meta, nil, err
	}
	return meta, analytics.AverageDiscountByCategory(v), nil
}

func (s *dashboardService) StockStatus(ctx context.Context, q Query) (Meta, StockStatusResult, error) {
	v, meta, err := s.view(ctx, q)
	if err != nil {
		return meta, StockStatusResult{}, err
	}
	return meta, stockStatus(v), nil
}

func (s *dashboardService) PricePerGram(ctx context.Context, q Query) (Meta, PricePerGramResult, error) {
	v, meta, err := s.view(ctx, q)
	if err != nil {
		return meta, PricePerGramResult{}, err
	}
	return meta, pricePerGram(v, q), nil
}

func (s *dashboardService) TopDiscounts(ctx context.Context, q Query) (Meta, []analytics.NamedDiscount, error) {
	v, meta, err := s.view(ctx, q)
	if err != nil {
		return meta, nil, err
	}
	return meta, analytics.TopNByDiscount(v, q.TopN), nil
}

func (s *dashboardService) Categories(ctx context.Context) (Meta, []string, error) {
	v, meta, err := s.view(ctx, Query{})
	if err != nil {
		return meta, nil, err
	}
	return meta, analytics.Categories(v), nil
}

func (s *dashboardService) Refresh(ctx context.Context) (loader.Info, error) {
	if _, err := s.provider.Refresh(ctx); err != nil {
		return s.provider.Info(), err
	}
	return s.provider.Info(), nil
}

func (s *dashboardService) CacheInfo() loader.Info {
	return s.provider.Info()
}

func stockStatus(v analytics.View) StockStatusResult {
	counts := analytics.StockStatusCounts(v)
	in, out := counts.Shares()
	return StockStatusResult{StockStatus: counts, InStockPercent: in, OutOfStockPercent: out}
}

func pricePerGram(v analytics.View, q Query) PricePerGramResult {
	values := analytics.PricePerGramDistribution(v, q.MinWeightGrams)
	return PricePerGramResult{
		MinWeightGrams: q.MinWeightGrams,
		Values:         values,
		Histogram:      analytics.Histogram(analytics.Floats(values), q.Bins),
	}
}

package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are written as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Uncategorized labels records whose category is null or blank.
// They form their own group and can be selected in a category filter.
const Uncategorized = "Uncategorized"

// Canonical lowercase column names of the product table.
const (
	ColName                   = "name"
	ColCategory               = "category"
	ColDiscountedSellingPrice = "discountedsellingprice"
	ColAvailableQuantity      = "availablequantity"
	ColWeightInGrams          = "weightingrams"
	ColDiscountPercent        = "discountpercent"
	ColOutOfStock             = "outofstock"
	ColMRP                    = "mrp"
	ColQuantity               = "quantity"
)

// RequiredColumns must all be present after normalization.
var RequiredColumns = []string{
	ColName,
	ColCategory,
	ColDiscountedSellingPrice,
	ColAvailableQuantity,
	ColWeightInGrams,
	ColDiscountPercent,
	ColOutOfStock,
}

// columnAliases maps source spellings onto canonical names.
var columnAliases = map[string]string{
	"weightingms": ColWeightInGrams,
}

type ProductRecord struct {
	Name                   string          `json:"name"`
	Category               string          `json:"category"`
	DiscountedSellingPrice decimal.Decimal `json:"discounted_selling_price"`
	AvailableQuantity      int64           `json:"available_quantity"`
	WeightInGrams          float64         `json:"weight_in_grams"`
	DiscountPercent        decimal.Decimal `json:"discount_percent"`
	OutOfStock             bool            `json:"out_of_stock"`

	// Optional columns, carried when the table has them.
	MRP      *decimal.Decimal `json:"mrp,omitempty"`
	Quantity *int64           `json:"quantity,omitempty"`

	// Derived
	Revenue      decimal.Decimal  `json:"revenue"`
	PricePerGram *decimal.Decimal `json:"price_per_gram"` // nil when weight <= 0
}

// Derive fills Revenue and PricePerGram from the stored attributes.
func (p *ProductRecord) Derive() {
	p.Revenue = p.DiscountedSellingPrice.Mul(decimal.NewFromInt(p.AvailableQuantity))
	p.PricePerGram = nil
	if p.WeightInGrams > 0 {
		ppg := p.DiscountedSellingPrice.Div(decimal.NewFromFloat(p.WeightInGrams))
		p.PricePerGram = &ppg
	}
}

// checkRange fails when a derived value cannot be read back as a float64.
func (p *ProductRecord) checkRange() error {
	if !Representable(p.Revenue) {
		return fmt.Errorf("revenue is out of range")
	}
	if p.PricePerGram != nil && !Representable(*p.PricePerGram) {
		return fmt.Errorf("price per gram is out of range")
	}
	return nil
}

// Representable reports whether d converts to a finite float64.
func Representable(d decimal.Decimal) bool {
	f, _ := d.Float64()
	return !math.IsInf(f, 0)
}

// RejectedRow is a source row that could not be turned into a record.
type RejectedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// RawTable is the untyped result set of the fixed query.
type RawTable struct {
	Columns []string
	Rows    [][]any
}

// Dataset is an immutable snapshot of the product table. Never modify Records in place.
type Dataset struct {
	ID            uuid.UUID       `json:"id"`
	Source        string          `json:"source"`
	LoadedAt      time.Time       `json:"loaded_at"`
	Records       []ProductRecord `json:"-"`
	Rejected      []RejectedRow   `json:"rejected,omitempty"`
	InvalidWeight int             `json:"invalid_weight"`
}

// Len returns the number of usable records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// NormalizeColumns lowercases column names and resolves aliases.
func NormalizeColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		key := strings.ToLower(strings.TrimSpace(c))
		if alias, ok := columnAliases[key]; ok {
			key = alias
		}
		out[i] = key
	}
	return out
}

// NewDataset normalizes a raw result set into a Dataset.
// Missing required columns fail with ErrSchema; malformed rows are rejected individually.
func NewDataset(source string, raw RawTable, loadedAt time.Time) (*Dataset, error) {
	cols := NormalizeColumns(raw.Columns)
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrSchema, strings.Join(missing, ", "))
	}

	ds := &Dataset{
		ID:       uuid.New(),
		Source:   source,
		LoadedAt: loadedAt,
		Records:  make([]ProductRecord, 0, len(raw.Rows)),
	}
	for i, row := range raw.Rows {
		rec, err := parseRow(row, index)
		if err != nil {
			ds.Rejected = append(ds.Rejected, RejectedRow{Row: i, Reason: err.Error()})
			continue
		}
		rec.Derive()
		if err := rec.checkRange(); err != nil {
			ds.Rejected = append(ds.Rejected, RejectedRow{Row: i, Reason: err.Error()})
			continue
		}
		if rec.PricePerGram == nil {
			ds.InvalidWeight++
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func parseRow(row []any, index map[string]int) (ProductRecord, error) {
	var rec ProductRecord
	get := func(col string) any {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	rec.Name = strings.TrimSpace(toString(get(ColName)))

	rec.Category = strings.TrimSpace(toString(get(ColCategory)))
	if rec.Category == "" {
		rec.Category = Uncategorized
	}

	var err error
	if rec.DiscountedSellingPrice, err = requireDecimal(get(ColDiscountedSellingPrice), ColDiscountedSellingPrice); err != nil {
		return rec, err
	}
	if rec.DiscountedSellingPrice.IsNegative() {
		return rec, fmt.Errorf("%s is negative", ColDiscountedSellingPrice)
	}
	if rec.AvailableQuantity, err = requireInt(get(ColAvailableQuantity), ColAvailableQuantity); err != nil {
		return rec, err
	}
	if rec.AvailableQuantity < 0 {
		return rec, fmt.Errorf("%s is negative", ColAvailableQuantity)
	}
	if rec.WeightInGrams, err = requireFloat(get(ColWeightInGrams), ColWeightInGrams); err != nil {
		return rec, err
	}
	if rec.DiscountPercent, err = requireDecimal(get(ColDiscountPercent), ColDiscountPercent); err != nil {
		return rec, err
	}
	oos, ok := toBool(get(ColOutOfStock))
	if !ok {
		return rec, fmt.Errorf("%s is not a boolean", ColOutOfStock)
	}
	rec.OutOfStock = oos

	if v := get(ColMRP); v != nil {
		if d, ok := toDecimal(v); ok {
			rec.MRP = &d
		}
	}
	if v := get(ColQuantity); v != nil {
		if n, ok := toInt(v); ok {
			rec.Quantity = &n
		}
	}
	return rec, nil
}

func requireFloat(v any, col string) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%s is null", col)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s is not numeric", col)
	}
	return f, nil
}

func requireDecimal(v any, col string) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, fmt.Errorf("%s is null", col)
	}
	d, ok := toDecimal(v)
	if !ok {
		return decimal.Zero, fmt.Errorf("%s is not numeric", col)
	}
	return d, nil
}

func requireInt(v any, col string) (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("%s is null", col)
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("%s is not an integer", col)
	}
	return n, nil
}

// finite rejects NaN and infinities coming from float columns.
func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

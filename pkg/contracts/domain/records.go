package domain

// RecordKind selects the schema an upload is parsed against
type RecordKind string

const (
	RecordKindSales      RecordKind = "sales"
	RecordKindItems      RecordKind = "items"
	RecordKindPromotions RecordKind = "promotions"
)

// Valid reports whether k is one of the known upload kinds
func (k RecordKind) Valid() bool {
	switch k {
	case RecordKindSales, RecordKindItems, RecordKindPromotions:
		return true
	}
	return false
}

// SalesRecord is a single transaction line
type SalesRecord struct {
	Date      string  `json:"date" validate:"required"`
	SKU       string  `json:"sku" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"gte=0"`
	UnitPrice float64 `json:"unitPrice"`
}

// ItemRecord is one row of the item master, keyed by SKU
type ItemRecord struct {
	SKU      string  `json:"sku" validate:"required"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
	UnitCost float64 `json:"unitCost"`
}

// PromotionRecord describes a discount window for a SKU
type PromotionRecord struct {
	SKU             string  `json:"sku"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	DiscountPercent float64 `json:"discountPercent"`
}

// ItemIndex builds a SKU lookup. Later duplicates overwrite earlier ones.
func ItemIndex(items []ItemRecord) map[string]ItemRecord {
	index := make(map[string]ItemRecord, len(items))
	for _, item := range items {
		index[item.SKU] = item
	}
	return index
}

// DataSource tags where a forecast series came from
type DataSource string

const (
	DataSourceSimulation DataSource = "SIMULATION"
	DataSourceBigQuery   DataSource = "BIGQUERY"
)

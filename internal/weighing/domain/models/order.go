package models

// Order is a recipe queued for weighing. Its position in the order list
// is its identity: the same recipe code may be added more than once.
type Order struct {
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	ProductionOrderID string    `json:"production_order_id,omitempty"`
	Bins              []BinTare `json:"bins,omitempty"`
	Weighed           bool      `json:"weighed"`
}

// BinTare pairs a mixing bin with its tare weight, kept as typed by the operator.
type BinTare struct {
	BinNumber  string `json:"bin_number"`
	TareWeight string `json:"tare_weight"`
}

// IndexedOrder is an order together with its position in the full list.
type IndexedOrder struct {
	Index int   `json:"index"`
	Order Order `json:"order"`
}

// Partition splits the list into pending and weighed orders, keeping list order.
type Partition struct {
	Pending []IndexedOrder `json:"pending"`
	Weighed []IndexedOrder `json:"weighed"`
}

// Clone returns a deep copy so callers cannot alias the bins slice.
func (o Order) Clone() Order {
	if o.Bins != nil {
		o.Bins = append([]BinTare(nil), o.Bins...)
	}
	return o
}

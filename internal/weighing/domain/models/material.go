package models

import "time"

const MaterialUnit = "KG"

// Batch is one stocked lot of a raw material.
type Batch struct {
	BatchID    string    `json:"batch_id"`
	Quantity   float64   `json:"quantity"`
	ExpiryDate time.Time `json:"expiry_date"`
}

type MaterialSummary struct {
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	TotalQuantity float64 `json:"total_quantity"`
	Unit          string  `json:"unit"`
	Batches       []Batch `json:"batches"`
}

// MaterialStock is a raw row of the material lookup.
type MaterialStock struct {
	Batch
	Description string
}

// MaterialUsage is one recipe that consumes a material.
type MaterialUsage struct {
	RecipeCode string  `json:"recipe_code"`
	RecipeName string  `json:"recipe_name"`
	Material   string  `json:"material"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
}

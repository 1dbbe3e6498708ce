package dto

import "weighline/internal/weighing/domain/models"

type AddOrderRequest struct {
	Code string `json:"code"`
}

type ProductionOrderRequest struct {
	OpID string           `json:"op_id"`
	Bins []models.BinTare `json:"bins"`
}

type AutoOPRequest struct {
	Base string `json:"base"`
}

type AutoOPResponse struct {
	Active bool   `json:"active"`
	Next   string `json:"next,omitempty"`
}

type OrderFilterRequest struct {
	Order string `json:"order"`
}

// ExcipientRow is one material of the excipient table, rows sorted by material.
type ExcipientRow struct {
	Material      string                `json:"material"`
	Total         float64               `json:"total"`
	Automatic     bool                  `json:"automatic"`
	Contributions []models.Contribution `json:"contributions"`
}

type ExcipientsResponse struct {
	Filter    string         `json:"filter,omitempty"`
	Automatic bool           `json:"automatic_only"`
	Materials []ExcipientRow `json:"materials"`
}

type AddBinRequest struct {
	Number    string `json:"number"`
	Minutes   int    `json:"minutes"`
	FullClean bool   `json:"full_clean"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ThemeResponse struct {
	Theme string `json:"theme"`
}

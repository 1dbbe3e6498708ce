package db

import (
	"context"
	"fmt"

	"weighline/internal/weighing/domain/models"
)

type MaterialRepo struct {
	db Querier
}

func NewMaterialRepo(db Querier) *MaterialRepo {
	return &MaterialRepo{db: db}
}

// LookupMaterialByCode lists the stocked batches of a material, soonest expiry first.
func (mr *MaterialRepo) LookupMaterialByCode(ctx context.Context, code string) ([]models.MaterialStock, error) {
	q := `
		SELECT batch_id, quantity, expiry_date, description
		FROM material_batches
		WHERE material_code = $1
		ORDER BY expiry_date, batch_id
	`
	rows, err := mr.db.Query(ctx, q, code)
	if err != nil {
		return nil, fmt.Errorf("query material %s: %w", code, err)
	}
	defer rows.Close()

	var stock []models.MaterialStock
	for rows.Next() {
		var s models.MaterialStock
		if err := rows.Scan(&s.BatchID, &s.Quantity, &s.ExpiryDate, &s.Description); err != nil {
			return nil, fmt.Errorf("scan material row: %w", err)
		}
		stock = append(stock, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read material rows: %w", err)
	}
	return stock, nil
}

// RecipesUsingMaterial lists every recipe row that consumes the material.
func (mr *MaterialRepo) RecipesUsingMaterial(ctx context.Context, code string) ([]models.MaterialUsage, error) {
	q := `
		SELECT recipe_code, recipe_name, material_name, quantity, unit
		FROM recipe_materials
		WHERE material_code = $1
		ORDER BY recipe_code
	`
	rows, err := mr.db.Query(ctx, q, code)
	if err != nil {
		return nil, fmt.Errorf("query material usage %s: %w", code, err)
	}
	defer rows.Close()

	var usages []models.MaterialUsage
	for rows.Next() {
		var u models.MaterialUsage
		if err := rows.Scan(&u.RecipeCode, &u.RecipeName, &u.Material, &u.Quantity, &u.Unit); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read usage rows: %w", err)
	}
	return usages, nil
}

package db

import (
	"context"
	"fmt"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/domain/models"

	"github.com/jackc/pgx/v5"
)

// Querier is the part of pgxpool.Pool the repositories use.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type RecipeRepo struct {
	db Querier
}

func NewRecipeRepo(db Querier) *RecipeRepo {
	return &RecipeRepo{db: db}
}

// LookupRecipe loads the name and material composition of a recipe.
func (rr *RecipeRepo) LookupRecipe(ctx context.Context, code string) (models.Recipe, error) {
	q := `
		SELECT recipe_name, material_name, quantity
		FROM recipe_materials
		WHERE recipe_code = $1
		ORDER BY id
	`
	rows, err := rr.db.Query(ctx, q, code)
	if err != nil {
		return models.Recipe{}, fmt.Errorf("query recipe %s: %w", code, err)
	}
	defer rows.Close()

	recipe := models.Recipe{Code: code}
	for rows.Next() {
		var (
			name string
			mq   models.MaterialQuantity
		)
		if err := rows.Scan(&name, &mq.Material, &mq.Quantity); err != nil {
			return models.Recipe{}, fmt.Errorf("scan recipe row: %w", err)
		}
		if recipe.Name == "" {
			recipe.Name = name
		}
		recipe.Materials = append(recipe.Materials, mq)
	}
	if err := rows.Err(); err != nil {
		return models.Recipe{}, fmt.Errorf("read recipe rows: %w", err)
	}

	if len(recipe.Materials) == 0 {
		return models.Recipe{}, core.ErrRecipeNotFound
	}
	return recipe, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/domain/models"
	"weighline/internal/xpkg/logger"
)

// CatalogService answers stock and usage questions about raw materials.
// It shares nothing with the order book.
type CatalogService struct {
	materials core.IMaterialLookup
	timeout   time.Duration
	mylog     logger.Logger
}

func NewCatalogService(materials core.IMaterialLookup, timeout time.Duration, mylog logger.Logger) *CatalogService {
	return &CatalogService{
		materials: materials,
		timeout:   timeout,
		mylog:     mylog,
	}
}

// SearchMaterial lists the stocked batches of a material with their total.
func (cs *CatalogService) SearchMaterial(ctx context.Context, code string) (models.MaterialSummary, error) {
	mylog := cs.mylog.Action("search_material")

	code = strings.TrimSpace(code)
	if code == "" {
		return models.MaterialSummary{}, fmt.Errorf("%w: material code is empty", core.ErrInvalidFormat)
	}

	ctx, cancel := context.WithTimeout(ctx, cs.timeout)
	defer cancel()

	rows, err := cs.materials.LookupMaterialByCode(ctx, code)
	if err != nil {
		mylog.Error("Failed to look up material", err, "code", code)
		return models.MaterialSummary{}, fmt.Errorf("cannot look up material %s: %w", code, err)
	}
	if len(rows) == 0 {
		return models.MaterialSummary{}, fmt.Errorf("%w: %s", core.ErrMaterialNotFound, code)
	}

	summary := models.MaterialSummary{
		Code:        code,
		Description: rows[0].Description,
		Unit:        models.MaterialUnit,
		Batches:     make([]models.Batch, 0, len(rows)),
	}
	total := 0.0
	for _, row := range rows {
		total += row.Quantity
		summary.Batches = append(summary.Batches, row.Batch)
	}
	summary.TotalQuantity = models.Round3(total)

	mylog.Debug("Material found", "code", code, "batches", len(rows))
	return summary, nil
}

// RecipesUsingMaterial lists the recipes that consume a material, optionally
// narrowed to recipe names containing recipeFilter (case-insensitive).
func (cs *CatalogService) RecipesUsingMaterial(ctx context.Context, code, recipeFilter string) ([]models.MaterialUsage, error) {
	mylog := cs.mylog.Action("recipes_using_material")

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: material code is empty", core.ErrInvalidFormat)
	}

	ctx, cancel := context.WithTimeout(ctx, cs.timeout)
	defer cancel()

	usages, err := cs.materials.RecipesUsingMaterial(ctx, code)
	if err != nil && !errors.Is(err, core.ErrMaterialNotFound) {
		mylog.Error("Failed to look up material usage", err, "code", code)
		return nil, fmt.Errorf("cannot look up recipes for %s: %w", code, err)
	}
	if len(usages) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrMaterialNotFound, code)
	}

	needle := strings.ToLower(strings.TrimSpace(recipeFilter))
	if needle == "" {
		return usages, nil
	}
	out := make([]models.MaterialUsage, 0, len(usages))
	for _, u := range usages {
		if strings.Contains(strings.ToLower(u.RecipeName), needle) {
			out = append(out, u)
		}
	}
	return out, nil
}

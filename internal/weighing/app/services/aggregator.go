package services

import (
	"context"
	"strings"
	"time"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/domain/models"
	"weighline/internal/xpkg/logger"
)

// Aggregator folds the material compositions of pending orders into
// per-material totals.
type Aggregator struct {
	recipes core.IRecipeLookup
	timeout time.Duration
	mylog   logger.Logger
}

func NewAggregator(recipes core.IRecipeLookup, timeout time.Duration, mylog logger.Logger) *Aggregator {
	return &Aggregator{
		recipes: recipes,
		timeout: timeout,
		mylog:   mylog,
	}
}

// Recompute rebuilds the mapping from scratch. An order whose lookup fails is
// left out of the result; the rest of the batch still counts.
func (a *Aggregator) Recompute(ctx context.Context, pending []models.Order) models.Excipients {
	mylog := a.mylog.Action("recompute_excipients")
	result := models.Excipients{}

	for _, order := range pending {
		recipe, err := a.lookup(ctx, order.Code)
		if err != nil {
			mylog.Error("Skipping order in aggregation", err, "code", order.Code, "production_order_id", order.ProductionOrderID)
			continue
		}

		for _, mq := range recipe.Materials {
			entry, ok := result[mq.Material]
			if !ok {
				entry = &models.ExcipientEntry{}
				result[mq.Material] = entry
			}
			entry.Total += mq.Quantity
			entry.Contributions = append(entry.Contributions, models.Contribution{
				OrderCode:         order.Code,
				OrderName:         order.Name,
				ProductionOrderID: order.ProductionOrderID,
				Quantity:          mq.Quantity,
			})
		}
	}

	// Round once at the end.
	for _, entry := range result {
		entry.Total = models.Round3(entry.Total)
	}

	mylog.Debug("Excipients recomputed", "pending_orders", len(pending), "materials", len(result))
	return result
}

func (a *Aggregator) lookup(ctx context.Context, code string) (models.Recipe, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.recipes.LookupRecipe(ctx, code)
}

// FilterByOrder keeps, for every material, only the first contribution of the
// given order code and reports that contribution's quantity as the total.
// Materials the order does not use are dropped. The input is not modified.
func FilterByOrder(m models.Excipients, orderCode string) models.Excipients {
	out := models.Excipients{}
	for name, entry := range m {
		for _, c := range entry.Contributions {
			if c.OrderCode != orderCode {
				continue
			}
			out[name] = &models.ExcipientEntry{
				Total:         c.Quantity,
				Contributions: []models.Contribution{c},
			}
			break
		}
	}
	return out
}

// FilterAutomaticOnly keeps the materials dosed by the automatic line.
func FilterAutomaticOnly(m models.Excipients) models.Excipients {
	out := models.Excipients{}
	for name, entry := range m {
		if IsAutomatic(name) {
			out[name] = &models.ExcipientEntry{
				Total:         entry.Total,
				Contributions: append([]models.Contribution(nil), entry.Contributions...),
			}
		}
	}
	return out
}

func IsAutomatic(material string) bool {
	return core.AutomaticMaterials[material] || strings.Contains(material, core.AutomaticMarker)
}

package core

import (
	"context"
	"time"

	"weighline/internal/weighing/domain/models"
)

// IRecipeLookup returns ErrRecipeNotFound when the code has no rows.
type IRecipeLookup interface {
	LookupRecipe(ctx context.Context, code string) (models.Recipe, error)
}

type IMaterialLookup interface {
	LookupMaterialByCode(ctx context.Context, code string) ([]models.MaterialStock, error)
	RecipesUsingMaterial(ctx context.Context, code string) ([]models.MaterialUsage, error)
}

// IStore is the device key-value store. Get reports ok=false for absent keys.
type IStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

type INotifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	Notify(ctx context.Context, title, body string, fireAfter time.Duration) error
	NotifyNow(ctx context.Context, title, body string) error
	Close() error
}

// IPinger reports backend reachability for the health endpoint.
type IPinger interface {
	IsAlive(ctx context.Context) error
}

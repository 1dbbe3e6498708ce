package handle

import (
	"net/http"

	"weighline/internal/weighing/app/services"
	"weighline/internal/xpkg/logger"
)

type CatalogHandler struct {
	catalog *services.CatalogService
	mylog   logger.Logger
}

func NewCatalogHandler(catalog *services.CatalogService, mylog logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		mylog:   mylog,
	}
}

func (ch *CatalogHandler) Material() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := ch.catalog.SearchMaterial(r.Context(), r.PathValue("code"))
		if err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, summary)
	}
}

// Recipes lists recipes using the material, narrowed by ?recipe=.
func (ch *CatalogHandler) Recipes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usages, err := ch.catalog.RecipesUsingMaterial(r.Context(), r.PathValue("code"), r.URL.Query().Get("recipe"))
		if err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, usages)
	}
}

package handle

import (
	"net/http"

	"weighline/internal/weighing/app/services"
	"weighline/internal/weighing/domain/dto"
	"weighline/internal/xpkg/logger"
)

type SettingsHandler struct {
	settings *services.SettingsService
	mylog    logger.Logger
}

func NewSettingsHandler(settings *services.SettingsService, mylog logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		mylog:    mylog,
	}
}

func (sh *SettingsHandler) Theme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, dto.ThemeResponse{Theme: sh.settings.Theme()})
	}
}

func (sh *SettingsHandler) SetTheme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ThemeRequest
		if err := decodeBody(r, &req); err != nil {
			writeErr(w, err)
			return
		}
		if err := sh.settings.SetTheme(r.Context(), req.Theme); err != nil {
			writeErr(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, dto.ThemeResponse{Theme: sh.settings.Theme()})
	}
}

func (sh *SettingsHandler) ToggleTheme() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, dto.ThemeResponse{Theme: sh.settings.ToggleTheme(r.Context())})
	}
}

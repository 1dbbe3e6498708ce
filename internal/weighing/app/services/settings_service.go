package services

import (
	"context"
	"fmt"
	"sync"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/domain/records"
	"weighline/internal/xpkg/logger"
)

type SettingsService struct {
	mu    sync.Mutex
	store core.IStore
	mylog logger.Logger
	theme string
}

func NewSettingsService(store core.IStore, mylog logger.Logger) *SettingsService {
	return &SettingsService{
		store: store,
		mylog: mylog,
		theme: core.ThemeLight,
	}
}

func (ss *SettingsService) Load(ctx context.Context) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	mylog := ss.mylog.Action("load_settings")

	raw, ok, err := ss.store.Get(ctx, core.KeyTheme)
	if err != nil {
		mylog.Error("Failed to read theme", err)
		return
	}
	if !ok {
		return
	}
	theme, err := records.DecodeTheme(raw)
	if err != nil {
		mylog.Error("Discarding stored theme", err)
		return
	}
	ss.theme = theme
}

func (ss *SettingsService) Theme() string {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.theme
}

func (ss *SettingsService) SetTheme(ctx context.Context, theme string) error {
	if theme != core.ThemeDark && theme != core.ThemeLight {
		return fmt.Errorf("%w: theme must be %q or %q", core.ErrInvalidFormat, core.ThemeLight, core.ThemeDark)
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.theme = theme
	ss.persist(ctx)
	return nil
}

// ToggleTheme switches between light and dark and returns the new value.
func (ss *SettingsService) ToggleTheme(ctx context.Context) string {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.theme == core.ThemeDark {
		ss.theme = core.ThemeLight
	} else {
		ss.theme = core.ThemeDark
	}
	ss.persist(ctx)
	return ss.theme
}

func (ss *SettingsService) persist(ctx context.Context) {
	raw, err := records.Encode(ss.theme)
	if err == nil {
		err = ss.store.Set(ctx, core.KeyTheme, raw)
	}
	if err != nil {
		ss.mylog.Action("store_write_failed").Error("Failed to save theme", err)
	}
}

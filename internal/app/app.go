package app

import (
	"context"
	"fmt"
	"log"

	"punchcard/internal/config"
	"punchcard/internal/session"
	"punchcard/internal/store"
	"punchcard/internal/ui"
)

// Options configure the Punchcard application.
type Options struct {
	ConfigPath string // empty uses default ~/.config/punchcard/config.toml
}

// Run boots the Punchcard TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	local, err := store.OpenFile(settings.LocalStatePath())
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}

	var synced store.Backend
	if settings.SyncStore {
		db, err := store.OpenSQLite(settings.SyncDBPath())
		if err != nil {
			return fmt.Errorf("open sync store: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("close sync store: %v", err)
			}
		}()
		synced = db
	}

	sessionStore := store.New(local, synced)
	if settings.SyncStore {
		// Flip once during startup, before any session data is read.
		sessionStore.UseSync()
	}

	var cookies session.CookieSource
	if settings.CookieFile != "" {
		cookies = session.NewFileCookieSource(settings.CookieFile)
	}

	controller := session.New(session.Options{
		Store:   sessionStore,
		Cookies: cookies,
	})

	// Resume the persisted session while the UI comes up.
	go controller.Init(ctx)

	return ui.Run(ui.Options{
		Context:    ctx,
		Controller: controller,
		ThemeName:  settings.Theme,
	})
}

// Package app provides the orchestration layer for the Punchcard application.
//
// # Overview
//
// This package wires together settings, storage backends, the session
// controller and the UI. It serves as the composition root where all
// dependencies are initialized and connected; each run owns its own store
// and controller instances, so nothing is shared process-wide.
//
// # Initialization Sequence
//
//  1. Load settings from ~/.config/punchcard/config.toml
//  2. Open the local file-backed store (and the SQLite sync store if enabled)
//  3. Select the storage mode once, before any session data is read
//  4. Build the cookie source when a cookie file is configured
//  5. Construct the session controller
//  6. Kick session init (resume) in the background
//  7. Start the TUI and block until the user exits or the context cancels
package app

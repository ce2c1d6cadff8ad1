// Package config handles loading and parsing Punchcard's settings file.
//
// # Overview
//
// This package reads the TOML settings file controlling where session state
// is stored, whether the synchronized store backend is enabled, where an
// exported browser cookie file lives, and which UI theme to use. Session
// configuration itself (server URL, credentials) is a separate record owned
// by the session layer and persisted through the state store.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/punchcard/config.toml (default)
//  3. If the settings file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Settings file: ~/.config/punchcard/config.toml
//   - Data directory: ~/.local/share/punchcard
//   - Local store file: <data_dir>/state.json
//   - Synchronized store: <data_dir>/sync.db (disabled by default)
//   - Theme: dark
//
// # TOML Format
//
// Example config.toml:
//
//	data_dir = "~/.local/share/punchcard"
//	sync_store = true
//	cookie_file = "~/.local/share/punchcard/cookies.json"
//	theme = "light"
//
// All fields are optional. Tilde expansion is performed automatically.
//
// # Error Handling
//
// Load returns errors for path expansion failures, file read errors (except
// os.ErrNotExist, which triggers defaults) and TOML parsing errors. A
// missing settings file is NOT an error; Punchcard works out-of-the-box.
package config

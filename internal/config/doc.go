// Package config handles configuration loading for tabsaver.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion, then overridden by TABSAVER_* environment variables. When no
// file exists the CLI uses Default with the same overrides applied.
//
// # Configuration File
//
// Location (in order):
//
//  1. Path from TABSAVER_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/tabsaver/config.yaml
//  3. ~/.config/tabsaver/config.yaml
//
// A path ending in .toml is decoded as TOML.
//
// # Environment Variable Expansion
//
//	browser:
//	  session_file: "${HOME}/session.json"
//
// # Configuration Sections
//
//	database:
//	  path: "~/.local/share/tabsaver/tabsaver.db"
//
//	store:
//	  namespace: "sync"   # namespace the registry and collections live in
//	  watch: true         # pick up writes from other tabsaver processes
//
//	browser:
//	  backend: "session"  # session, devtools
//	  session_file: "~/.local/share/tabsaver/session.json"
//	  devtools_url: "http://127.0.0.1:9222"
//
//	operations:
//	  timeout: "10s"
//
//	registry:
//	  max_retries: 5
//
//	logging:
//	  level: "warn"       # debug, info, warn, error
//	  format: "text"      # text, json
//	  file: ""            # rotated log file; stderr when empty
//
// # Environment Overrides
//
//	TABSAVER_DATABASE_PATH, TABSAVER_STORE_NAMESPACE, TABSAVER_STORE_WATCH,
//	TABSAVER_BROWSER_BACKEND, TABSAVER_BROWSER_SESSION_FILE,
//	TABSAVER_BROWSER_DEVTOOLS_URL, TABSAVER_OPERATIONS_TIMEOUT,
//	TABSAVER_REGISTRY_MAX_RETRIES, TABSAVER_LOG_LEVEL, TABSAVER_LOG_FORMAT,
//	TABSAVER_LOG_FILE
package config

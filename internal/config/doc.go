// Package config provides centralized configuration management for the data
// bridge. It handles loading configuration from multiple sources, validation,
// and provides a type-safe API for accessing configuration values throughout
// the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. Configuration file (configs/config.yaml)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern BRIDGE_* for namespacing:
//
//	BRIDGE_SERVER_PORT=5000
//	BRIDGE_DATASTORE_URL=https://project.supabase.co
//	BRIDGE_DATASTORE_KEY=service-role-key
//	BRIDGE_TERMINAL_HOST=localhost
//	BRIDGE_TERMINAL_PORT=8194
//	BRIDGE_FUND_ADMIN_USERNAME=...
//	BRIDGE_POSITIONS_DSN=DSN=PSC_VIEWER
//	BRIDGE_EXPORTS_DIR=/data/exports
//
// # Validation
//
// All configuration is validated at load time. Only missing mandatory
// settings (the datastore URL and key) abort startup; everything else has a
// default.
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config

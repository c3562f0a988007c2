// Package config loads runtime configuration for the mindshift CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or $MINDSHIFT_CONFIG.
//  3. Environment variables (MINDSHIFT_*), optionally loaded from .env.
//  4. Command-line flags (see parseFlags).
//
// # JSON schema
//
// Durations may be strings like "200ms" or integer nanoseconds:
//
//	{
//	  "local_db_path": "mindshift.db",
//	  "remote_backend": "postgres",
//	  "postgres_dsn": "postgres://localhost/mindshift",
//	  "session_ttl": "8760h",
//	  "push_backoff_base": "200ms"
//	}
package config

// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/autocert/core/config"
//
//	type ManagerConfig struct {
//		DirectoryURL string   `env:"ACME_DIRECTORY_URL,required"`
//		Contact      string   `env:"ACME_CONTACT,required"`
//		Identifiers  []string `env:"ACME_ALLOW_IDENTIFIERS,required"`
//	}
//
//	func main() {
//		var cfg ManagerConfig
//
//		// Load with error handling
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 ManagerConfig
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 ManagerConfig
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently, so the manager, the redis store,
// and the server can each load their own configuration struct.
package config

// Package config provides configuration management for the call audit
// service.
//
// Configuration is loaded from YAML with environment variable overrides,
// validated as a whole, and published through a process-wide singleton that
// can be hot-reloaded.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("callaudit.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("callaudit.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CALLAUDIT_SECTION_FIELD:
//
//   - CALLAUDIT_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CALLAUDIT_STORAGE_SQLITE_DRIVER overrides storage.sqlite.driver
//   - CALLAUDIT_CAPTURE_MASK_FIELDS overrides capture.mask_fields (comma-separated)
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton and Hot Reload
//
//	if err := config.Initialize("callaudit.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// A Watcher observes the file with fsnotify and calls ReloadConfig after a
// burst of writes settles. Components that can change at runtime register
// with Subscribe; the capture defaults, query limits, API keys and log level
// are applied live, while listen address, storage and tracing changes need
// a restart.
//
// # Example Configuration
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//
//	capture:
//	  mask_fields: ["password", "token", "cardNumber"]
//	  max_payload_size: 4096
//
//	storage:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/callaudit.db"
//	    driver: "sqlite"
//
//	retention:
//	  days: 30
//	  prune_schedule: "0 3 * * *"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//	  tracing:
//	    enabled: true
//	    endpoint: "otel-collector:4317"
//	    insecure: true
//	    sampler: "ratio"
//	    sample_ratio: 0.1
package config

// Package config handles loading and validating neobridge configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with NEOBRIDGE_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Command-line flags are applied by cmd/neobridge on top of the loaded
// value, which is why Load does not validate; callers run Validate once
// every source has been merged.
//
// Security Considerations:
//   - Broker and database passwords should come from the environment or flags
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("/etc/neobridge/config.yaml")
//	if err != nil {
//	    return err
//	}
//	cfg.Hub.Host = "192.168.1.50"
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

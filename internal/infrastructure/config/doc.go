// Package config handles loading and validating RelayDesk Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a local .env file before environment overrides are read
//   - Overriding with RELAYDESK_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Feishu app secrets and broker passwords should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - operator.admin_ids is the only access control on the control channel
//
// Usage:
//
//	if _, err := config.LoadDotEnv(); err != nil {
//	    log.Printf("ignoring .env: %v", err)
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Storage.Dir)
package config

// Package config handles loading and validating API Studio Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with APISTUDIO_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (JWT secret, broker and Redis passwords) should be set
//     via environment variables
//   - The config file should have restricted permissions (0600)
//   - There is no default JWT secret; Load fails until one is provided
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Service.Name)
package config

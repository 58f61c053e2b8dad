// Package config handles loading and validating hub configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with SAPHARI_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Broker credentials should be supplied through the environment rather than
// committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Namespace)
package config

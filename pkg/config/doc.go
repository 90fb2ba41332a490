// Package config provides configuration management for cwlens.
//
// Configuration is loaded from a YAML file, completed with defaults,
// overridden by environment variables, and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("cwlens.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CWLENS_SECTION_FIELD:
//
//   - CWLENS_UPSTREAM_BASE_URL overrides upstream.base_url
//   - CWLENS_UPSTREAM_TOKEN overrides upstream.token
//   - CWLENS_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - CWLENS_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Validation
//
// Validate collects every problem into a ValidationError rather than
// stopping at the first one:
//
//	if err := config.Validate(cfg); err != nil {
//	    var verr config.ValidationError
//	    if errors.As(err, &verr) {
//	        for _, fe := range verr.Errors {
//	            fmt.Println(fe.Field, fe.Message)
//	        }
//	    }
//	}
//
// # Singleton
//
// Commands load the configuration once with Initialize and read it with
// GetConfig. Library code takes explicit *Config values instead.
package config

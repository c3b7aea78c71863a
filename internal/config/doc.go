// Package config loads the filings server configuration. Values are layered:
// built-in defaults, then a JSON or YAML file, then FILINGS_* environment
// variables (optionally seeded from a .env file), then command-line flags.
//
// Example:
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load("/etc/filings.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, err := runtime.Open(runtime.Options{DataDir: config.DefaultDataDir(), Config: cfg})
package config

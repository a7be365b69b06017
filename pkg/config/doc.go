// Package config loads typed configuration structs from environment
// variables, optionally seeded from a .env file. Parsing is delegated
// to caarlos0/env struct tags; each config type is parsed once per
// process and cached.
//
//	type AppConfig struct {
//	    Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
//	}
//
//	var cfg AppConfig
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
package config

// Package config loads typed configuration structs from environment
// variables, optionally seeded from a .env file.
//
// Each component declares its own config struct with env tags and loads it
// independently:
//
//	type GatewayConfig struct {
//		APIKey string `env:"IUGU_API_KEY,required"`
//	}
//
//	var cfg GatewayConfig
//	config.MustLoad(&cfg)
package config

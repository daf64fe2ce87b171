package config

import "os"

type Config struct {
	HTTPAddr string
	GelfAddr string
}

func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("AGNOS_ADDR", ":3000"),
		GelfAddr: getEnv("AGNOS_GELF_ADDR", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

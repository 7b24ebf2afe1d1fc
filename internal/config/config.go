// Package config assembles runtime settings from flags, environment
// variables and the optional config file, in that precedence order.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Viper keys and the environment variables bound to them.
const (
	KeyPortalURL     = "portal.url"
	KeyPortalToken   = "portal.token"
	KeyPortalRetries = "portal.retries"
	KeyPortalTimeout = "portal.timeout"

	KeyServerHost = "server.host"
	KeyServerPort = "server.port"

	KeyEnginePset          = "engine.pset"
	KeyEngineApplyDefaults = "engine.apply_defaults"
	KeyEngineSynonyms      = "engine.synonyms"
)

// Portal holds the BIM-Portal client settings.
type Portal struct {
	URL     string
	Token   string
	Retries int
	Timeout time.Duration
}

// Server holds the job API settings.
type Server struct {
	Host string
	Port int
}

// Engine holds the normalization settings.
type Engine struct {
	PsetName      string
	ApplyDefaults bool
	SynonymsFile  string
}

// Config is the full runtime configuration.
type Config struct {
	Portal Portal
	Server Server
	Engine Engine
}

// SetDefaults registers defaults and environment bindings with viper.
// Call once before Load, typically from the root command's init.
func SetDefaults() {
	viper.SetDefault(KeyPortalURL, "https://www.bimdeutschland.de")
	viper.SetDefault(KeyPortalRetries, 2)
	viper.SetDefault(KeyPortalTimeout, "30s")
	viper.SetDefault(KeyServerHost, "0.0.0.0")
	viper.SetDefault(KeyServerPort, 3000)
	viper.SetDefault(KeyEnginePset, "Pset_WallCommon")
	viper.SetDefault(KeyEngineApplyDefaults, false)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// The portal token usually arrives through the environment or a .env
	// file rather than the config file.
	_ = viper.BindEnv(KeyPortalToken, "BIM_PORTAL_TOKEN")
	_ = viper.BindEnv(KeyPortalURL, "BIM_PORTAL_URL")
	_ = viper.BindEnv(KeyServerPort, "PORT")
}

// Load reads the effective configuration from viper.
func Load() *Config {
	return &Config{
		Portal: Portal{
			URL:     viper.GetString(KeyPortalURL),
			Token:   viper.GetString(KeyPortalToken),
			Retries: viper.GetInt(KeyPortalRetries),
			Timeout: viper.GetDuration(KeyPortalTimeout),
		},
		Server: Server{
			Host: viper.GetString(KeyServerHost),
			Port: viper.GetInt(KeyServerPort),
		},
		Engine: Engine{
			PsetName:      viper.GetString(KeyEnginePset),
			ApplyDefaults: viper.GetBool(KeyEngineApplyDefaults),
			SynonymsFile:  viper.GetString(KeyEngineSynonyms),
		},
	}
}

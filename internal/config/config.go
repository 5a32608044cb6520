// Package config holds runtime settings for the mealtrack daemon, loaded as
// defaults overlaid by an optional JSON file and command-line flags, in that
// order (later sources win).
package config

import "time"

// Config holds runtime settings.
//
// Fields:
//   - UserID: the account every local row is scoped to.
//   - DatabaseDSN: path of the local SQLite database.
//   - FirestoreProjectID / FirestoreCredentialsFile: remote store access.
//   - ProbeURL: endpoint probed to infer online/offline state.
//   - OnlineCheckInterval: how often connectivity is probed.
//   - RemoteCallTimeout: upper bound on any single remote push/pull call.
type Config struct {
	UserID                   string
	DatabaseDSN              string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	ProbeURL                 string
	OnlineCheckInterval      time.Duration
	RemoteCallTimeout        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "mealtrack.db"
	c.ProbeURL = "https://firestore.googleapis.com/"
	c.OnlineCheckInterval = 3 * time.Second
	c.RemoteCallTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"encoding/json"
	"os"
	"time"

	"mealtrack/internal/flagx"
	"mealtrack/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds.
type JsonConfig struct {
	UserID                   string         `json:"user_id"`
	DatabaseDSN              string         `json:"database_dsn"`
	FirestoreProjectID       string         `json:"firestore_project_id"`
	FirestoreCredentialsFile string         `json:"firestore_credentials_file"`
	ProbeURL                 string         `json:"probe_url"`
	OnlineCheckInterval      timex.Duration `json:"online_check_interval"`
	RemoteCallTimeout        timex.Duration `json:"remote_call_timeout"`
}

// parseJson overlays cfg with values from the JSON file named by -c/-config.
// Absent file path means no JSON is loaded. Read or unmarshal errors panic;
// a broken config file should stop startup.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.UserID != "" {
		cfg.UserID = jc.UserID
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.FirestoreProjectID != "" {
		cfg.FirestoreProjectID = jc.FirestoreProjectID
	}
	if jc.FirestoreCredentialsFile != "" {
		cfg.FirestoreCredentialsFile = jc.FirestoreCredentialsFile
	}
	if jc.ProbeURL != "" {
		cfg.ProbeURL = jc.ProbeURL
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.RemoteCallTimeout.Duration != 0 {
		cfg.RemoteCallTimeout = time.Duration(jc.RemoteCallTimeout.Duration)
	}
}

package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/aliasvault/internal/flagx"
	"github.com/dmitrijs2005/aliasvault/internal/timex"
)

// configEnv names the JSON config file when no -c/-config flag is given.
const configEnv = "ALIASVAULT_CLI_CONFIG"

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	GRPCAddr            string         `json:"grpc_addr"`
	Transport           string         `json:"transport"`
	DBPath              string         `json:"db_path"`
	VaultVersion        string         `json:"vault_version"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		ServerURL:           c.ServerURL,
		GRPCAddr:            c.GRPCAddr,
		Transport:           c.Transport,
		DBPath:              c.DBPath,
		VaultVersion:        c.VaultVersion,
		RequestTimeout:      timex.Duration{Duration: c.RequestTimeout},
		OnlineCheckInterval: timex.Duration{Duration: c.OnlineCheckInterval},
	}
}

// parseJson overlays Config with values loaded from a JSON file selected via
// -c or -config. Keys missing from the file keep their current values.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFile(configEnv)
	if jsonConfigFile == "" {
		return
	}

	jc := toJson(cfg)

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, jc); err != nil {
		panic(err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.GRPCAddr = jc.GRPCAddr
	cfg.Transport = jc.Transport
	cfg.DBPath = jc.DBPath
	cfg.VaultVersion = jc.VaultVersion
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
}

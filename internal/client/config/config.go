package config

import "time"

const (
	TransportREST = "rest"
	TransportGRPC = "grpc"
)

// Config holds runtime settings for the AliasVault CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API (without the /v1 prefix).
//   - GRPCAddr: host:port of the gRPC endpoint, used when Transport is "grpc".
//   - Transport: "rest" or "grpc".
//   - DBPath: sqlite file holding the token pair and the offline vault copy.
//   - VaultVersion: vault schema version reported on upload.
//   - RequestTimeout: per-request timeout for the REST client.
//   - OnlineCheckInterval: how often the client probes server reachability.
type Config struct {
	ServerURL           string
	GRPCAddr            string
	Transport           string
	DBPath              string
	VaultVersion        string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.Transport = TransportREST
	c.DBPath = "vault.db"
	c.VaultVersion = "1.0.0"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

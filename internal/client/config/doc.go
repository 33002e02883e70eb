// Package config loads runtime configuration for the AliasVault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c or -config, or
//     the ALIASVAULT_CLI_CONFIG environment variable.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "grpc_addr": "127.0.0.1:50051",
//	  "transport": "rest",
//	  "db_path": "vault.db",
//	  "vault_version": "1.0.0",
//	  "request_timeout": "10s",
//	  "online_check_interval": "3s"
//	}
package config

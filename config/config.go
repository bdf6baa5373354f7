package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	Environment string `toml:"Environment"`

	Staking    Staking    `toml:"staking"`
	Governance Governance `toml:"governance"`
	Platform   Platform   `toml:"platform"`
	Genesis    Genesis    `toml:"genesis"`
	RPC        RPC        `toml:"rpc"`
	Logging    Logging    `toml:"logging"`
	Telemetry  Telemetry  `toml:"telemetry"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		RPCAddress:  ":8080",
		DataDir:     "./acdm-data",
		Environment: "local",
		Staking: Staking{
			UnstakeDelaySeconds: 3 * 24 * 3600,
			RewardPeriodSeconds: 7 * 24 * 3600,
			RewardRateBps:       300,
		},
		Governance: Governance{
			MinimumQuorum:         "10000000000000000000",
			DebatingPeriodSeconds: 3 * 24 * 3600,
		},
		Platform: Platform{
			RoundDurationSeconds: 3 * 24 * 3600,
			InitialPrice:         "10000000000000",
			InitialSupply:        "100000",
			PriceIncrement:       "4000000000000",
			Decimals:             6,
		},
		Genesis: Genesis{
			AllowAutogenesis: true,
		},
		RPC: RPC{
			RateLimitPerSecond: 20,
			RateLimitBurst:     40,
			ReadHeaderTimeout:  5,
			MaxBodyBytes:       1 << 20,
		},
		Logging: Logging{
			Level: "info",
		},
		Telemetry: Telemetry{
			Endpoint: "localhost:4318",
			Insecure: true,
		},
	}
}

// Load loads the configuration from the given path. A missing file is
// created from Default.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0].String())
	}

	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if env := strings.TrimSpace(cfg.RPC.JWTSecretEnv); env != "" && cfg.RPC.JWTSecret == "" {
		cfg.RPC.JWTSecret = os.Getenv(env)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// ParseAmount parses a non-negative decimal integer. Underscores are allowed
// as digit separators.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return value, nil
}

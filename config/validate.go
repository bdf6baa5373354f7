package config

import (
	"fmt"
	"strings"
)

var (
	MinDebatingPeriodSeconds = uint64(60)
	MaxRewardRateBps         = uint64(10_000)
)

func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if cfg.Staking.RewardPeriodSeconds == 0 {
		return fmt.Errorf("staking: reward_period_seconds must be positive")
	}
	if cfg.Staking.RewardRateBps > MaxRewardRateBps {
		return fmt.Errorf("staking: reward_rate_bps > %d", MaxRewardRateBps)
	}
	if cfg.Governance.DebatingPeriodSeconds < MinDebatingPeriodSeconds {
		return fmt.Errorf("governance: debating_period_seconds too small")
	}
	if _, err := ParseAmount(cfg.Governance.MinimumQuorum); err != nil {
		return fmt.Errorf("governance: minimum_quorum: %w", err)
	}
	if cfg.Platform.RoundDurationSeconds == 0 {
		return fmt.Errorf("platform: round_duration_seconds must be positive")
	}
	for name, raw := range map[string]string{
		"initial_price":   cfg.Platform.InitialPrice,
		"initial_supply":  cfg.Platform.InitialSupply,
		"price_increment": cfg.Platform.PriceIncrement,
	} {
		if _, err := ParseAmount(raw); err != nil {
			return fmt.Errorf("platform: %s: %w", name, err)
		}
	}
	if price, _ := ParseAmount(cfg.Platform.InitialPrice); price.Sign() == 0 {
		return fmt.Errorf("platform: initial_price must be positive")
	}
	if cfg.Platform.Decimals > 18 {
		return fmt.Errorf("platform: decimals > 18")
	}
	if cfg.RPC.RateLimitPerSecond < 0 || cfg.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if (cfg.Telemetry.Traces || cfg.Telemetry.Metrics) && strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: endpoint required when export is enabled")
	}
	if cfg.Genesis.File == "" && !cfg.Genesis.AllowAutogenesis {
		return fmt.Errorf("genesis: file required when autogenesis is disabled")
	}
	return nil
}

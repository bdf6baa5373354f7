package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zibert/ACDM/config"
	"github.com/zibert/ACDM/core"
	"github.com/zibert/ACDM/core/genesis"
	"github.com/zibert/ACDM/native/platform"
	"github.com/zibert/ACDM/native/staking"
	"github.com/zibert/ACDM/observability/logging"
	"github.com/zibert/ACDM/observability/metrics"
	telemetry "github.com/zibert/ACDM/observability/otel"
	"github.com/zibert/ACDM/rpc"
	"github.com/zibert/ACDM/storage"
)

const (
	genesisPathEnv      = "ACDM_GENESIS"
	allowAutogenesisEnv = "ACDM_ALLOW_AUTOGENESIS"
)

type envLookupFunc func(string) (string, bool)

type runOptions struct {
	configFile       string
	genesisPath      string
	allowAutogenesis bool
	allowMigrate     bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the node and its JSON-RPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliSet := cmd.Flags().Changed("allow-autogenesis")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runNode(ctx, opts, cliSet)
		},
	}
	cmd.Flags().StringVar(&opts.configFile, "config", "./config.toml", "Path to the configuration file")
	cmd.Flags().StringVar(&opts.genesisPath, "genesis", "", "Path to a genesis JSON file (overrides "+genesisPathEnv+" and config)")
	cmd.Flags().BoolVar(&opts.allowAutogenesis, "allow-autogenesis", false, "DEV ONLY: generate a development genesis when none is stored")
	cmd.Flags().BoolVar(&opts.allowMigrate, "allow-migrate", false, "Allow starting with a mismatched state schema")
	return cmd
}

func runNode(ctx context.Context, opts *runOptions, autogenesisCLISet bool) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("acdmd", cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	tel, err := setupTelemetry(ctx, cfg, os.LookupEnv)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	allowAutogenesis, err := resolveAllowAutogenesis(cfg.Genesis.AllowAutogenesis, autogenesisCLISet, opts.allowAutogenesis, os.LookupEnv)
	if err != nil {
		return err
	}

	econ, err := economicsFromConfig(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data directory: %w", err)
	}
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	node, err := core.NewNode(db, econ,
		core.WithLogger(logger),
		core.WithMetrics(metrics.Node()),
		core.WithFaucet(cfg.Genesis.EnableFaucet),
		core.WithAllowMigrate(opts.allowMigrate),
	)
	if err != nil {
		db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer node.Close()

	initialised, err := node.Initialized()
	if err != nil {
		return err
	}
	if !initialised {
		spec, err := loadGenesis(opts.genesisPath, cfg, allowAutogenesis, os.LookupEnv)
		if err != nil {
			return err
		}
		if err := node.InitGenesis(spec); err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
		logger.Info("genesis applied",
			slog.String("owner", spec.Owner),
			slog.String("chair", spec.Chair),
			slog.Int("allow_list", len(spec.AllowList)))
	}
	logger.Info("node ready",
		slog.String("staking", formatModule(staking.VaultAddress)),
		slog.String("platform", formatModule(platform.Address)))

	server, err := rpc.NewServer(node, rpc.ServerConfig{
		JWTSecret:          cfg.RPC.JWTSecret,
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		RateLimitBurst:     cfg.RPC.RateLimitBurst,
		ReadHeaderTimeout:  time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
		MaxBodyBytes:       cfg.RPC.MaxBodyBytes,
		Logger:             logger,
		Traced:             cfg.Telemetry.Traces,
	})
	if err != nil {
		return err
	}
	if cfg.RPC.JWTSecret == "" {
		logger.Warn("rpc authentication disabled; mutating methods are open")
	}
	return server.Start(ctx, cfg.RPCAddress)
}

func setupTelemetry(ctx context.Context, cfg *config.Config, lookup envLookupFunc) (*telemetry.Telemetry, error) {
	var headers map[string]string
	if env := strings.TrimSpace(cfg.Telemetry.HeadersEnv); env != "" && lookup != nil {
		if raw, ok := lookup(env); ok {
			parsed, err := telemetry.ParseHeaders(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", env, err)
			}
			headers = parsed
		}
	}
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "acdmd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     headers,
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return tel, nil
}

// economicsFromConfig converts the config sections into genesis economics.
func economicsFromConfig(cfg *config.Config) (core.Economics, error) {
	econ := core.DefaultEconomics()
	econ.UnstakeDelay = cfg.Staking.UnstakeDelaySeconds
	econ.Reward = staking.RewardPolicy{
		Period:  cfg.Staking.RewardPeriodSeconds,
		RateBps: cfg.Staking.RewardRateBps,
	}
	quorum, err := config.ParseAmount(cfg.Governance.MinimumQuorum)
	if err != nil {
		return econ, fmt.Errorf("governance minimum quorum: %w", err)
	}
	econ.MinimumQuorum = quorum
	econ.DebatingPeriod = cfg.Governance.DebatingPeriodSeconds

	price, err := config.ParseAmount(cfg.Platform.InitialPrice)
	if err != nil {
		return econ, fmt.Errorf("platform initial price: %w", err)
	}
	supply, err := config.ParseAmount(cfg.Platform.InitialSupply)
	if err != nil {
		return econ, fmt.Errorf("platform initial supply: %w", err)
	}
	increment, err := config.ParseAmount(cfg.Platform.PriceIncrement)
	if err != nil {
		return econ, fmt.Errorf("platform price increment: %w", err)
	}
	econ.Platform = platform.Params{
		RoundDuration:  cfg.Platform.RoundDurationSeconds,
		InitialPrice:   price,
		InitialSupply:  supply,
		PriceIncrement: increment,
		Decimals:       cfg.Platform.Decimals,
	}
	return econ, nil
}

// loadGenesis reads the genesis document, or builds a development genesis
// owned by the configured DevOwner when autogenesis is allowed.
func loadGenesis(cliPath string, cfg *config.Config, allowAutogenesis bool, lookup envLookupFunc) (*genesis.GenesisSpec, error) {
	path, err := resolveGenesisPath(cliPath, cfg.Genesis.File, allowAutogenesis, lookup)
	if err != nil {
		return nil, err
	}
	if path != "" {
		return genesis.LoadGenesisSpec(path)
	}
	owner, err := genesis.ParseBech32Account(cfg.Genesis.DevOwner)
	if err != nil {
		return nil, fmt.Errorf("autogenesis requires genesis.DevOwner: %w", err)
	}
	return genesis.DevSpec(owner, time.Now().UTC()), nil
}

func resolveGenesisPath(cliPath string, cfgPath string, allowAutogenesis bool, lookup envLookupFunc) (string, error) {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed, nil
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed, nil
			}
		}
	}
	if trimmed := strings.TrimSpace(cfgPath); trimmed != "" {
		return trimmed, nil
	}
	if allowAutogenesis {
		return "", nil
	}
	return "", fmt.Errorf("no genesis file provided; supply one via --genesis, %s, or config, or explicitly enable autogenesis (--allow-autogenesis / %s / config)", genesisPathEnv, allowAutogenesisEnv)
}

func resolveAllowAutogenesis(cfgValue bool, cliSet bool, cliValue bool, lookup envLookupFunc) (bool, error) {
	allow := cfgValue
	if lookup != nil {
		if value, ok := lookup(allowAutogenesisEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				parsed, err := strconv.ParseBool(trimmed)
				if err != nil {
					return false, fmt.Errorf("invalid %s value %q: %w", allowAutogenesisEnv, trimmed, err)
				}
				allow = parsed
			}
		}
	}
	if cliSet {
		allow = cliValue
	}
	return allow, nil
}

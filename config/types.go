package config

// Staking holds the reward schedule and the unstake delay written at genesis.
type Staking struct {
	UnstakeDelaySeconds uint64 `toml:"UnstakeDelaySeconds"`
	RewardPeriodSeconds uint64 `toml:"RewardPeriodSeconds"`
	RewardRateBps       uint64 `toml:"RewardRateBps"`
}

// Governance holds the voting rules written at genesis. MinimumQuorum is a
// decimal amount of collateral base units.
type Governance struct {
	MinimumQuorum         string `toml:"MinimumQuorum"`
	DebatingPeriodSeconds uint64 `toml:"DebatingPeriodSeconds"`
}

// Platform holds the sale economics. Prices are wei per whole token.
type Platform struct {
	RoundDurationSeconds uint64 `toml:"RoundDurationSeconds"`
	InitialPrice         string `toml:"InitialPrice"`
	InitialSupply        string `toml:"InitialSupply"`
	PriceIncrement       string `toml:"PriceIncrement"`
	Decimals             uint8  `toml:"Decimals"`
}

// Genesis locates the genesis document. With AllowAutogenesis a development
// genesis owned by DevOwner is generated when File is empty.
type Genesis struct {
	File             string `toml:"File"`
	AllowAutogenesis bool   `toml:"AllowAutogenesis"`
	DevOwner         string `toml:"DevOwner"`
	EnableFaucet     bool   `toml:"EnableFaucet"`
}

// RPC tunes the JSON-RPC listener.
type RPC struct {
	JWTSecret          string  `toml:"JWTSecret"`
	JWTSecretEnv       string  `toml:"JWTSecretEnv"`
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
	ReadHeaderTimeout  int     `toml:"ReadHeaderTimeout"`
	MaxBodyBytes       int64   `toml:"MaxBodyBytes"`
}

// Logging tunes the structured logger.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
}

// Telemetry configures OTLP export. HeadersEnv names an environment variable
// holding comma separated key=value exporter headers.
type Telemetry struct {
	Endpoint   string `toml:"Endpoint"`
	Insecure   bool   `toml:"Insecure"`
	HeadersEnv string `toml:"HeadersEnv"`
	Traces     bool   `toml:"Traces"`
	Metrics    bool   `toml:"Metrics"`
}

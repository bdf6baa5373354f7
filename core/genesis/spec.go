package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/crypto"
)

type GenesisSpec struct {
	GenesisTime  string                       `json:"genesisTime" yaml:"genesisTime"`
	NativeTokens []NativeTokenSpec            `json:"nativeTokens" yaml:"nativeTokens"`
	Alloc        map[string]map[string]string `json:"alloc" yaml:"alloc"` // addr -> token -> amount
	Owner        string                       `json:"owner" yaml:"owner"`
	Chair        string                       `json:"chair" yaml:"chair"`
	AllowList    []string                     `json:"allowList" yaml:"allowList"`
	RewardPool   string                       `json:"rewardPool" yaml:"rewardPool"`

	genesisTimestamp time.Time
	owner            [20]byte
	chair            [20]byte
	allowList        [][20]byte
	rewardPool       *big.Int
}

type NativeTokenSpec struct {
	Symbol        string `json:"symbol" yaml:"symbol"`
	Name          string `json:"name" yaml:"name"`
	Decimals      uint8  `json:"decimals" yaml:"decimals"`
	MintAuthority string `json:"mintAuthority,omitempty" yaml:"mintAuthority,omitempty"`
}

// DefaultTokens lists the ledger every node runs: native ether, the reward
// token, the staking collateral and the sale asset minted by the platform.
func DefaultTokens() []NativeTokenSpec {
	return []NativeTokenSpec{
		{Symbol: state.TokenETH, Name: "Ether", Decimals: 18},
		{Symbol: state.TokenXXX, Name: "XXX Coin", Decimals: 18},
		{Symbol: state.TokenLP, Name: "XXX/ETH LP", Decimals: 18},
		{Symbol: state.TokenACDM, Name: "ACADEM Coin", Decimals: 6, MintAuthority: modulePrefix + "platform"},
	}
}

// DevSpec builds a single-operator genesis: owner chairs the governor, is the
// only allow-listed staker and holds ether and collateral to experiment with.
func DevSpec(owner [20]byte, at time.Time) *GenesisSpec {
	addr := crypto.FromRaw(owner).String()
	thousand := "1000000000000000000000"
	return &GenesisSpec{
		GenesisTime:  at.UTC().Format(time.RFC3339),
		NativeTokens: DefaultTokens(),
		Alloc: map[string]map[string]string{
			addr: {state.TokenETH: thousand, state.TokenLP: thousand},
		},
		Owner:      addr,
		Chair:      addr,
		AllowList:  []string{addr},
		RewardPool: "1000000000000000000000000",
	}
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := decodeGenesisSpec(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// decodeGenesisSpec decodes YAML for .yaml and .yml files and JSON otherwise.
// Unknown fields are rejected in both formats.
func decodeGenesisSpec(raw []byte, ext string) (*GenesisSpec, error) {
	var spec GenesisSpec
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return nil, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return nil, err
		}
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }
func (s *GenesisSpec) OwnerAddress() [20]byte      { return s.owner }
func (s *GenesisSpec) ChairAddress() [20]byte      { return s.chair }

func (s *GenesisSpec) AllowListAddresses() [][20]byte {
	return append([][20]byte(nil), s.allowList...)
}

func (s *GenesisSpec) RewardPoolAmount() *big.Int {
	if s.rewardPool == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(s.rewardPool)
}

// Validate checks the document and resolves its addresses and amounts.
func (s *GenesisSpec) Validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	if len(s.NativeTokens) == 0 {
		s.NativeTokens = DefaultTokens()
	}
	tokenSymbols := make(map[string]struct{}, len(s.NativeTokens))
	for i := range s.NativeTokens {
		if err := s.NativeTokens[i].validate(); err != nil {
			return fmt.Errorf("nativeToken[%d]: %w", i, err)
		}
		key := strings.ToUpper(strings.TrimSpace(s.NativeTokens[i].Symbol))
		if _, exists := tokenSymbols[key]; exists {
			return fmt.Errorf("nativeToken[%d]: duplicate symbol %q", i, s.NativeTokens[i].Symbol)
		}
		tokenSymbols[key] = struct{}{}
	}
	for _, required := range []string{state.TokenETH, state.TokenXXX, state.TokenLP, state.TokenACDM} {
		if _, ok := tokenSymbols[required]; !ok {
			return fmt.Errorf("nativeTokens: missing %s", required)
		}
	}

	if s.owner, err = ParseBech32Account(s.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if s.chair, err = ParseBech32Account(s.Chair); err != nil {
		return fmt.Errorf("chair: %w", err)
	}
	s.allowList = s.allowList[:0]
	for i, entry := range s.AllowList {
		addr, err := ParseBech32Account(entry)
		if err != nil {
			return fmt.Errorf("allowList[%d]: %w", i, err)
		}
		s.allowList = append(s.allowList, addr)
	}
	if len(s.allowList) == 0 {
		return fmt.Errorf("allowList must not be empty")
	}
	if s.rewardPool, err = parseAmountString(s.RewardPool); err != nil {
		return fmt.Errorf("rewardPool: %w", err)
	}

	for addr, balances := range s.Alloc {
		if _, err := ParseBech32Account(addr); err != nil {
			return fmt.Errorf("alloc %q: %w", addr, err)
		}
		for symbol, amount := range balances {
			if _, ok := tokenSymbols[strings.ToUpper(strings.TrimSpace(symbol))]; !ok {
				return fmt.Errorf("alloc %q: unknown token %q", addr, symbol)
			}
			if _, err := parseAmountString(amount); err != nil {
				return fmt.Errorf("alloc %q %s: %w", addr, symbol, err)
			}
		}
	}
	return nil
}

// Apply registers the native tokens and credits the allocations.
func (s *GenesisSpec) Apply(manager *state.Manager) error {
	if manager == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	for _, token := range s.NativeTokens {
		if err := manager.RegisterToken(token.Symbol, token.Name, token.Decimals); err != nil {
			return fmt.Errorf("register token %s: %w", token.Symbol, err)
		}
		if strings.TrimSpace(token.MintAuthority) == "" {
			continue
		}
		authority, err := ParseBech32Account(token.MintAuthority)
		if err != nil {
			return err
		}
		if err := manager.SetTokenMintAuthority(token.Symbol, authority[:]); err != nil {
			return fmt.Errorf("mint authority %s: %w", token.Symbol, err)
		}
	}

	addrs := make([]string, 0, len(s.Alloc))
	for addr := range s.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		account, err := ParseBech32Account(addr)
		if err != nil {
			return err
		}
		symbols := make([]string, 0, len(s.Alloc[addr]))
		for symbol := range s.Alloc[addr] {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			amount, err := parseAmountString(s.Alloc[addr][symbol])
			if err != nil {
				return err
			}
			if err := manager.Mint(symbol, nil, account[:], amount); err != nil {
				return fmt.Errorf("alloc %s %s: %w", addr, symbol, err)
			}
		}
	}
	return nil
}

func (t *NativeTokenSpec) validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("symbol must be provided")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name must be provided")
	}
	if t.Decimals > 18 {
		return fmt.Errorf("decimals must be 18 or fewer")
	}
	if strings.TrimSpace(t.MintAuthority) != "" {
		if _, err := ParseBech32Account(t.MintAuthority); err != nil {
			return fmt.Errorf("mintAuthority: %w", err)
		}
	}
	return nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}

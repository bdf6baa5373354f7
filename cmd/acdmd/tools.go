package main

import (
	"bufio"
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/zibert/ACDM/core/genesis"
	"github.com/zibert/ACDM/crypto"
	"github.com/zibert/ACDM/native/platform"
	"github.com/zibert/ACDM/native/staking"
	"github.com/zibert/ACDM/rpc"
)

func formatModule(addr [20]byte) string {
	return crypto.FromRaw(addr).String()
}

type allowListResult struct {
	Root   string              `json:"root"`
	Proofs map[string][]string `json:"proofs,omitempty"`
}

func newMerkleRootCmd() *cobra.Command {
	var (
		file   string
		proofs bool
	)
	cmd := &cobra.Command{
		Use:   "merkle-root [address...]",
		Short: "Compute the staking allow-list root",
		Long: `Compute the allow-list root from bech32 addresses given as arguments or, with
--file, one per line. With --proofs the inclusion proof of every address is
printed as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := append([]string(nil), args...)
			if file != "" {
				lines, err := readLines(file)
				if err != nil {
					return err
				}
				entries = append(entries, lines...)
			}
			result, err := buildAllowList(entries, proofs)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "File with one address per line")
	cmd.Flags().BoolVar(&proofs, "proofs", false, "Include inclusion proofs")
	return cmd
}

func buildAllowList(entries []string, withProofs bool) (*allowListResult, error) {
	addrs := make([][20]byte, 0, len(entries))
	for _, entry := range entries {
		addr, err := genesis.ParseBech32Account(entry)
		if err != nil {
			return nil, fmt.Errorf("allow list entry %q: %w", entry, err)
		}
		addrs = append(addrs, addr)
	}
	tree, err := crypto.NewAddressTree(addrs)
	if err != nil {
		return nil, err
	}
	result := &allowListResult{Root: tree.Root().Hex()}
	if !withProofs {
		return result, nil
	}
	result.Proofs = make(map[string][]string, len(addrs))
	for _, addr := range addrs {
		proof, _ := tree.Proof(crypto.MerkleLeaf(addr))
		hexes := make([]string, 0, len(proof))
		for _, h := range proof {
			hexes = append(hexes, h.Hex())
		}
		result.Proofs[crypto.FromRaw(addr).String()] = hexes
	}
	return result, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

type payloadResult struct {
	Recipient string `json:"recipient"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

func newPayloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payload <method> [arg]",
		Short: "Encode a governed call for gov_addProposal",
		Long: `Encode the payload of a governed call. Methods:
  setRoot <0x-root>             staking allow-list root
  setTimeToUnstake <seconds>    staking unstake delay
  setFirstLevelSaleAward <n>    per-thousand share, sale level one
  setSecondLevelSaleAward <n>   per-thousand share, sale level two
  setTradeAward <n>             per-thousand share per trade level
  sendSavedEthersToOwner
  burnXXXToken`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := encodePayload(args[0], args[1:])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func encodePayload(method string, args []string) (*payloadResult, error) {
	var (
		recipient [20]byte
		payload   []byte
		err       error
	)
	arg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s takes exactly one argument", method)
		}
		return args[0], nil
	}
	uintArg := func() (uint64, error) {
		raw, err := arg()
		if err != nil {
			return 0, err
		}
		return strconv.ParseUint(raw, 10, 64)
	}
	noArgs := func() error {
		if len(args) != 0 {
			return fmt.Errorf("%s takes no arguments", method)
		}
		return nil
	}

	switch method {
	case "setRoot":
		recipient = staking.VaultAddress
		var raw string
		if raw, err = arg(); err == nil {
			var b []byte
			if b, err = hexutil.Decode(raw); err == nil {
				if len(b) != common.HashLength {
					return nil, fmt.Errorf("root must be 32 bytes")
				}
				payload, err = staking.EncodeSetRoot(common.BytesToHash(b))
			}
		}
	case "setTimeToUnstake":
		recipient = staking.VaultAddress
		var v uint64
		if v, err = uintArg(); err == nil {
			payload, err = staking.EncodeSetTimeToUnstake(v)
		}
	case "setFirstLevelSaleAward", "setSecondLevelSaleAward", "setTradeAward":
		recipient = platform.Address
		var v uint64
		if v, err = uintArg(); err == nil {
			switch method {
			case "setFirstLevelSaleAward":
				payload, err = platform.EncodeSetFirstLevelSaleAward(v)
			case "setSecondLevelSaleAward":
				payload, err = platform.EncodeSetSecondLevelSaleAward(v)
			default:
				payload, err = platform.EncodeSetTradeAward(v)
			}
		}
	case "sendSavedEthersToOwner":
		recipient = platform.Address
		if err = noArgs(); err == nil {
			payload, err = platform.EncodeSendSavedEthersToOwner()
		}
	case "burnXXXToken":
		recipient = platform.Address
		if err = noArgs(); err == nil {
			payload, err = platform.EncodeBurnXXXToken()
		}
	default:
		return nil, fmt.Errorf("unknown governed method %q", method)
	}
	if err != nil {
		return nil, err
	}

	describe := platform.DescribeCall
	if recipient == staking.VaultAddress {
		describe = staking.DescribeCall
	}
	sig, err := describe(payload)
	if err != nil {
		return nil, err
	}
	return &payloadResult{
		Recipient: formatModule(recipient),
		Signature: sig,
		Payload:   hexutil.Encode(payload),
	}, nil
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an account key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"address":    key.PubKey().Address().String(),
				"privateKey": hexutil.Encode(key.Bytes()),
			})
		},
	}
}

func newSignCmd() *cobra.Command {
	var (
		keyEnv string
		nonce  uint64
	)
	cmd := &cobra.Command{
		Use:   "sign <method> <params-json>",
		Short: "Sign the parameters of a caller-bound RPC method",
		Long: `Sign a parameter object for methods such as staking_stake or gov_vote. The
caller is taken from the key and the nonce must exceed the last one the node
accepted (see acdm_getNonce). The output is the params array to send.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(os.Getenv(keyEnv))
			if raw == "" {
				return fmt.Errorf("%s is not set", keyEnv)
			}
			key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
			if err != nil {
				return fmt.Errorf("decode private key: %w", err)
			}
			params, err := signParams(key, args[0], []byte(args[1]), nonce)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), params)
		},
	}
	cmd.Flags().StringVar(&keyEnv, "key-env", "ACDM_PRIVATE_KEY", "Environment variable holding the hex private key")
	cmd.Flags().Uint64Var(&nonce, "nonce", 1, "Request nonce")
	return cmd
}

// signParams stamps caller and nonce into the object and returns the
// [object, signature] pair a signed method expects.
func signParams(key *ecdsa.PrivateKey, method string, object []byte, nonce uint64) ([]interface{}, error) {
	if nonce == 0 {
		return nil, fmt.Errorf("nonce must be greater than zero")
	}
	fields := map[string]interface{}{}
	dec := json.NewDecoder(bytes.NewReader(object))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	var signer [20]byte
	copy(signer[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	fields["caller"] = formatModule(signer)
	fields["nonce"] = nonce
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	sig, err := rpc.SignRequest(key, method, encoded)
	if err != nil {
		return nil, err
	}
	return []interface{}{json.RawMessage(encoded), sig}, nil
}

func newTokenCmd() *cobra.Command {
	var (
		secretEnv string
		subject   string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for mutating RPC methods",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := rpc.IssueToken(os.Getenv(secretEnv), subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&secretEnv, "secret-env", "ACDM_RPC_JWT_SECRET", "Environment variable holding the RPC JWT secret")
	cmd.Flags().StringVar(&subject, "subject", "operator", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

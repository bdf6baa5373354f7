package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "acdmd",
	Short: "ACDM staking, governance and marketplace node",
	Long: `acdmd runs the ACDM node: a staking vault whose collateral weighs votes in a
governor that administers the vault and the ACDM sale platform.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newMerkleRootCmd())
	rootCmd.AddCommand(newPayloadCmd())
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newSignCmd())
	rootCmd.AddCommand(newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

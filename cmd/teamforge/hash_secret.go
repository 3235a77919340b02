package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamforge/engine/internal/config"
)

var hashSecretCmd = &cobra.Command{
	Use:   "hash-secret <secret>",
	Short: "Hash a service client secret",
	Long:  "Hashes a client secret with bcrypt for use as SERVICE_SECRET_HASH.",
	Args:  cobra.ExactArgs(1),
	RunE:  runHashSecret,
}

func init() {
	rootCmd.AddCommand(hashSecretCmd)
}

func runHashSecret(_ *cobra.Command, args []string) error {
	hash, err := config.HashSecret(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

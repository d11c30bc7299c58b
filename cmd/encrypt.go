package cmd

import (
	"fmt"

	"github.com/jmehdipour/wctp-gateway/internal/config"
	"github.com/jmehdipour/wctp-gateway/internal/vault"
	"github.com/spf13/cobra"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <plaintext>",
	Short: "Print a vault envelope for a security code or carrier token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		v, err := vault.New(cfg.Vault.AppKey, vault.WithKeyID(cfg.Vault.KeyID), vault.WithVersion(cfg.Vault.Version))
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		out, err := v.Encrypt(args[0])
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

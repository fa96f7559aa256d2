package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"palmpay/config"
	"palmpay/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const vaultKeyBytes = 32

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a fresh 32-byte embedding vault key (hex)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, vaultKeyBytes)
			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("generating key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key))
			return nil
		},
	}
}

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <api-key>",
		Short: "Hash a terminal API key for the terminal registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("api key must not be empty")
			}
			hash, err := service.NewArgon2HashService().Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func signCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "sign <payload-file>",
		Short: "Compute the gateway webhook signature of a payload file",
		Long: `Reads the payload file byte for byte and prints the hex HMAC-SHA256
signature expected in the X-Razorpay-Signature header. Useful for replaying
gateway deliveries against a local server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
			sig := service.NewHMACSignatureService().Sign(secret, payload)
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Gateway webhook secret")

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		identity   string
		configPath string
		expiry     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development bearer token for an identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			identityID, err := uuid.Parse(identity)
			if err != nil {
				return fmt.Errorf("invalid --identity: %w", err)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.JWT.Secret == "" {
				return errors.New("jwt.secret is not configured")
			}
			if expiry <= 0 {
				expiry = cfg.JWT.Expiry
			}

			tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, expiry, cfg.JWT.Issuer)
			token, expiresAt, err := tokenSvc.Generate(identityID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&identity, "identity", "i", "", "Identity UUID (token subject)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "Token lifetime (defaults to jwt.expiry)")
	_ = cmd.MarkFlagRequired("identity")

	return cmd
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"git.sr.ht/~jakintosh/rallyauth/pkg/tokens"
)

const (
	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
)

func newKeygenCmd() *cobra.Command {
	var (
		out   string
		bits  int
		force bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write an RSA key pair for signing session tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			privPath, pubPath, err := writeKeyPair(out, bits, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nwrote %s\n", privPath, pubPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "directory to write private.pem and public.pem into")
	cmd.Flags().IntVar(&bits, "bits", tokens.DefaultKeyBits, "RSA modulus size")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing key files")
	return cmd
}

func writeKeyPair(dir string, bits int, force bool) (string, string, error) {
	if bits < tokens.DefaultKeyBits {
		return "", "", fmt.Errorf("key size %d is below %d bits", bits, tokens.DefaultKeyBits)
	}
	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)
	if !force {
		for _, path := range []string{privPath, pubPath} {
			if _, err := os.Stat(path); err == nil {
				return "", "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return "", "", err
			}
		}
	}

	privPEM, pubPEM, err := tokens.GenerateKeyPair(bits)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return "", "", fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write public key: %w", err)
	}
	return privPath, pubPath, nil
}

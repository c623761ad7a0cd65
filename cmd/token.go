package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadintel/internal/server"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for --owner",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Server.JWTSecret == "" {
			return eris.New("server.jwt_secret is required")
		}
		tok, err := server.NewTokenManager(cfg.Server.JWTSecret, tokenTTL).Generate(ownerID)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, tok)
		return err
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

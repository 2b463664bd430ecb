package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"alanis-relay/internal/config"
	"alanis-relay/internal/db"
	"alanis-relay/internal/domain"
	"alanis-relay/internal/service"
)

func newRelayctlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relayctl",
		Short: "Herramientas de operacion del relay de mensajes",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newMigrateCommand(),
		newTokenCommand(),
	)
	return cmd
}

func newMigrateCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:     "migrate",
		Short:   "Aplica las migraciones pendientes del relay",
		Args:    cobra.NoArgs,
		Example: "  relayctl migrate\n  relayctl migrate --timeout 1m",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := db.NewPool(ctx, cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			applied, err := db.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema al dia")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "aplicada %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Tiempo maximo para conectar y migrar")
	return cmd
}

func newTokenCommand() *cobra.Command {
	var (
		secret string
		issuer string
		name   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:     "token <user-id>",
		Short:   "Emite un access token para pruebas contra /ws",
		Args:    cobra.ExactArgs(1),
		Example: "  relayctl token 42 --ttl 2h",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("jwt secret not configured")
			}
			svc := service.NewJWTService(secret, issuer, ttl)
			token, err := svc.GenerateAccessToken(domain.User{ID: args[0], DisplayName: name})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Secreto HS256 (default: $JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "alanis", "Issuer del token")
	cmd.Flags().StringVar(&name, "name", "", "Nombre visible del usuario")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Vigencia del token")
	return cmd
}

func main() {
	if err := newRelayctlCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lockvault/lockvault/internal/httpapi"
)

const (
	flagEndpoint   = "endpoint"
	flagToken      = "token"
	flagSigningKey = "signing-key"
	flagIssuer     = "issuer"
	flagTTL        = "ttl"
	flagUnit       = "unit"

	configKeyEndpoint = "endpoint"
	configKeyToken    = "token"

	envEndpoint = "VAULTCTL_ENDPOINT"
	envToken    = "VAULTCTL_TOKEN"

	defaultEndpoint = "http://localhost:8082"
	defaultIssuer   = "vaultd"
	defaultTokenTTL = 24 * time.Hour
)

type clientConfig struct {
	Endpoint string
	Token    string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vaultctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &clientConfig{}
	root := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Control CLI for the vault API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadClientConfig(cmd, cfg)
		},
	}
	root.PersistentFlags().String(flagEndpoint, defaultEndpoint, "vaultd API endpoint")
	root.PersistentFlags().String(flagToken, "", "API bearer token")

	root.AddCommand(
		newConnectCommand(cfg),
		newDisconnectCommand(cfg),
		newStatusCommand(cfg),
		newVaultCommand(cfg),
		newRefreshCommand(cfg),
		newDepositCommand(cfg),
		newWithdrawCommand(cfg),
		newExtendCommand(cfg),
		newOperationCommand(cfg),
		newTokenCommand(),
	)
	return root
}

func loadClientConfig(cmd *cobra.Command, cfg *clientConfig) error {
	if err := viper.BindEnv(configKeyEndpoint, envEndpoint); err != nil {
		return err
	}
	if err := viper.BindEnv(configKeyToken, envToken); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyEndpoint, cmd.Flags().Lookup(flagEndpoint)); err != nil {
		return err
	}
	if err := viper.BindPFlag(configKeyToken, cmd.Flags().Lookup(flagToken)); err != nil {
		return err
	}
	cfg.Endpoint = viper.GetString(configKeyEndpoint)
	cfg.Token = viper.GetString(configKeyToken)
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return nil
}

func newConnectCommand(cfg *clientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Connect the wallet session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, cfg, http.MethodPost, "/api/session", nil)
		},
	}
}

func newDisconnectCommand(cfg *clientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Drop the wallet session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, cfg, http.MethodDelete, "/api/session", nil)
		},
	}
}

func newStatusCommand(cfg *clientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the wallet session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, cfg, http.MethodGet, "/api/session", nil)
		},
	}
}

func newVaultCommand(cfg *clientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "vault",
		Short: "Show the synchronized vault snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, cfg, http.MethodGet, "/api/vault", nil)
		},
	}
}

func newRefreshCommand(cfg *clientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Resynchronize the vault snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, cfg, http.MethodPost, "/api/vault/refresh", nil)
		},
	}
}

func newDepositCommand(cfg *clientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Deposit a decimal amount into the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, cfg, http.MethodPost, "/api/vault/deposit", map[string]string{"amount": args[0]})
		},
	}
}

func newWithdrawCommand(cfg *clientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Withdraw a decimal amount from the vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, cfg, http.MethodPost, "/api/vault/withdraw", map[string]string{"amount": args[0]})
		},
	}
}

func newExtendCommand(cfg *clientConfig) *cobra.Command {
	unit := ""
	cmd := &cobra.Command{
		Use:   "extend <value>",
		Short: "Extend the lock so it ends value*unit from now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("value must be a number: %w", err)
			}
			return callAPI(cmd, cfg, http.MethodPost, "/api/vault/extend", map[string]any{
				"value": value,
				"unit":  unit,
			})
		},
	}
	cmd.Flags().StringVar(&unit, flagUnit, "days", "duration unit: seconds, minutes, hours, days")
	return cmd
}

func newOperationCommand(cfg *clientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "operation",
		Short: "Show the currently tracked operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callAPI(cmd, cfg, http.MethodGet, "/api/operation", nil)
		},
	}
}

func newTokenCommand() *cobra.Command {
	signingKey := ""
	issuer := ""
	ttl := defaultTokenTTL
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if signingKey == "" {
				return fmt.Errorf("signing key is required")
			}
			token, err := httpapi.IssueToken([]byte(signingKey), issuer, "vaultctl", ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&signingKey, flagSigningKey, "", "HS256 signing key shared with vaultd")
	cmd.Flags().StringVar(&issuer, flagIssuer, defaultIssuer, "token issuer")
	cmd.Flags().DurationVar(&ttl, flagTTL, defaultTokenTTL, "token lifetime")
	return cmd
}

func callAPI(cmd *cobra.Command, cfg *clientConfig, method string, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	request, err := http.NewRequestWithContext(cmd.Context(), method, cfg.Endpoint+path, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		request.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, raw, "", "  "); err != nil {
		indented.Write(raw)
	}
	fmt.Fprintln(cmd.OutOrStdout(), indented.String())
	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("api returned status %d", response.StatusCode)
	}
	return nil
}

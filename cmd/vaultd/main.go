package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lockvault/lockvault/internal/ethrpc"
	"github.com/lockvault/lockvault/internal/httpapi"
	"github.com/lockvault/lockvault/pkg/vault"
)

const (
	flagListenAddr      = "listen-addr"
	flagNodeURL         = "node-url"
	flagContractAddress = "contract-address"
	flagExpectedChainID = "expected-chain-id"
	flagAllowedOrigins  = "allowed-origins"
	flagSigningKey      = "api-signing-key"
	flagIssuer          = "api-issuer"
	flagWatchInterval   = "watch-interval"

	configKeyListenAddr      = "listen_addr"
	configKeyNodeURL         = "node_url"
	configKeyContractAddress = "contract_address"
	configKeyExpectedChainID = "expected_chain_id"
	configKeyAllowedOrigins  = "allowed_origins"
	configKeySigningKey      = "api_signing_key"
	configKeyIssuer          = "api_issuer"
	configKeyWatchInterval   = "watch_interval"

	defaultListenAddr    = ":8082"
	defaultNodeURL       = "http://localhost:8545"
	defaultWatchInterval = 5 * time.Second
)

type runtimeConfig struct {
	ListenAddr      string
	NodeURL         string
	ContractAddress string
	ExpectedChainID string
	AllowedOrigins  []string
	SigningKey      string
	Issuer          string
	WatchInterval   time.Duration
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vaultd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "vaultd",
		Short:         "Time-locked savings vault API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagNodeURL, defaultNodeURL, "Ethereum JSON-RPC node URL")
	cmd.Flags().String(flagContractAddress, "", "vault contract address")
	cmd.Flags().String(flagExpectedChainID, "", "expected chain id, surfaced on mismatch")
	cmd.Flags().StringSlice(flagAllowedOrigins, nil, "allowed CORS origins")
	cmd.Flags().String(flagSigningKey, "", "HS256 key signing API bearer tokens")
	cmd.Flags().String(flagIssuer, "", "issuer of API bearer tokens")
	cmd.Flags().Duration(flagWatchInterval, defaultWatchInterval, "node poll interval for account/chain changes")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyListenAddr:      "VAULTD_LISTEN_ADDR",
		configKeyNodeURL:         "VAULTD_NODE_URL",
		configKeyContractAddress: "VAULTD_CONTRACT_ADDRESS",
		configKeyExpectedChainID: "VAULTD_EXPECTED_CHAIN_ID",
		configKeyAllowedOrigins:  "VAULTD_ALLOWED_ORIGINS",
		configKeySigningKey:      "VAULTD_API_SIGNING_KEY",
		configKeyIssuer:          "VAULTD_API_ISSUER",
		configKeyWatchInterval:   "VAULTD_WATCH_INTERVAL",
	}
	for key, envName := range bindings {
		if err := viper.BindEnv(key, envName); err != nil {
			return err
		}
	}
	flags := map[string]string{
		configKeyListenAddr:      flagListenAddr,
		configKeyNodeURL:         flagNodeURL,
		configKeyContractAddress: flagContractAddress,
		configKeyExpectedChainID: flagExpectedChainID,
		configKeyAllowedOrigins:  flagAllowedOrigins,
		configKeySigningKey:      flagSigningKey,
		configKeyIssuer:          flagIssuer,
		configKeyWatchInterval:   flagWatchInterval,
	}
	for key, flagName := range flags {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	cfg.NodeURL = viper.GetString(configKeyNodeURL)
	cfg.ContractAddress = viper.GetString(configKeyContractAddress)
	cfg.ExpectedChainID = viper.GetString(configKeyExpectedChainID)
	cfg.AllowedOrigins = viper.GetStringSlice(configKeyAllowedOrigins)
	cfg.SigningKey = viper.GetString(configKeySigningKey)
	cfg.Issuer = viper.GetString(configKeyIssuer)
	cfg.WatchInterval = viper.GetDuration(configKeyWatchInterval)

	if cfg.NodeURL == "" {
		return fmt.Errorf("node url is required")
	}
	if cfg.ContractAddress == "" {
		return fmt.Errorf("contract address is required")
	}
	if cfg.SigningKey == "" {
		return fmt.Errorf("api signing key is required")
	}
	return nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := ethrpc.New(ethrpc.Config{
		NodeURL:         cfg.NodeURL,
		ContractAddress: cfg.ContractAddress,
	})
	if err != nil {
		return fmt.Errorf("rpc client init: %w", err)
	}

	var expectedChain vault.ChainID
	if cfg.ExpectedChainID != "" {
		expectedChain, err = vault.NewChainID(cfg.ExpectedChainID)
		if err != nil {
			return fmt.Errorf("expected chain id: %w", err)
		}
	}
	sessions, err := vault.NewSessionManager(client, expectedChain)
	if err != nil {
		return fmt.Errorf("session manager init: %w", err)
	}
	clock := func() int64 { return time.Now().UTC().Unix() }
	cache, err := vault.NewCache(client, sessions, clock)
	if err != nil {
		return fmt.Errorf("cache init: %w", err)
	}
	service, err := vault.NewService(client, sessions, cache, clock,
		vault.WithOperationLogger(operationLogger{logger: logger}))
	if err != nil {
		return fmt.Errorf("vault service init: %w", err)
	}

	go client.Watch(ctx, cfg.WatchInterval)

	return httpapi.Run(ctx, httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		APISigningKey:  cfg.SigningKey,
		APIIssuer:      cfg.Issuer,
	}, service, logger)
}

// operationLogger adapts zap to the vault's operation callback.
type operationLogger struct {
	logger *zap.Logger
}

func (adapter operationLogger) LogOperation(_ context.Context, entry vault.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("address", entry.Address.String()),
		zap.String("handle", entry.Handle.String()),
	}
	if !entry.AmountAtomic.IsZero() {
		fields = append(fields, zap.String("amount_atomic", entry.AmountAtomic.BigInt().String()))
	}
	if entry.AdditionalSeconds > 0 {
		fields = append(fields, zap.Int64("additional_seconds", entry.AdditionalSeconds))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		adapter.logger.Error("vault operation failed", fields...)
		return
	}
	adapter.logger.Info("vault operation", fields...)
}

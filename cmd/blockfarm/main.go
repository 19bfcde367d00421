package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/app"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/config"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/connector"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/explorer"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/registry"
	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/wallet"
)

var configPath string

// env bundles everything a command needs after bootstrap.
type env struct {
	cfg       *config.Config
	logger    *zap.Logger
	node      *connector.EthereumConnector
	provider  *wallet.KeystoreProvider
	connector *wallet.Connector
	app       *app.App
}

func (e *env) close() {
	if e.provider != nil {
		e.provider.Close()
	}
	if e.node != nil {
		e.node.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// bootstrap loads configuration, connects to the node and wires the
// application. Commands that need a signer call connect afterwards.
func bootstrap(ctx context.Context) (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := config.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	node := connector.NewEthereumConnector(&cfg.Ethereum, logger)
	if err := node.Connect(ctx); err != nil {
		return nil, err
	}

	provider := wallet.NewKeystoreProvider(&cfg.Wallet, node.Client(), passphrasePrompt(cfg), logger)
	walletConnector := wallet.NewConnector(provider, logger)

	newRegistry := func(signer *bind.TransactOpts) (registry.Registry, error) {
		return registry.NewContract(&cfg.Registry, node.Client(), signer, logger)
	}

	application, err := app.New(walletConnector, newRegistry, explorer.New(&cfg.Explorer), logger)
	if err != nil {
		node.Close()
		return nil, err
	}
	application.OnReset(func() {
		logger.Warn("Chain changed, session invalidated; restart the client")
	})

	return &env{
		cfg:       cfg,
		logger:    logger,
		node:      node,
		provider:  provider,
		connector: walletConnector,
		app:       application,
	}, nil
}

// passphrasePrompt prefers the configured passphrase and falls back to an
// interactive prompt on stderr.
func passphrasePrompt(cfg *config.Config) wallet.PassphraseFunc {
	return func(account common.Address) (string, error) {
		if cfg.Wallet.Passphrase != "" {
			return cfg.Wallet.Passphrase, nil
		}
		fmt.Fprintf(os.Stderr, "Passphrase for %s: ", account.Hex())
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

// requireTab enforces role gating for a command: the matching navigation tab
// must be visible for the connected account. Gating fails closed, so a
// failed role query blocks the command too.
func requireTab(e *env, tabID string) error {
	for _, tab := range e.app.VisibleTabs() {
		if tab.ID == tabID {
			return nil
		}
	}
	if sess := e.app.Session(); sess != nil {
		if err := sess.RoleError(); err != nil {
			return fmt.Errorf("role check unavailable, retry later: %w", err)
		}
	}
	return fmt.Errorf("your account has no access to %q; ask an administrator for the required role", tabID)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blockfarm",
		Short: "BlockFarm - pharmaceutical lot registry client",
		Long: `BlockFarm is the command-line client of the MedicineRegistry contract.

It registers pharmaceutical lots, transfers them between license holders,
reconstructs a lot's ownership timeline from chain events and manages the
operative roles of the network.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yaml")

	root.AddCommand(
		newStatusCmd(),
		newRegisterCmd(),
		newTransferCmd(),
		newTraceCmd(),
		newRolesCmd(),
		newWatchCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

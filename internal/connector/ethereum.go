// Package connector manages the RPC connections to the Ethereum node the
// client talks to. Contract semantics live in the registry package; this is
// only connection lifecycle.
package connector

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/config"
)

// EthereumConnector holds the HTTP connection used for calls and
// transactions, and the optional websocket connection used for event
// subscriptions in watch mode.
type EthereumConnector struct {
	config   *config.EthereumConfig
	client   *ethclient.Client
	wsclient *ethclient.Client
	logger   *zap.Logger
}

// NewEthereumConnector creates a new unconnected EthereumConnector.
func NewEthereumConnector(config *config.EthereumConfig, logger *zap.Logger) *EthereumConnector {
	return &EthereumConnector{
		config: config,
		logger: logger,
	}
}

// Connect establishes the node connections. The websocket endpoint is only
// dialed when configured; interactive commands work without it.
func (e *EthereumConnector) Connect(ctx context.Context) error {
	var err error

	e.client, err = ethclient.DialContext(ctx, e.config.NodeURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}

	if e.config.WebsocketURL != "" {
		e.wsclient, err = ethclient.DialContext(ctx, e.config.WebsocketURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Ethereum WebSocket: %w", err)
		}
	}

	e.logger.Info("Connected to Ethereum node",
		zap.String("node_url", e.config.NodeURL),
		zap.String("websocket_url", e.config.WebsocketURL))

	return nil
}

// Close closes the connections to the Ethereum node.
func (e *EthereumConnector) Close() error {
	if e.client != nil {
		e.client.Close()
	}

	if e.wsclient != nil {
		e.wsclient.Close()
	}

	e.logger.Info("Disconnected from Ethereum node")
	return nil
}

// Client returns the HTTP client.
func (e *EthereumConnector) Client() *ethclient.Client {
	return e.client
}

// WsClient returns the websocket client, or nil when no websocket endpoint
// is configured.
func (e *EthereumConnector) WsClient() *ethclient.Client {
	return e.wsclient
}

package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Registry RegistryConfig `mapstructure:"registry"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Explorer ExplorerConfig `mapstructure:"explorer"`
	Log      LogConfig      `mapstructure:"log"`
}

type EthereumConfig struct {
	NodeURL      string `mapstructure:"node_url"`
	WebsocketURL string `mapstructure:"websocket_url"`
	ChainID      int64  `mapstructure:"chain_id"`
}

type RegistryConfig struct {
	// ContractAddress is the deployed MedicineRegistry address. Addresses are
	// chain-specific; a chain switch invalidates the whole session.
	ContractAddress string `mapstructure:"contract_address"`
	// StartBlock bounds event queries to blocks at or after the contract
	// deployment, so traceability scans never walk the full chain.
	StartBlock uint64 `mapstructure:"start_block"`
}

type WalletConfig struct {
	KeystoreDir string `mapstructure:"keystore_dir"`
	// Passphrase unlocks the active keystore account when set. Left empty,
	// the CLI prompts for it interactively.
	Passphrase string `mapstructure:"passphrase"`
}

type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	BatchSize    int      `mapstructure:"batch_size"`
	BatchTimeout int      `mapstructure:"batch_timeout"`
}

type ExplorerConfig struct {
	// TxURLTemplate is a hyperlink template for transaction hashes; the
	// literal "{tx}" is replaced with the 0x-prefixed hash.
	TxURLTemplate string `mapstructure:"tx_url_template"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func LoadConfig(path string) (*Config, error) {
	// Optional .env next to the binary, for local development. Values there
	// feed the same env override path viper reads below.
	_ = godotenv.Load()

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("ethereum.chain_id", 11155111)
	viper.SetDefault("explorer.tx_url_template", "https://sepolia.etherscan.io/tx/{tx}")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	err := viper.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Registry.ContractAddress == "" {
		return nil, fmt.Errorf("registry.contract_address is required")
	}

	return &config, nil
}

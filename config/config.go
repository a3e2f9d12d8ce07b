package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const DefaultNetwork = "sepolia"

// Network holds the connection details of one EVM chain
type Network struct {
	Name             string  `mapstructure:"-"`
	ChainID          int64   `mapstructure:"chain_id"`
	RPCUrl           string  `mapstructure:"rpc_url"`
	BlockExplorerURL string  `mapstructure:"block_explorer_url"`
	Symbol           string  `mapstructure:"symbol"`
	GasLimit         *uint64 `mapstructure:"gas_limit"` // Optional: override gas limit
	GasPrice         *int64  `mapstructure:"gas_price"` // Optional: override gas price (wei)
}

// Config holds the application configuration
type Config struct {
	Network       string             `mapstructure:"network"`
	Address       string             `mapstructure:"address"`
	PrivateKey    string             `mapstructure:"private_key"`
	DecimalPlaces int                `mapstructure:"decimal_places"`
	Networks      map[string]Network `mapstructure:"networks"`
}

var defaultNetworks = map[string]Network{
	"sepolia": {
		ChainID:          11155111,
		RPCUrl:           "https://rpc.sepolia.org",
		BlockExplorerURL: "https://sepolia.etherscan.io",
		Symbol:           "ETH",
	},
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	return load(viper.New(), true)
}

func load(v *viper.Viper, readFile bool) (*Config, error) {
	v.SetConfigName(".evm-wallet")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	// Set default values
	v.SetDefault("network", DefaultNetwork)
	v.SetDefault("decimal_places", 4)

	// Read from environment variables
	v.SetEnvPrefix("EVM_WALLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"network", "address", "private_key", "decimal_places"} {
		_ = v.BindEnv(key)
	}

	// Read config file (optional)
	if readFile {
		_ = v.ReadInConfig()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Networks == nil {
		cfg.Networks = make(map[string]Network)
	}
	for name, network := range defaultNetworks {
		if override, exists := cfg.Networks[name]; exists {
			network = override.withDefaults(network)
		}
		cfg.Networks[name] = network
	}
	for name, network := range cfg.Networks {
		network.Name = name
		cfg.Networks[name] = network
	}

	if cfg.DecimalPlaces < 0 {
		return nil, fmt.Errorf("decimal_places cannot be negative")
	}

	return cfg, nil
}

// SelectNetwork returns the configuration of the named network, or the
// configured default when name is empty.
func (c *Config) SelectNetwork(name string) (Network, error) {
	if name == "" {
		name = c.Network
	}
	name = strings.ToLower(name)

	network, exists := c.Networks[name]
	if !exists {
		return Network{}, fmt.Errorf("network %s not configured", name)
	}

	if network.RPCUrl == "" {
		return Network{}, fmt.Errorf("RPC URL not configured for network %s", name)
	}
	if network.BlockExplorerURL == "" {
		return Network{}, fmt.Errorf("block explorer URL not configured for network %s", name)
	}
	if network.ChainID <= 0 {
		return Network{}, fmt.Errorf("chain ID not configured for network %s", name)
	}

	return network, nil
}

// RequireAccount checks that an account address is configured
func (c *Config) RequireAccount() error {
	if c.Address == "" {
		return fmt.Errorf("account address not found. Please set EVM_WALLET_ADDRESS environment variable or create a .evm-wallet.yaml config file")
	}
	return nil
}

// RequireSigner checks that a signing key is configured
func (c *Config) RequireSigner() error {
	if err := c.RequireAccount(); err != nil {
		return err
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("private key not found. Please set EVM_WALLET_PRIVATE_KEY environment variable")
	}
	return nil
}

// NetworkNames returns the configured network names in alphabetical order
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// withDefaults fills the fields n leaves unset from def
func (n Network) withDefaults(def Network) Network {
	if n.ChainID == 0 {
		n.ChainID = def.ChainID
	}
	if n.RPCUrl == "" {
		n.RPCUrl = def.RPCUrl
	}
	if n.BlockExplorerURL == "" {
		n.BlockExplorerURL = def.BlockExplorerURL
	}
	if n.Symbol == "" {
		n.Symbol = def.Symbol
	}
	if n.GasLimit == nil {
		n.GasLimit = def.GasLimit
	}
	if n.GasPrice == nil {
		n.GasPrice = def.GasPrice
	}
	return n
}

// NativeSymbol returns the native token symbol, defaulting to ETH
func (n Network) NativeSymbol() string {
	if n.Symbol == "" {
		return "ETH"
	}
	return n.Symbol
}

// AddressURL links an address on the block explorer
func (n Network) AddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", strings.TrimRight(n.BlockExplorerURL, "/"), address)
}

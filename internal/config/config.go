package config

import (
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"invoice-financer/internal/domain/chain"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// APIURL is the off-chain API base used by the CLI.
	APIURL string

	Logging LoggingConfig
	Chain   ChainConfig
	Wallet  WalletConfig
}

type LoggingConfig struct {
	Level  string
	Format string // text|json
}

// ChainConfig is resolved once at startup and passed by value into each component.
type ChainConfig struct {
	ChainID        int64
	Name           string
	RPCURL         string
	ExplorerURL    string
	CurrencyName   string
	CurrencySymbol string

	TokenAddress    string
	TreasuryAddress string

	// ApprovalSettle is waited after an approval confirms, before re-reading the allowance.
	ApprovalSettle time.Duration
	// ApprovalReady is waited after a verified approval, before the value-moving call.
	ApprovalReady time.Duration
}

type WalletConfig struct {
	KeystorePath string
	Passphrase   string
	PrivateKey   string
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func Load() *Config {
	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "financer"),
		MySQLUser: getenv("MYSQL_USER", "financer"),
		MySQLPass: getenv("MYSQL_PASS", "financer"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getenvInt("REDIS_DB", 0),
		IdempTTLSecs: getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),

		APIURL: NormalizeAPIURL(os.Getenv("API_URL")),

		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
		},
		Chain: ChainConfig{
			Name:            getenv("CHAIN_NAME", "Sepolia"),
			RPCURL:          getenv("CHAIN_RPC_URL", "https://rpc.sepolia.org"),
			ExplorerURL:     strings.TrimRight(getenv("CHAIN_EXPLORER_URL", "https://sepolia.etherscan.io"), "/"),
			CurrencyName:    getenv("NATIVE_CURRENCY_NAME", "ETH"),
			CurrencySymbol:  getenv("NATIVE_CURRENCY_SYMBOL", "ETH"),
			TokenAddress:    getenv("USDC_ADDRESS", ""),
			TreasuryAddress: getenv("TREASURY_ADDRESS", ""),
			ApprovalSettle:  time.Duration(getenvInt("APPROVAL_SETTLE_MS", 2000)) * time.Millisecond,
			ApprovalReady:   time.Duration(getenvInt("APPROVAL_READY_MS", 1500)) * time.Millisecond,
		},
		Wallet: WalletConfig{
			KeystorePath: getenv("WALLET_KEYSTORE", ""),
			Passphrase:   os.Getenv("WALLET_PASSPHRASE"),
			PrivateKey:   getenv("WALLET_PRIVATE_KEY", ""),
		},
	}
	c.Chain.ChainID = 11155111
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Chain.ChainID = n
		}
	}
	return c
}

// NormalizeAPIURL prefixes http:// when no scheme is given and strips a trailing slash.
func NormalizeAPIURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return strings.TrimSuffix(u, "/")
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	return nil
}

// ValidateClient checks what the CLI needs before any flow runs.
func (c *Config) ValidateClient() error {
	if c.APIURL == "" {
		return &chain.ConfigurationError{Field: "API_URL"}
	}
	if c.Chain.ChainID <= 0 {
		return &chain.ConfigurationError{Field: "CHAIN_ID"}
	}
	if c.Chain.RPCURL == "" {
		return &chain.ConfigurationError{Field: "CHAIN_RPC_URL"}
	}
	if c.Wallet.KeystorePath == "" && c.Wallet.PrivateKey == "" {
		return &chain.ConfigurationError{Field: "WALLET_KEYSTORE or WALLET_PRIVATE_KEY"}
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c ChainConfig) ID() *big.Int { return big.NewInt(c.ChainID) }

// Params is the definition offered to a wallet that does not know the chain.
func (c ChainConfig) Params() chain.Params {
	p := chain.Params{
		ChainID:        c.ID(),
		ChainName:      c.Name,
		NativeCurrency: chain.NativeCurrency{Name: c.CurrencyName, Symbol: c.CurrencySymbol, Decimals: 18},
		RPCURLs:        []string{c.RPCURL},
	}
	if c.ExplorerURL != "" {
		p.BlockExplorerURLs = []string{c.ExplorerURL}
	}
	return p
}

func (c ChainConfig) RequireToken() (common.Address, error) {
	return requireAddress("USDC_ADDRESS", c.TokenAddress)
}

func (c ChainConfig) RequireTreasury() (common.Address, error) {
	return requireAddress("TREASURY_ADDRESS", c.TreasuryAddress)
}

func (c ChainConfig) TxURL(hash string) string { return c.ExplorerURL + "/tx/" + hash }

func requireAddress(field, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, &chain.ConfigurationError{Field: field}
	}
	return common.HexToAddress(v), nil
}

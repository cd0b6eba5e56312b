package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"token-payment-api/internal/token"
)

const (
	SignerKeystore = "keystore"
	SignerClef     = "clef"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Token    TokenConfig    `mapstructure:"token"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Signer   SignerConfig   `mapstructure:"signer"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Stage string `mapstructure:"stage"`
}

// ChainConfig describes the network the token lives on.
type ChainConfig struct {
	RPCURL      string        `mapstructure:"rpc_url"`
	ID          int64         `mapstructure:"id"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DialRetries uint64        `mapstructure:"dial_retries"`
}

type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
	// ZeroText is displayed when the connected account holds no tokens.
	ZeroText string `mapstructure:"zero_text"`
}

type PaymentConfig struct {
	DefaultRecipient string   `mapstructure:"default_recipient"`
	Amounts          []string `mapstructure:"amounts"`
}

// SignerConfig selects the wallet that signs transfers.
type SignerConfig struct {
	Kind        string `mapstructure:"kind"`
	KeystoreDir string `mapstructure:"keystore_dir"`
	Passphrase  string `mapstructure:"passphrase"`
	ClefURL     string `mapstructure:"clef_url"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig enables the payment ledger when URL is set.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// Load reads configuration from an optional file and the environment. Env var
// overrides use prefix PAYAPI_, e.g. PAYAPI_CHAIN_RPC_URL.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.stage", "dev")
	v.SetDefault("chain.rpc_url", "https://bsc-dataseed.binance.org/")
	v.SetDefault("chain.id", 56)
	v.SetDefault("chain.timeout", 15*time.Second)
	v.SetDefault("chain.dial_retries", 5)
	v.SetDefault("token.address", "0xb148DF3C114B1233b206160A0f2A74999Bb2FBf3")
	v.SetDefault("token.symbol", "DHLT")
	v.SetDefault("token.decimals", token.DefaultDecimals)
	v.SetDefault("token.zero_text", "Acquire DHLT to start paying")
	v.SetDefault("payment.default_recipient", "0xB5F112bb88E8f7A58c97c32763c4CEc90f74B83b")
	v.SetDefault("payment.amounts", []string{"1", "5000", "50000"})
	v.SetDefault("signer.kind", SignerKeystore)
	v.SetDefault("signer.keystore_dir", "./keystore")
	v.SetDefault("signer.passphrase", "")
	v.SetDefault("signer.clef_url", "")
	v.SetDefault("session.ttl", 30*time.Minute)
	v.SetDefault("database.url", "")

	if path := os.Getenv("PAYAPI_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("PAYAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Payment.Amounts = splitList(c.Payment.Amounts)
	c.Server.CORSOrigins = splitList(c.Server.CORSOrigins)
	return c, nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks everything the service needs before it starts.
func (c Config) Validate() error {
	var errs []error

	if c.Chain.RPCURL == "" {
		errs = append(errs, errors.New("chain.rpc_url is required"))
	}
	if c.Chain.ID <= 0 {
		errs = append(errs, fmt.Errorf("chain.id must be positive, got %d", c.Chain.ID))
	}
	if c.Chain.Timeout <= 0 {
		errs = append(errs, errors.New("chain.timeout must be positive"))
	}
	if !common.IsHexAddress(c.Token.Address) {
		errs = append(errs, fmt.Errorf("token.address %q is not an address", c.Token.Address))
	}
	if c.Token.Decimals > 77 {
		errs = append(errs, fmt.Errorf("token.decimals %d out of range", c.Token.Decimals))
	}
	if !common.IsHexAddress(c.Payment.DefaultRecipient) {
		errs = append(errs, fmt.Errorf("payment.default_recipient %q is not an address", c.Payment.DefaultRecipient))
	}
	if len(c.Payment.Amounts) == 0 {
		errs = append(errs, errors.New("payment.amounts must list at least one amount"))
	}
	for _, a := range c.Payment.Amounts {
		if units, err := token.ToBaseUnits(a, c.Token.Decimals); err != nil {
			errs = append(errs, fmt.Errorf("payment.amounts: %w", err))
		} else if units.Sign() == 0 {
			errs = append(errs, fmt.Errorf("payment.amounts: %q is zero", a))
		}
	}

	switch c.Signer.Kind {
	case SignerKeystore:
		if c.Signer.KeystoreDir == "" {
			errs = append(errs, errors.New("signer.keystore_dir is required for the keystore signer"))
		}
	case SignerClef:
		if c.Signer.ClefURL == "" {
			errs = append(errs, errors.New("signer.clef_url is required for the clef signer"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown signer.kind %q", c.Signer.Kind))
	}

	return errors.Join(errs...)
}

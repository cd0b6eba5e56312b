package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"token-payment-api/internal/chain"
	"token-payment-api/internal/config"
	"token-payment-api/internal/db"
	"token-payment-api/internal/graph"
	"token-payment-api/internal/logger"
	"token-payment-api/internal/model"
	"token-payment-api/internal/server"
	"token-payment-api/internal/session"
	"token-payment-api/internal/token"
	"token-payment-api/internal/wallet"
	"token-payment-api/pkg/graphql"
)

// signer is a wallet that can sign transfers for the accounts it holds.
type signer interface {
	Accounts() []common.Address
	Signer(ctx context.Context, from common.Address) (*bind.TransactOpts, error)
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if err := logger.InitLogger(cfg.Log.Stage, cfg.Log.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Fatal("Server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config) error {
	lg := logger.Log

	client, err := chain.Dial(ctx, chain.DialConfig{
		URL:        cfg.Chain.RPCURL,
		ChainID:    cfg.Chain.ID,
		MaxRetries: cfg.Chain.DialRetries,
	}, lg)
	if err != nil {
		return err
	}
	defer client.Close()

	erc20, err := token.NewContract(common.HexToAddress(cfg.Token.Address), client)
	if err != nil {
		return err
	}
	checkToken(ctx, erc20, cfg.Token, lg)

	contractABI, err := token.ParsedABI()
	if err != nil {
		return err
	}

	signers, err := openSigner(cfg, lg)
	if err != nil {
		return err
	}

	var (
		recorder session.PaymentRecorder
		lister   graph.PaymentLister
	)
	if cfg.Database.URL != "" {
		if err := db.InitDB(cfg.Database.URL); err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer db.CloseDB()
		if err := db.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		ledger := db.NewLedger(db.DB)
		recorder, lister = ledger, ledger
		lg.Info("Payment ledger enabled")
	}

	fetcher := token.NewFetcher(erc20, token.FetcherConfig{
		Decimals: cfg.Token.Decimals,
		ZeroText: cfg.Token.ZeroText,
		Timeout:  cfg.Chain.Timeout,
	})
	svc := session.NewService(session.Config{
		ChainID:  cfg.Chain.ID,
		Decimals: cfg.Token.Decimals,
		Amounts:  cfg.Payment.Amounts,
	}, session.Deps{
		Sessions: session.NewManager(common.HexToAddress(cfg.Payment.DefaultRecipient), cfg.Session.TTL),
		Fetcher:  fetcher,
		Transfer: erc20,
		Signers:  signers,
		Decoder:  chain.NewDecoder(contractABI),
		Ledger:   recorder,
		Logger:   lg,
	})

	var accounts []string
	for _, a := range signers.Accounts() {
		accounts = append(accounts, a.Hex())
	}

	handler, err := graphql.NewHandler(&graph.Resolver{
		Sessions: svc,
		Balances: fetcher,
		Ledger:   lister,
		Config: model.PaymentConfig{
			TokenAddress:     erc20.Address().Hex(),
			TokenSymbol:      cfg.Token.Symbol,
			ChainID:          cfg.Chain.ID,
			Decimals:         int(cfg.Token.Decimals),
			DefaultRecipient: common.HexToAddress(cfg.Payment.DefaultRecipient).Hex(),
			Accounts:         accounts,
		},
	})
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	if cfg.Log.Stage == logger.ProdStage {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(handler, cfg.Server.CORSOrigins, lg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("Server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openSigner(cfg config.Config, lg *zap.Logger) (signer, error) {
	switch cfg.Signer.Kind {
	case config.SignerClef:
		return wallet.DialClef(cfg.Signer.ClefURL)
	default:
		return wallet.OpenKeystore(cfg.Signer.KeystoreDir, cfg.Signer.Passphrase, cfg.Chain.ID, lg)
	}
}

// checkToken warns when the configured decimals or symbol disagree with the contract.
func checkToken(ctx context.Context, erc20 *token.Contract, want config.TokenConfig, lg *zap.Logger) {
	if got, err := erc20.Decimals(ctx); err != nil {
		lg.Warn("Could not read token decimals", zap.Error(err))
	} else if got != want.Decimals {
		lg.Warn("Configured token decimals differ from contract",
			zap.Uint8("configured", want.Decimals),
			zap.Uint8("contract", got),
		)
	}

	if got, err := erc20.Symbol(ctx); err != nil {
		lg.Warn("Could not read token symbol", zap.Error(err))
	} else if got != want.Symbol {
		lg.Warn("Configured token symbol differs from contract",
			zap.String("configured", want.Symbol),
			zap.String("contract", got),
		)
	}
}

// Command dwnd is the DWN node process entrypoint: it wires
// configuration into a store, an optional cache and anchoring backend,
// and the write/query handler, then serves them over HTTP. Modeled on
// the teacher's main.go (godotenv loading, a startup banner, fiber
// app.Listen) generalized from a fixed Postgres+blockchain stack to the
// pluggable backends dwnconfig.Config selects.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dwnlabs/dwn-core/anchor"
	"github.com/dwnlabs/dwn-core/cache"
	"github.com/dwnlabs/dwn-core/didresolver"
	"github.com/dwnlabs/dwn-core/dwnconfig"
	"github.com/dwnlabs/dwn-core/dwnlog"
	"github.com/dwnlabs/dwn-core/handler"
	"github.com/dwnlabs/dwn-core/httpapi"
	"github.com/dwnlabs/dwn-core/protocol"
	"github.com/dwnlabs/dwn-core/store"
	"github.com/dwnlabs/dwn-core/store/ipfsblock"
	"github.com/dwnlabs/dwn-core/store/sqlstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using default environment variables")
	}

	cfg := dwnconfig.Load()
	logger := dwnlog.New(cfg.LogFormat, cfg.LogLevel)

	ctx := dwnlog.WithLogger(context.Background(), logger)

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	if err := st.Open(ctx); err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	resolver := buildResolver(cfg)
	registry := protocol.NewStaticRegistry()
	anchorer := buildAnchorer(cfg, logger)

	h := handler.New(st, resolver, registry, anchorer)

	app := httpapi.New(h, "dwn-core")

	startupMessage(cfg)

	addr := cfg.ServerHost + ":" + cfg.ServerPort
	log.Fatal(app.Listen(addr))
}

// openStore builds the MessageStore dwnconfig.Config.StoreDriver
// selects, optionally wrapping it in a Redis tip cache.
func openStore(cfg *dwnconfig.Config) (store.MessageStore, error) {
	var backing store.MessageStore

	switch cfg.StoreDriver {
	case "memory":
		backing = store.NewMemStore()
	case "sqlite":
		backing = sqlstore.New(sqlstore.SQLite, cfg.SQLitePath, blockBackend(cfg))
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		backing = sqlstore.New(sqlstore.Postgres, dsn, blockBackend(cfg))
	default:
		return nil, fmt.Errorf("dwnd: unknown store driver %q", cfg.StoreDriver)
	}

	if !cfg.RedisEnabled {
		return backing, nil
	}

	addr := cfg.RedisHost + ":" + cfg.RedisPort
	return cache.New(backing, addr, time.Duration(cfg.RedisTTLSec)*time.Second), nil
}

func blockBackend(cfg *dwnconfig.Config) store.BlockBackend {
	if cfg.IPFSNodeURL == "" {
		return nil
	}

	return ipfsblock.New(cfg.IPFSNodeURL)
}

func buildResolver(cfg *dwnconfig.Config) didresolver.Resolver {
	if cfg.DIDResolverURL == "" {
		return didresolver.NewStatic()
	}

	return didresolver.NewHTTPResolver(cfg.DIDResolverURL)
}

// buildAnchorer wires a TxLogClient whose Submit assigns each anchored
// record a synthetic transaction id, standing in for the teacher's
// BlockchainClient.SubmitGenericTransaction until a real ledger target
// is configured for this deployment.
func buildAnchorer(cfg *dwnconfig.Config, logger *slog.Logger) anchor.Anchorer {
	if !cfg.AnchorEnabled {
		return anchor.Noop{}
	}

	return &anchor.TxLogClient{
		Submit: func(txType string, payload map[string]any) (string, error) {
			txID := uuid.New().String()
			logger.Info("anchoring record", "txType", txType, "txId", txID, "payload", payload)
			return txID, nil
		},
	}
}

func startupMessage(cfg *dwnconfig.Config) {
	fmt.Println("dwn-core node starting")
	fmt.Printf("  store driver: %s\n", cfg.StoreDriver)
	fmt.Printf("  redis cache:  %v\n", cfg.RedisEnabled)
	fmt.Printf("  anchoring:    %v\n", cfg.AnchorEnabled)
	fmt.Printf("  listening on: %s:%s\n", cfg.ServerHost, cfg.ServerPort)
	fmt.Printf("  environment:  %s\n", cfg.Environment)
}

// Command ledgerd runs the persistence/ingestion backbone: Context
// Engine, Tiered Mempool, Audit Log, Wallet Challenge/Verify and the
// HTTP API over them. Grounded on the teacher's cmd/UniCareOS/main.go
// startup shape (sequential subsystem init, fatal on error, emoji
// progress lines to stdout) but scoped to this core's four subsystems —
// no block production, consensus or P2P networking.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"uniledger/internal/audit"
	"uniledger/internal/config"
	"uniledger/internal/contextengine"
	"uniledger/internal/logging"
	"uniledger/internal/mempool"
	"uniledger/internal/server"
	"uniledger/internal/storage"
	"uniledger/internal/storage/leveldbstore"
	"uniledger/internal/storage/postgresstore"
	"uniledger/internal/wallet"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "optional YAML config overlay")
	debug := flag.Bool("debug", false, "enable debug logging and console encoding")
	flag.Parse()

	level := zapcore.InfoLevel
	if *debug {
		level = zapcore.DebugLevel
	}
	log := logging.NewZapLogger("ledgerd", level)
	defer log.Sync()

	fmt.Println("🚀 starting ledgerd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	backend, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("open storage backend: %v", err)
	}
	defer backend.Close()
	if cfg.UsesPostgres() {
		fmt.Println("✅ storage: postgres backend at", redactDSN(cfg.DatabaseURL))
	} else {
		fmt.Println("✅ storage: leveldb backend at", cfg.DataRoot)
	}

	ctx := context.Background()

	pool := mempool.New(backend, leveldbstore.MempoolSnapshotKey)
	if err := pool.Load(ctx); err != nil {
		log.Fatalf("load mempool snapshot: %v", err)
	}
	fmt.Println("✅ mempool: rehydrated from snapshot")

	engine := contextengine.New(pool)
	fmt.Println("✅ context engine ready")

	auditLog, err := audit.Open(ctx, backend)
	if err != nil {
		log.Fatalf("open audit log: %v", err)
	}
	fmt.Println("✅ audit log ready")

	walletAuth := wallet.NewAuth(backend, cfg.WalletNonceTTL)
	fmt.Println("✅ wallet auth ready")

	if err := seedValidatorCounts(ctx, backend, pool); err != nil {
		log.Warnf("seed validator counts: %v", err)
	}

	startRetentionLoop(ctx, log, auditLog, cfg)

	deps := server.Deps{
		Log:         log,
		Engine:      engine,
		Mempool:     pool,
		Audit:       auditLog,
		Auth:        walletAuth,
		Backend:     backend,
		NetworkID:   cfg.NetworkID,
		Version:     version,
		AdminSecret: cfg.AdminJWTSecret,
		StartedAt:   time.Now().UTC(),
	}
	srv := server.New(deps, cfg.APIPrefix)

	runHTTPServer(log, srv.Handler(), cfg.Port)
}

func openBackend(cfg config.Config) (storage.Backend, error) {
	if cfg.UsesPostgres() {
		return postgresstore.OpenBackend(cfg.DatabaseURL)
	}
	return leveldbstore.Open(cfg.DataRoot)
}

// redactDSN never prints credentials embedded in a postgres:// URL to
// stdout.
func redactDSN(dsn string) string {
	at := -1
	for i, r := range dsn {
		if r == '@' {
			at = i
		}
	}
	if at == -1 {
		return dsn
	}
	return "postgres://***" + dsn[at:]
}

// validatorOnlineWindow is how recently a validator must have been seen
// to count as online for the resources score's availability term.
const validatorOnlineWindow = 5 * time.Minute

// seedValidatorCounts primes the mempool's online/total validator gauge
// from the reference directory so /metrics reports a real ratio on the
// very first request instead of 0/0.
func seedValidatorCounts(ctx context.Context, backend storage.Backend, pool *mempool.Mempool) error {
	validators, err := backend.Validators(ctx)
	if err != nil {
		return err
	}
	online := 0
	cutoff := time.Now().UTC().Add(-validatorOnlineWindow)
	for _, v := range validators {
		if v.LastSeen.After(cutoff) {
			online++
		}
	}
	pool.SetValidatorCounts(online, len(validators))
	return nil
}

// startRetentionLoop runs the audit log's sweep policy on a fixed
// interval for the lifetime of the process. Either half of the policy
// being zero disables that half of the sweep (see audit.RetentionPolicy).
func startRetentionLoop(ctx context.Context, log *zap.SugaredLogger, auditLog *audit.Log, cfg config.Config) {
	if cfg.AuditRetentionDays <= 0 && cfg.AuditLogMaxBytes <= 0 {
		return
	}
	policy := audit.RetentionPolicy{
		MaxAge:       time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour,
		MaxSizeBytes: cfg.AuditLogMaxBytes,
	}
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := auditLog.Sweep(ctx, policy); err != nil {
					log.Errorf("audit retention sweep: %v", err)
				}
			}
		}
	}()
}

func runHTTPServer(log *zap.SugaredLogger, handler http.Handler, port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("✅ listening on :%s\n", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("🛑 shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown: %v", err)
	}
}

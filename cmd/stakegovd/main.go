// Command stakegovd is the development/integration hosting environment for
// the governance engine: it owns the account store, exposes the request
// router over HTTP, and plays the role of "the hosting execution
// environment" the core library declares out of scope. It is not a
// blockchain node.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"stakegov/config"
	"stakegov/core/events"
	"stakegov/internal/address"
	"stakegov/internal/auditstore"
	"stakegov/internal/governance"
	"stakegov/internal/runtime"
	"stakegov/internal/stakeoracle"
	"stakegov/observability/logging"
	telemetry "stakegov/observability/otel"
	"stakegov/storage"
)

func main() {
	configFile := flag.String("config", "./stakegovd.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STAKEGOV_ENV"))
	logger := logging.Setup("stakegovd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "stakegovd",
		Environment: env,
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		logger.Error("failed to init telemetry", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	programIDBytes, err := hex.DecodeString(cfg.ProgramIDHex)
	if err != nil {
		logger.Error("invalid ProgramIDHex", slog.Any("error", err))
		os.Exit(1)
	}
	programID, err := address.FromBytes(programIDBytes)
	if err != nil {
		logger.Error("invalid program id", slog.Any("error", err))
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir + "/accounts")
	if err != nil {
		logger.Error("failed to open account store", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	audit, err := auditstore.Open(cfg.AuditStoreDriver, cfg.AuditStoreDSN)
	if err != nil {
		logger.Error("failed to open audit store", slog.Any("error", err))
		os.Exit(1)
	}
	defer audit.Close()

	stakeReader := stakeoracle.NewMemReader()
	if cfg.StakeOracleSeedFile != "" {
		if err := seedStakeOracle(cfg.StakeOracleSeedFile, stakeReader); err != nil {
			logger.Error("failed to seed stake oracle fixture", slog.Any("error", err))
			os.Exit(1)
		}
	}

	hub := events.NewHub()
	dispatch := runtime.NewDispatch()

	store := governance.NewStore(db)
	engine := governance.NewEngine(programID, store, stakeReader, runtime.WallClock{}, dispatch, audit, hub)

	// The program can invoke itself: a proposal that bundles an
	// UpdateGovernance instruction addressed to programID is how O3's
	// Treasury-gated path is actually reached. The top-level
	// /v1/governance/update endpoint has no Treasury signer to present and
	// is always rejected.
	dispatch.Register(programID, selfInvokeHandler(engine))

	srv := newServer(serverConfig{
		Engine:    engine,
		Audit:     audit,
		Events:    hub,
		Defaults:  cfg.Governance,
		JWTSecret: []byte(cfg.JWTSigningKey),
		RateLimit: cfg.RateLimit,
		ProgramID: programID,
	})

	logger.Info("stakegovd listening", slog.String("addr", cfg.ListenAddress))
	if err := http.ListenAndServe(cfg.ListenAddress, srv.Handler()); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// selfInvokeHandler lets ProcessInstruction reach UpdateGovernance with the
// Treasury capability: the Dispatch routes an instruction addressed to
// programID back into the same Engine, deriving the Treasury from the
// governance account's own stake config and rejecting the call with
// IncorrectAuthority unless the invoking signer is that Treasury.
func selfInvokeHandler(engine *governance.Engine) runtime.Handler {
	return func(ctx context.Context, metas []runtime.AccountMeta, data []byte, signerAddr address.Address) error {
		req, err := governance.DecodeRequest(data)
		if err != nil {
			return err
		}
		if req.Kind != governance.KindUpdateGovernance {
			return fmt.Errorf("stakegovd: self-invocation only supports UpdateGovernance, got %d", req.Kind)
		}
		if len(metas) < 1 {
			return fmt.Errorf("stakegovd: UpdateGovernance self-invocation requires the governance account")
		}
		governanceAddr := metas[0].Key
		cfg, err := engine.Store.LoadGovernanceConfig(governanceAddr)
		if err != nil {
			return err
		}
		treasuryAddr, bump, err := address.Treasury(engine.ProgramID, cfg.StakeConfigAddress)
		if err != nil {
			return err
		}
		if signerAddr != treasuryAddr {
			return &governance.Error{Code: governance.CodeIncorrectAuthority, Message: "invoking signer is not this governance config's treasury"}
		}
		treasury := address.TreasurySigner(engine.ProgramID, cfg.StakeConfigAddress, bump)
		_, err = engine.UpdateGovernance(treasury, governanceAddr, req.Governance.CooldownPeriodSeconds, req.Governance.VotingPeriodSeconds, req.Governance.ProposalAcceptanceThreshold, req.Governance.ProposalRejectionThreshold)
		return err
	}
}

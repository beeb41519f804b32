package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"nhooyr.io/websocket"

	"stakegov/config"
	"stakegov/core/events"
	stakegovcrypto "stakegov/crypto"
	"stakegov/internal/address"
	"stakegov/internal/auditstore"
	"stakegov/internal/governance"
	"stakegov/internal/runtime"
	"stakegov/observability/metrics"
)

// serverConfig collects everything cmd/stakegovd wires into the HTTP
// surface. It is deliberately flat rather than passing the whole daemon
// struct, so the server package (if this ever grows one) only depends on
// what it actually uses.
type serverConfig struct {
	Engine    *governance.Engine
	Audit     *auditstore.Store
	Events    *events.Hub
	Defaults  config.GovernanceDefaults
	JWTSecret []byte
	RateLimit config.RateLimitConfig
	ProgramID address.Address
}

// server is stakegovd's HTTP surface: it translates REST calls into
// governance.Engine method calls and back. Every proposal-mutating
// handler serialises access to its proposal address through lock (locks),
// since the Engine's Store has no row-level locking of its own.
type server struct {
	cfg    serverConfig
	auth   *authenticator
	limit  *rateLimiter
	router http.Handler

	locksMu sync.Mutex
	locks   map[address.Address]*sync.Mutex
}

func newServer(cfg serverConfig) *server {
	s := &server{
		cfg:   cfg,
		auth:  newAuthenticator(cfg.JWTSecret, slog.Default()),
		limit: newRateLimiter(cfg.RateLimit),
		locks: make(map[address.Address]*sync.Mutex),
	}
	s.router = s.buildRouter()
	return s
}

func (s *server) Handler() http.Handler { return s.router }

func (s *server) lock(addr address.Address) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[addr]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[addr] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

func (s *server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "stakegovd")
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/v1/ws/events", s.handleEvents)

	r.Route("/v1/governance", func(gr chi.Router) {
		gr.Get("/defaults", s.handleGovernanceDefaults)
		gr.With(s.auth.middleware).Post("/init", s.handleInitializeGovernance)
		gr.Post("/update", s.handleUpdateGovernance)
	})

	r.Route("/v1/proposals", func(pr chi.Router) {
		pr.Post("/", s.handleCreateProposal)
		pr.Get("/{id}", s.handleGetProposal)
		pr.Get("/{id}/audit", s.handleGetAuditTrail)
		pr.Post("/{id}/instructions", s.handlePushInstruction)
		pr.Delete("/{id}/instructions/{index}", s.handleRemoveInstruction)
		pr.Post("/{id}/instructions/{index}/process", s.handleProcessInstruction)
		pr.Post("/{id}/begin-voting", s.handleBeginVoting)
		pr.Post("/{id}/cancel", s.handleCancelProposal)
		pr.With(s.limit.middleware).Post("/{id}/votes", s.handleVote)
		pr.With(s.limit.middleware).Put("/{id}/votes", s.handleSwitchVote)
	})

	return r
}

// envelope is the JSON shape of every proposal-mutating request body: the
// same bit-exact bytes governance.DecodeRequest understands, base64-wrapped
// for JSON transport, plus the account addresses the wire format
// deliberately omits (mirroring the accounts/instruction-data split the
// underlying request encoding is modelled on).
type envelope struct {
	Request      string            `json:"request"`
	Accounts     map[string]string `json:"accounts"`
	TailAccounts []accountMetaJSON `json:"tail_accounts,omitempty"`

	// SignatureHex/PublicKeyHex are an optional integrity envelope:
	// cmd/stakegov-cli signs the raw (decoded) request bytes with the
	// operator's local key and attaches both here. When present, the
	// daemon verifies the signature before acting on the request; when
	// absent, the request is accepted on the strength of whatever
	// transport-level auth already gated the route.
	SignatureHex string `json:"signature,omitempty"`
	PublicKeyHex string `json:"public_key,omitempty"`
}

type accountMetaJSON struct {
	Key        string `json:"key"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

func decodeEnvelope(r *http.Request) (envelope, governance.Request, error) {
	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return envelope{}, governance.Request{}, fmt.Errorf("decode body: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(env.Request)
	if err != nil {
		return envelope{}, governance.Request{}, fmt.Errorf("decode request field: %w", err)
	}
	req, err := governance.DecodeRequest(raw)
	if err != nil {
		return envelope{}, governance.Request{}, err
	}
	if err := verifyEnvelopeSignature(env, raw); err != nil {
		return envelope{}, governance.Request{}, err
	}
	return env, req, nil
}

func verifyEnvelopeSignature(env envelope, raw []byte) error {
	if env.SignatureHex == "" && env.PublicKeyHex == "" {
		return nil
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(env.SignatureHex, "0x"))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	pubBytes, err := hex.DecodeString(strings.TrimPrefix(env.PublicKeyHex, "0x"))
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	pub, err := ethcrypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	digest := sha256.Sum256(raw)
	ok, err := stakegovcrypto.Verify(digest[:], sig, &stakegovcrypto.PublicKey{PublicKey: pub})
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	if !ok {
		return errors.New("signature does not match public key")
	}
	return nil
}

func (env envelope) account(key string) (address.Address, error) {
	raw, ok := env.Accounts[key]
	if !ok {
		return address.Address{}, fmt.Errorf("missing account %q", key)
	}
	return parseHexAddress(raw)
}

func (env envelope) tailAccounts() ([]runtime.AccountMeta, error) {
	metas := make([]runtime.AccountMeta, 0, len(env.TailAccounts))
	for _, m := range env.TailAccounts {
		addr, err := parseHexAddress(m.Key)
		if err != nil {
			return nil, fmt.Errorf("tail account %q: %w", m.Key, err)
		}
		metas = append(metas, runtime.AccountMeta{Key: addr, IsSigner: m.IsSigner, IsWritable: m.IsWritable})
	}
	return metas, nil
}

func pathAddress(r *http.Request, param string) (address.Address, error) {
	return parseHexAddress(chi.URLParam(r, param))
}

func (s *server) proposalTx(proposalAddr address.Address) (address.Address, error) {
	tx, _, err := address.ProposalTransaction(s.cfg.ProgramID, proposalAddr)
	return tx, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var gerr *governance.Error
	if errors.As(err, &gerr) {
		status := http.StatusBadRequest
		switch gerr.Code {
		case governance.CodeUninitializedAccount:
			status = http.StatusNotFound
		case governance.CodeIncorrectAuthority, governance.CodeMissingRequiredSignature:
			status = http.StatusForbidden
		case governance.CodeAccountAlreadyInitialized:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"code": string(gerr.Code), "message": gerr.Error()})
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"code": "bad_request", "message": err.Error()})
}

// instrument wraps a handler body with latency/outcome metrics keyed by
// request kind, so every mutating endpoint shows up in
// observability/metrics.GovernanceMetrics without each handler repeating
// the bookkeeping.
func instrument(kind string, fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		err := fn(w, r)
		metrics.Governance().ObserveRequest(kind, err, time.Since(start))
		if err != nil {
			writeError(w, err)
		}
	}
}

// handleGovernanceDefaults exposes the operator-configured policy defaults.
// cmd/stakegov-cli's defaults subcommand prints them; its init-governance
// flags do not read them.
func (s *server) handleGovernanceDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Defaults)
}

func (s *server) handleInitializeGovernance(w http.ResponseWriter, r *http.Request) {
	instrument("initialize_governance", func(w http.ResponseWriter, r *http.Request) error {
		env, req, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		if req.Kind != governance.KindInitializeGovernance {
			return fmt.Errorf("expected an initialize_governance request, got kind %d", req.Kind)
		}
		governanceAddr, err := env.account("governance")
		if err != nil {
			return err
		}
		stakeConfigAddr, err := env.account("stake_config")
		if err != nil {
			return err
		}
		cfg, err := s.cfg.Engine.InitializeGovernance(true, governanceAddr, stakeConfigAddr,
			req.Governance.CooldownPeriodSeconds, req.Governance.VotingPeriodSeconds,
			req.Governance.ProposalAcceptanceThreshold, req.Governance.ProposalRejectionThreshold)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, cfg)
		return nil
	})(w, r)
}

// handleUpdateGovernance always fails with IncorrectAuthority. There is no
// top-level caller capable of presenting the Treasury signer this mutation
// requires; the only path that reaches it is a proposal's bundled
// UpdateGovernance instruction executing through ProcessInstruction, which
// invokes stakegovd's own self-invocation handler instead of this one.
func (s *server) handleUpdateGovernance(w http.ResponseWriter, r *http.Request) {
	instrument("update_governance", func(w http.ResponseWriter, r *http.Request) error {
		env, req, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		if req.Kind != governance.KindUpdateGovernance {
			return fmt.Errorf("expected an update_governance request, got kind %d", req.Kind)
		}
		governanceAddr, err := env.account("governance")
		if err != nil {
			return err
		}
		_, err = s.cfg.Engine.UpdateGovernance(address.Signer{}, governanceAddr,
			req.Governance.CooldownPeriodSeconds, req.Governance.VotingPeriodSeconds,
			req.Governance.ProposalAcceptanceThreshold, req.Governance.ProposalRejectionThreshold)
		return err
	})(w, r)
}

func (s *server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	instrument("create_proposal", func(w http.ResponseWriter, r *http.Request) error {
		env, req, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		if req.Kind != governance.KindCreateProposal {
			return fmt.Errorf("expected a create_proposal request, got kind %d", req.Kind)
		}
		author, err := env.account("author")
		if err != nil {
			return err
		}
		stakeAddr, err := env.account("stake")
		if err != nil {
			return err
		}
		governanceAddr, err := env.account("governance")
		if err != nil {
			return err
		}
		proposalAddr, err := env.account("proposal")
		if err != nil {
			return err
		}
		proposalTxAddr, bump, err := address.ProposalTransaction(s.cfg.ProgramID, proposalAddr)
		if err != nil {
			return err
		}
		defer s.lock(proposalAddr)()
		proposal, err := s.cfg.Engine.CreateProposal(true, author, stakeAddr, governanceAddr, proposalAddr, proposalTxAddr, bump)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, proposal)
		return nil
	})(w, r)
}

func (s *server) handlePushInstruction(w http.ResponseWriter, r *http.Request) {
	instrument("push_instruction", func(w http.ResponseWriter, r *http.Request) error {
		proposalAddr, err := pathAddress(r, "id")
		if err != nil {
			return err
		}
		env, req, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		if req.Kind != governance.KindPushInstruction || req.PushInstruction == nil {
			return fmt.Errorf("expected a push_instruction request, got kind %d", req.Kind)
		}
		author, err := env.account("author")
		if err != nil {
			return err
		}
		proposalTxAddr, err := s.proposalTx(proposalAddr)
		if err != nil {
			return err
		}
		defer s.lock(proposalAddr)()
		return s.cfg.Engine.PushInstruction(true, author, proposalAddr, proposalTxAddr,
			req.PushInstruction.ProgramID, req.PushInstruction.AccountMetas, req.PushInstruction.Data)
	})(w, r)
}

func (s *server) handleRemoveInstruction(w http.ResponseWriter, r *http.Request) {
	instrument("remove_instruction", func(w http.ResponseWriter, r *http.Request) error {
		proposalAddr, err := pathAddress(r, "id")
		if err != nil {
			return err
		}
		index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid index: %w", err)
		}
		env, _, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		author, err := env.account("author")
		if err != nil {
			return err
		}
		proposalTxAddr, err := s.proposalTx(proposalAddr)
		if err != nil {
			return err
		}
		defer s.lock(proposalAddr)()
		return s.cfg.Engine.RemoveInstruction(true, author, proposalAddr, proposalTxAddr, uint32(index))
	})(w, r)
}

func (s *server) handleBeginVoting(w http.ResponseWriter, r *http.Request) {
	instrument("begin_voting", func(w http.ResponseWriter, r *http.Request) error {
		proposalAddr, err := pathAddress(r, "id")
		if err != nil {
			return err
		}
		env, _, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		author, err := env.account("author")
		if err != nil {
			return err
		}
		defer s.lock(proposalAddr)()
		return s.cfg.Engine.BeginVoting(true, author, proposalAddr)
	})(w, r)
}

func (s *server) handleCancelProposal(w http.ResponseWriter, r *http.Request) {
	instrument("cancel_proposal", func(w http.ResponseWriter, r *http.Request) error {
		proposalAddr, err := pathAddress(r, "id")
		if err != nil {
			return err
		}
		env, _, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		author, err := env.account("author")
		if err != nil {
			return err
		}
		defer s.lock(proposalAddr)()
		return s.cfg.Engine.CancelProposal(true, author, proposalAddr)
	})(w, r)
}

func (s *server) handleVote(w http.ResponseWriter, r *http.Request) {
	instrument("vote", func(w http.ResponseWriter, r *http.Request) error {
		proposalAddr, err := pathAddress(r, "id")
		if err != nil {
			return err
		}
		env, req, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		if req.Kind != governance.KindVote {
			return fmt.Errorf("expected a vote request, got kind %d", req.Kind)
		}
		voter, err := env.account("voter")
		if err != nil {
			return err
		}
		stakeAddr, err := env.account("stake")
		if err != nil {
			return err
		}
		stakeConfigAddr, err := env.account("stake_config")
		if err != nil {
			return err
		}
		proposalVoteAddr, _, err := address.ProposalVote(s.cfg.ProgramID, stakeAddr, proposalAddr)
		if err != nil {
			return err
		}
		defer s.lock(proposalAddr)()
		vote, err := s.cfg.Engine.Vote(true, voter, stakeAddr, stakeConfigAddr, proposalVoteAddr, proposalAddr, req.Election)
		if err != nil {
			return err
		}
		metrics.Governance().RecordVote(req.Election.String())
		writeJSON(w, http.StatusCreated, vote)
		return nil
	})(w, r)
}

func (s *server) handleSwitchVote(w http.ResponseWriter, r *http.Request) {
	instrument("switch_vote", func(w http.ResponseWriter, r *http.Request) error {
		proposalAddr, err := pathAddress(r, "id")
		if err != nil {
			return err
		}
		env, req, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		if req.Kind != governance.KindSwitchVote {
			return fmt.Errorf("expected a switch_vote request, got kind %d", req.Kind)
		}
		voter, err := env.account("voter")
		if err != nil {
			return err
		}
		stakeAddr, err := env.account("stake")
		if err != nil {
			return err
		}
		stakeConfigAddr, err := env.account("stake_config")
		if err != nil {
			return err
		}
		proposalVoteAddr, _, err := address.ProposalVote(s.cfg.ProgramID, stakeAddr, proposalAddr)
		if err != nil {
			return err
		}
		defer s.lock(proposalAddr)()
		vote, err := s.cfg.Engine.SwitchVote(true, voter, stakeAddr, stakeConfigAddr, proposalVoteAddr, proposalAddr, req.Election)
		if err != nil {
			return err
		}
		metrics.Governance().RecordVote(req.Election.String())
		writeJSON(w, http.StatusOK, vote)
		return nil
	})(w, r)
}

func (s *server) handleProcessInstruction(w http.ResponseWriter, r *http.Request) {
	instrument("process_instruction", func(w http.ResponseWriter, r *http.Request) error {
		proposalAddr, err := pathAddress(r, "id")
		if err != nil {
			return err
		}
		index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid index: %w", err)
		}
		env, _, err := decodeEnvelope(r)
		if err != nil {
			return err
		}
		tailAccounts, err := env.tailAccounts()
		if err != nil {
			return err
		}
		proposalTxAddr, err := s.proposalTx(proposalAddr)
		if err != nil {
			return err
		}
		defer s.lock(proposalAddr)()
		err = s.cfg.Engine.ProcessInstruction(r.Context(), proposalAddr, proposalTxAddr, uint32(index), tailAccounts)
		metrics.Governance().RecordInstruction(err)
		return err
	})(w, r)
}

func (s *server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalAddr, err := pathAddress(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	proposal, err := s.cfg.Engine.Store.LoadProposal(proposalAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (s *server) handleGetAuditTrail(w http.ResponseWriter, r *http.Request) {
	proposalAddr, err := pathAddress(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := s.cfg.Audit.ListAuditTrail(proposalAddr.String())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

const wsWriteTimeout = 10 * time.Second

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	updates, backlog, cancel := s.cfg.Events.Subscribe()
	defer cancel()

	for _, event := range backlog {
		if err := writeEvent(r.Context(), conn, event); err != nil {
			return
		}
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(r.Context(), conn, event); err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

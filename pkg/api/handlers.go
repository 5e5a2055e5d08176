package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ssargent/statext/pkg/account"
	"github.com/ssargent/statext/pkg/extension"
	"github.com/ssargent/statext/pkg/ledger"
)

// maxBodyBytes bounds request bodies; instructions are small.
const maxBodyBytes = 1 << 20

// Server holds the API server state
type Server struct {
	ledger   Ledger
	config   ServerConfig
	metrics  *Metrics
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewServer creates a new API server
func NewServer(l Ledger, config ServerConfig, metrics *Metrics, logger zerolog.Logger) *Server {
	return &Server{
		ledger:   l,
		config:   config,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// addressParam parses the {address} URL parameter.
func addressParam(r *http.Request) (account.Address, error) {
	return account.ParseAddress(chi.URLParam(r, "address"))
}

// loadAccount writes the error response itself and returns nil when the
// account cannot be served.
func (s *Server) loadAccount(w http.ResponseWriter, r *http.Request) *account.Account {
	addr, err := addressParam(r)
	if err != nil {
		sendError(w, "Invalid address: "+err.Error(), http.StatusBadRequest)
		return nil
	}
	acct, ok, err := s.ledger.Account(addr)
	if err != nil {
		s.logger.Error().Err(err).Str("account", addr.String()).Msg("load account")
		sendError(w, "Failed to load account", http.StatusInternalServerError)
		return nil
	}
	if !ok {
		sendError(w, "Account not found", http.StatusNotFound)
		return nil
	}
	return acct
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct := s.loadAccount(w, r)
	if acct == nil {
		return
	}
	sendSuccess(w, s.ledger.Describe(acct))
}

func (s *Server) handleGetExtension(w http.ResponseWriter, r *http.Request) {
	tag, err := strconv.ParseUint(chi.URLParam(r, "tag"), 10, 8)
	if err != nil {
		sendError(w, "Invalid extension tag", http.StatusBadRequest)
		return
	}
	acct := s.loadAccount(w, r)
	if acct == nil {
		return
	}
	ext, err := s.ledger.Extension(acct, extension.Tag(tag))
	if err != nil {
		sendEngineError(w, err, nil)
		return
	}
	sendSuccess(w, ext)
}

func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		sendError(w, "Invalid address: "+err.Error(), http.StatusBadRequest)
		return
	}
	var req AirdropRequest
	if !s.decode(w, r, &req) {
		return
	}

	acct, err := s.ledger.Airdrop(r.Context(), addr, req.Lamports)
	if err != nil {
		sendEngineError(w, err, nil)
		return
	}
	s.metrics.RecordAirdrop(req.Lamports)
	sendSuccess(w, s.ledger.Describe(acct))
}

// handleInstruction executes a raw instruction. Signer and Writable roles are
// taken from the request as given: there are no signatures to verify, so any
// caller holding the API key can act as any payer.
func (s *Server) handleInstruction(w http.ResponseWriter, r *http.Request) {
	var req InstructionRequest
	if !s.decode(w, r, &req) {
		return
	}

	receipt, err := s.ledger.Execute(r.Context(), ledger.Instruction{Accounts: req.Accounts, Data: req.Data})
	s.metrics.RecordInstruction(receipt)
	if err != nil {
		sendEngineError(w, err, receipt)
		return
	}
	sendSuccess(w, receipt)
}

func (s *Server) handleInitializeState(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Payer.IsZero() || req.Owner.IsZero() {
		sendError(w, "payer and owner are required", http.StatusBadRequest)
		return
	}

	res, err := s.ledger.InitializeState(r.Context(), ledger.StateRequest{
		Payer:   req.Payer,
		Owner:   req.Owner,
		Payload: req.Payload,
	})
	if res != nil {
		s.metrics.RecordInstruction(res.Receipt)
	}
	if err != nil {
		sendEngineError(w, err, res)
		return
	}
	sendSuccess(w, res)
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return false
	}
	if len(body) > maxBodyBytes {
		sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		sendError(w, "Invalid JSON in request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			sendError(w, "Failed to validate request", http.StatusInternalServerError)
			return false
		}
		sendError(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"parking-ledger/internal/archive"
	"parking-ledger/internal/auth"
	"parking-ledger/internal/config"
	"parking-ledger/internal/parking"
)

const tokenTTL = 24 * time.Hour

type Handler struct {
	mu        sync.RWMutex
	cfg       *config.Config
	telemetry *parking.TelemetryProvider
	archive   *archive.Store

	lot      *parking.InstrumentedParkingLot
	adminCap *parking.AdminCapability
	wallets  map[parking.Identity]*parking.Wallet
}

func NewHandler(cfg *config.Config, telemetry *parking.TelemetryProvider, store *archive.Store) *Handler {
	return &Handler{
		cfg:       cfg,
		telemetry: telemetry,
		archive:   store,
		wallets:   make(map[parking.Identity]*parking.Wallet),
	}
}

func (h *Handler) feePolicy() parking.FeePolicy {
	switch h.cfg.FeePolicy {
	case "tiered":
		return parking.Tiered{}
	case "peak":
		return parking.PeakRate{Base: h.cfg.BaseRate, Peak: h.cfg.PeakHours}
	default:
		return parking.FlatRate{Base: h.cfg.BaseRate}
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "parking-ledger",
		"meta":    extractMeta(r.Context()),
	})
}

// IssueToken is the demo identity provider: it signs a plain identity
// token. Real deployments replace this with the hosting environment's
// authentication.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		Identity string `json:"identity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		WriteError(ctx, w, http.StatusBadRequest, "identity is required")
		return
	}

	token, err := auth.Issue(h.cfg.TokenSecret, req.Identity, "", tokenTTL)
	if err != nil {
		WriteError(ctx, w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	WriteSuccess(ctx, w, "Token issued", map[string]any{"token": token})
}

// CreateFacility initializes the lot and issues the admin capability
// plus the bearer token that transports it.
func (h *Handler) CreateFacility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateFacilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Admin == "" {
		WriteError(ctx, w, http.StatusBadRequest, "admin identity is required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lot != nil {
		WriteError(ctx, w, http.StatusConflict, "Facility already initialized")
		return
	}

	cap, lot := parking.InitializeFacility(
		parking.Identity(req.Admin),
		h.feePolicy(),
		h.cfg.ReservationHold.Milliseconds(),
		parking.SystemClock(),
	)
	instrumented, err := parking.NewInstrumentedParkingLot(lot, h.telemetry)
	if err != nil {
		WriteError(ctx, w, http.StatusInternalServerError, "Failed to create facility")
		return
	}

	token, err := auth.Issue(h.cfg.TokenSecret, req.Admin, cap.Nonce().String(), tokenTTL)
	if err != nil {
		WriteError(ctx, w, http.StatusInternalServerError, "Failed to issue admin token")
		return
	}

	h.lot = instrumented
	h.adminCap = cap

	WriteSuccess(ctx, w, "Facility initialized", map[string]any{
		"lot":         lot.Info(),
		"admin_token": token,
	})
}

// facility returns the lot or writes the not-initialized error.
func (h *Handler) facility(w http.ResponseWriter, r *http.Request) *parking.InstrumentedParkingLot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.lot == nil {
		WriteError(r.Context(), w, http.StatusBadRequest, "Facility not initialized. Create facility first")
		return nil
	}
	return h.lot
}

// adminCapability maps the token's capability nonce back to the issued
// capability. The domain core re-validates it on every privileged call.
func (h *Handler) adminCapability(r *http.Request) *parking.AdminCapability {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.adminCap == nil || capabilityNonce(r.Context()) != h.adminCap.Nonce().String() {
		return nil
	}
	return h.adminCap
}

func (h *Handler) walletFor(owner parking.Identity) *parking.Wallet {
	h.mu.Lock()
	defer h.mu.Unlock()
	if wallet, ok := h.wallets[owner]; ok {
		return wallet
	}
	wallet := parking.NewWallet(owner, 0)
	h.wallets[owner] = wallet
	return wallet
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Owner == "" {
		WriteError(ctx, w, http.StatusBadRequest, "owner is required")
		return
	}
	if req.Balance < 0 {
		WriteError(ctx, w, http.StatusBadRequest, "balance must not be negative")
		return
	}

	wallet := h.walletFor(parking.Identity(req.Owner))
	wallet.Deposit(req.Balance)

	WriteSuccess(ctx, w, "Wallet funded", WalletResponse{
		Owner:   req.Owner,
		Balance: wallet.Value(),
	})
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := chi.URLParam(r, "owner")

	h.mu.RLock()
	wallet, ok := h.wallets[parking.Identity(owner)]
	h.mu.RUnlock()
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, "Wallet not found")
		return
	}
	WriteSuccess(ctx, w, "Wallet retrieved", WalletResponse{
		Owner:   owner,
		Balance: wallet.Value(),
	})
}

func (h *Handler) GetFacility(w http.ResponseWriter, r *http.Request) {
	lot := h.facility(w, r)
	if lot == nil {
		return
	}
	WriteSuccess(r.Context(), w, "Facility retrieved", lot.Info())
}

func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}

	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	number, err := lot.CreateSlot(ctx, h.adminCapability(r), parking.Identity(callerIdentity(ctx)), parking.Identity(req.Owner))
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Slot created", map[string]any{"slot_number": number})
}

func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	lot := h.facility(w, r)
	if lot == nil {
		return
	}
	WriteSuccess(r.Context(), w, "Slots retrieved", lot.Status())
}

func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid slot number")
		return
	}

	info, err := lot.SlotInfo(number)
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Slot retrieved", info)
}

func (h *Handler) slotNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		WriteError(r.Context(), w, http.StatusBadRequest, "Invalid slot number")
		return 0, false
	}
	return number, true
}

func (h *Handler) ReserveSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}
	number, ok := h.slotNumber(w, r)
	if !ok {
		return
	}

	if err := lot.Reserve(ctx, number, parking.Identity(callerIdentity(ctx))); err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Slot reserved", map[string]any{"slot_number": number})
}

func (h *Handler) EnterSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}
	number, ok := h.slotNumber(w, r)
	if !ok {
		return
	}

	if err := lot.Enter(ctx, number, parking.Identity(callerIdentity(ctx))); err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Occupancy started", map[string]any{"slot_number": number})
}

func (h *Handler) ExitSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}
	number, ok := h.slotNumber(w, r)
	if !ok {
		return
	}

	caller := parking.Identity(callerIdentity(ctx))
	record, err := lot.Exit(ctx, number, caller, h.walletFor(caller))
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}

	if h.archive != nil {
		if err := h.archive.Archive(ctx, record); err != nil {
			// The in-core receipt is authoritative; a failed archive write
			// must not unwind a settled exit.
			zap.L().Warn("receipt archive write failed", zap.Error(err))
		}
	}

	WriteSuccess(ctx, w, "Occupancy settled", record)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caller := parking.Identity(callerIdentity(ctx))
	withdrawn, err := lot.Withdraw(ctx, h.adminCapability(r), caller, req.Amount, h.walletFor(caller))
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Profits withdrawn", map[string]any{"amount": withdrawn})
}

func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}

	caller := parking.Identity(callerIdentity(ctx))
	swept, err := lot.Sweep(ctx, h.adminCapability(r), caller, h.walletFor(caller))
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Pool swept", map[string]any{"amount": swept})
}

func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}
	number, ok := h.slotNumber(w, r)
	if !ok {
		return
	}

	caller := parking.Identity(callerIdentity(ctx))
	adminWallet := h.walletFor(lot.Info().Admin)
	ownerWallet := h.walletFor(caller)

	if err := lot.Distribute(ctx, number, caller, adminWallet, ownerWallet); err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Profits distributed", map[string]any{
		"slot_number":   number,
		"admin_balance": adminWallet.Value(),
		"owner_balance": ownerWallet.Value(),
	})
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lot := h.facility(w, r)
	if lot == nil {
		return
	}

	records, err := lot.Records(h.adminCapability(r), parking.Identity(callerIdentity(ctx)))
	if err != nil {
		h.writeDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Records retrieved", records)
}

func (h *Handler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, parking.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, parking.ErrSlotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, parking.ErrSlotUnavailable):
		status = http.StatusConflict
	case errors.Is(err, parking.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	}
	WriteError(ctx, w, status, err.Error())
}

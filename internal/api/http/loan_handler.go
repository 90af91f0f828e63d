package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Thaddeus254/blocklend/internal/domain"
	"github.com/Thaddeus254/blocklend/internal/service"
)

// LoanHandler is the thin JSON surface over the loan engine. It does no
// business logic of its own: decode, delegate, translate errors.
type LoanHandler struct {
	loans service.LoanService
}

func NewLoanHandler(loans service.LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

func (h *LoanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/loans", h.CreateLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	r.HandleFunc("/loans/active", h.ListActiveLoans).Methods(http.MethodGet)
	r.HandleFunc("/loans/overdue", h.ListOverdueLoans).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}", h.GetLoan).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}/terms", h.UpdateTerms).Methods(http.MethodPut)
	r.HandleFunc("/loans/{id}/approve", h.ApproveLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/reject", h.RejectLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/disburse", h.DisburseLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/default", h.MarkDefaulted).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/payments", h.AddPayment).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/payments/{paymentID}/confirm", h.ConfirmPayment).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/payments/{paymentID}/fail", h.FailPayment).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/notes", h.AddNote).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/documents", h.AttachDocument).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/blockchain", h.RecordBlockchainRef).Methods(http.MethodPost)
}

type createLoanRequest struct {
	BorrowerID uuid.UUID `json:"borrower_id"`
	domain.Terms
}

func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if !decode(w, r, &req) {
		return
	}
	loan, err := h.loans.Create(r.Context(), req.BorrowerID, req.Terms)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusCreated, loan)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	loan, err := h.loans.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

func (h *LoanHandler) UpdateTerms(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var terms domain.Terms
	if !decode(w, r, &terms) {
		return
	}
	loan, err := h.loans.UpdateTerms(r.Context(), id, terms)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

type approveRequest struct {
	ApproverID uuid.UUID `json:"approver_id"`
	RiskScore  int32     `json:"risk_score"`
}

func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req approveRequest
	if !decode(w, r, &req) {
		return
	}
	loan, err := h.loans.Approve(r.Context(), id, req.ApproverID, req.RiskScore)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if !decode(w, r, &req) {
		return
	}
	loan, err := h.loans.Reject(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

func (h *LoanHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	loan, err := h.loans.Disburse(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

func (h *LoanHandler) MarkDefaulted(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	loan, err := h.loans.MarkDefaulted(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

type paymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	TransactionRef string          `json:"transaction_ref"`
	Pending        bool            `json:"pending"`
}

func (h *LoanHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	var loan *domain.Loan
	var err error
	if req.Pending {
		loan, err = h.loans.RecordPendingPayment(r.Context(), id, req.Amount, req.TransactionRef)
	} else {
		loan, err = h.loans.AddPayment(r.Context(), id, req.Amount, req.TransactionRef)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusCreated, loan)
}

func (h *LoanHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	loan, err := h.loans.ConfirmPayment(r.Context(), id, paymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

func (h *LoanHandler) FailPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	loan, err := h.loans.FailPayment(r.Context(), id, paymentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

type noteRequest struct {
	AuthorID uuid.UUID `json:"author_id"`
	Content  string    `json:"content"`
}

func (h *LoanHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req noteRequest
	if !decode(w, r, &req) {
		return
	}
	loan, err := h.loans.AddNote(r.Context(), id, req.AuthorID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusCreated, loan)
}

type documentRequest struct {
	Type domain.DocumentType `json:"type"`
	Name string              `json:"name"`
	URL  string              `json:"url"`
}

func (h *LoanHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req documentRequest
	if !decode(w, r, &req) {
		return
	}
	loan, err := h.loans.AttachDocument(r.Context(), id, req.Type, req.Name, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusCreated, loan)
}

func (h *LoanHandler) RecordBlockchainRef(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var ref domain.BlockchainRef
	if !decode(w, r, &ref) {
		return
	}
	loan, err := h.loans.RecordBlockchainRef(r.Context(), id, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeLoan(w, http.StatusOK, loan)
}

func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	borrowerID, err := uuid.Parse(r.URL.Query().Get("borrower_id"))
	if err != nil {
		http.Error(w, "invalid borrower_id", http.StatusBadRequest)
		return
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	loans, total, err := h.loans.ListByBorrower(r.Context(), borrowerID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loans": service.NewLoanViews(loans, time.Now()),
		"total": total,
	})
}

func (h *LoanHandler) ListActiveLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.FindActiveLoans(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewLoanViews(loans, time.Now()))
}

func (h *LoanHandler) ListOverdueLoans(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	loans, err := h.loans.FindOverdueLoans(r.Context(), now)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewLoanViews(loans, now))
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, def int32) int32 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def
	}
	n, err := strconv.ParseInt(val, 10, 32)
	if err != nil || n < 1 {
		return def
	}
	return int32(n)
}

func writeLoan(w http.ResponseWriter, status int, loan *domain.Loan) {
	writeJSON(w, status, service.NewLoanView(loan, time.Now()))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var stateErr *domain.InvalidStateError
	var amountErr *domain.InvalidAmountError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "validation failed",
			"violations": validationErr.Violations,
		})
	case errors.As(err, &amountErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": amountErr.Error()})
	case errors.As(err, &stateErr):
		writeJSON(w, http.StatusConflict, map[string]string{"error": stateErr.Error()})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

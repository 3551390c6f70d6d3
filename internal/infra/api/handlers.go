package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"medcontent-subscription/internal/domain"
	"medcontent-subscription/internal/domain/model"
	"medcontent-subscription/internal/domain/ports/adapter"
	"medcontent-subscription/internal/infra/i18n"
	"medcontent-subscription/internal/infra/logging"
	"medcontent-subscription/internal/usecase"
)

type planResponse struct {
	ID           int64  `json:"id"`
	MembershipID int64  `json:"membership_id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	Price        int64  `json:"price"`
	IsActive     bool   `json:"is_active"`
}

func toPlanResponse(p *model.Plan) planResponse {
	return planResponse{
		ID:           p.ID,
		MembershipID: p.MembershipID,
		Name:         p.Name,
		DurationDays: p.DurationDays,
		Price:        p.Price,
		IsActive:     p.IsActive,
	}
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	items := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, toPlanResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathInt64(r, "planID")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	q, err := s.pricing.Preview(r.Context(), planID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

type quoteRequest struct {
	DiscountCode string `json:"discount_code"`
	ReferralCode string `json:"referral_code"`
}

type quoteResponse struct {
	PlanID          int64     `json:"plan_id"`
	PlanName        string    `json:"plan_name"`
	DurationDays    int       `json:"duration_days"`
	OriginalPrice   int64     `json:"original_price"`
	DiscountPercent int       `json:"discount_percent"`
	DiscountAmount  int64     `json:"discount_amount"`
	FinalPrice      int64     `json:"final_price"`
	DiscountCode    string    `json:"discount_code,omitempty"`
	ReferralCode    string    `json:"referral_code,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toQuoteResponse(q *model.Quote) quoteResponse {
	return quoteResponse{
		PlanID:          q.PlanID,
		PlanName:        q.PlanName,
		DurationDays:    q.DurationDays,
		OriginalPrice:   q.OriginalPrice,
		DiscountPercent: q.DiscountPercent,
		DiscountAmount:  q.DiscountAmount,
		FinalPrice:      q.FinalPrice,
		DiscountCode:    q.DiscountCode,
		ReferralCode:    q.ReferralCode,
		CreatedAt:       q.CreatedAt,
	}
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	planID, err := pathInt64(r, "planID")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	q, err := s.pricing.Quote(r.Context(), usecase.QuoteInput{
		UserID:       userID,
		PlanID:       planID,
		DiscountCode: req.DiscountCode,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

type createPaymentRequest struct {
	PlanID   int64  `json:"plan_id"`
	Provider string `json:"provider"`
	Payer    struct {
		Name   string `json:"name"`
		Mobile string `json:"mobile"`
		Email  string `json:"email"`
	} `json:"payer"`
}

type createPaymentResponse struct {
	PaymentID      string `json:"payment_id"`
	SubscriptionID string `json:"subscription_id"`
	Provider       string `json:"provider"`
	Authority      string `json:"authority"`
	RedirectURL    string `json:"redirect_url"`
	Amount         int64  `json:"amount"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if req.PlanID <= 0 || strings.TrimSpace(req.Provider) == "" {
		writeError(w, r, s.log, fmt.Errorf("%w: plan_id and provider are required", domain.ErrInvalidArgument))
		return
	}
	res, err := s.checkout.CreatePayment(r.Context(), usecase.CreatePaymentInput{
		UserID:    userID,
		PlanID:    req.PlanID,
		Provider:  strings.ToLower(strings.TrimSpace(req.Provider)),
		UserIP:    clientIP(r),
		UserAgent: r.UserAgent(),
		Payer: adapter.Payer{
			Name:   req.Payer.Name,
			Mobile: req.Payer.Mobile,
			Email:  req.Payer.Email,
		},
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, createPaymentResponse{
		PaymentID:      res.PaymentID,
		SubscriptionID: res.SubscriptionID,
		Provider:       res.Provider,
		Authority:      res.Authority,
		RedirectURL:    res.RedirectURL,
		Amount:         res.Amount,
	})
}

type verifyRequest struct {
	Provider  string `json:"provider"`
	Authority string `json:"authority"`
	Proof     string `json:"proof"`
}

type verifyResponse struct {
	Success           bool       `json:"success"`
	AlreadyVerified   bool       `json:"already_verified"`
	RefID             string     `json:"ref_id,omitempty"`
	PaymentID         string     `json:"payment_id,omitempty"`
	SubscriptionStart *time.Time `json:"subscription_start,omitempty"`
	SubscriptionEnd   *time.Time `json:"subscription_end,omitempty"`
	Error             string     `json:"error,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out, err := s.verification.Verify(r.Context(), usecase.VerifyInput{
		Provider:  strings.ToLower(strings.TrimSpace(req.Provider)),
		Authority: strings.TrimSpace(req.Authority),
		Proof:     strings.TrimSpace(req.Proof),
		UserID:    &userID,
	})
	if err != nil {
		kind := domain.Classify(err)
		if kind == domain.KindInternal || kind == domain.KindInvariant {
			writeError(w, r, s.log, err)
			return
		}
		writeJSON(w, statusFor(kind), verifyResponse{Error: publicMessage(kind, err)})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Success:           out.Success,
		AlreadyVerified:   out.AlreadyVerified,
		RefID:             out.RefID,
		PaymentID:         out.PaymentID,
		SubscriptionStart: out.SubscriptionStart,
		SubscriptionEnd:   out.SubscriptionEnd,
	})
}

// handleCallback lets the gateway interpret its own query or form parameters.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	tr := s.translator(r)
	provider := strings.ToLower(chi.URLParam(r, "provider"))
	if err := r.ParseForm(); err != nil {
		s.renderResult(w, tr, http.StatusBadRequest, resultPage{Msg: tr.T("callback.malformed")})
		return
	}
	params := make(map[string]string, len(r.Form))
	for k, v := range r.Form {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	out, err := s.verification.Verify(r.Context(), usecase.VerifyInput{Provider: provider, Params: params})
	if err != nil {
		kind := domain.Classify(err)
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Str("provider", provider).Str("kind", kind.String()).Msg("callback verification failed")
		s.renderResult(w, tr, statusFor(kind), resultPage{Msg: callbackMessage(tr, kind, err)})
		return
	}
	msg := tr.T("callback.success")
	if out.AlreadyVerified {
		msg = tr.T("callback.already_verified")
	}
	s.renderResult(w, tr, http.StatusOK, resultPage{OK: true, Msg: msg, RefID: out.RefID, Until: out.SubscriptionEnd})
}

func callbackMessage(tr *i18n.Translator, kind domain.Kind, err error) string {
	switch kind {
	case domain.KindTransient:
		return tr.T("callback.transient")
	case domain.KindGatewayFailure:
		return tr.T("callback.failed")
	default:
		return tr.T("callback.error", publicMessage(kind, err))
	}
}

type membershipRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateMembership(w http.ResponseWriter, r *http.Request) {
	var req membershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, s.log, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument))
		return
	}
	m, err := s.plans.CreateMembership(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": m.ID, "name": m.Name})
}

type planCreateRequest struct {
	MembershipID int64  `json:"membership_id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	Price        int64  `json:"price"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p, err := s.plans.Create(r.Context(), req.MembershipID, req.Name, req.DurationDays, req.Price)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanResponse(p))
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathInt64(r, "planID")
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := s.plans.Delete(r.Context(), planID); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type discountRequest struct {
	Code     string     `json:"code"`
	Percent  int        `json:"percent"`
	MaxUsage int        `json:"max_usage"`
	StartAt  *time.Time `json:"start_at"`
	EndAt    *time.Time `json:"end_at"`
}

type discountResponse struct {
	Code            string     `json:"code"`
	Percent         int        `json:"percent"`
	MaxUsage        int        `json:"max_usage"`
	UsageCount      int        `json:"usage_count"`
	RemainingUsage  int        `json:"remaining_usage"`
	UsagePercentage float64    `json:"usage_percentage"`
	StartAt         *time.Time `json:"start_at,omitempty"`
	EndAt           *time.Time `json:"end_at,omitempty"`
	IsActive        bool       `json:"is_active"`
}

func toDiscountResponse(d *model.DiscountCode) discountResponse {
	return discountResponse{
		Code:            d.Code,
		Percent:         d.Percent,
		MaxUsage:        d.MaxUsage,
		UsageCount:      d.UsageCount,
		RemainingUsage:  d.RemainingUsage(),
		UsagePercentage: d.UsagePercentage(),
		StartAt:         d.StartAt,
		EndAt:           d.EndAt,
		IsActive:        d.IsActive,
	}
}

func (s *Server) handleCreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	d, err := s.discounts.Create(r.Context(), usecase.DiscountInput{
		Code:     req.Code,
		Percent:  req.Percent,
		MaxUsage: req.MaxUsage,
		StartAt:  req.StartAt,
		EndAt:    req.EndAt,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDiscountResponse(d))
}

func (s *Server) handleGetDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := s.discounts.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toDiscountResponse(d))
}

// clientIP prefers the first X-Forwarded-For hop set by the ingress.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

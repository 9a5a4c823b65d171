package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/dosahub/backend-pos/internal/cart"
	"github.com/dosahub/backend-pos/internal/common"
	"github.com/dosahub/backend-pos/internal/coupon"
	"github.com/dosahub/backend-pos/internal/money"
	"github.com/dosahub/backend-pos/internal/order"
	"github.com/dosahub/backend-pos/internal/printer"
)

// Handler wires the checkout service to HTTP.
type Handler struct {
	Svc      *Service
	Printer  *printer.Client
	Validate *validator.Validate
}

type addItemPayload struct {
	ItemID    string `json:"itemId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	UnitPrice int64  `json:"unitPrice" validate:"gt=0"`
}

type changeQuantityPayload struct {
	Delta int `json:"delta" validate:"required"`
}

type applyCouponPayload struct {
	Code string `json:"code" validate:"required"`
}

type finalizePayload struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

// CreateSession opens a fresh register session with an empty cart.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	q, err := h.Svc.Open(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, q)
}

// GetQuote returns the priced view of the session cart.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.Svc.Quote(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// AddItem adds one unit of an item to the session cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemPayload
	if !h.decode(w, r, &payload) {
		return
	}
	q, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "sessionId"), payload.ItemID, payload.Name, money.Money(payload.UnitPrice))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// ChangeQuantity adjusts a line quantity by a signed delta.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var payload changeQuantityPayload
	if !h.decode(w, r, &payload) {
		return
	}
	q, err := h.Svc.ChangeQuantity(r.Context(), chi.URLParam(r, "sessionId"), chi.URLParam(r, "itemId"), payload.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// RemoveItem removes a line from the session cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "sessionId"), chi.URLParam(r, "itemId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// ApplyCoupon resolves and attaches a coupon code.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var payload applyCouponPayload
	if !h.decode(w, r, &payload) {
		return
	}
	q, err := h.Svc.ApplyCoupon(r.Context(), chi.URLParam(r, "sessionId"), payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// RemoveCoupon detaches the applied coupon.
func (h *Handler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	q, err := h.Svc.RemoveCoupon(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// Finalize freezes the cart into an order. When only the persistence sink
// fails the order number is still returned so the register can retry.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var payload finalizePayload
	if !h.decode(w, r, &payload) {
		return
	}
	o, err := h.Svc.Finalize(r.Context(), chi.URLParam(r, "sessionId"), payload.PaymentMethod)
	if err != nil {
		if errors.Is(err, ErrSinkFailure) {
			common.JSONError(w, http.StatusBadGateway, "ORDER_SINK_FAILED", "order accepted but not yet stored", map[string]any{"orderNumber": o.Number})
			return
		}
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, orderJSON(o))
}

// RetrySink re-attempts persistence for a finalized order held on the
// session.
func (h *Handler) RetrySink(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.RetrySink(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		if errors.Is(err, ErrSinkFailure) {
			common.JSONError(w, http.StatusBadGateway, "ORDER_SINK_FAILED", "order still not stored", map[string]any{"orderNumber": o.Number})
			return
		}
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, orderJSON(o))
}

// TestPrint sends a synchronous test ticket to the printer bridge.
func (h *Handler) TestPrint(w http.ResponseWriter, r *http.Request) {
	if h.Printer == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "PRINTER_UNCONFIGURED", "printer bridge not configured", nil)
		return
	}
	if err := h.Printer.TestPrint(r.Context()); err != nil {
		common.JSONError(w, http.StatusBadGateway, "PRINTER_UNREACHABLE", "printer bridge did not accept the test ticket", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request payload", fieldErrors(err))
			return false
		}
	}
	return true
}

func fieldErrors(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(common.FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return fields
}

func orderJSON(o order.FinalizedOrder) map[string]any {
	lines := make([]map[string]any, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, map[string]any{
			"itemId":    l.ItemID,
			"name":      l.Name,
			"unitPrice": l.UnitPrice,
			"quantity":  l.Quantity,
			"lineTotal": l.Total(),
		})
	}
	taxes := make([]map[string]any, 0, len(o.TaxLines))
	for _, t := range o.TaxLines {
		taxes = append(taxes, map[string]any{
			"name":    t.Name,
			"rateBps": t.RateBps,
			"amount":  t.Amount,
		})
	}
	return map[string]any{
		"number":        o.Number,
		"lines":         lines,
		"subtotal":      o.Subtotal,
		"discount":      o.Discount,
		"couponCode":    o.CouponCode,
		"taxLines":      taxes,
		"taxTotal":      o.TaxTotal,
		"total":         o.Total,
		"paymentMethod": o.PaymentMethod,
		"placedAt":      o.PlacedAt,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "checkout session not found or expired", nil)
	case errors.Is(err, coupon.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "coupon code is not recognized", nil)
	case errors.Is(err, coupon.ErrBelowMinimum):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_BELOW_MINIMUM", "cart subtotal is below the coupon minimum", nil)
	case errors.Is(err, cart.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "item is not in the cart", nil)
	case errors.Is(err, order.ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cannot finalize an empty cart", nil)
	case errors.Is(err, order.ErrInvalidPayment):
		common.JSONError(w, http.StatusBadRequest, "INVALID_PAYMENT", "payment method must be cash, card or upi", nil)
	case errors.Is(err, ErrNothingPending):
		common.JSONError(w, http.StatusConflict, "NO_PENDING_ORDER", "no finalized order is awaiting storage", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}

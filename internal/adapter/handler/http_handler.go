package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/core/service"
	"github.com/dumall/reconcile/internal/port"
)

// HTTPHandler is thin glue over the engine's operations for the storefront
// UI. All consistency logic lives in the services.
type HTTPHandler struct {
	store     port.Store
	cart      *service.Cart
	checkout  *service.Checkout
	inventory *service.Inventory
	orders    *service.Orders
	catalog   port.ProductCatalog
	auth      port.AuthSession
}

func NewHTTPHandler(store port.Store, cart *service.Cart, checkout *service.Checkout,
	inventory *service.Inventory, orders *service.Orders, catalog port.ProductCatalog,
	auth port.AuthSession) *HTTPHandler {
	return &HTTPHandler{
		store:     store,
		cart:      cart,
		checkout:  checkout,
		inventory: inventory,
		orders:    orders,
		catalog:   catalog,
		auth:      auth,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/products", h.Products)
	mux.HandleFunc("/api/cart", h.Cart)
	mux.HandleFunc("/api/cart/quantity", h.CartQuantity)
	mux.HandleFunc("/api/checkout", h.Checkout)
	mux.HandleFunc("/api/checkout/retry", h.CheckoutRetry)
	mux.HandleFunc("/api/orders", h.Orders)
	mux.HandleFunc("/api/inventory", h.Inventory)
	mux.HandleFunc("/api/inventory/restock", h.Restock)
	mux.HandleFunc("/api/inventory/auto-restock", h.AutoRestock)
	mux.HandleFunc("/api/login", h.Login)
	mux.HandleFunc("/api/logout", h.Logout)
	mux.HandleFunc("/api/admin/reset", h.ResetData)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Products lists the catalog; collaborator failures degrade to an empty list
// with a notice, never an error status.
func (h *HTTPHandler) Products(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.Product
		err      error
	)
	if keyword := r.URL.Query().Get("q"); keyword != "" {
		products, err = h.catalog.Search(r.Context(), keyword)
	} else if category := r.URL.Query().Get("category"); category != "" {
		products, err = h.catalog.ListByCategory(r.Context(), category)
	} else {
		products, err = h.catalog.ListAll(r.Context())
	}
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"products": []any{},
			"notice":   "catalog temporarily unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *HTTPHandler) Cart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := h.cart.Items(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		warnings, err := h.cart.CheckStock(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		total, _ := h.cart.TotalPrice(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"items":    items,
			"warnings": warnings,
			"total":    total,
		})

	case http.MethodPost:
		var req struct {
			ProductID int64 `json:"product_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		product, err := h.catalog.GetByID(r.Context(), req.ProductID)
		if err != nil {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		ok, err := h.cart.Add(r.Context(), product)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeError(w, http.StatusConflict, "insufficient stock")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		if err := h.cart.Remove(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) CartQuantity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ok, err := h.cart.SetQuantity(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "insufficient stock")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"state":           h.checkout.State(),
			"failure_reason":  h.checkout.FailureReason(),
			"last_order_id":   h.checkout.LastOrderID(),
			"payment_methods": h.checkout.PaymentMethods(),
		})

	case http.MethodPost:
		var req struct {
			PaymentMethodID string `json:"payment_method_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		order, err := h.checkout.Submit(r.Context(), req.PaymentMethodID)
		if err != nil {
			status, message := checkoutStatus(err)
			writeError(w, status, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": order})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) CheckoutRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.checkout.Retry(); err != nil {
		writeError(w, http.StatusConflict, "nothing to retry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HTTPHandler) Orders(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	orders, err := h.orders.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	total, err := h.orders.TotalSpent(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "total_spent": total})
}

func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	records, err := h.inventory.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	summary, err := h.inventory.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "summary": summary})
}

func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.auth.HasCapability(r.Context(), port.CapWarehouse) {
		writeError(w, http.StatusForbidden, "warehouse access required")
		return
	}
	var req struct {
		SKU      string `json:"sku"`
		Quantity int    `json:"quantity"`
		Operator string `json:"operator"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SKU == "" || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if err := h.inventory.Restock(r.Context(), req.SKU, req.Quantity, req.Operator, req.Note); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HTTPHandler) AutoRestock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.auth.HasCapability(r.Context(), port.CapWarehouse) {
		writeError(w, http.StatusForbidden, "warehouse access required")
		return
	}
	added, increased, err := h.inventory.AutoRestock(r.Context(), "auto-restock")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "increased": increased})
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.auth.Logout(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ResetData wipes the engine's persisted state, including the caller's own
// session and spent counter. Admin only.
func (h *HTTPHandler) ResetData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.auth.HasCapability(r.Context(), port.CapWarehouse) {
		writeError(w, http.StatusForbidden, "warehouse access required")
		return
	}
	var userIDs []int64
	if user, err := h.auth.CurrentUser(r.Context()); err == nil {
		userIDs = append(userIDs, user.ID)
	}
	if err := service.Reset(r.Context(), h.store, userIDs...); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func checkoutStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNoPaymentMethod):
		return http.StatusBadRequest, "select a payment method"
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized, "please log in first"
	case errors.Is(err, service.ErrCartEmpty):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, service.ErrStockShortage):
		return http.StatusConflict, "some items exceed available stock"
	case errors.Is(err, service.ErrPaymentInProgress):
		return http.StatusConflict, "payment already processing"
	case errors.Is(err, service.ErrPaymentDeclined):
		return http.StatusPaymentRequired, "payment declined, please retry"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dumall/reconcile/internal/adapter/collab"
	"github.com/dumall/reconcile/internal/adapter/storage"
	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/core/service"
	"github.com/dumall/reconcile/internal/port"
)

type noopBus struct{}

func (noopBus) Publish(ctx context.Context, event domain.PurchaseEvent) error { return nil }

func (noopBus) Subscribe(handler port.PurchaseHandler) func() { return func() {} }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryBackend().Handle("test")
	catalog := collab.NewStaticCatalog()
	auth := collab.NewSessionStore(store, log)

	inventory := service.NewInventory(store, catalog, log)
	if err := inventory.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	cart := service.NewCart(store, inventory, log)
	orders := service.NewOrders(store, log)
	checkout := service.NewCheckout(cart, orders, noopBus{}, auth, log)
	checkout.SetPaymentDelay(0)
	checkout.SetForceSuccess(true)

	mux := http.NewServeMux()
	NewHTTPHandler(store, cart, checkout, inventory, orders, catalog, auth).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return out
}

func TestProductsEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/products")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	body := decodeBody(t, resp)
	if products, ok := body["products"].([]any); !ok || len(products) != 10 {
		t.Errorf("expected 10 products, got %v", body["products"])
	}

	resp, _ = http.Get(server.URL + "/api/products?category=apparel")
	body = decodeBody(t, resp)
	if products := body["products"].([]any); len(products) != 3 {
		t.Errorf("expected 3 apparel products, got %d", len(products))
	}
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/login", map[string]string{
		"username": "alice", "password": "secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/cart", map[string]int64{"product_id": 1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cart add status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/checkout", map[string]string{"payment_method_id": "1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkout status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	order, ok := body["order"].(map[string]any)
	if !ok || order["id"] == "" {
		t.Fatalf("expected an order in %v", body)
	}

	// Orders endpoint now shows it.
	resp, err := http.Get(server.URL + "/api/orders")
	if err != nil {
		t.Fatalf("orders get failed: %v", err)
	}
	body = decodeBody(t, resp)
	if orders := body["orders"].([]any); len(orders) != 1 {
		t.Errorf("expected 1 order, got %v", body["orders"])
	}
}

func TestCheckoutRejectionsOverHTTP(t *testing.T) {
	server := newTestServer(t)

	// Not logged in.
	resp := postJSON(t, server.URL+"/api/checkout", map[string]string{"payment_method_id": "1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/login", map[string]string{
		"username": "alice", "password": "secret",
	})
	resp.Body.Close()

	// Empty cart.
	resp = postJSON(t, server.URL+"/api/checkout", map[string]string{"payment_method_id": "1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty cart, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// No payment method.
	resp = postJSON(t, server.URL+"/api/checkout", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing method, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRestockRequiresWarehouseCapability(t *testing.T) {
	server := newTestServer(t)

	restock := map[string]any{"sku": "IP15P-256-BLK", "quantity": 10, "operator": "ops"}

	resp := postJSON(t, server.URL+"/api/inventory/restock", restock)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 anonymous, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/login", map[string]string{
		"username": "alice", "password": "secret",
	})
	resp.Body.Close()
	resp = postJSON(t, server.URL+"/api/inventory/restock", restock)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for regular user, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/login", map[string]string{
		"username": "admin", "password": "secret",
	})
	resp.Body.Close()
	resp = postJSON(t, server.URL+"/api/inventory/restock", restock)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCartRejectionOverHTTP(t *testing.T) {
	server := newTestServer(t)

	// Unknown product id.
	resp := postJSON(t, server.URL+"/api/cart", map[string]int64{"product_id": 999})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Quantity beyond seeded stock of 100.
	resp = postJSON(t, server.URL+"/api/cart", map[string]int64{"product_id": 1})
	resp.Body.Close()
	resp = postJSON(t, server.URL+"/api/cart/quantity", map[string]int{
		"product_id": 1, "quantity": 500,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminReset(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/admin/reset", map[string]string{})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 anonymous, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/login", map[string]string{
		"username": "admin", "password": "secret",
	})
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/admin/reset", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Seeded inventory is gone and the admin session was wiped too.
	resp, err := http.Get(server.URL + "/api/inventory")
	if err != nil {
		t.Fatalf("inventory get failed: %v", err)
	}
	body := decodeBody(t, resp)
	if records, ok := body["records"].([]any); ok && len(records) != 0 {
		t.Errorf("expected empty inventory after reset, got %d records", len(records))
	}
	resp, _ = http.Get(server.URL + "/api/orders")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected session wiped, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" {
		t.Errorf("unexpected body %v", body)
	}
}

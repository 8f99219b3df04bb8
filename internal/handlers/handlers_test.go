package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/logger"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/realtime"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/internal/store"
	"github.com/diewo77/go-facturas/internal/store/gormstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	mux  *http.ServeMux
	gdb  *gorm.DB
	dash *DashboardHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	log := logger.NewNop()
	broker := realtime.NewBroker(log)
	t.Cleanup(func() { _ = broker.Close() })
	s := store.WithNotifier(gormstore.New(gdb), broker)

	clock := func() time.Time { return testNow }
	numbers := services.NewNumberGenerator(s, log, services.WithClock(clock))
	invoices := NewInvoiceHandler(services.NewInvoiceService(s, numbers, log), s, log)
	invoices.now = clock

	health := NewHealthHandler(s, log)
	dash := NewDashboardHandler(services.NewDashboardService(s, log), broker, log)
	customers := NewCustomerHandler(s, log)
	products := NewProductHandler(s, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.Check)
	mux.HandleFunc("GET /dashboard", dash.Get)
	mux.HandleFunc("GET /dashboard/stream", dash.Stream)
	mux.HandleFunc("GET /customers", customers.List)
	mux.HandleFunc("POST /customers", customers.Create)
	mux.HandleFunc("PATCH /customers/{id}", customers.Update)
	mux.HandleFunc("DELETE /customers/{id}", customers.Delete)
	mux.HandleFunc("GET /products", products.List)
	mux.HandleFunc("POST /products", products.Create)
	mux.HandleFunc("PATCH /products/{id}", products.Update)
	mux.HandleFunc("DELETE /products/{id}", products.Delete)
	mux.HandleFunc("POST /products/{id}/toggle", products.Toggle)
	mux.HandleFunc("GET /invoices", invoices.List)
	mux.HandleFunc("GET /invoices/export.xlsx", invoices.Export)
	mux.HandleFunc("GET /invoices/new", invoices.New)
	mux.HandleFunc("POST /invoices", invoices.Create)
	mux.HandleFunc("GET /invoices/{id}", invoices.Get)
	mux.HandleFunc("PATCH /invoices/{id}/status", invoices.SetStatus)
	mux.HandleFunc("DELETE /invoices/{id}", invoices.Delete)
	mux.HandleFunc("POST /invoices/{id}/duplicate", invoices.Duplicate)

	return &testEnv{mux: mux, gdb: gdb, dash: dash}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

// closeDB makes every following store call fail.
func (e *testEnv) closeDB(t *testing.T) {
	sqlDB, err := e.gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) addCustomer(t *testing.T, name, email string) models.Customer {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/customers", map[string]any{"name": name, "email": email})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Customer](t, rec)
}

func (e *testEnv) addProduct(t *testing.T, body map[string]any) models.Product {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/products", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Product](t, rec)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCustomers_CRUD(t *testing.T) {
	e := newTestEnv(t)
	acme := e.addCustomer(t, "Acme SL", "billing@acme.es")
	e.addCustomer(t, "Globex", "ap@globex.com")

	rec := e.do(t, http.MethodGet, "/customers?q=ACME", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[customerListResponse](t, rec)
	require.Len(t, list.Customers, 1)
	assert.Equal(t, acme.ID, list.Customers[0].ID)
	assert.Equal(t, 2, list.Total)

	rec = e.do(t, http.MethodPatch, fmt.Sprintf("/customers/%d", acme.ID), map[string]any{"phone": "600123123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Customer](t, rec)
	assert.Equal(t, "600123123", *updated.Phone)
	assert.Equal(t, "Acme SL", updated.Name)

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/customers/%d", acme.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	list = decode[customerListResponse](t, e.do(t, http.MethodGet, "/customers", nil))
	require.Len(t, list.Customers, 1)
	assert.Equal(t, "Globex", list.Customers[0].Name)
}

func TestCustomers_Errors(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/customers", map[string]any{"name": "", "email": "nope"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[httpx.ErrorResponse](t, rec)
	assert.Equal(t, "validation_failed", body.Error)
	assert.Equal(t, "Revisa los campos marcados", body.Message)
	assert.Equal(t, map[string]any{"name": "Obligatorio", "email": "Email no válido"}, body.Details)

	rec = e.do(t, http.MethodPost, "/customers", map[string]any{"name": "", "email": "a@b.es"}, "Accept-Language", "en-GB,en;q=0.8")
	body = decode[httpx.ErrorResponse](t, rec)
	assert.Equal(t, map[string]any{"name": "Required"}, body.Details)

	rec = e.do(t, http.MethodPost, "/customers", `{"nombre":"Acme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decode[httpx.ErrorResponse](t, rec).Error)

	rec = e.do(t, http.MethodPatch, "/customers/abc", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPatch, "/customers/999", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, "/customers/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No se encontró el registro", decode[httpx.ErrorResponse](t, rec).Message)
}

func TestProducts_DefaultsListAndToggle(t *testing.T) {
	e := newTestEnv(t)
	hosting := e.addProduct(t, map[string]any{"name": "Hosting", "price": "10"})
	assert.True(t, hosting.TaxRate.Equal(dec("21")))
	assert.Equal(t, models.UnitPiece, hosting.Unit)
	assert.True(t, hosting.Active)

	e.addProduct(t, map[string]any{"name": "Soporte", "price": 20, "unit": models.UnitHour, "active": false})

	list := decode[productListResponse](t, e.do(t, http.MethodGet, "/products", nil))
	assert.Len(t, list.Products, 2)
	assert.Equal(t, 1, list.ActiveCount)
	assert.True(t, list.TotalValue.Equal(dec("30")))

	rec := e.do(t, http.MethodPost, fmt.Sprintf("/products/%d/toggle", hosting.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	toggled := decode[models.Product](t, rec)
	assert.False(t, toggled.Active)
	assert.Equal(t, "Hosting", toggled.Name)
	assert.True(t, toggled.Price.Equal(dec("10")))

	rec = e.do(t, http.MethodPost, "/products/999/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPatch, fmt.Sprintf("/products/%d", hosting.ID), map[string]any{"unit": "litro", "tax_rate": 150})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	details := decode[httpx.ErrorResponse](t, rec).Details.(map[string]any)
	assert.Contains(t, details, "unit")
	assert.Contains(t, details, "tax_rate")

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/products/%d", hosting.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	list = decode[productListResponse](t, e.do(t, http.MethodGet, "/products?q=hosting", nil))
	assert.Empty(t, list.Products)
}

func (e *testEnv) createInvoice(t *testing.T) (models.Invoice, models.Customer) {
	t.Helper()
	c := e.addCustomer(t, "Acme", "a@acme.es")
	p := e.addProduct(t, map[string]any{"name": "Hosting", "price": "10"})
	rec := e.do(t, http.MethodPost, "/invoices", map[string]any{
		"customer_id": c.ID,
		"status":      "sent",
		"notes":       "Pago a 30 días",
		"lines": []map[string]any{
			{"product_id": p.ID, "quantity": "2"},
			{"description": "Instalación", "quantity": 1, "unit_price": 50},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Invoice](t, rec), c
}

func TestInvoices_NewAndCreate(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/invoices/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	boot := decode[map[string]any](t, rec)
	assert.Equal(t, "FAC-202403-001", boot["invoice_number"])
	assert.Equal(t, "2024-03-10", boot["issue_date"])
	assert.Equal(t, "2024-04-09", boot["due_date"])

	inv, c := e.createInvoice(t)
	assert.Equal(t, "FAC-202403-001", inv.InvoiceNumber)
	assert.Equal(t, c.ID, inv.CustomerID)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
	assert.True(t, inv.Subtotal.Equal(dec("70")))
	assert.True(t, inv.TaxAmount.Equal(dec("4.2")))
	assert.True(t, inv.Total.Equal(dec("74.2")))
	assert.Len(t, inv.Items, 2)

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/invoices/%d", inv.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[map[string]any](t, rec)
	assert.Equal(t, "Acme", detail["customer"].(map[string]any)["name"])
	assert.Len(t, detail["items"], 2)

	boot = decode[map[string]any](t, e.do(t, http.MethodGet, "/invoices/new", nil))
	assert.Equal(t, "FAC-202403-002", boot["invoice_number"])
}

func TestInvoices_CreateRejects(t *testing.T) {
	e := newTestEnv(t)
	c := e.addCustomer(t, "Acme", "a@acme.es")
	retired := e.addProduct(t, map[string]any{"name": "Retired", "price": "5", "active": false})

	rec := e.do(t, http.MethodPost, "/invoices", map[string]any{"customer_id": c.ID, "lines": []any{}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[httpx.ErrorResponse](t, rec).Details, "lines")

	rec = e.do(t, http.MethodPost, "/invoices", map[string]any{
		"customer_id": 999,
		"lines":       []map[string]any{{"product_id": retired.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	details := decode[httpx.ErrorResponse](t, rec).Details.(map[string]any)
	assert.Contains(t, details, "customer_id")
	assert.Contains(t, details, "lines[0].product_id")

	rec = e.do(t, http.MethodPost, "/invoices", map[string]any{
		"customer_id": c.ID,
		"status":      "paid",
		"lines":       []map[string]any{{"description": "x", "quantity": 1, "unit_price": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	list := decode[historyResponse](t, e.do(t, http.MethodGet, "/invoices", nil))
	assert.Empty(t, list.Rows)
}

func TestInvoices_StatusDuplicateDelete(t *testing.T) {
	e := newTestEnv(t)
	inv, _ := e.createInvoice(t)

	rec := e.do(t, http.MethodPatch, fmt.Sprintf("/invoices/%d/status", inv.ID), map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.InvoiceStatusPaid, decode[models.Invoice](t, rec).Status)

	rec = e.do(t, http.MethodPatch, fmt.Sprintf("/invoices/%d/status", inv.ID), map[string]any{"status": "archived"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_status", decode[httpx.ErrorResponse](t, rec).Error)

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/invoices/%d/duplicate", inv.ID), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dup := decode[models.Invoice](t, rec)
	assert.Equal(t, "FAC-202403-002", dup.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusDraft, dup.Status)
	assert.True(t, dup.Total.Equal(inv.Total))

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/invoices/%d", inv.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, fmt.Sprintf("/invoices/%d", inv.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(t, http.MethodPost, fmt.Sprintf("/invoices/%d/duplicate", inv.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvoices_HistoryFilters(t *testing.T) {
	e := newTestEnv(t)
	inv, _ := e.createInvoice(t)
	e.do(t, http.MethodPost, fmt.Sprintf("/invoices/%d/duplicate", inv.ID), nil)

	all := decode[historyResponse](t, e.do(t, http.MethodGet, "/invoices", nil))
	assert.Len(t, all.Rows, 2)
	assert.Equal(t, "Acme", all.Rows[0].CustomerName)
	assert.Equal(t, 2, all.Summary.TotalInvoices)
	assert.True(t, all.Summary.Pending.Equal(dec("74.2")))

	sent := decode[historyResponse](t, e.do(t, http.MethodGet, "/invoices?status=sent&q=fac-202403-001", nil))
	require.Len(t, sent.Rows, 1)
	assert.Equal(t, inv.ID, sent.Rows[0].ID)
	assert.Equal(t, 2, sent.Summary.TotalInvoices, "summary ignores filters")

	rec := e.do(t, http.MethodGet, "/invoices?period=weekly", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[httpx.ErrorResponse](t, rec).Details, "period")
}

func TestDashboard_Get(t *testing.T) {
	e := newTestEnv(t)
	stats := decode[services.DashboardStats](t, e.do(t, http.MethodGet, "/dashboard", nil))
	assert.Equal(t, 0, stats.TotalProducts)

	e.createInvoice(t)
	stats = decode[services.DashboardStats](t, e.do(t, http.MethodGet, "/dashboard", nil))
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 1, stats.ActiveProducts)
	assert.Equal(t, 1, stats.TotalCustomers)
	assert.Equal(t, 1, stats.TotalInvoices)
	assert.True(t, stats.TotalRevenue.IsZero(), "only paid invoices count as revenue")
}

func TestStoreFailures(t *testing.T) {
	e := newTestEnv(t)
	e.closeDB(t)

	rec := e.do(t, http.MethodGet, "/customers", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "load_failed", decode[httpx.ErrorResponse](t, rec).Error)

	rec = e.do(t, http.MethodPost, "/products", map[string]any{"name": "Hosting"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "save_failed", decode[httpx.ErrorResponse](t, rec).Error)

	rec = e.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[services.DashboardStats](t, rec).TotalCustomers)

	rec = e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

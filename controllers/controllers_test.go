package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/order-ingestion-service/middleware"
	"github.com/yashrajoria/order-ingestion-service/models"
	"github.com/yashrajoria/order-ingestion-service/pkg/apperrors"
	"github.com/yashrajoria/order-ingestion-service/services"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	if f.err != nil {
		return stripe.Event{}, f.err
	}
	return stripe.Event{ID: "evt_1", Type: "checkout.session.completed"}, nil
}

type fakeEventHandler struct {
	order *models.Order
	err   error
	calls int
}

func (f *fakeEventHandler) HandleEvent(ctx context.Context, event stripe.Event) (*models.Order, error) {
	f.calls++
	return f.order, f.err
}

func webhookRouter(v WebhookVerifier, h EventHandler) *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.POST("/webhooks/stripe", NewWebhookController(v, h, zap.NewNop()).HandleStripeWebhook)
	return r
}

func postWebhook(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleStripeWebhook_StatusCodes(t *testing.T) {
	orderNumber := uuid.New()

	tests := []struct {
		name    string
		verify  error
		order   *models.Order
		err     error
		want    int
		ingests bool
	}{
		{name: "ingested", order: &models.Order{OrderNumber: orderNumber}, want: http.StatusOK, ingests: true},
		{name: "ignored event", want: http.StatusOK, ingests: true},
		{name: "bad signature", verify: errors.New("no signatures found"), want: http.StatusBadRequest},
		{name: "malformed", err: fmt.Errorf("%w: no line items", services.ErrMalformedInput), want: http.StatusBadRequest, ingests: true},
		{name: "out of stock", err: &services.OutOfStockError{ItemID: "shoe-1", Size: "9", Requested: 2}, want: http.StatusConflict, ingests: true},
		{name: "gateway", err: fmt.Errorf("%w: timeout", services.ErrGateway), want: http.StatusBadGateway, ingests: true},
		{name: "storage", err: fmt.Errorf("%w: conn reset", services.ErrStorage), want: http.StatusInternalServerError, ingests: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeEventHandler{order: tt.order, err: tt.err}
			w := postWebhook(webhookRouter(fakeVerifier{err: tt.verify}, h))

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.ingests, h.calls == 1)
		})
	}
}

func TestHandleStripeWebhook_ReturnsOrderNumber(t *testing.T) {
	orderNumber := uuid.New()
	w := postWebhook(webhookRouter(fakeVerifier{}, &fakeEventHandler{order: &models.Order{OrderNumber: orderNumber}}))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["received"])
	assert.Equal(t, orderNumber.String(), body["order_number"])
}

type fakeOrderService struct {
	orders     map[uuid.UUID]models.Order
	deleted    []uuid.UUID
	restocked  []models.RestockRequest
	gotPage    int
	gotLimit   int
	restockErr error
}

func newFakeOrderService(orders ...models.Order) *fakeOrderService {
	f := &fakeOrderService{orders: map[uuid.UUID]models.Order{}}
	for _, o := range orders {
		f.orders[o.OrderNumber] = o
	}
	return f
}

func (f *fakeOrderService) GetUserOrder(ctx context.Context, storeUserID string, orderNumber uuid.UUID) (*models.Order, error) {
	o, ok := f.orders[orderNumber]
	if !ok || o.StoreUserID != storeUserID {
		return nil, services.ErrOrderNotFound
	}
	return &o, nil
}

func (f *fakeOrderService) ListUserOrders(ctx context.Context, storeUserID string, page, limit int) (*services.OrderResponse, error) {
	f.gotPage, f.gotLimit = page, limit
	resp := &services.OrderResponse{Orders: []models.Order{}}
	for _, o := range f.orders {
		if o.StoreUserID == storeUserID {
			resp.Orders = append(resp.Orders, o)
		}
	}
	return resp, nil
}

func (f *fakeOrderService) ListAllOrders(ctx context.Context, page, limit int) (*services.OrderResponse, error) {
	f.gotPage, f.gotLimit = page, limit
	return nil, fmt.Errorf("%w: db down", services.ErrStorage)
}

func (f *fakeOrderService) DeleteOrder(ctx context.Context, orderNumber uuid.UUID) error {
	if _, ok := f.orders[orderNumber]; !ok {
		return services.ErrOrderNotFound
	}
	f.deleted = append(f.deleted, orderNumber)
	return nil
}

func (f *fakeOrderService) Restock(ctx context.Context, req models.RestockRequest) (*models.Variant, error) {
	if f.restockErr != nil {
		return nil, f.restockErr
	}
	f.restocked = append(f.restocked, req)
	return &models.Variant{ItemID: req.ItemID, Size: req.Size, Stock: req.Quantity}, nil
}

func orderRouter(svc OrderReader) *gin.Engine {
	oc := NewOrderController(svc, zap.NewNop())
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())

	user := r.Group("/orders", middleware.AuthMiddleware())
	user.GET("", oc.GetOrders)
	user.GET("/:orderNumber", oc.GetOrderByNumber)

	admin := r.Group("/admin")
	admin.GET("/orders", oc.GetAllOrders)
	admin.DELETE("/orders/:orderNumber", oc.DeleteOrder)
	admin.POST("/variants/restock", oc.Restock)
	return r
}

func do(r *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetOrders(t *testing.T) {
	mine := models.Order{OrderNumber: uuid.New(), StoreUserID: "user-1"}
	theirs := models.Order{OrderNumber: uuid.New(), StoreUserID: "user-2"}
	svc := newFakeOrderService(mine, theirs)
	r := orderRouter(svc)

	w := do(r, http.MethodGet, "/orders?page=2&limit=5", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.gotPage)
	assert.Equal(t, 5, svc.gotLimit)

	var resp services.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, mine.OrderNumber, resp.Orders[0].OrderNumber)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/orders", "", "").Code)
}

func TestGetOrderByNumber(t *testing.T) {
	mine := models.Order{OrderNumber: uuid.New(), StoreUserID: "user-1"}
	r := orderRouter(newFakeOrderService(mine))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/orders/"+mine.OrderNumber.String(), "user-1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/orders/"+mine.OrderNumber.String(), "user-2", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/orders/not-a-uuid", "user-1", "").Code)
}

func TestGetAllOrders_StorageFailure(t *testing.T) {
	w := do(orderRouter(newFakeOrderService()), http.MethodGet, "/admin/orders", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestDeleteOrder(t *testing.T) {
	o := models.Order{OrderNumber: uuid.New()}
	svc := newFakeOrderService(o)
	r := orderRouter(svc)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/admin/orders/"+o.OrderNumber.String(), "", "").Code)
	assert.Equal(t, []uuid.UUID{o.OrderNumber}, svc.deleted)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/admin/orders/"+uuid.NewString(), "", "").Code)
}

func TestRestock(t *testing.T) {
	svc := newFakeOrderService()
	r := orderRouter(svc)

	w := do(r, http.MethodPost, "/admin/variants/restock", "", `{"item_id":"shoe-1","size":"9","quantity":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.restocked, 1)
	assert.Equal(t, 3, svc.restocked[0].Quantity)

	w = do(r, http.MethodPost, "/admin/variants/restock", "", `{"item_id":"shoe-1","size":"9","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.restockErr = services.ErrVariantNotFound
	w = do(r, http.MethodPost, "/admin/variants/restock", "", `{"item_id":"ghost","size":"9","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

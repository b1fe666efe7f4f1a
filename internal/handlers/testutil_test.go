package handlers_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/flexora/internal/config"
	"github.com/example/flexora/internal/database"
	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/routes"
	"github.com/example/flexora/internal/services"
	"github.com/example/flexora/internal/utils"
)

const testGatewaySecret = "test-gateway-secret"

// mockGateway is a testify mock of the payment gateway.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(amountMinor int64, currency, receipt string, notes map[string]string) (*services.GatewayOrder, error) {
	args := m.Called(amountMinor, currency, receipt, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GatewayOrder), args.Error(1)
}

func (m *mockGateway) FetchPayment(paymentID string) (*services.GatewayPayment, error) {
	args := m.Called(paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GatewayPayment), args.Error(1)
}

func (m *mockGateway) RefundPayment(paymentID string, amountMinor int64, notes map[string]string) (*services.GatewayRefund, error) {
	args := m.Called(paymentID, amountMinor, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GatewayRefund), args.Error(1)
}

// setupTestApp builds a fiber app backed by an in-memory sqlite database
// with the full route table registered.
func setupTestApp(t *testing.T, gateway services.PaymentGateway) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		AppPort:           "0",
		JWTSecret:         "test-jwt-secret",
		TokenExpires:      time.Hour,
		RazorpayKeyID:     "rzp_test_key",
		RazorpayKeySecret: testGatewaySecret,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal server error"
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
				message = fiberErr.Message
			}
			return c.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	routes.Register(app, db, cfg, gateway, nil)

	return app, db, cfg
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		AuthProvider: "email",
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func makeAdmin(t *testing.T, db *gorm.DB, user *models.User) {
	t.Helper()

	admin := &models.AdminUser{
		UserID:      user.ID,
		Role:        "admin",
		Permissions: []byte(`{}`),
	}
	require.NoError(t, db.Create(admin).Error)
}

func tokenFor(t *testing.T, cfg *config.Config, user *models.User) string {
	t.Helper()

	token, err := utils.GenerateToken(cfg.JWTSecret, user.ID, cfg.TokenExpires)
	require.NoError(t, err)
	return token
}

func createProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:           name,
		Description:    name + " description",
		Price:          price,
		Currency:       "INR",
		Category:       "electronics",
		Images:         []byte(`[]`),
		Features:       []byte(`{}`),
		Specifications: []byte(`{}`),
		StockQuantity:  stock,
		IsActive:       true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// doJSON performs a request against the app with an optional JSON body and
// bearer token.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// signPayment mirrors the gateway's callback signature scheme.
func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testGatewaySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func createPendingOrder(t *testing.T, db *gorm.DB, user *models.User, amount float64) *models.Order {
	t.Helper()

	order := &models.Order{
		OrderNumber:     utils.GenerateOrderNumber(),
		UserID:          user.ID,
		Status:          models.OrderStatusPending,
		TotalAmount:     amount,
		Currency:        "INR",
		ShippingAddress: []byte(`{}`),
		BillingAddress:  []byte(`{}`),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func createPendingPayment(t *testing.T, db *gorm.DB, order *models.Order, gatewayOrderID string) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		OrderID:         order.ID,
		Amount:          order.TotalAmount,
		Currency:        "INR",
		PaymentMethod:   "razorpay",
		PaymentStatus:   models.PaymentStatusPending,
		TransactionID:   gatewayOrderID,
		GatewayResponse: []byte(`{}`),
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

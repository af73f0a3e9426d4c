package devserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/api"
	"github.com/Skotchmaster/storefront/internal/cart"
	"github.com/Skotchmaster/storefront/internal/checkout"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &Product{}, &Order{}, &OrderItem{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

type testEnv struct {
	Server *Server
	DB     *gorm.DB
	URL    string
	Client *api.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := initTestDB(t)
	server := &Server{
		DB:             db,
		JWTSecret:      []byte("test-secret"),
		PaymentPageURL: "https://checkout.example.com/pay",
		Log:            testLogger(),
	}

	e := echo.New()
	server.Register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL, testLogger())
	require.NoError(t, err)
	require.NoError(t, client.PrimeCSRF(context.Background()))

	return &testEnv{Server: server, DB: db, URL: srv.URL, Client: client}
}

func (env *testEnv) seedUser(t *testing.T, username string, admin bool) {
	t.Helper()
	passwordHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	require.NoError(t, env.DB.Create(&User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash,
		IsAdmin:      admin,
	}).Error)
}

func (env *testEnv) seedProduct(t *testing.T, name string, price float64, stock uint) Product {
	t.Helper()
	product := Product{Name: name, Description: name, Price: price, Stock: stock}
	require.NoError(t, env.DB.Create(&product).Error)
	return product
}

func (env *testEnv) login(t *testing.T, username string) {
	t.Helper()
	_, err := env.Client.Login(context.Background(), api.Credentials{Username: username, Password: "password"})
	require.NoError(t, err)
}

func testAddress() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:      "Test Customer",
		StreetAddress: "1 Test Street",
		City:          "Berlin",
		PostalCode:    "10115",
		Country:       "Germany",
		PhoneNumber:   "+4915123456789",
	}
}

func TestUnsafeRequestWithoutCSRFTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	// a bare client that never primed the anti-forgery cookie
	resp, err := http.Post(env.URL+"/api/login", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	identity, err := env.Client.Register(ctx, api.Credentials{Username: "test_user", Password: "password"}, "test@example.com")
	require.NoError(t, err)
	require.Equal(t, "test_user", identity.Username)

	// duplicate registration is rejected with the server message
	_, err = env.Client.Register(ctx, api.Credentials{Username: "test_user", Password: "password"}, "test@example.com")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "user already exists", apiErr.Message)

	logged, err := env.Client.Login(ctx, api.Credentials{Username: "test_user", Password: "password"})
	require.NoError(t, err)
	require.Equal(t, identity.ID, logged.ID)

	profile, err := env.Client.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "test_user", profile.Username)
}

func TestProfileRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Client.Profile(context.Background())
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestAdminEndpointsGated(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "plain_user", false)
	env.login(t, "plain_user")

	_, err := env.Client.AdminOrders(context.Background())
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestCheckoutSessionStockConflict(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "test_user", false)
	product := env.seedProduct(t, "keyboard", 49.90, 1)
	env.login(t, "test_user")

	_, err := env.Client.CreateCheckoutSession(context.Background(), []models.CartLine{{
		ProductID: product.ID, Name: product.Name, UnitPrice: product.Price, Stock: 5, Quantity: 2,
	}}, testAddress())

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Contains(t, apiErr.Message, "not enough stock")
}

func TestVerifyIsIdempotentPerSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "test_user", false)
	product := env.seedProduct(t, "keyboard", 49.90, 3)
	env.login(t, "test_user")
	ctx := context.Background()

	redirectURL, err := env.Client.CreateCheckoutSession(ctx, []models.CartLine{{
		ProductID: product.ID, Name: product.Name, UnitPrice: product.Price, Stock: 3, Quantity: 2,
	}}, testAddress())
	require.NoError(t, err)

	parsed, err := url.Parse(redirectURL)
	require.NoError(t, err)
	sessionID := parsed.Query().Get("session_id")
	require.NotEmpty(t, sessionID)

	first, err := env.Client.VerifyOrder(ctx, sessionID, testAddress())
	require.NoError(t, err)
	require.Equal(t, OrderStatusPaid, first.Status)

	// stock is decremented once, not twice
	second, err := env.Client.VerifyOrder(ctx, sessionID, testAddress())
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var stored Product
	require.NoError(t, env.DB.First(&stored, product.ID).Error)
	require.Equal(t, uint(1), stored.Stock)
}

func TestVerifyUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "test_user", false)
	env.login(t, "test_user")

	_, err := env.Client.VerifyOrder(context.Background(), "cs_test_missing", testAddress())
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "no order found for this session", apiErr.Message)
}

// TestFullCheckoutFlow drives the real client stores against the reference
// backend: probe, login, cart, checkout submit, payment return, verify.
func TestFullCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "test_user", false)
	seeded := env.seedProduct(t, "keyboard", 49.90, 3)
	ctx := context.Background()

	durable, err := storage.OpenDurable(":memory:")
	require.NoError(t, err)
	sessions := session.NewStore(env.Client, testLogger(), nil)
	carts := cart.NewStore(durable, testLogger(), nil)
	sessions.OnSignedOut(carts.Clear)

	require.NoError(t, sessions.Probe(ctx))
	require.Nil(t, sessions.Identity())

	_, err = sessions.Login(ctx, api.Credentials{Username: "test_user", Password: "password"})
	require.NoError(t, err)

	products, err := env.Client.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, seeded.ID, products[0].ID)

	require.NoError(t, carts.AddItem(products[0], 2))

	stash := storage.NewTab()
	orchestrator := checkout.NewOrchestrator(env.Client, carts, stash, testLogger(), nil)
	orchestrator.Begin()

	redirectURL, err := orchestrator.Submit(ctx, testAddress())
	require.NoError(t, err)
	require.Contains(t, redirectURL, "session_id=cs_test_")

	// the provider sends the user back with the session id in the query
	require.NoError(t, orchestrator.VerifyReturn(ctx, redirectURL))
	require.Equal(t, checkout.StateCompleted, orchestrator.State())
	require.Empty(t, carts.Lines())
	_, ok := stash.Get(checkout.StashKey)
	require.False(t, ok)

	orders, err := env.Client.MyOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, OrderStatusPaid, orders[0].Status)
	require.InDelta(t, 2*49.90, orders[0].Total, 1e-9)

	var stored Product
	require.NoError(t, env.DB.First(&stored, seeded.ID).Error)
	require.Equal(t, uint(1), stored.Stock)
}

func TestLogoutClearsCart(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "test_user", false)
	product := env.seedProduct(t, "keyboard", 49.90, 3)
	ctx := context.Background()

	durable, err := storage.OpenDurable(":memory:")
	require.NoError(t, err)
	sessions := session.NewStore(env.Client, testLogger(), nil)
	carts := cart.NewStore(durable, testLogger(), nil)
	sessions.OnSignedOut(carts.Clear)

	_, err = sessions.Login(ctx, api.Credentials{Username: "test_user", Password: "password"})
	require.NoError(t, err)

	require.NoError(t, carts.AddItem(models.Product{
		ID: product.ID, Name: product.Name, Price: product.Price, Stock: product.Stock,
	}, 1))
	require.Len(t, carts.Lines(), 1)

	require.NoError(t, sessions.Logout(ctx))
	require.Nil(t, sessions.Identity())
	require.Empty(t, carts.Lines())

	// the cleared cart is what a reload now sees
	reloaded := cart.NewStore(durable, testLogger(), nil)
	require.Empty(t, reloaded.Lines())
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "test_user", false)
	env.login(t, "test_user")
	ctx := context.Background()

	updated, err := env.Client.UpdateProfile(ctx, models.Identity{PhoneNumber: "+4915123456789"})
	require.NoError(t, err)
	require.Equal(t, "+4915123456789", updated.PhoneNumber)

	profile, err := env.Client.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "+4915123456789", profile.PhoneNumber)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "test_user", false)
	env.login(t, "test_user")
	ctx := context.Background()

	require.NoError(t, env.Client.ChangePassword(ctx, "password", "better-password"))

	err := env.Client.ChangePassword(ctx, "password", "even-better")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

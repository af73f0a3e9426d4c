package devserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sessionCookieName = "session"

// Server is the reference backend for the storefront client: it implements
// the REST surface the gateway talks to, with a fake hosted payment page in
// place of the real provider.
type Server struct {
	DB             *gorm.DB
	JWTSecret      []byte
	PaymentPageURL string
	Log            *slog.Logger
}

// OpenDB opens a postgres database when a postgres DSN is configured and
// falls back to a local sqlite file otherwise.
func OpenDB(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	var db *gorm.DB
	var err error
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		if dsn == "" {
			dsn = "devserver.db"
		}
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &Product{}, &Order{}, &OrderItem{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func (s *Server) Register(e *echo.Echo) {
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(csrfMiddleware)

	api := e.Group("/api")

	api.GET("/csrf-token", s.CSRFToken)
	api.POST("/register", s.RegisterUser)
	api.POST("/login", s.Login)
	api.POST("/logout", s.Logout)

	api.GET("/user/profile", s.Profile)
	api.PUT("/user/profile", s.UpdateProfile)
	api.POST("/user/change-password", s.ChangePassword)

	api.GET("/products", s.GetProducts)
	api.GET("/products/:id", s.GetProduct)
	api.POST("/products", s.CreateProduct)
	api.PUT("/products/:id", s.UpdateProduct)
	api.DELETE("/products/:id", s.DeleteProduct)

	api.POST("/create-checkout-session", s.CreateCheckoutSession)
	api.POST("/order/verify", s.VerifyOrder)
	api.GET("/my-orders", s.MyOrders)
	api.GET("/admin/orders", s.AdminOrders)
}

// CSRFToken exists only so the client can prime the anti-forgery cookie; the
// middleware set it on the way in.
func (s *Server) CSRFToken(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "csrf cookie set"})
}

func (s *Server) issueSession(c echo.Context, user *User) error {
	claims := jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return nil
}

func (s *Server) clearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// currentUser resolves the session cookie to a user row. Any failure along
// the way reads as "not logged in".
func (s *Server) currentUser(c echo.Context) (*User, error) {
	ck, err := c.Request().Cookie(sessionCookieName)
	if err != nil || ck.Value == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	token, err := jwt.Parse(ck.Value, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}

	var user User
	if err := s.DB.First(&user, uint(sub)).Error; err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}
	return &user, nil
}

func (s *Server) currentAdmin(c echo.Context) (*User, error) {
	user, err := s.currentUser(c)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}
	return user, nil
}

func message(text string) map[string]string {
	return map[string]string{"message": text}
}

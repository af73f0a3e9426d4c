package devserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type shippingAddress struct {
	FullName       string `json:"fullName"`
	StreetAddress  string `json:"streetAddress"`
	ApartmentSuite string `json:"apartmentSuite"`
	City           string `json:"city"`
	PostalCode     string `json:"postalCode"`
	Country        string `json:"country"`
	PhoneNumber    string `json:"phoneNumber"`
}

func (a *shippingAddress) complete() bool {
	return a.FullName != "" && a.StreetAddress != "" && a.City != "" &&
		a.PostalCode != "" && a.Country != "" && a.PhoneNumber != ""
}

type cartItem struct {
	ProductID uint    `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  uint    `json:"quantity"`
}

// CreateCheckoutSession is the authoritative stock check: the client's
// snapshot bounds are advisory, this one rejects. On success a pending order
// is stored under a fresh provider session id and the hosted payment URL is
// returned.
func (s *Server) CreateCheckoutSession(c echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		CartItems       []cartItem      `json:"cartItems"`
		ShippingAddress shippingAddress `json:"shippingAddress"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, message("invalid request body"))
	}
	if len(req.CartItems) == 0 {
		return c.JSON(http.StatusBadRequest, message("cart is empty"))
	}
	if !req.ShippingAddress.complete() {
		return c.JSON(http.StatusBadRequest, message("shipping address is incomplete"))
	}

	sessionID := "cs_test_" + uuid.NewString()
	order := Order{
		UserID:    user.ID,
		SessionID: sessionID,
		Number:    uuid.NewString(),
		Status:    OrderStatusPending,

		FullName:       req.ShippingAddress.FullName,
		StreetAddress:  req.ShippingAddress.StreetAddress,
		ApartmentSuite: req.ShippingAddress.ApartmentSuite,
		City:           req.ShippingAddress.City,
		PostalCode:     req.ShippingAddress.PostalCode,
		Country:        req.ShippingAddress.Country,
		PhoneNumber:    req.ShippingAddress.PhoneNumber,
	}

	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, item := range req.CartItems {
			var product Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusBadRequest,
						fmt.Sprintf("product %d no longer exists", item.ProductID))
				}
				return err
			}
			if item.Quantity == 0 {
				return echo.NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("invalid quantity for %q", product.Name))
			}
			if item.Quantity > product.Stock {
				return echo.NewHTTPError(http.StatusConflict,
					fmt.Sprintf("not enough stock for %q: %d requested, %d available",
						product.Name, item.Quantity, product.Stock))
			}
			order.Items = append(order.Items, OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				UnitPrice: product.Price,
				Quantity:  item.Quantity,
			})
			order.Total += product.Price * float64(item.Quantity)
		}
		return tx.Create(&order).Error
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return c.JSON(he.Code, message(fmt.Sprint(he.Message)))
		}
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}

	return c.JSON(http.StatusOK, map[string]string{
		"url": s.PaymentPageURL + "?session_id=" + sessionID,
	})
}

// VerifyOrder marks the order behind a provider session as paid and
// decrements stock. Verifying an already paid session is a no-op that
// returns the order again, so the endpoint is idempotent per session id.
func (s *Server) VerifyOrder(c echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		SessionID       string          `json:"sessionId"`
		ShippingAddress shippingAddress `json:"shippingAddress"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, message("invalid request body"))
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, message("session id is required"))
	}
	if !req.ShippingAddress.complete() {
		return c.JSON(http.StatusBadRequest, message("shipping address is incomplete"))
	}

	var order Order
	txErr := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").
			Where("session_id = ? AND user_id = ?", req.SessionID, user.ID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "no order found for this session")
			}
			return err
		}
		if order.Status == OrderStatusPaid {
			return nil
		}

		for _, item := range order.Items {
			var product Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				return err
			}
			if item.Quantity > product.Stock {
				return echo.NewHTTPError(http.StatusConflict,
					fmt.Sprintf("not enough stock for %q", product.Name))
			}
			product.Stock -= item.Quantity
			if err := tx.Save(&product).Error; err != nil {
				return err
			}
		}

		order.Status = OrderStatusPaid
		return tx.Save(&order).Error
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return c.JSON(he.Code, message(fmt.Sprint(he.Message)))
		}
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}

	return c.JSON(http.StatusOK, &order)
}

func (s *Server) MyOrders(c echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var orders []Order
	if err := s.DB.Preload("Items").
		Where("user_id = ?", user.ID).
		Order("id desc").
		Find(&orders).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) AdminOrders(c echo.Context) error {
	if _, err := s.currentAdmin(c); err != nil {
		return err
	}

	var orders []Order
	if err := s.DB.Preload("Items").Order("id desc").Find(&orders).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, orders)
}

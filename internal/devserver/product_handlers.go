package devserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func (s *Server) GetProducts(c echo.Context) error {
	var products []Product
	if err := s.DB.Order("id").Find(&products).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, products)
}

func (s *Server) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, message("invalid product id"))
	}

	var product Product
	if err := s.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, message("product not found"))
		}
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, &product)
}

func (s *Server) CreateProduct(c echo.Context) error {
	if _, err := s.currentAdmin(c); err != nil {
		return err
	}

	var product Product
	if err := c.Bind(&product); err != nil {
		return c.JSON(http.StatusBadRequest, message("invalid request body"))
	}
	if product.Name == "" || product.Price < 0 {
		return c.JSON(http.StatusBadRequest, message("product needs a name and a non-negative price"))
	}
	product.ID = 0
	if err := s.DB.Create(&product).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, &product)
}

func (s *Server) UpdateProduct(c echo.Context) error {
	if _, err := s.currentAdmin(c); err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, message("invalid product id"))
	}

	var product Product
	if err := s.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, message("product not found"))
		}
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}

	var req Product
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, message("invalid request body"))
	}
	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Stock = req.Stock
	if err := s.DB.Save(&product).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, &product)
}

func (s *Server) DeleteProduct(c echo.Context) error {
	if _, err := s.currentAdmin(c); err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, message("invalid product id"))
	}
	if err := s.DB.Delete(&Product{}, id).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": id})
}

package devserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/hash"
)

func (s *Server) RegisterUser(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, message("invalid request body"))
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, message("username and password are required"))
	}

	var existing User
	err := s.DB.Where("username = ?", req.Username).First(&existing).Error
	if err == nil {
		return c.JSON(http.StatusConflict, message("user already exists"))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}

	user := User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, &user)
}

func (s *Server) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, message("invalid request body"))
	}

	var user User
	if err := s.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		return c.JSON(http.StatusUnauthorized, message("invalid username or password"))
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, message("invalid username or password"))
	}

	if err := s.issueSession(c, &user); err != nil {
		return c.JSON(http.StatusInternalServerError, message("could not create session"))
	}
	return c.JSON(http.StatusOK, &user)
}

func (s *Server) Logout(c echo.Context) error {
	s.clearSession(c)
	return c.JSON(http.StatusOK, message("logged out"))
}

func (s *Server) Profile(c echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) UpdateProfile(c echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, message("invalid request body"))
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if err := s.DB.Save(user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) ChangePassword(c echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, message("invalid request body"))
	}
	if !hash.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, message("current password is incorrect"))
	}
	if req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, message("new password must not be empty"))
	}

	passwordHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	user.PasswordHash = passwordHash
	if err := s.DB.Save(user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, message("internal error"))
	}
	return c.JSON(http.StatusOK, message("password updated"))
}

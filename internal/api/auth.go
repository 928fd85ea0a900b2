package api

import (
	"errors"                          // Error inspection
	"net/http"                        // HTTP status codes
	"practice_system/internal/domain" // Importing domain models
	"practice_system/internal/utils"  // Utility functions
	"strings"                         // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// RegisterRequest represents an owner registration request
type RegisterRequest struct {
	Username    string                     `json:"username" binding:"required"` // Username must be provided
	Email       string                     `json:"email" binding:"required,email"`
	Password    string                     `json:"password" binding:"required"`
	DrsID       string                     `json:"drsId" binding:"required"`
	Practice    string                     `json:"practice" binding:"required"`
	Address     string                     `json:"address"`
	Town        string                     `json:"town"`
	Country     string                     `json:"country"`
	CountryCode string                     `json:"countryCode"`
	Phone       string                     `json:"phone"`
	FirstName   string                     `json:"firstName"`
	LastName    string                     `json:"lastName"`
	JobTitle    string                     `json:"jobTitle"`
	Admin       *bool                      `json:"admin"`   // Defaults false when omitted
	Current     *bool                      `json:"current"` // Defaults false when omitted
	Doctors     []domain.DoctorRef         `json:"doctors"`
	Devices     []domain.DeviceSelection   `json:"selectedDevices"`
	Providers   []domain.EmrProviderConfig `json:"emrProviders"`
}

// LoginRequest represents a login request; either email or username
// identifies the account
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued JWT and the sanitized account
type AuthResponse struct {
	Message string          `json:"message"` // Human-readable outcome
	Token   string          `json:"token"`   // JWT token
	User    *domain.Account `json:"user"`    // Authenticated account
}

// RegisterHandler creates a new practice-owner account
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"message": "Username, Email, Drs ID, Password, and Practice are required.", "error": err.Error()})
			return
		}
		// Reject duplicates across all three unique identity fields
		var existing domain.Account
		err := db.Where("username = ? OR email = ? OR drs_id = ?", req.Username, strings.ToLower(req.Email), req.DrsID).
			First(&existing).Error
		if err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Username, Email, or Drs ID already exists."})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error registering user.", "error": err.Error()})
			return
		}
		// Hash the password before storing
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error registering user.", "error": err.Error()})
			return
		}
		account := domain.Account{
			Username:        req.Username,
			Email:           strings.ToLower(req.Email),
			Password:        string(hash),
			DrsID:           req.DrsID,
			Practice:        req.Practice,
			Address:         req.Address,
			Town:            req.Town,
			Country:         req.Country,
			CountryCode:     req.CountryCode,
			Phone:           req.Phone,
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			JobTitle:        req.JobTitle,
			Admin:           req.Admin != nil && *req.Admin,     // Explicit boolean or default false
			Current:         req.Current != nil && *req.Current, // Explicit boolean or default false
			FirstTime:       true,
			Doctors:         orEmptyDoctors(req.Doctors),
			SelectedDevices: orEmptyDevices(req.Devices),
			EmrProviders:    orEmptyProviders(req.Providers),
		}
		if err := db.Create(&account).Error; err != nil {
			// Unique index beat the pre-check under a race
			c.JSON(http.StatusBadRequest, gin.H{"message": "Username, Email, or Drs ID already exists.", "error": err.Error()})
			return
		}
		logrus.WithFields(logrus.Fields{
			"account_id": account.ID,
			"email":      account.Email,
		}).Info("Account registered")
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully.", "user": account})
	}
}

// LoginHandler authenticates an account and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || (req.Email == "" && req.Username == "") {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email or username and password are required."})
			return
		}
		var account domain.Account // Fetch account from database
		query := db
		if req.Email != "" {
			query = query.Where("email = ?", strings.ToLower(req.Email))
		} else {
			query = query.Where("username = ?", req.Username)
		}
		if err := query.First(&account).Error; err != nil {
			// Same response for unknown account and bad password
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
			return
		}
		token, err := utils.GenerateJWT(account.ID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in.", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Message: "Login successful.", Token: token, User: &account})
	}
}

// LogoutHandler acknowledges a logout; bearer tokens are discarded by
// the client
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Logout successful."})
	}
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// ChangePasswordHandler verifies the current password and stores a new hash
func ChangePasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required."})
			return
		}
		var account domain.Account
		if err := db.Where("email = ?", strings.ToLower(req.Email)).First(&account).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.CurrentPassword)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Current password is incorrect."})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error changing password.", "error": err.Error()})
			return
		}
		if err := db.Model(&account).Update("password", string(hash)).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error changing password.", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully."})
	}
}

func orEmptyDoctors(in []domain.DoctorRef) []domain.DoctorRef {
	if in == nil {
		return []domain.DoctorRef{}
	}
	return in
}

func orEmptyDevices(in []domain.DeviceSelection) []domain.DeviceSelection {
	if in == nil {
		return []domain.DeviceSelection{}
	}
	return in
}

func orEmptyProviders(in []domain.EmrProviderConfig) []domain.EmrProviderConfig {
	if in == nil {
		return []domain.EmrProviderConfig{}
	}
	return in
}

package api

import (
	"net/http"                        // HTTP status codes
	"practice_system/internal/domain" // Importing domain models
	"practice_system/internal/utils"  // Utility functions
	"strconv"                         // String conversion
	"strings"                         // String manipulation
	"time"                            // Time durations

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// AccountAdminResponse represents the account data returned to admins
type AccountAdminResponse struct {
	ID        string `json:"id"`        // Account ID
	Username  string `json:"username"`  // Username
	Email     string `json:"email"`     // Email
	DrsID     string `json:"drsId"`     // External doctor identifier
	Practice  string `json:"practice"`  // Practice name
	Admin     bool   `json:"admin"`     // Practice-owner flag
	Current   bool   `json:"current"`   // Subscription-active flag
	FirstTime bool   `json:"firstTime"` // First-login flag
	Doctors   int    `json:"doctors"`   // Roster size
}

// ListAccountsHandler returns all accounts, paginated and cached
func ListAccountsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// Create a cache key based on pagination parameters
		cacheKey := "admin:accounts:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		var cached struct {
			Accounts   []AccountAdminResponse `json:"accounts"`    // List of accounts
			Page       int                    `json:"page"`        // Current page
			PageSize   int                    `json:"page_size"`   // Page size
			Total      int64                  `json:"total"`       // Total number of accounts
			TotalPages int                    `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"accounts":    cached.Accounts,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true, // Indicate response is from cache
			})
			return
		}
		page, pageSize := pagination(c)
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total account count
		if err := db.Model(&domain.Account{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to count accounts"})
			return
		}
		var accounts []domain.Account // Slice to hold accounts
		if err := db.Offset(offset).Limit(pageSize).Find(&accounts).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch accounts"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		resp := make([]AccountAdminResponse, len(accounts))
		for i, a := range accounts {
			resp[i] = AccountAdminResponse{
				ID:        a.ID,
				Username:  a.Username,
				Email:     a.Email,
				DrsID:     a.DrsID,
				Practice:  a.Practice,
				Admin:     a.Admin,
				Current:   a.Current,
				FirstTime: a.FirstTime,
				Doctors:   len(a.Doctors),
			}
		}
		respData := gin.H{
			"accounts":    resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"cached":      false, // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}

// ListPaymentsHandler returns payment records, with optional filtering
// by status or date range
func ListPaymentsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// Build cache key from all query params
		var keyParts []string
		for _, k := range []string{"status", "currency", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, ""))
		}
		cacheKey := "admin:payments:" + strings.Join(keyParts, ":")
		var cached struct {
			Payments   []domain.Payment `json:"payments"`    // List of payments
			Page       int              `json:"page"`        // Current page
			PageSize   int              `json:"page_size"`   // Page size
			Total      int64            `json:"total"`       // Total number of payments
			TotalPages int              `json:"total_pages"` // Total pages
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"payments":    cached.Payments,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true,
			})
			return
		}
		page, pageSize := pagination(c)
		offset := (page - 1) * pageSize
		query := db.Model(&domain.Payment{}) // Start building the query
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status) // Filter by gateway status
		}
		if currency := c.Query("currency"); currency != "" {
			query = query.Where("currency = ?", currency) // Filter by currency
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to) // Filter by end date
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to count payments"})
			return
		}
		var payments []domain.Payment
		if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&payments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch payments"})
			return
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"payments":    payments,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}

// pagination reads page/page_size query params with bounds applied
func pagination(c *gin.Context) (int, int) {
	page := 1      // Default page number
	pageSize := 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size within limits
		}
	}
	return page, pageSize
}

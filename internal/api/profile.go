package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"practice_system/internal/domain"
	"practice_system/internal/mailer"
	"practice_system/internal/reconcile"
	"practice_system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const profileCacheTTL = 60 * time.Second // TTL for cached profile reads

func profileCacheKey(accountID string) string {
	return "account:profile:" + accountID
}

// provisionFailureView is one failed doctor upsert as reported to the
// frontend
type provisionFailureView struct {
	Email  string `json:"email"`
	DrsID  string `json:"drsId"`
	Reason string `json:"reason"`
}

// UpdateHandler runs the roster reconciliation for the authenticated
// owner: merges the patch, saves the owner, and provisions one doctor
// account per roster entry. Partial provisioning failure answers
// 207 Multi-Status with the saved owner plus the per-doctor failures.
func UpdateHandler(rec *reconcile.Reconciler, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, exists := c.Get("accountID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		var patch reconcile.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid update payload.", "error": err.Error()})
			return
		}

		owner, err := rec.Reconcile(c.Request.Context(), accountID.(string), patch)

		// The owner record changed on every outcome except a pure
		// failure, so drop the cached profile eagerly
		_ = utils.DeleteCache(c.Request.Context(), rdb, profileCacheKey(accountID.(string)))

		var partial *reconcile.PartialProvisionError
		var conflict *reconcile.ConflictError
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully.", "user": owner})
		case errors.Is(err, reconcile.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		case errors.As(err, &partial):
			failures := make([]provisionFailureView, len(partial.Failures))
			for i, f := range partial.Failures {
				failures[i] = provisionFailureView{Email: f.Email, DrsID: f.DrsID, Reason: f.Reason()}
			}
			c.JSON(http.StatusMultiStatus, gin.H{
				"message":  "Profile updated; some doctor accounts could not be provisioned.",
				"user":     owner,
				"failures": failures,
			})
		case errors.As(err, &conflict):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Username, Email, or Drs ID already exists.", "error": err.Error()})
		default:
			logrus.WithFields(logrus.Fields{
				"account_id": accountID,
				"error":      err.Error(),
			}).Error("Reconcile failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating profile.", "error": err.Error()})
		}
	}
}

// UpdateProfileRequest carries the scalar-only profile fields; email
// and drsId are read-only on this path
type UpdateProfileRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	JobTitle  string `json:"jobTitle"`
	Address   string `json:"address"`
	Town      string `json:"town"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
	Practice  string `json:"practice"`
}

// UpdateProfileHandler applies non-empty scalar fields to the
// authenticated account
func UpdateProfileHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, exists := c.Get("accountID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid profile payload.", "error": err.Error()})
			return
		}
		var account domain.Account
		if err := db.First(&account, "id = ?", accountID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
			return
		}
		// Only sent, non-empty fields overwrite
		if req.Username != "" {
			account.Username = req.Username
		}
		if req.FirstName != "" {
			account.FirstName = req.FirstName
		}
		if req.LastName != "" {
			account.LastName = req.LastName
		}
		if req.JobTitle != "" {
			account.JobTitle = req.JobTitle
		}
		if req.Address != "" {
			account.Address = req.Address
		}
		if req.Town != "" {
			account.Town = req.Town
		}
		if req.Country != "" {
			account.Country = req.Country
		}
		if req.Phone != "" {
			account.Phone = req.Phone
		}
		if req.Practice != "" {
			account.Practice = req.Practice
		}
		if err := db.Save(&account).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating profile.", "error": err.Error()})
			return
		}
		_ = utils.DeleteCache(c.Request.Context(), rdb, profileCacheKey(account.ID))
		c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully.", "user": account})
	}
}

// UpdateSubscriptionRequest flips an account to an active, owner-level
// subscription
type UpdateSubscriptionRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdateSubscriptionHandler marks the account subscribed and thanks
// the subscriber by mail. A mail failure is reported in the response
// body, not hidden, but does not undo the subscription change.
func UpdateSubscriptionHandler(db *gorm.DB, rdb *redis.Client, mail *mailer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required."})
			return
		}
		var account domain.Account
		if err := db.Where("email = ?", strings.ToLower(req.Email)).First(&account).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
			return
		}
		account.Current = true
		account.Admin = true
		if err := db.Save(&account).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating subscription.", "error": err.Error()})
			return
		}
		_ = utils.DeleteCache(c.Request.Context(), rdb, profileCacheKey(account.ID))

		resp := gin.H{
			"message": "User subscription updated successfully.",
			"user":    gin.H{"email": account.Email, "current": account.Current},
		}
		if err := mail.SendThankYou(c.Request.Context(), account.Email); err != nil {
			logrus.WithFields(logrus.Fields{
				"email": account.Email,
				"error": err.Error(),
			}).Error("Thank-you mail failed")
			resp["error"] = "thank-you email could not be sent"
		}
		c.JSON(http.StatusOK, resp)
	}
}

// MeHandler returns the authenticated account's profile, cached in
// Redis with a short TTL
func MeHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, exists := c.Get("accountID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := profileCacheKey(accountID.(string))
		var cached domain.Account
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"message": "success", "user": cached, "cached": true})
			return
		}
		var account domain.Account
		if err := db.First(&account, "id = ?", accountID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, account, profileCacheTTL)
		c.JSON(http.StatusOK, gin.H{"message": "success", "user": account, "cached": false})
	}
}

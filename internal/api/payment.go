package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"practice_system/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"
)

// PaymentIntentRequest represents a payment-intent creation request
type PaymentIntentRequest struct {
	Amount   int64  `json:"amount" binding:"required"`   // Amount in minor units
	Currency string `json:"currency" binding:"required"` // ISO currency code
	Email    string `json:"email" binding:"required,email"`
}

// CreatePaymentIntentHandler creates a Stripe payment intent and
// returns its client secret to the frontend
func CreatePaymentIntentHandler(sc *client.API) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Amount, currency, and email are required."})
			return
		}
		intent, err := sc.PaymentIntents.New(&stripe.PaymentIntentParams{
			Amount:   stripe.Int64(req.Amount),
			Currency: stripe.String(req.Currency),
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"email": req.Email,
				"error": err.Error(),
			}).Error("Payment intent creation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating payment intent.", "error": err.Error()})
			return
		}
		logrus.WithField("payment_intent", intent.ID).Info("Payment intent created")
		c.JSON(http.StatusOK, gin.H{"clientSecret": intent.ClientSecret})
	}
}

// WebhookHandler verifies the Stripe signature on the raw payload and
// records succeeded payment intents. One Payment row per gateway
// transaction id: the unique index makes duplicate notifications
// no-ops.
func WebhookHandler(db *gorm.DB, webhookSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Unable to read webhook payload."})
			return
		}
		event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), webhookSecret)
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("Webhook signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"message": "Webhook signature verification failed."})
			return
		}

		switch event.Type {
		case stripe.EventTypePaymentIntentSucceeded:
			var intent stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed payment intent payload."})
				return
			}
			payment := domain.Payment{
				StripeID: intent.ID,
				Amount:   intent.Amount,
				Currency: string(intent.Currency),
				Status:   string(intent.Status),
			}
			if err := db.Create(&payment).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Stripe retried a notification already on file
					logrus.WithField("stripe_id", intent.ID).Info("Duplicate payment notification ignored")
				} else {
					logrus.WithFields(logrus.Fields{
						"stripe_id": intent.ID,
						"error":     err.Error(),
					}).Error("Failed to store payment")
					c.JSON(http.StatusInternalServerError, gin.H{"message": "Error storing payment."})
					return
				}
			} else {
				logrus.WithField("stripe_id", intent.ID).Info("Payment stored")
			}
		default:
			logrus.WithField("type", string(event.Type)).Debug("Unhandled webhook event type")
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

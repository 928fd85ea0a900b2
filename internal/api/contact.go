package api

import (
	"net/http"

	"practice_system/internal/mailer"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ContactHandler relays a contact-form submission to the support inbox
func ContactHandler(mail *mailer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form mailer.ContactForm
		if err := c.ShouldBindJSON(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Name, email, and message are required."})
			return
		}
		if err := mail.RelayContactForm(c.Request.Context(), form); err != nil {
			logrus.WithFields(logrus.Fields{
				"email": form.Email,
				"error": err.Error(),
			}).Error("Contact relay failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send email", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully"})
	}
}

// NewsletterRequest represents a newsletter signup
type NewsletterRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// NewsletterHandler notifies the inbox of a new subscriber and thanks
// the subscriber
func NewsletterHandler(mail *mailer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NewsletterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Name and email are required."})
			return
		}
		ctx := c.Request.Context()
		if err := mail.NotifyNewsletterSignup(ctx, req.Name, req.Email); err != nil {
			logrus.WithFields(logrus.Fields{
				"email": req.Email,
				"error": err.Error(),
			}).Error("Newsletter notification failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send email", "error": err.Error()})
			return
		}
		if err := mail.SendThankYou(ctx, req.Email); err != nil {
			logrus.WithFields(logrus.Fields{
				"email": req.Email,
				"error": err.Error(),
			}).Error("Thank-you mail failed")
		}
		c.JSON(http.StatusOK, gin.H{"message": "Subscription received."})
	}
}

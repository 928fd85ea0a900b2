package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/gomail.v2"

	"practice_system/internal/utils"
)

// Service sends the transactional mail this system needs: temporary
// credentials for newly provisioned doctors, thank-you mail for new
// subscribers, and contact-form relays. It is an injected collaborator
// instance, constructed once in main and passed to whoever needs it.
type Service struct {
	dialer       *gomail.Dialer
	from         string // Sender address
	contactInbox string // Where contact-form and newsletter notices land
}

// ContactForm is one submission from the public contact page.
type ContactForm struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Telephone  string `json:"telephone"`
	Profession string `json:"profession"`
	Message    string `json:"message" binding:"required"`
}

// New builds a Service talking STARTTLS to the given SMTP submission
// endpoint.
func New(host string, port int, user, password, contactInbox string) *Service {
	d := gomail.NewDialer(host, port, user, password)
	d.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	return &Service{dialer: d, from: user, contactInbox: contactInbox}
}

// IssueTemporaryCredential mints a one-time password, mails the
// plaintext to the doctor and returns only the bcrypt hash. The
// plaintext never leaves this function.
func (s *Service) IssueTemporaryCredential(ctx context.Context, email, lastName, drsID string) (string, error) {
	tempPassword := utils.TempPassword()
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash temporary password: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your Account - Temporary Password")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hello Dr. %s,\n\nYou have been added to your practice's roster.\nYour Doctor ID is: %s\nTemporary Password: %s\n\nPlease log in with your email and change your password after first login.\n",
		lastName, drsID, tempPassword))
	m.AddAlternative("text/html", fmt.Sprintf(
		"<p>Hello Dr. <strong>%s</strong>,</p><p>You have been added to your practice's roster.</p><p><strong>Doctor ID:</strong> %s</p><p><strong>Temporary Password:</strong> %s</p><p>For security reasons, please change your password after logging in.</p>",
		lastName, drsID, tempPassword))

	if err := s.send(ctx, m); err != nil {
		return "", fmt.Errorf("send credential mail to %s: %w", email, err)
	}
	logrus.WithField("email", email).Info("Temporary credential mailed")
	return string(hash), nil
}

// SendThankYou mails the post-subscription thank-you note.
func (s *Service) SendThankYou(ctx context.Context, email string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Thank You for Your Subscription")
	m.SetBody("text/plain",
		"Hello,\n\nThank you for subscribing! You can now sign in and configure your EMR and device integrations.\n\nIf you have any questions, feel free to reach out to our support team.\n")
	m.AddAlternative("text/html",
		"<p>Hello,</p><p>Thank you for subscribing! You can now sign in and configure your EMR and device integrations.</p><p>If you have any questions, feel free to reach out to our support team.</p>")
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("send thank-you mail to %s: %w", email, err)
	}
	return nil
}

// RelayContactForm forwards a contact-page submission to the inbox.
func (s *Service) RelayContactForm(ctx context.Context, form ContactForm) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.contactInbox)
	m.SetHeader("Reply-To", form.Email)
	m.SetHeader("Subject", "New Contact Form Submission")
	m.SetBody("text/plain", fmt.Sprintf(
		"Name: %s\nEmail: %s\nTelephone: %s\nProfession: %s\nMessage: %s\n",
		form.Name, form.Email, orNA(form.Telephone), orNA(form.Profession), form.Message))
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("relay contact form from %s: %w", form.Email, err)
	}
	return nil
}

// NotifyNewsletterSignup tells the inbox about a new newsletter
// subscriber.
func (s *Service) NotifyNewsletterSignup(ctx context.Context, name, email string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.contactInbox)
	m.SetHeader("Subject", "New Newsletter Subscription")
	m.SetBody("text/plain", fmt.Sprintf("Name: %s\nEmail: %s\n", name, email))
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("notify newsletter signup for %s: %w", email, err)
	}
	return nil
}

// send honors context cancellation before dialing; gomail itself has
// no context support.
func (s *Service) send(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

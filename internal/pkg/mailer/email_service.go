package mailer

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendSafetyAlert(sessionID, category string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	alertEmail  string
}

func NewEmailService(host string, port int, username, password, senderName, alertEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: username,
		senderName:  senderName,
		alertEmail:  alertEmail,
	}
}

// SendSafetyAlert notifies the ops inbox that the crisis detector fired
// for a session. The body carries only the session id and category, no
// conversation content.
func (s *emailService) SendSafetyAlert(sessionID, category string) error {
	if s.alertEmail == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", s.alertEmail)
	m.SetHeader("Subject", fmt.Sprintf("Safety alert: %s", category))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Safety Override Triggered</h2>
			<p>Session: <b>%s</b></p>
			<p>Category: <b>%s</b></p>
			<p>Time: %s</p>
			<p>The user received the fixed crisis response with helpline resources.</p>
		</div>
	`, sessionID, category, time.Now().UTC().Format(time.RFC3339))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send safety alert for session %s: %v\n", sessionID, err)
		return err
	}

	fmt.Printf("[MAILER] Safety alert sent for session %s\n", sessionID)
	return nil
}

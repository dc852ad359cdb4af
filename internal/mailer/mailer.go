package mailer

import (
	"fmt"
	"net"
	"net/smtp"

	"github.com/rs/zerolog"
)

type Config struct {
	Host     string
	Port     string
	From     string
	Password string
	// Inbox receives organizer notices.
	Inbox string
}

func (c Config) Enabled() bool {
	return c.Host != "" && c.From != "" && c.Inbox != ""
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg  Config
	log  *zerolog.Logger
	send sendFunc
}

func New(cfg Config, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// SendRegistrationNotice tells the organizer inbox that a student
// registered for an event.
func (m *Mailer) SendRegistrationNotice(eventTitle, studentName, studentID string) error {
	if !m.cfg.Enabled() {
		m.log.Debug().Str("event", eventTitle).Msg("mailer disabled, skipping registration notice")
		return nil
	}

	who := studentName
	if who == "" {
		who = studentID
	}
	subject := fmt.Sprintf("New registration: %s", eventTitle)
	body := fmt.Sprintf("Hello!\n\n%s registered for «%s» on Campus Connect.", who, eventTitle)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.cfg.From, m.cfg.Inbox, subject, body,
	)

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{m.cfg.Inbox}, []byte(msg)); err != nil {
		m.log.Warn().Msgf("failed to send registration notice to %s: %v", m.cfg.Inbox, err)
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Msgf("📧 Registration notice sent to %s (event: %s)", m.cfg.Inbox, eventTitle)
	return nil
}

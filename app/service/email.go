package service

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/safestats/ms-account/config"
)

// Mailer is the outbound notification contract. Implementations may fail
// and their errors are logged by the caller, never surfaced to the HTTP
// response.
type Mailer interface {
	Send(from, to, subject, text, html string) error
}

type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(from, to, subject, text, html string) error {
	body := html
	contentType := "text/html; charset=\"UTF-8\""
	if body == "" {
		body = text
		contentType = "text/plain; charset=\"UTF-8\""
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s\r\n", contentType)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	return smtp.SendMail(addr, auth, m.cfg.Username, []string{to}, []byte(msg.String()))
}

func welcomeEmail() (subject, html string) {
	return "Seja bem-vindo ao SafeStats 🥰",
		"<b>Seja bem-vindo ao SafeStats!</b> <br/> Ficamos muito felizes com sua presença!"
}

func recoveryEmail(token string) (subject, html string) {
	return "Recuperação de senha 🚑",
		fmt.Sprintf(
			"<b>Recebemos um pedido de recuperação de senha da sua conta.</b> <br/> Utilize o código abaixo para cadastrar uma nova senha: <br/> <br/> <b>%s</b>",
			token,
		)
}

func passwordChangedEmail() (subject, html string) {
	return "Sua senha foi alterada 🔒",
		"<b>Sua senha foi alterada com sucesso.</b> <br/> Se você não realizou essa alteração, entre em contato com a nossa equipe."
}

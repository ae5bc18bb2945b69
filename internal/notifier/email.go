package notifier

import (
	"gopkg.in/gomail.v2"
)

// EmailSender envoie un courriel. L'envoi est au mieux : l'appelant journalise
// l'échec et ne le propage jamais.
type EmailSender interface {
	Send(destinataire, sujet, corps string) error
}

// SMTPSender - implémentation de EmailSender via un relais SMTP.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender crée une nouvelle instance de SMTPSender.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send envoie un courriel texte simple.
func (s *SMTPSender) Send(destinataire, sujet, corps string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", destinataire)
	m.SetHeader("Subject", sujet)
	m.SetBody("text/plain", corps)
	return s.dialer.DialAndSend(m)
}

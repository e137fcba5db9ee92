package email

import (
	"context"
	"errors"
	"strings"
)

// Kind identifica el tipo de aviso; viaja como cabecera para poder filtrarlo en el buzon.
type Kind string

const (
	KindWelcome        Kind = "welcome"
	KindAccountDeleted Kind = "account_deleted"
)

// Avisos que manda la aplicacion.
const (
	WelcomeSubject        = "Welcome to Notes"
	WelcomeBody           = "Your account was created. You are on the Free plan.\n"
	AccountDeletedSubject = "Your account was deleted"
	AccountDeletedBody    = "Your profile was deleted and you were signed out.\n"
)

// Notice es un aviso de cuenta en texto plano dirigido a una sola direccion.
type Notice struct {
	Kind    Kind
	To      string
	Subject string
	Body    string
}

func WelcomeNotice(to string) Notice {
	return Notice{Kind: KindWelcome, To: to, Subject: WelcomeSubject, Body: WelcomeBody}
}

func AccountDeletedNotice(to string) Notice {
	return Notice{Kind: KindAccountDeleted, To: to, Subject: AccountDeletedSubject, Body: AccountDeletedBody}
}

var (
	ErrNoRecipient = errors.New("notice has no recipient")
	ErrNoSubject   = errors.New("notice has no subject")
)

func (n Notice) validate() error {
	if strings.TrimSpace(n.To) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(n.Subject) == "" {
		return ErrNoSubject
	}
	return nil
}

// Sender entrega avisos de cuenta.
type Sender interface {
	Send(ctx context.Context, notice Notice) error
}

// ErrDisabled indica que no hay SMTP configurado; quien llama lo trata como no-op.
var ErrDisabled = errors.New("email sender disabled")

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ Notice) error {
	if s.reason == "" {
		return ErrDisabled
	}
	return errors.Join(ErrDisabled, errors.New(s.reason))
}

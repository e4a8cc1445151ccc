package cmd

import (
	"database/sql"
	"log/slog"
	"net"
	"net/http"
	"net/smtp"
	"time"

	"github.com/docuflow/docuflow/pkg/nodes/email"
	"github.com/docuflow/docuflow/pkg/registry"
)

// MailerConfig configures the SMTP sender used by email nodes. A zero Addr
// disables mail delivery.
type MailerConfig struct {
	Addr     string
	From     string
	Username string
	Password string
}

// NewRegistry builds the node registry with the builtin node set wired to
// the process-level resources.
func NewRegistry(logger *slog.Logger, db *sql.DB, mailer MailerConfig) *registry.Registry {
	reg := registry.NewRegistry()

	var sender email.Sender

	if mailer.Addr != "" {
		smtpSender := &email.SMTPSender{Addr: mailer.Addr, From: mailer.From}

		if mailer.Username != "" {
			host, _, err := net.SplitHostPort(mailer.Addr)
			if err != nil {
				host = mailer.Addr
			}

			smtpSender.Auth = smtp.PlainAuth("", mailer.Username, mailer.Password, host)
		}

		sender = smtpSender
	}

	err := registry.RegisterBuiltins(reg, registry.BuiltinDeps{
		DB:     db,
		Mailer: sender,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	})
	if err != nil {
		panic(err)
	}

	logger.Info("node registry initialized", "node_types", reg.Types())

	return reg
}

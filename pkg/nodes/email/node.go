// Package email provides the email dispatch node.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

const NodeType = "email"

// Sender delivers a rendered message to a list of recipients.
type Sender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPSender delivers mail through a plain SMTP endpoint.
type SMTPSender struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

func (s *SMTPSender) Send(_ context.Context, to []string, subject, body string) error {
	msg := strings.Builder{}
	msg.WriteString("From: " + s.From + "\r\n")
	msg.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	return smtp.SendMail(s.Addr, s.Auth, s.From, to, []byte(msg.String()))
}

// New creates an email node. Delivery failures are reported through the
// success output rather than failing the node.
func New(id string, config map[string]any, sender Sender) (*nodes.Action, error) {
	node := &nodes.Action{
		Base: nodes.NewBase(NodeType, id, config, map[string]nodes.InputSpec{
			"to_emails": {Type: nodes.TypeList, Description: "Recipient addresses", Required: true},
			"message":   {Type: nodes.TypeString, Description: "Message body", Required: true},
		}, map[string]nodes.OutputSpec{
			"success":       {Type: nodes.TypeBoolean, Description: "Whether delivery succeeded"},
			"message_count": {Type: nodes.TypeNumber, Description: "Number of recipients"},
		}),
	}

	subject := node.ConfigString("subject", "Workflow notification")

	node.Perform = func(ctx context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
		recipients, err := toRecipients(input["to_emails"])
		if err != nil {
			return nil, &nodes.ValidationError{NodeID: id, Input: "to_emails", Reason: err.Error()}
		}

		body, _ := input["message"].(string)

		if sender == nil {
			return map[string]any{
				"success":       false,
				"message_count": 0,
				"error":         "no mail sender configured",
			}, nil
		}

		if err := sender.Send(ctx, recipients, subject, body); err != nil {
			node.Logger.Error("email delivery failed", "recipients", len(recipients), "error", err)

			return map[string]any{
				"success":       false,
				"message_count": 0,
				"error":         err.Error(),
			}, nil
		}

		node.Logger.Info("email sent", "recipients", len(recipients))

		return map[string]any{
			"success":       true,
			"message_count": len(recipients),
		}, nil
	}

	return node, nil
}

func toRecipients(raw any) ([]string, error) {
	list, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			return strs, nil
		}

		return nil, fmt.Errorf("expected list of addresses, got %T", raw)
	}

	out := make([]string, 0, len(list))

	for _, entry := range list {
		s, ok := entry.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("invalid recipient entry %v", entry)
		}

		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("recipient list is empty")
	}

	return out, nil
}

// Factory registers the email node type.
type Factory struct {
	sender Sender
}

func NewFactory(sender Sender) *Factory {
	return &Factory{sender: sender}
}

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config, f.sender)
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "Send Email",
		Description: "Sends an email message to one or more recipients.",
		Inputs: map[string]models.PortSpec{
			"to_emails": {Type: "list", Description: "Recipient addresses", Required: true},
			"message":   {Type: "string", Description: "Message body", Required: true},
		},
		Outputs: map[string]models.PortSpec{
			"success":       {Type: "boolean", Description: "Whether delivery succeeded"},
			"message_count": {Type: "number", Description: "Number of recipients"},
		},
		ConfigSchema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"subject": {Type: "string", Default: "Workflow notification"},
			},
		},
	}
}

package ses

import (
	"context"
	"fmt"
	"hemnet-images/internal/core/domain"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Client - подмножество клиента SESv2, которое нужно адаптеру.
type Client interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// MailSenderAdapter отправляет готовое MIME-письмо через SES.
type MailSenderAdapter struct {
	client Client
}

func NewMailSenderAdapter(client Client) *MailSenderAdapter {
	return &MailSenderAdapter{client: client}
}

// SendRaw передает письмо как есть, отправитель и получатели задаются явно.
func (a *MailSenderAdapter) SendRaw(ctx context.Context, from string, to []string, raw []byte) error {
	out, err := a.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: to},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	})
	if err != nil {
		return domain.NewError(domain.KindSend, "ses send email", fmt.Errorf("ses adapter: SendEmail: %w", err))
	}

	slog.InfoContext(ctx, "SESAdapter: message accepted",
		slog.String("message_id", aws.ToString(out.MessageId)),
		slog.Int("recipients", len(to)),
	)
	return nil
}

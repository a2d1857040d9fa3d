package port

import (
	"context"
	"hemnet-images/internal/core/domain"
)

// MessageComposerPort собирает исходящее письмо из входящего и изображений.
type MessageComposerPort interface {
	Compose(inbound domain.InboundMessage, images []domain.Image, from string, to []string) ([]byte, error)
}

// MailSenderPort отправляет готовое MIME-сообщение.
type MailSenderPort interface {
	SendRaw(ctx context.Context, from string, to []string, raw []byte) error
}

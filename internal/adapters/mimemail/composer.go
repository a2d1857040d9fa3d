package mimemail

import (
	"bytes"
	"fmt"
	"hemnet-images/internal/constants"
	"hemnet-images/internal/core/domain"
	"html"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
)

// Composer собирает ответное письмо: HTML и тема из входящего письма,
// фотографии объекта встроены как image1.jpg, image2.jpg, ...
type Composer struct {
	defaultSubject string
}

func NewComposer() *Composer {
	return &Composer{defaultSubject: constants.DefaultSubject}
}

// ParsedInbound - то, что удалось достать из входящего письма.
type ParsedInbound struct {
	Subject string
	HTML    string
}

// ParseInbound разбирает сырое письмо. Если HTML-части нет, текстовая часть
// оборачивается в <pre>.
func ParseInbound(msg domain.InboundMessage) (ParsedInbound, error) {
	env, err := enmime.ReadEnvelope(strings.NewReader(msg.Content))
	if err != nil {
		return ParsedInbound{}, fmt.Errorf("mimemail: parse inbound message: %w", err)
	}

	parsed := ParsedInbound{
		Subject: env.GetHeader("Subject"),
		HTML:    env.HTML,
	}
	if parsed.Subject == "" {
		parsed.Subject = msg.Subject
	}
	if parsed.HTML == "" && env.Text != "" {
		parsed.HTML = "<pre>" + html.EscapeString(env.Text) + "</pre>"
	}
	return parsed, nil
}

// Compose возвращает готовое к отправке MIME-письмо.
func (c *Composer) Compose(inbound domain.InboundMessage, images []domain.Image, from string, to []string) ([]byte, error) {
	parsed, err := ParseInbound(inbound)
	if err != nil {
		return nil, domain.NewError(domain.KindSend, "compose message", err)
	}
	subject := parsed.Subject
	if subject == "" {
		subject = c.defaultSubject
	}

	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, domain.NewError(domain.KindSend, "compose message", fmt.Errorf("bad sender %q: %w", from, err))
	}
	recipients := make([]mail.Address, 0, len(to))
	for _, addr := range to {
		parsedAddr, err := mail.ParseAddress(addr)
		if err != nil {
			return nil, domain.NewError(domain.KindSend, "compose message", fmt.Errorf("bad recipient %q: %w", addr, err))
		}
		recipients = append(recipients, *parsedAddr)
	}

	builder := enmime.Builder().
		From(sender.Name, sender.Address).
		Subject(subject).
		ToAddrs(recipients).
		HTML([]byte(parsed.HTML))

	for i, image := range images {
		name := fmt.Sprintf("image%d.jpg", i+1)
		builder = builder.AddInline(image.Data, "image/jpeg", name, name)
	}

	root, err := builder.Build()
	if err != nil {
		return nil, domain.NewError(domain.KindSend, "compose message", fmt.Errorf("mimemail: build: %w", err))
	}

	var buf bytes.Buffer
	if err := root.Encode(&buf); err != nil {
		return nil, domain.NewError(domain.KindSend, "compose message", fmt.Errorf("mimemail: encode: %w", err))
	}
	return buf.Bytes(), nil
}

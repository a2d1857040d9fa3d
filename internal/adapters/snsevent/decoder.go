package snsevent

import (
	"encoding/json"
	"fmt"
	"hemnet-images/internal/core/domain"

	"github.com/aws/aws-lambda-go/events"
)

// sesNotification - уведомление SES о входящем письме, которое приходит в теле SNS-сообщения.
type sesNotification struct {
	Mail struct {
		CommonHeaders struct {
			Subject string `json:"subject"`
		} `json:"commonHeaders"`
	} `json:"mail"`
	Content string `json:"content"`
}

// Decode превращает каждую запись SNS в InboundMessage.
func Decode(event events.SNSEvent) ([]domain.InboundMessage, error) {
	if len(event.Records) == 0 {
		return nil, fmt.Errorf("snsevent: event has no records")
	}

	messages := make([]domain.InboundMessage, 0, len(event.Records))
	for i, record := range event.Records {
		msg, err := DecodeMessage([]byte(record.SNS.Message))
		if err != nil {
			return nil, fmt.Errorf("snsevent: record %d: %w", i, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// DecodeMessage разбирает тело одного уведомления SES.
func DecodeMessage(body []byte) (domain.InboundMessage, error) {
	var notification sesNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return domain.InboundMessage{}, fmt.Errorf("invalid SES notification: %w", err)
	}
	if notification.Content == "" {
		return domain.InboundMessage{}, fmt.Errorf("SES notification has no content")
	}
	return domain.InboundMessage{
		Subject: notification.Mail.CommonHeaders.Subject,
		Content: notification.Content,
	}, nil
}

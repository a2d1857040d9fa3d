package usecase

import (
	"context"
	"errors"
	"fmt"
	"hemnet-images/internal/core/domain"
	"hemnet-images/internal/core/port"
	"log/slog"
	"time"
)

// SendResult - что было отправлено в ответ на уведомление.
type SendResult struct {
	PropertyID string   `json:"property_id"`
	ImageIDs   []string `json:"image_ids"`
	Recipients []string `json:"recipients"`
}

// SendImagesUseCase собирает письмо с фотографиями объекта и отправляет его.
type SendImagesUseCase struct {
	storage  port.PropertyStoragePort
	blobs    port.BlobStoragePort
	composer port.MessageComposerPort
	mailer   port.MailSenderPort
	from     string
	to       []string
	timeout  time.Duration
}

// NewSendImagesUseCase создает новый экземпляр use case. Нужен хотя бы один получатель.
func NewSendImagesUseCase(
	storage port.PropertyStoragePort,
	blobs port.BlobStoragePort,
	composer port.MessageComposerPort,
	mailer port.MailSenderPort,
	from string,
	to []string,
	timeout time.Duration,
) (*SendImagesUseCase, error) {
	if from == "" {
		return nil, errors.New("send images: from address is required")
	}
	if len(to) == 0 {
		return nil, errors.New("send images: at least one recipient is required")
	}
	return &SendImagesUseCase{
		storage:  storage,
		blobs:    blobs,
		composer: composer,
		mailer:   mailer,
		from:     from,
		to:       append([]string(nil), to...),
		timeout:  timeout,
	}, nil
}

// Execute обрабатывает одно входящее письмо. Любая ошибка окончательна для этого письма.
func (uc *SendImagesUseCase) Execute(ctx context.Context, msg domain.InboundMessage) (*SendResult, error) {
	propertyID, err := ExtractPropertyID(msg.Content)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "SendImages: resolved property", slog.String("property_id", propertyID))

	getCtx, cancel := withTimeout(ctx, uc.timeout)
	record, err := uc.storage.Get(getCtx, propertyID)
	cancel()
	if errors.Is(err, domain.ErrPropertyNotFound) {
		return nil, domain.NewError(domain.KindUnknownProperty, "lookup property "+propertyID, err)
	}
	if err != nil {
		return nil, domain.EnsureKind(err, domain.KindStoreRead, "lookup property "+propertyID)
	}

	images := make([]domain.Image, 0, len(record.ImageIDs))
	for _, imageID := range record.ImageIDs {
		blobCtx, cancel := withTimeout(ctx, uc.timeout)
		data, err := uc.blobs.Get(blobCtx, imageID)
		cancel()
		if err != nil {
			return nil, domain.NewError(domain.KindImageRetrieval, fmt.Sprintf("retrieve image %s of property %s", imageID, propertyID), err)
		}
		images = append(images, domain.Image{ID: imageID, Data: data})
	}

	raw, err := uc.composer.Compose(msg, images, uc.from, uc.to)
	if err != nil {
		return nil, domain.EnsureKind(err, domain.KindSend, "compose message")
	}

	sendCtx, cancel := withTimeout(ctx, uc.timeout)
	defer cancel()
	if err := uc.mailer.SendRaw(sendCtx, uc.from, uc.to, raw); err != nil {
		return nil, domain.EnsureKind(err, domain.KindSend, "send message")
	}

	slog.InfoContext(ctx, "SendImages: email sent",
		slog.String("property_id", propertyID),
		slog.Int("images", len(images)),
		slog.Int("recipients", len(uc.to)),
	)
	return &SendResult{
		PropertyID: propertyID,
		ImageIDs:   append([]string(nil), record.ImageIDs...),
		Recipients: append([]string(nil), uc.to...),
	}, nil
}

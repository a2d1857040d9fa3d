package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"hemnet-images/internal/core/domain"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	propertyIDAttribute = "PropertyId"

	// Предел BatchGetItem на один запрос.
	batchGetLimit = 100
	// Сколько раз переотправлять UnprocessedKeys, прежде чем сдаться.
	maxUnprocessedRounds = 5
)

// Client - подмножество клиента DynamoDB, которое нужно адаптеру.
type Client interface {
	BatchGetItem(ctx context.Context, params *ddb.BatchGetItemInput, optFns ...func(*ddb.Options)) (*ddb.BatchGetItemOutput, error)
	GetItem(ctx context.Context, params *ddb.GetItemInput, optFns ...func(*ddb.Options)) (*ddb.GetItemOutput, error)
	PutItem(ctx context.Context, params *ddb.PutItemInput, optFns ...func(*ddb.Options)) (*ddb.PutItemOutput, error)
}

// propertyItem - запись в таблице. ImageIds хранится списком (L), чтобы сохранить порядок.
type propertyItem struct {
	PropertyID    string   `dynamodbav:"PropertyId"`
	ListingID     int64    `dynamodbav:"ListingId"`
	StreetAddress string   `dynamodbav:"StreetAddress,omitempty"`
	ImageIDs      []string `dynamodbav:"ImageIds"`
}

// PropertyStorageAdapter хранит PropertyRecord в DynamoDB, ключ - PropertyId.
type PropertyStorageAdapter struct {
	client    Client
	tableName string
}

// NewPropertyStorageAdapter создает адаптер для таблицы tableName.
func NewPropertyStorageAdapter(client Client, tableName string) *PropertyStorageAdapter {
	return &PropertyStorageAdapter{client: client, tableName: tableName}
}

// ExistingPropertyIDs возвращает подмножество ids, которое уже есть в таблице.
// Недообработанные ключи переотправляются; если они так и не обработаны, это ошибка,
// а не "ключа нет".
func (a *PropertyStorageAdapter) ExistingPropertyIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	const op = "batch get properties"
	existing := make(map[string]struct{}, len(ids))

	for start := 0; start < len(ids); start += batchGetLimit {
		end := min(start+batchGetLimit, len(ids))

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, map[string]types.AttributeValue{
				propertyIDAttribute: &types.AttributeValueMemberS{Value: id},
			})
		}

		if err := a.batchGet(ctx, keys, existing); err != nil {
			return nil, domain.NewError(domain.KindStoreQuery, op, err)
		}
	}
	return existing, nil
}

func (a *PropertyStorageAdapter) batchGet(ctx context.Context, keys []map[string]types.AttributeValue, existing map[string]struct{}) error {
	request := map[string]types.KeysAndAttributes{
		a.tableName: {
			Keys:                 keys,
			ProjectionExpression: aws.String(propertyIDAttribute),
		},
	}

	for round := 0; ; round++ {
		out, err := a.client.BatchGetItem(ctx, &ddb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return fmt.Errorf("dynamodb adapter: BatchGetItem: %w", err)
		}

		items, ok := out.Responses[a.tableName]
		if !ok {
			return fmt.Errorf("dynamodb adapter: table %s missing from BatchGetItem response", a.tableName)
		}
		for _, item := range items {
			attr, ok := item[propertyIDAttribute].(*types.AttributeValueMemberS)
			if !ok {
				return fmt.Errorf("dynamodb adapter: %s is not a string attribute", propertyIDAttribute)
			}
			existing[attr.Value] = struct{}{}
		}

		pending, ok := out.UnprocessedKeys[a.tableName]
		if !ok || len(pending.Keys) == 0 {
			return nil
		}
		if round+1 >= maxUnprocessedRounds {
			return fmt.Errorf("dynamodb adapter: %d keys left unprocessed after %d rounds", len(pending.Keys), maxUnprocessedRounds)
		}
		slog.WarnContext(ctx, "DynamoDBAdapter: resubmitting unprocessed keys", slog.Int("keys", len(pending.Keys)))
		request = out.UnprocessedKeys
	}
}

// Save перезаписывает запись целиком.
func (a *PropertyStorageAdapter) Save(ctx context.Context, record domain.PropertyRecord) error {
	op := "put property " + record.PropertyID

	imageIDs := record.ImageIDs
	if imageIDs == nil {
		imageIDs = []string{}
	}
	item, err := attributevalue.MarshalMap(propertyItem{
		PropertyID:    record.PropertyID,
		ListingID:     record.ListingID,
		StreetAddress: record.StreetAddress,
		ImageIDs:      imageIDs,
	})
	if err != nil {
		return domain.NewError(domain.KindStoreWrite, op, err)
	}

	_, err = a.client.PutItem(ctx, &ddb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      item,
	})
	if err != nil {
		return domain.NewError(domain.KindStoreWrite, op, fmt.Errorf("dynamodb adapter: PutItem: %w", err))
	}
	return nil
}

// Get возвращает domain.ErrPropertyNotFound, если записи нет.
func (a *PropertyStorageAdapter) Get(ctx context.Context, propertyID string) (*domain.PropertyRecord, error) {
	op := "get property " + propertyID

	out, err := a.client.GetItem(ctx, &ddb.GetItemInput{
		TableName: aws.String(a.tableName),
		Key: map[string]types.AttributeValue{
			propertyIDAttribute: &types.AttributeValueMemberS{Value: propertyID},
		},
	})
	if err != nil {
		return nil, domain.NewError(domain.KindStoreRead, op, fmt.Errorf("dynamodb adapter: GetItem: %w", err))
	}
	if out.Item == nil {
		return nil, domain.ErrPropertyNotFound
	}

	var item propertyItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, domain.NewError(domain.KindStoreRead, op, err)
	}
	if item.PropertyID == "" {
		return nil, domain.NewError(domain.KindStoreRead, op, errors.New("item has no PropertyId"))
	}

	return &domain.PropertyRecord{
		PropertyID:    item.PropertyID,
		ListingID:     item.ListingID,
		StreetAddress: item.StreetAddress,
		ImageIDs:      item.ImageIDs,
	}, nil
}

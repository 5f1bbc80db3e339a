// Package dynamo implements the thing store on DynamoDB, the production
// counterpart of the in-memory repository.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nsplab/thing-service/internal/domain"
	"github.com/nsplab/thing-service/internal/pkg/jsontime"
)

// ThingRepo provides typed DynamoDB operations for the things table.
type ThingRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewThingRepo(client *dynamodb.Client, tableName string) *ThingRepo {
	return &ThingRepo{client: client, tableName: tableName}
}

func (r *ThingRepo) Create(ctx context.Context, t domain.Thing) (domain.Thing, error) {
	return r.put(ctx, t)
}

func (r *ThingRepo) Update(ctx context.Context, t domain.Thing) (domain.Thing, error) {
	return r.put(ctx, t)
}

func (r *ThingRepo) put(ctx context.Context, t domain.Thing) (domain.Thing, error) {
	item, err := attributevalue.MarshalMap(map[string]any(t))
	if err != nil {
		return nil, fmt.Errorf("marshal thing: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *ThingRepo) Get(ctx context.Context, uuid string) (domain.Thing, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("uuid", uuid),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	return unmarshalThing(out.Item)
}

func (r *ThingRepo) Delete(ctx context.Context, uuid string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("uuid", uuid),
	})
	return err
}

func (r *ThingRepo) List(ctx context.Context, ownerFilter *string) ([]domain.Thing, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
	if ownerFilter != nil {
		input.FilterExpression = aws.String("#o = :owner")
		input.ExpressionAttributeNames = map[string]string{"#o": "owner"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: *ownerFilter},
		}
	}
	var things []domain.Thing
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			t, err := unmarshalThing(item)
			if err != nil {
				return nil, err
			}
			things = append(things, t)
		}
	}
	return things, nil
}

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// unmarshalThing decodes an item back into a Thing. attributevalue encodes
// time.Time values as RFC-3339 strings, so datetime leaves are restored with
// the jsontime rewrite after unmarshalling.
func unmarshalThing(item map[string]types.AttributeValue) (domain.Thing, error) {
	var raw map[string]any
	if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
		return nil, err
	}
	jsontime.Rewrite(raw)
	return domain.Thing(raw), nil
}

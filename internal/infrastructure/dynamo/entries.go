package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-steps-nosql/internal/config"
	"github.com/go-steps-nosql/internal/domain"
)

// guardRetention is how long a daily guard outlives the start of its day before TTL removes it.
const guardRetention = 48 * time.Hour

// EntryRepo provides typed DynamoDB operations for step entries.
// Entries: PK user_id, SK record_id. Daily guards: PK user_id, SK day. Totals: PK counter_id.
type EntryRepo struct {
	client API
	tables config.DynamoTables
}

func NewEntryRepo(client API, tables config.DynamoTables) *EntryRepo {
	return &EntryRepo{client: client, tables: tables}
}

// Put unconditionally writes e at (user_id, record_id).
func (r *EntryRepo) Put(ctx context.Context, e *domain.Entry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tables.Entries),
		Item:      item,
	})
	if err != nil {
		return storageErr("put entry", err)
	}
	return nil
}

// QueryByUserSince returns the user's entries with timestamp strictly greater than sinceMs.
// All result pages are read.
func (r *EntryRepo) QueryByUserSince(ctx context.Context, userID string, sinceMs int64) ([]domain.Entry, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.Entries),
		KeyConditionExpression: aws.String("user_id = :uid"),
		FilterExpression:       aws.String("#ts > :since"),
		ExpressionAttributeNames: map[string]string{
			"#ts": fieldTimestamp,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":   &types.AttributeValueMemberS{Value: userID},
			":since": numValue(sinceMs),
		},
	})
	var entries []domain.Entry
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, storageErr("query entries", err)
		}
		for _, item := range out.Items {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

// ScanAll reads every entry in the table, following LastEvaluatedKey until exhausted.
// The first item that fails to decode aborts the scan.
func (r *EntryRepo) ScanAll(ctx context.Context) ([]domain.Entry, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.tables.Entries),
	})
	var entries []domain.Entry
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, storageErr("scan entries", err)
		}
		for _, item := range out.Items {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

// PutFirstOfDay writes e only if the user has no guard for e's UTC day. The guard,
// the entry and the running-total increment commit in one transaction.
func (r *EntryRepo) PutFirstOfDay(ctx context.Context, e *domain.Entry) error {
	ts := time.UnixMilli(e.Timestamp)
	day := domain.DayUTC(ts)

	entryItem, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	guardItem, err := attributevalue.MarshalMap(domain.DailyGuard{
		UserID:    e.UserID,
		Day:       day,
		RecordID:  e.RecordID,
		ExpiresAt: domain.StartOfDayUTC(ts).Add(guardRetention).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal daily guard: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tables.DailyGuards),
				Item:                guardItem,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			{Put: &types.Put{
				TableName: aws.String(r.tables.Entries),
				Item:      entryItem,
			}},
			{Update: &types.Update{
				TableName:        aws.String(r.tables.Totals),
				Key:              strKey(fieldCounterID, globalCounterID),
				UpdateExpression: aws.String("ADD #total :n SET #updated = :ts"),
				ExpressionAttributeNames: map[string]string{
					"#total":   fieldTotalSteps,
					"#updated": fieldUpdatedAt,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":n":  numValue(e.StepCount),
					":ts": numValue(e.Timestamp),
				},
			}},
		},
	})
	if err != nil {
		if guardRejected(err) {
			return fmt.Errorf("user %s on %s: %w", e.UserID, day, domain.ErrAlreadySubmittedToday)
		}
		return storageErr("transact put entry", err)
	}
	return nil
}

// RunningTotal reads the counter maintained by PutFirstOfDay. A missing counter is a zero total.
func (r *EntryRepo) RunningTotal(ctx context.Context) (*domain.Total, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Totals),
		Key:            strKey(fieldCounterID, globalCounterID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storageErr("get running total", err)
	}
	var t domain.Total
	if out.Item == nil {
		return &t, nil
	}
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, fmt.Errorf("running total: %w: %w", domain.ErrMalformedEntry, err)
	}
	return &t, nil
}

// guardRejected reports whether a cancelled transaction failed on the daily guard
// (always the first transact item).
func guardRejected(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) || len(tce.CancellationReasons) == 0 {
		return false
	}
	return aws.ToString(tce.CancellationReasons[0].Code) == conditionalCheckFailed
}

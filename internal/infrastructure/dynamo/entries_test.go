package dynamo

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-steps-nosql/internal/config"
	"github.com/go-steps-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake ---

type page = []map[string]types.AttributeValue

// fakeAPI serves pre-baked result pages, using a "page" attribute as the
// LastEvaluatedKey cursor, and records every input it receives.
type fakeAPI struct {
	mu sync.Mutex

	scanPages  []page
	queryPages []page
	getItem    map[string]types.AttributeValue

	scanErr     error
	queryErr    error
	putErr      error
	getErr      error
	transactErr error

	scanInputs     []*dynamodb.ScanInput
	queryInputs    []*dynamodb.QueryInput
	putInputs      []*dynamodb.PutItemInput
	transactInputs []*dynamodb.TransactWriteItemsInput
}

func cursorOf(key map[string]types.AttributeValue) int {
	if key == nil {
		return 0
	}
	n, _ := strconv.Atoi(key["page"].(*types.AttributeValueMemberS).Value)
	return n
}

func nextCursor(i int, pages []page) map[string]types.AttributeValue {
	if i+1 >= len(pages) {
		return nil
	}
	return map[string]types.AttributeValue{"page": &types.AttributeValueMemberS{Value: strconv.Itoa(i + 1)}}
}

func pageAt(i int, pages []page) page {
	if i >= len(pages) {
		return nil
	}
	return pages[i]
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanInputs = append(f.scanInputs, in)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	i := cursorOf(in.ExclusiveStartKey)
	return &dynamodb.ScanOutput{Items: pageAt(i, f.scanPages), LastEvaluatedKey: nextCursor(i, f.scanPages)}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryInputs = append(f.queryInputs, in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	i := cursorOf(in.ExclusiveStartKey)
	return &dynamodb.QueryOutput{Items: pageAt(i, f.queryPages), LastEvaluatedKey: nextCursor(i, f.queryPages)}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putInputs = append(f.putInputs, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.getItem}, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactInputs = append(f.transactInputs, in)
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

var testTables = config.DynamoTables{Entries: "entries", DailyGuards: "guards", Totals: "totals"}

func newRepo(f *fakeAPI) *EntryRepo { return NewEntryRepo(f, testTables) }

// --- Put ---

func TestPut_MarshalsEntry(t *testing.T) {
	f := &fakeAPI{}
	e := &domain.Entry{UserID: "u1", RecordID: "r1", Timestamp: 1700000000123, StepCount: 8000}

	require.NoError(t, newRepo(f).Put(context.Background(), e))
	require.Len(t, f.putInputs, 1)
	in := f.putInputs[0]
	assert.Equal(t, "entries", aws.ToString(in.TableName))
	assert.Nil(t, in.ConditionExpression)

	decoded, err := decodeEntry(in.Item)
	require.NoError(t, err)
	assert.Equal(t, *e, *decoded)
}

func TestPut_StorageError(t *testing.T) {
	cause := errors.New("AccessDenied")
	f := &fakeAPI{putErr: cause}
	err := newRepo(f).Put(context.Background(), &domain.Entry{UserID: "u1", RecordID: "r1"})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, cause)
}

// --- QueryByUserSince ---

func TestQueryByUserSince_StrictFilterAndPagination(t *testing.T) {
	f := &fakeAPI{queryPages: []page{
		{entryItem("u1", "r1", "200", "10")},
		{},
		{entryItem("u1", "r2", "300", "20")},
	}}

	got, err := newRepo(f).QueryByUserSince(context.Background(), "u1", 123)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Len(t, f.queryInputs, 3)

	in := f.queryInputs[0]
	assert.Equal(t, "user_id = :uid", aws.ToString(in.KeyConditionExpression))
	assert.Equal(t, "#ts > :since", aws.ToString(in.FilterExpression))
	assert.Equal(t, "timestamp", in.ExpressionAttributeNames["#ts"])
	assert.Equal(t, "u1", in.ExpressionAttributeValues[":uid"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "123", in.ExpressionAttributeValues[":since"].(*types.AttributeValueMemberN).Value)
}

func TestQueryByUserSince_Empty(t *testing.T) {
	got, err := newRepo(&fakeAPI{}).QueryByUserSince(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryByUserSince_StorageError(t *testing.T) {
	f := &fakeAPI{queryErr: errors.New("ProvisionedThroughputExceeded")}
	_, err := newRepo(f).QueryByUserSince(context.Background(), "u1", 0)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

// --- ScanAll ---

func TestScanAll_ReadsEveryPage(t *testing.T) {
	f := &fakeAPI{scanPages: []page{
		{entryItem("a", "1", "1", "100"), entryItem("b", "2", "2", "250")},
		{entryItem("c", "3", "3", "5")},
		{entryItem("d", "4", "4", "45")},
	}}

	got, err := newRepo(f).ScanAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Len(t, f.scanInputs, 3)
	assert.Nil(t, f.scanInputs[0].ExclusiveStartKey)
	assert.Equal(t, "2", f.scanInputs[2].ExclusiveStartKey["page"].(*types.AttributeValueMemberS).Value)
}

func TestScanAll_MalformedItemAborts(t *testing.T) {
	bad := entryItem("b", "2", "2", "1")
	delete(bad, fieldTimestamp)
	f := &fakeAPI{scanPages: []page{
		{entryItem("a", "1", "1", "100")},
		{bad},
		{entryItem("c", "3", "3", "5")},
	}}

	got, err := newRepo(f).ScanAll(context.Background())
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrMalformedEntry)
	assert.Len(t, f.scanInputs, 2, "scan must stop at the malformed page")
}

func TestScanAll_StorageError(t *testing.T) {
	f := &fakeAPI{scanErr: errors.New("timeout")}
	_, err := newRepo(f).ScanAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrMalformedEntry)
}

// --- PutFirstOfDay ---

func TestPutFirstOfDay_Transaction(t *testing.T) {
	f := &fakeAPI{}
	ts := time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC)
	e := &domain.Entry{UserID: "u1", RecordID: "r1", Timestamp: ts.UnixMilli(), StepCount: 700}

	require.NoError(t, newRepo(f).PutFirstOfDay(context.Background(), e))
	require.Len(t, f.transactInputs, 1)
	items := f.transactInputs[0].TransactItems
	require.Len(t, items, 3)

	guard := items[0].Put
	require.NotNil(t, guard)
	assert.Equal(t, "guards", aws.ToString(guard.TableName))
	assert.Equal(t, "attribute_not_exists(user_id)", aws.ToString(guard.ConditionExpression))
	assert.Equal(t, "2024-05-06", guard.Item[fieldDay].(*types.AttributeValueMemberS).Value)
	expires := time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, strconv.FormatInt(expires, 10), guard.Item[fieldExpiresAt].(*types.AttributeValueMemberN).Value)

	entry := items[1].Put
	require.NotNil(t, entry)
	assert.Equal(t, "entries", aws.ToString(entry.TableName))
	decoded, err := decodeEntry(entry.Item)
	require.NoError(t, err)
	assert.Equal(t, *e, *decoded)

	counter := items[2].Update
	require.NotNil(t, counter)
	assert.Equal(t, "totals", aws.ToString(counter.TableName))
	assert.Equal(t, "700", counter.ExpressionAttributeValues[":n"].(*types.AttributeValueMemberN).Value)
}

func TestPutFirstOfDay_GuardConflict(t *testing.T) {
	f := &fakeAPI{transactErr: &types.TransactionCanceledException{
		Message: aws.String("Transaction cancelled"),
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("ConditionalCheckFailed")},
			{Code: aws.String("None")},
			{Code: aws.String("None")},
		},
	}}
	err := newRepo(f).PutFirstOfDay(context.Background(), &domain.Entry{UserID: "u1", RecordID: "r1", Timestamp: 1})
	assert.ErrorIs(t, err, domain.ErrAlreadySubmittedToday)
	assert.NotErrorIs(t, err, domain.ErrStorage)
}

func TestPutFirstOfDay_OtherCancellation(t *testing.T) {
	f := &fakeAPI{transactErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ThrottlingError")},
			{Code: aws.String("None")},
		},
	}}
	err := newRepo(f).PutFirstOfDay(context.Background(), &domain.Entry{UserID: "u1", RecordID: "r1", Timestamp: 1})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrAlreadySubmittedToday)
}

// --- RunningTotal ---

func TestRunningTotal_Missing(t *testing.T) {
	got, err := newRepo(&fakeAPI{}).RunningTotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Total{}, *got)
}

func TestRunningTotal_Present(t *testing.T) {
	f := &fakeAPI{getItem: map[string]types.AttributeValue{
		fieldCounterID:  &types.AttributeValueMemberS{Value: globalCounterID},
		fieldTotalSteps: &types.AttributeValueMemberN{Value: "355"},
		fieldUpdatedAt:  &types.AttributeValueMemberN{Value: "1700000000000"},
	}}
	got, err := newRepo(f).RunningTotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Total{TotalSteps: 355, ComputedAtMs: 1700000000000}, *got)
}

func TestRunningTotal_StorageError(t *testing.T) {
	_, err := newRepo(&fakeAPI{getErr: errors.New("boom")}).RunningTotal(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
}

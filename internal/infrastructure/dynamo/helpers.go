package dynamo

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-steps-nosql/internal/domain"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

func numValue(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

// storageErr tags a failed store call with ErrStorage while keeping the cause.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

// decodeEntry strictly decodes a stored item. attributevalue zero-fills missing
// attributes, so presence and type are checked first.
func decodeEntry(item map[string]types.AttributeValue) (*domain.Entry, error) {
	for _, name := range []string{fieldUserID, fieldRecordID} {
		if _, ok := item[name].(*types.AttributeValueMemberS); !ok {
			return nil, fmt.Errorf("attribute %q missing or not a string: %w", name, domain.ErrMalformedEntry)
		}
	}
	for _, name := range []string{fieldTimestamp, fieldStepCount} {
		if _, ok := item[name].(*types.AttributeValueMemberN); !ok {
			return nil, fmt.Errorf("attribute %q missing or not a number: %w", name, domain.ErrMalformedEntry)
		}
	}
	var e domain.Entry
	if err := attributevalue.UnmarshalMap(item, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedEntry, err)
	}
	if e.StepCount < 0 {
		return nil, fmt.Errorf("negative step_count on %s/%s: %w", e.UserID, e.RecordID, domain.ErrMalformedEntry)
	}
	return &e, nil
}

package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// InMemoryDynamoDB is a single-table DynamoDB stand-in for repository tests.
// It evaluates the small expression dialect the repositories emit: equality,
// begins_with, contains, range comparisons on string attributes, AND chains,
// #name aliases and :value placeholders.
type InMemoryDynamoDB struct {
	mu    sync.Mutex
	items map[string]map[string]ddbtypes.AttributeValue
}

func NewInMemoryDynamoDB() *InMemoryDynamoDB {
	return &InMemoryDynamoDB{
		items: map[string]map[string]ddbtypes.AttributeValue{},
	}
}

func (d *InMemoryDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	item, ok := d.items[itemKey(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (d *InMemoryDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.items[itemKey(params.Item)] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (d *InMemoryDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	item, ok := d.items[itemKey(params.Key)]
	if !ok && params.ConditionExpression != nil {
		return nil, &ddbtypes.ConditionalCheckFailedException{
			Message: aws.String("The conditional request failed"),
		}
	}
	if !ok {
		item = copyItem(params.Key)
		d.items[itemKey(params.Key)] = item
	}

	applySet(item, aws.ToString(params.UpdateExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)

	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (d *InMemoryDynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.items, itemKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (d *InMemoryDynamoDB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pkAttr, skAttr := indexKeys(aws.ToString(params.IndexName))

	var matched []map[string]ddbtypes.AttributeValue
	for _, item := range d.items {
		if stringField(item, pkAttr) == "" {
			continue
		}
		if evalExpression(aws.ToString(params.KeyConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, item) {
			matched = append(matched, item)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := stringField(matched[i], skAttr), stringField(matched[j], skAttr)
		if a != b {
			return a < b
		}
		return stringField(matched[i], "PK") < stringField(matched[j], "PK")
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		reverse(matched)
	}

	matched = skipPast(matched, params.ExclusiveStartKey)

	items, lastKey := page(matched, params.Limit, pkAttr, skAttr)
	return &dynamodb.QueryOutput{
		Items:            items,
		Count:            int32(len(items)),
		LastEvaluatedKey: lastKey,
	}, nil
}

func (d *InMemoryDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	all := make([]map[string]ddbtypes.AttributeValue, 0, len(d.items))
	for _, item := range d.items {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool {
		return stringField(all[i], "PK") < stringField(all[j], "PK")
	})

	all = skipPast(all, params.ExclusiveStartKey)

	// The limit bounds items examined, not items matched, so it is applied
	// before the filter expression.
	examined, lastKey := page(all, params.Limit, "", "")

	var matched []map[string]ddbtypes.AttributeValue
	for _, item := range examined {
		if params.FilterExpression == nil ||
			evalExpression(aws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, item) {
			matched = append(matched, item)
		}
	}

	out := &dynamodb.ScanOutput{
		Count:            int32(len(matched)),
		ScannedCount:     int32(len(examined)),
		LastEvaluatedKey: lastKey,
	}
	if params.Select != ddbtypes.SelectCount {
		out.Items = matched
	}
	return out, nil
}

func indexKeys(index string) (string, string) {
	if index == "" {
		return "PK", "SK"
	}
	return index + "PK", index + "SK"
}

func itemKey(item map[string]ddbtypes.AttributeValue) string {
	return stringField(item, "PK") + "|" + stringField(item, "SK")
}

func stringField(item map[string]ddbtypes.AttributeValue, attr string) string {
	if v, ok := item[attr].(*ddbtypes.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func copyItem(item map[string]ddbtypes.AttributeValue) map[string]ddbtypes.AttributeValue {
	out := make(map[string]ddbtypes.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func reverse(items []map[string]ddbtypes.AttributeValue) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// skipPast drops everything up to and including the exclusive start key.
func skipPast(items []map[string]ddbtypes.AttributeValue, startKey map[string]ddbtypes.AttributeValue) []map[string]ddbtypes.AttributeValue {
	if len(startKey) == 0 {
		return items
	}
	key := itemKey(startKey)
	for i, item := range items {
		if itemKey(item) == key {
			return items[i+1:]
		}
	}
	return items
}

func page(items []map[string]ddbtypes.AttributeValue, limit *int32, pkAttr, skAttr string) ([]map[string]ddbtypes.AttributeValue, map[string]ddbtypes.AttributeValue) {
	if limit == nil || int(*limit) >= len(items) {
		out := make([]map[string]ddbtypes.AttributeValue, len(items))
		for i, item := range items {
			out[i] = copyItem(item)
		}
		return out, nil
	}

	n := int(*limit)
	out := make([]map[string]ddbtypes.AttributeValue, n)
	for i := 0; i < n; i++ {
		out[i] = copyItem(items[i])
	}

	last := items[n-1]
	lastKey := map[string]ddbtypes.AttributeValue{
		"PK": last["PK"],
		"SK": last["SK"],
	}
	if pkAttr != "" && pkAttr != "PK" {
		lastKey[pkAttr] = last[pkAttr]
		lastKey[skAttr] = last[skAttr]
	}
	return out, lastKey
}

func applySet(item map[string]ddbtypes.AttributeValue, expr string, names map[string]string, values map[string]ddbtypes.AttributeValue) {
	expr = strings.TrimPrefix(expr, "SET ")
	for _, assignment := range strings.Split(expr, ", ") {
		parts := strings.SplitN(assignment, " = ", 2)
		attr := resolveName(strings.TrimSpace(parts[0]), names)
		item[attr] = values[strings.TrimSpace(parts[1])]
	}
}

func evalExpression(expr string, names map[string]string, values map[string]ddbtypes.AttributeValue, item map[string]ddbtypes.AttributeValue) bool {
	for _, clause := range strings.Split(expr, " AND ") {
		if !evalClause(strings.TrimSpace(clause), names, values, item) {
			return false
		}
	}
	return true
}

func evalClause(clause string, names map[string]string, values map[string]ddbtypes.AttributeValue, item map[string]ddbtypes.AttributeValue) bool {
	switch {
	case strings.HasPrefix(clause, "begins_with("):
		attr, val := parseFunc(clause, "begins_with", names, values)
		return strings.HasPrefix(stringField(item, attr), val)
	case strings.HasPrefix(clause, "contains("):
		attr, val := parseFunc(clause, "contains", names, values)
		return strings.Contains(stringField(item, attr), val)
	case strings.Contains(clause, " >= "):
		attr, val := parseBinary(clause, " >= ", names, values)
		return stringField(item, attr) >= val
	case strings.Contains(clause, " <= "):
		attr, val := parseBinary(clause, " <= ", names, values)
		return stringField(item, attr) <= val
	case strings.Contains(clause, " = "):
		attr, val := parseBinary(clause, " = ", names, values)
		return stringField(item, attr) == val
	default:
		return false
	}
}

func parseFunc(clause, fn string, names map[string]string, values map[string]ddbtypes.AttributeValue) (string, string) {
	inner := strings.TrimSuffix(strings.TrimPrefix(clause, fn+"("), ")")
	parts := strings.SplitN(inner, ",", 2)
	return resolveName(strings.TrimSpace(parts[0]), names), resolveValue(strings.TrimSpace(parts[1]), values)
}

func parseBinary(clause, op string, names map[string]string, values map[string]ddbtypes.AttributeValue) (string, string) {
	parts := strings.SplitN(clause, op, 2)
	return resolveName(strings.TrimSpace(parts[0]), names), resolveValue(strings.TrimSpace(parts[1]), values)
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

func resolveValue(placeholder string, values map[string]ddbtypes.AttributeValue) string {
	if v, ok := values[placeholder].(*ddbtypes.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

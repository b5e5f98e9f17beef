package dynamo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/duemate/duemate/internal/domain/invoice"
	"github.com/duemate/duemate/internal/dynamodb"
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/logger"
	"github.com/duemate/duemate/internal/types"
)

type invoiceRepository struct {
	db        dynamodb.API
	tableName string
	logger    *logger.Logger
}

func NewInvoiceRepository(db dynamodb.API, tableName string, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{
		db:        db,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	now := time.Now().UTC().Truncate(time.Millisecond)

	if inv.ID == "" {
		inv.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE)
	}
	if inv.Currency == "" {
		inv.Currency = types.DefaultCurrency
	}
	if inv.Status == "" {
		inv.Status = types.InvoiceStatusDraft
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = now
	}
	inv.IssueDate = inv.IssueDate.UTC().Truncate(time.Millisecond)
	inv.DueDate = inv.DueDate.UTC().Truncate(time.Millisecond)
	inv.CreatedAt = now
	inv.UpdatedAt = now

	item, err := toItem(inv)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal invoice").
			Mark(ierr.ErrSystem)
	}

	r.logger.Debugw("creating invoice", "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)

	_, err = r.db.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save invoice").
			Mark(ierr.ErrStoreUnavailable)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	out, err := r.db.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       invoiceKey(id),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load invoice").
			Mark(ierr.ErrStoreUnavailable)
	}
	if len(out.Item) == 0 {
		return nil, notFound(id)
	}
	return decodeItem(out.Item)
}

func (r *invoiceRepository) GetByInvoiceNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	out, err := r.db.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsiInvoiceNumber),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk": stringAttr(invoiceNumberKey(number)),
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query invoice by number").
			Mark(ierr.ErrStoreUnavailable)
	}
	if len(out.Items) == 0 {
		return nil, ierr.NewError("invoice not found").
			WithHintf("No invoice with number %s", number).
			Mark(ierr.ErrNotFound)
	}
	return decodeItem(out.Items[0])
}

func (r *invoiceRepository) GetByInvoiceNumberPrefix(ctx context.Context, prefix string) (*invoice.Invoice, error) {
	// Range lookup over the invoice number index: the lexicographically
	// last entry under the prefix is the highest sequence number.
	//
	// Known flaw: DynamoDB only accepts begins_with on a sort key, and
	// GSI1PK is the partition key, so the service rejects this expression
	// with a ValidationException. Fixing it needs a different index shape
	// for the number series.
	out, err := r.db.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsiInvoiceNumber),
		KeyConditionExpression: aws.String("begins_with(GSI1PK, :prefix)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":prefix": stringAttr(invoiceNumberKey(prefix)),
		},
		Limit:            aws.Int32(1),
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to query invoice by number prefix").
			Mark(ierr.ErrStoreUnavailable)
	}
	if len(out.Items) == 0 {
		return nil, ierr.NewError("invoice not found").
			WithHintf("No invoice with number prefix %s", prefix).
			Mark(ierr.ErrNotFound)
	}
	return decodeItem(out.Items[0])
}

func (r *invoiceRepository) ListByStatus(ctx context.Context, status types.InvoiceStatus, limit int, cursor string) ([]*invoice.Invoice, string, error) {
	return r.queryIndex(ctx, gsiStatus, "GSI2PK = :pk", statusKey(status), limit, cursor)
}

func (r *invoiceRepository) ListByClientEmail(ctx context.Context, email string, limit int, cursor string) ([]*invoice.Invoice, string, error) {
	return r.queryIndex(ctx, gsiClientEmail, "GSI3PK = :pk", clientEmailKey(email), limit, cursor)
}

// queryIndex pages one secondary index, newest first.
func (r *invoiceRepository) queryIndex(ctx context.Context, index, keyCondition, keyValue string, limit int, cursor string) ([]*invoice.Invoice, string, error) {
	startKey, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	out, err := r.db.Query(ctx, &awsdynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String(keyCondition),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk": stringAttr(keyValue),
		},
		Limit:             aws.Int32(int32(limit)),
		ExclusiveStartKey: startKey,
		ScanIndexForward:  aws.Bool(false),
	})
	if err != nil {
		return nil, "", ierr.WithError(err).
			WithHintf("Failed to query invoice index %s", index).
			Mark(ierr.ErrStoreUnavailable)
	}

	invoices, err := decodeItems(out.Items)
	if err != nil {
		return nil, "", err
	}

	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}
	return invoices, next, nil
}

func (r *invoiceRepository) Scan(ctx context.Context, limit int, cursor string, filter *invoice.ScanFilter) ([]*invoice.Invoice, string, error) {
	startKey, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	expr, names, values := scanFilterExpr(filter)

	input := &awsdynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(expr),
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(int32(limit)),
		ExclusiveStartKey:         startKey,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	out, err := r.db.Scan(ctx, input)
	if err != nil {
		return nil, "", ierr.WithError(err).
			WithHint("Failed to scan invoices").
			Mark(ierr.ErrStoreUnavailable)
	}

	invoices, err := decodeItems(out.Items)
	if err != nil {
		return nil, "", err
	}

	next, err := encodeCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, "", err
	}
	return invoices, next, nil
}

func (r *invoiceRepository) Update(ctx context.Context, id string, params invoice.UpdateParams) (*invoice.Invoice, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	b := newUpdateBuilder()
	b.setString("clientName", params.ClientName)
	b.setString("clientEmail", params.ClientEmail)
	b.setString("clientAddress", params.ClientAddress)
	b.setString("clientDetails", params.ClientDetails)
	b.setString("customerDetails", params.CustomerDetails)
	b.setDecimal("amount", params.Amount)
	b.setString("currency", params.Currency)
	b.setTime("issueDate", params.IssueDate)
	b.setTime("dueDate", params.DueDate)
	b.setString("description", params.Description)
	b.setString("notes", params.Notes)
	b.setDecimal("taxRate", params.TaxRate)
	b.setDecimal("taxAmount", params.TaxAmount)
	b.setDecimal("discount", params.Discount)
	b.setDecimal("discountAmount", params.DiscountAmount)
	b.setDecimal("shipping", params.Shipping)
	b.setDecimal("subtotal", params.Subtotal)
	b.setDecimal("total", params.Total)
	b.setDecimal("amountPaid", params.AmountPaid)
	b.setDecimal("balanceDue", params.BalanceDue)

	if params.Items != nil {
		blob, err := marshalItems(*params.Items)
		if err != nil {
			return nil, err
		}
		b.set("items", stringAttr(blob))
	}

	// Only the status index key is recomputed on partial update; the
	// invoice-number and client-email index keys keep their previous
	// values even when those fields change. Known staleness, carried over
	// deliberately.
	if params.Status != nil {
		b.setString("status", aws.String(params.Status.String()))
		b.set("GSI2PK", stringAttr(statusKey(*params.Status)))
	}

	b.setString("updatedAt", aws.String(formatTime(now)))

	out, err := r.db.UpdateItem(ctx, &awsdynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       invoiceKey(id),
		UpdateExpression:          aws.String(b.expression()),
		ExpressionAttributeNames:  b.names,
		ExpressionAttributeValues: b.values,
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ReturnValues:              ddbtypes.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *ddbtypes.ConditionalCheckFailedException
		if ierr.As(err, &ccf) {
			return nil, notFound(id)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrStoreUnavailable)
	}

	return decodeItem(out.Attributes)
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       invoiceKey(id),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete invoice").
			Mark(ierr.ErrStoreUnavailable)
	}
	return nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *invoice.ScanFilter) (int, error) {
	expr, names, values := scanFilterExpr(filter)

	input := &awsdynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(expr),
		ExpressionAttributeValues: values,
		Select:                    ddbtypes.SelectCount,
	}
	if len(names) > 0 {
		input.ExpressionAttributeNames = names
	}

	out, err := r.db.Scan(ctx, input)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrStoreUnavailable)
	}
	return int(out.Count), nil
}

func invoiceKey(id string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"PK": stringAttr(invoicePK(id)),
		"SK": stringAttr(invoicePK(id)),
	}
}

func notFound(id string) error {
	return ierr.NewError("invoice not found").
		WithHintf("No invoice with id %s", id).
		WithReportableDetails(map[string]any{
			"id": id,
		}).
		Mark(ierr.ErrNotFound)
}

func decodeItem(av map[string]ddbtypes.AttributeValue) (*invoice.Invoice, error) {
	var item storageItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stored invoice record is corrupted").
			Mark(ierr.ErrMalformedRecord)
	}
	return fromItem(&item)
}

func decodeItems(avs []map[string]ddbtypes.AttributeValue) ([]*invoice.Invoice, error) {
	invoices := make([]*invoice.Invoice, 0, len(avs))
	for _, av := range avs {
		inv, err := decodeItem(av)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// scanFilterExpr builds the scan filter expression: the entity discriminator
// plus any caller-supplied predicates, all evaluated by the store engine.
func scanFilterExpr(filter *invoice.ScanFilter) (string, map[string]string, map[string]ddbtypes.AttributeValue) {
	expr := "entityType = :entityType"
	names := map[string]string{}
	values := map[string]ddbtypes.AttributeValue{
		":entityType": stringAttr(entityTypeInvoice),
	}

	if filter == nil {
		return expr, names, values
	}

	if filter.Status != nil {
		// "status" is a DynamoDB reserved word
		expr += " AND #status = :status"
		names["#status"] = "status"
		values[":status"] = stringAttr(filter.Status.String())
	}
	if filter.ClientEmailContains != nil {
		expr += " AND contains(clientEmail, :email)"
		values[":email"] = stringAttr(*filter.ClientEmailContains)
	}
	if filter.IssueDateFrom != nil {
		expr += " AND issueDate >= :startDate"
		values[":startDate"] = stringAttr(formatTime(*filter.IssueDateFrom))
	}
	if filter.IssueDateTo != nil {
		expr += " AND issueDate <= :endDate"
		values[":endDate"] = stringAttr(formatTime(*filter.IssueDateTo))
	}

	return expr, names, values
}

// updateBuilder accumulates a SET update expression with positional
// attribute name/value aliases.
type updateBuilder struct {
	exprs  []string
	names  map[string]string
	values map[string]ddbtypes.AttributeValue
	idx    int
}

func newUpdateBuilder() *updateBuilder {
	return &updateBuilder{
		names:  map[string]string{},
		values: map[string]ddbtypes.AttributeValue{},
	}
}

func (b *updateBuilder) set(attr string, value ddbtypes.AttributeValue) {
	name := fmt.Sprintf("#attr%d", b.idx)
	val := fmt.Sprintf(":val%d", b.idx)
	b.idx++
	b.exprs = append(b.exprs, name+" = "+val)
	b.names[name] = attr
	b.values[val] = value
}

func (b *updateBuilder) setString(attr string, s *string) {
	if s == nil {
		return
	}
	b.set(attr, stringAttr(*s))
}

func (b *updateBuilder) setDecimal(attr string, d *decimal.Decimal) {
	if d == nil {
		return
	}
	b.set(attr, numberAttr(d.InexactFloat64()))
}

func (b *updateBuilder) setTime(attr string, t *time.Time) {
	if t == nil {
		return
	}
	b.set(attr, stringAttr(formatTime(*t)))
}

func (b *updateBuilder) expression() string {
	expr := "SET " + b.exprs[0]
	for _, e := range b.exprs[1:] {
		expr += ", " + e
	}
	return expr
}

func stringAttr(s string) ddbtypes.AttributeValue {
	return &ddbtypes.AttributeValueMemberS{Value: s}
}

func numberAttr(f float64) ddbtypes.AttributeValue {
	return &ddbtypes.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}
}

// encodeCursor packs a LastEvaluatedKey into an opaque continuation token.
// The key attributes of the invoice table and its indexes are all strings.
func encodeCursor(key map[string]ddbtypes.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	m := make(map[string]string, len(key))
	for k, v := range key {
		s, ok := v.(*ddbtypes.AttributeValueMemberS)
		if !ok {
			return "", ierr.NewError("unexpected cursor attribute type").
				Mark(ierr.ErrSystem)
		}
		m[k] = s.Value
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(cursor string) (map[string]ddbtypes.AttributeValue, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid pagination cursor").
			Mark(ierr.ErrValidation)
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid pagination cursor").
			Mark(ierr.ErrValidation)
	}
	key := make(map[string]ddbtypes.AttributeValue, len(m))
	for k, v := range m {
		key[k] = stringAttr(v)
	}
	return key, nil
}

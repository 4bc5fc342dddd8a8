// Package dynamo provides an [anystore.Store] backed by a DynamoDB table.
//
// The table needs a string partition key named "parent" and a string sort
// key named "name". Every address below the root is one item: parent holds
// the String form of the parent address and name the last segment. Values
// are kept in the binary attribute "value". Items without a value are
// containers, written for every ancestor of a value so that List is a
// single Query on the parent key.
//
// Deleting a value removes its item, or only the value attribute while the
// address still has children, and then prunes ancestors left with neither
// a value nor children. Pruning is best effort: a concurrent Set below a
// pruned container can leave that container unlisted until it is written
// again.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ryhazerus/anystore"
	"go.uber.org/zap"
)

const backend = "dynamo"

const (
	attrParent = "parent"
	attrName   = "name"
	attrValue  = "value"

	condNotExists   = "attribute_not_exists(#p)"
	condExists      = "attribute_exists(#p)"
	condNoValue     = "attribute_not_exists(#v)"
	updRemoveValue  = "REMOVE #v"
	keyCondByParent = "#p = :p"
)

// API is the subset of the DynamoDB client used by the store.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Compile-time interface checks.
var (
	_ API            = (*dynamodb.Client)(nil)
	_ anystore.Store = (*DynamoStore)(nil)
)

// key is the primary key of an item.
type key struct {
	Parent string `dynamodbav:"parent"`
	Name   string `dynamodbav:"name"`
}

func keyOf(addr anystore.Address) key {
	parent, _ := addr.Parent()
	return key{Parent: parent.String(), Name: addr.Last()}
}

// DynamoStore is a Store backed by DynamoDB.
type DynamoStore struct {
	api        API
	table      string
	consistent bool
	pageSize   int32
	logger     *zap.Logger
}

// Option configures a DynamoStore.
type Option func(*DynamoStore)

// WithConsistentRead toggles strongly consistent reads for Get and List.
// Enabled by default so a List observes preceding writes.
func WithConsistentRead(on bool) Option {
	return func(d *DynamoStore) {
		d.consistent = on
	}
}

// WithPageSize sets the Query page size used by List. Zero leaves it to
// DynamoDB.
func WithPageSize(n int32) Option {
	return func(d *DynamoStore) {
		d.pageSize = n
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(d *DynamoStore) {
		d.logger = l
	}
}

// New creates a store on table using api.
func New(api API, table string, opts ...Option) *DynamoStore {
	d := &DynamoStore{
		api:        api,
		table:      table,
		consistent: true,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	d.logger = d.logger.With(zap.String("store", backend), zap.String("table", table))
	return d
}

func (d *DynamoStore) itemKey(addr anystore.Address) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(keyOf(addr))
}

var names = map[string]string{"#p": attrParent}

var namesWithValue = map[string]string{"#p": attrParent, "#v": attrValue}

func conditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// Get returns the value stored at addr. Containers read as absent.
func (d *DynamoStore) Get(ctx context.Context, addr anystore.Address) ([]byte, bool, error) {
	if addr.IsRoot() {
		return nil, false, nil
	}
	k, err := d.itemKey(addr)
	if err != nil {
		return nil, false, anystore.NewBackendError(backend, "get", addr, err)
	}
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            k,
		ConsistentRead: aws.Bool(d.consistent),
	})
	if err != nil {
		return nil, false, anystore.NewBackendError(backend, "get", addr, err)
	}
	if out.Item == nil {
		return nil, false, nil
	}
	v, ok, err := valueOf(out.Item)
	if err != nil {
		return nil, false, anystore.NewBackendError(backend, "get", addr, err)
	}
	return v, ok, nil
}

func valueOf(item map[string]types.AttributeValue) ([]byte, bool, error) {
	av, ok := item[attrValue]
	if !ok {
		return nil, false, nil
	}
	b, ok := av.(*types.AttributeValueMemberB)
	if !ok {
		return nil, false, fmt.Errorf("value attribute has type %T", av)
	}
	v := make([]byte, len(b.Value))
	copy(v, b.Value)
	return v, true, nil
}

// Set writes containers for the ancestors of addr and then the value.
func (d *DynamoStore) Set(ctx context.Context, addr anystore.Address, value []byte) error {
	if addr.IsRoot() {
		return anystore.NewBackendError(backend, "set", addr, errors.New("the root cannot hold a value"))
	}

	segs := addr.Segments()
	cur := anystore.Root
	for _, seg := range segs[:len(segs)-1] {
		cur = cur.Child(seg)
		if err := d.putContainer(ctx, cur); err != nil {
			return anystore.NewBackendError(backend, "set", addr, err)
		}
	}

	item, err := attributevalue.MarshalMap(keyOf(addr))
	if err != nil {
		return anystore.NewBackendError(backend, "set", addr, err)
	}
	v := make([]byte, len(value))
	copy(v, value)
	item[attrValue] = &types.AttributeValueMemberB{Value: v}

	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	return anystore.NewBackendError(backend, "set", addr, err)
}

// putContainer creates an item without a value unless one exists.
func (d *DynamoStore) putContainer(ctx context.Context, addr anystore.Address) error {
	item, err := d.itemKey(addr)
	if err != nil {
		return err
	}
	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.table),
		Item:                     item,
		ConditionExpression:      aws.String(condNotExists),
		ExpressionAttributeNames: names,
	})
	if conditionFailed(err) {
		return nil
	}
	return err
}

// Delete removes the value at addr and prunes empty ancestors.
func (d *DynamoStore) Delete(ctx context.Context, addr anystore.Address) error {
	if addr.IsRoot() {
		return nil
	}
	k, err := d.itemKey(addr)
	if err != nil {
		return anystore.NewBackendError(backend, "delete", addr, err)
	}

	hasChildren, err := d.hasChildren(ctx, addr)
	if err != nil {
		return anystore.NewBackendError(backend, "delete", addr, err)
	}
	if hasChildren {
		_, err = d.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                aws.String(d.table),
			Key:                      k,
			UpdateExpression:         aws.String(updRemoveValue),
			ConditionExpression:      aws.String(condExists),
			ExpressionAttributeNames: namesWithValue,
		})
		if conditionFailed(err) {
			err = nil
		}
		return anystore.NewBackendError(backend, "delete", addr, err)
	}

	if _, err := d.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       k,
	}); err != nil {
		return anystore.NewBackendError(backend, "delete", addr, err)
	}
	return anystore.NewBackendError(backend, "delete", addr, d.prune(ctx, addr))
}

// prune removes the containers above addr that no longer have children.
func (d *DynamoStore) prune(ctx context.Context, addr anystore.Address) error {
	for p, ok := addr.Parent(); ok && !p.IsRoot(); p, ok = p.Parent() {
		more, err := d.hasChildren(ctx, p)
		if err != nil || more {
			return err
		}
		k, err := d.itemKey(p)
		if err != nil {
			return err
		}
		_, err = d.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                aws.String(d.table),
			Key:                      k,
			ConditionExpression:      aws.String(condNoValue),
			ExpressionAttributeNames: map[string]string{"#v": attrValue},
		})
		if conditionFailed(err) {
			// p holds a value of its own.
			return nil
		}
		if err != nil {
			return err
		}
		d.logger.Debug("pruned container", zap.Stringer("address", p))
	}
	return nil
}

func (d *DynamoStore) queryChildren(addr anystore.Address, limit int32) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:                aws.String(d.table),
		KeyConditionExpression:   aws.String(keyCondByParent),
		ExpressionAttributeNames: map[string]string{"#p": attrParent, "#n": attrName},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: addr.String()},
		},
		ProjectionExpression: aws.String("#p, #n"),
		ConsistentRead:       aws.Bool(d.consistent),
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	return in
}

func (d *DynamoStore) hasChildren(ctx context.Context, addr anystore.Address) (bool, error) {
	out, err := d.api.Query(ctx, d.queryChildren(addr, 1))
	if err != nil {
		return false, err
	}
	return len(out.Items) > 0, nil
}

// List queries the items whose parent is addr, following pagination.
// Children come back in the table's sort key order.
func (d *DynamoStore) List(ctx context.Context, addr anystore.Address) ([]anystore.Address, error) {
	out := make([]anystore.Address, 0)
	p := dynamodb.NewQueryPaginator(d.api, d.queryChildren(addr, d.pageSize))
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, anystore.NewBackendError(backend, "list", addr, err)
		}
		var keys []key
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &keys); err != nil {
			return nil, anystore.NewBackendError(backend, "list", addr, err)
		}
		for _, k := range keys {
			out = append(out, addr.Child(k.Name))
		}
	}
	return out, nil
}

// Scope returns a view of d rooted at addr.
func (d *DynamoStore) Scope(addr anystore.Address) anystore.Store {
	return anystore.NewScope(d, addr)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"chatting-demo-backend/internal/database"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const DefaultNodesTable = "ChatNodes"

type nodeItem struct {
	PK  string      `dynamodbav:"pk"`
	Doc interface{} `dynamodbav:"doc"`
}

// DynamoBackend stores each root segment as one item {pk, doc}; deeper
// path segments address attributes nested inside doc.
type DynamoBackend struct {
	db    *database.Database
	table string
}

func NewDynamoBackend(db *database.Database, table string) *DynamoBackend {
	if table == "" {
		table = DefaultNodesTable
	}
	return &DynamoBackend{db: db, table: table}
}

func (b *DynamoBackend) key(root string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": database.AttrString(root),
	}
}

func (b *DynamoBackend) loadRoot(ctx context.Context, root string) (interface{}, error) {
	var item nodeItem
	err := b.db.Client.GetItem(ctx, b.table, b.key(root), &item)
	if err != nil {
		if errors.Is(err, database.ErrItemNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if item.Doc == nil {
		return nil, ErrNotFound
	}
	return item.Doc, nil
}

func (b *DynamoBackend) Get(ctx context.Context, path string) (interface{}, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	doc, err := b.loadRoot(ctx, segments[0])
	if err != nil {
		return nil, err
	}
	node, err := lookup(doc, segments[1:])
	if err != nil {
		return nil, err
	}
	return Normalize(node)
}

func (b *DynamoBackend) Set(ctx context.Context, path string, value interface{}) error {
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := Normalize(value)
	if err != nil {
		return err
	}
	root := segments[0]

	if len(segments) == 1 {
		if normalized == nil {
			return b.db.Client.DeleteItem(ctx, b.table, b.key(root))
		}
		return b.db.Client.PutItem(ctx, b.table, nodeItem{PK: root, Doc: normalized})
	}

	docPath, names := documentPath(segments[1:])
	if normalized == nil {
		err := b.db.Client.UpdateItem(ctx, b.table, b.key(root), "REMOVE "+docPath, nil, names, nil)
		if err != nil && database.IsValidationError(err) {
			return nil
		}
		return err
	}

	av, err := attributevalue.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", path, err)
	}
	err = b.db.Client.UpdateItem(
		ctx,
		b.table,
		b.key(root),
		"SET "+docPath+" = :value",
		map[string]types.AttributeValue{":value": av},
		names,
		nil,
	)
	if err == nil || !database.IsValidationError(err) {
		return err
	}

	// An intermediate map is missing; rewrite the whole root item.
	doc, err := b.loadRoot(ctx, root)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	tree, ok := doc.(map[string]interface{})
	if !ok {
		tree = make(map[string]interface{})
	}
	assign(tree, segments[1:], normalized)
	return b.db.Client.PutItem(ctx, b.table, nodeItem{PK: root, Doc: tree})
}

// Roots lists every stored root segment.
func (b *DynamoBackend) Roots(ctx context.Context) ([]string, error) {
	var (
		roots []string
		last  map[string]types.AttributeValue
	)
	for {
		page, err := b.db.Client.ScanPaginated(ctx, b.table, 100, last, aws.String("#pk"), map[string]string{"#pk": "pk"})
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			var key struct {
				PK string `dynamodbav:"pk"`
			}
			if err := attributevalue.UnmarshalMap(item, &key); err != nil {
				return nil, fmt.Errorf("unmarshal key: %w", err)
			}
			roots = append(roots, key.PK)
		}
		if !page.HasMore {
			break
		}
		last = page.LastEvaluatedKey
	}
	sort.Strings(roots)
	return roots, nil
}

// documentPath renders "#doc.#p0.#p1" with its attribute name map.
func documentPath(segments []string) (string, map[string]string) {
	names := map[string]string{"#doc": "doc"}
	parts := []string{"#doc"}
	for i, seg := range segments {
		placeholder := fmt.Sprintf("#p%d", i)
		names[placeholder] = seg
		parts = append(parts, placeholder)
	}
	return strings.Join(parts, "."), names
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoBackend stores each root segment as one document {_id, doc}.
type MongoBackend struct {
	coll *mongo.Collection
}

func NewMongoBackend(coll *mongo.Collection) *MongoBackend {
	return &MongoBackend{coll: coll}
}

func (b *MongoBackend) loadRoot(ctx context.Context, root string) (interface{}, error) {
	var raw bson.Raw
	err := b.coll.FindOne(ctx, bson.M{"_id": root}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find node %s: %w", root, err)
	}

	// Relaxed extended JSON maps every stored type onto the canonical tree.
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var envelope struct {
		Doc interface{} `json:"doc"`
	}
	if err := json.Unmarshal(ext, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if envelope.Doc == nil {
		return nil, ErrNotFound
	}
	return envelope.Doc, nil
}

func (b *MongoBackend) Get(ctx context.Context, path string) (interface{}, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	doc, err := b.loadRoot(ctx, segments[0])
	if err != nil {
		return nil, err
	}
	return lookup(doc, segments[1:])
}

func (b *MongoBackend) Set(ctx context.Context, path string, value interface{}) error {
	segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := Normalize(value)
	if err != nil {
		return err
	}
	root := segments[0]
	filter := bson.M{"_id": root}

	if len(segments) == 1 {
		if normalized == nil {
			if _, err := b.coll.DeleteOne(ctx, filter); err != nil {
				return fmt.Errorf("delete node %s: %w", root, err)
			}
			return nil
		}
		_, err := b.coll.ReplaceOne(ctx, filter, bson.M{"_id": root, "doc": normalized}, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("replace node %s: %w", root, err)
		}
		return nil
	}

	field := "doc." + strings.Join(segments[1:], ".")
	if normalized == nil {
		if _, err := b.coll.UpdateOne(ctx, filter, bson.M{"$unset": bson.M{field: ""}}); err != nil {
			return fmt.Errorf("unset %s: %w", path, err)
		}
		return nil
	}

	_, err = b.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{field: normalized}}, options.UpdateOne().SetUpsert(true))
	if err == nil {
		return nil
	}
	var writeErr mongo.WriteException
	if !errors.As(err, &writeErr) {
		return fmt.Errorf("set %s: %w", path, err)
	}

	// A non-document intermediate blocks the dotted update; rewrite the root.
	doc, err := b.loadRoot(ctx, root)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	tree, ok := doc.(map[string]interface{})
	if !ok {
		tree = make(map[string]interface{})
	}
	assign(tree, segments[1:], normalized)
	if _, err := b.coll.ReplaceOne(ctx, filter, bson.M{"_id": root, "doc": tree}, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("replace node %s: %w", root, err)
	}
	return nil
}

func (b *MongoBackend) Roots(ctx context.Context) ([]string, error) {
	var roots []string
	if err := b.coll.Distinct(ctx, "_id", bson.D{}).Decode(&roots); err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	sort.Strings(roots)
	return roots, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoDatabase はMongoDBのデータベースをDatabaseとして扱う。
// mongo.Client は内部にコネクションプールを持ち、並行利用できる。
type MongoDatabase struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo はMongoDBクライアントを生成する。
// 接続は遅延して確立されるため、疎通確認は Ping で行う。
// Stable API v1 を strict モードで使用する。
func OpenMongo(uri, database string) (*MongoDatabase, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(serverAPI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("MongoDBクライアントの生成に失敗: %w", err)
	}

	return &MongoDatabase{client: client, db: client.Database(database)}, nil
}

// Collection は名前付きコレクションを返す。
func (d *MongoDatabase) Collection(name string) Collection {
	return &mongoCollection{coll: d.db.Collection(name)}
}

// Ping はプライマリへの疎通を確認する。
func (d *MongoDatabase) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Close は接続プールを閉じる。
func (d *MongoDatabase) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter, opts FindOptions) ([]Document, error) {
	if err := validateFilter(filter, opts); err != nil {
		return nil, err
	}

	cursor, err := c.coll.Find(ctx, toBSONFilter(filter), toFindOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%s の検索に失敗: %w", c.coll.Name(), err)
	}

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("%s の読み取りに失敗: %w", c.coll.Name(), err)
	}

	docs := make([]Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, Document(m))
	}
	return docs, nil
}

func (c *mongoCollection) FindOne(ctx context.Context, id string) (Document, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	var m bson.M
	err = c.coll.FindOne(ctx, bson.D{{Key: FieldID, Value: oid}}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s の取得に失敗: %w", c.coll.Name(), err)
	}
	return Document(m), nil
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc Document) (*InsertResult, error) {
	if doc == nil {
		doc = Document{}
	}
	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return nil, fmt.Errorf("%s への挿入に失敗: %w", c.coll.Name(), err)
	}
	return &InsertResult{Acknowledged: res.Acknowledged, InsertedID: res.InsertedID}, nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, id string, fields Document) (*UpdateResult, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	for k, v := range fields {
		if k == FieldID {
			continue
		}
		set[k] = v
	}

	res, err := c.coll.UpdateOne(ctx,
		bson.D{{Key: FieldID, Value: oid}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return nil, fmt.Errorf("%s の更新に失敗: %w", c.coll.Name(), err)
	}
	return &UpdateResult{
		Acknowledged:  res.Acknowledged,
		ModifiedCount: res.ModifiedCount,
		UpsertedID:    res.UpsertedID,
		UpsertedCount: res.UpsertedCount,
		MatchedCount:  res.MatchedCount,
	}, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, id string) (*DeleteResult, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	res, err := c.coll.DeleteOne(ctx, bson.D{{Key: FieldID, Value: oid}})
	if err != nil {
		return nil, fmt.Errorf("%s からの削除に失敗: %w", c.coll.Name(), err)
	}
	return &DeleteResult{Acknowledged: res.Acknowledged, DeletedCount: res.DeletedCount}, nil
}

// toBSONFilter はFilterをキー順のbson.Dに変換する。
func toBSONFilter(filter Filter) bson.D {
	d := bson.D{}
	for _, key := range slices.Sorted(maps.Keys(filter)) {
		d = append(d, bson.E{Key: key, Value: filter[key]})
	}
	return d
}

// toFindOptions はFindOptionsをドライバーのオプションに変換する。
func toFindOptions(opts FindOptions) *options.FindOptionsBuilder {
	builder := options.Find()
	if opts.SortDescending != "" {
		builder.SetSort(bson.D{{Key: opts.SortDescending, Value: -1}})
	}
	if opts.Limit > 0 {
		builder.SetLimit(int64(opts.Limit))
	}
	return builder
}

package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// FieldID はドキュメントの識別子フィールド。
	FieldID = "_id"
	// FieldCreatedAt は並び順に使う作成日時フィールド。
	FieldCreatedAt = "created_at"
)

// ErrInvalidID は識別子の形式が不正であることを表す。
var ErrInvalidID = errors.New("識別子が不正です")

// fieldNamePattern はフィルタや並び替えに使えるフィールド名。
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Document はスキーマを持たないドキュメント。
type Document map[string]any

// Filter はトップレベルフィールドの等値条件。すべての条件をANDで結合する。
type Filter map[string]string

// FindOptions は一覧取得の並び順と件数を指定する。
type FindOptions struct {
	// SortDescending は降順に並べるフィールド名。空なら挿入順。
	// フィールドを持たないドキュメントは末尾に並ぶ。
	SortDescending string
	// Limit は最大件数。0以下は無制限。
	Limit int
}

// InsertResult は挿入の確認応答。
type InsertResult struct {
	Acknowledged bool `json:"acknowledged"`
	InsertedID   any  `json:"insertedId"`
}

// UpdateResult は更新の確認応答。
type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	ModifiedCount int64 `json:"modifiedCount"`
	UpsertedID    any   `json:"upsertedId"`
	UpsertedCount int64 `json:"upsertedCount"`
	MatchedCount  int64 `json:"matchedCount"`
}

// DeleteResult は削除の確認応答。
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Collection は1つのコレクションに対する単一ドキュメント操作。
// 実装は複数のゴルーチンから同時に呼び出してよい。
type Collection interface {
	// Find は条件に一致するドキュメントを返す。一致しない場合は空スライス。
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]Document, error)
	// FindOne は識別子で1件取得する。存在しない場合は (nil, nil) を返す。
	FindOne(ctx context.Context, id string) (Document, error)
	// InsertOne はドキュメントを1件挿入する。
	InsertOne(ctx context.Context, doc Document) (*InsertResult, error)
	// UpdateOne は指定フィールドを上書きする。他のフィールドは保持する。
	UpdateOne(ctx context.Context, id string, fields Document) (*UpdateResult, error)
	// DeleteOne は識別子で1件削除する。
	DeleteOne(ctx context.Context, id string) (*DeleteResult, error)
}

// Database はプロセス全体で共有するストレージ接続。
// 起動時に1度だけ開き、終了時に閉じる。
type Database interface {
	// Collection は名前付きコレクションを返す。
	Collection(name string) Collection
	// Ping は接続を確認する。
	Ping(ctx context.Context) error
	// Close は接続を閉じる。
	Close(ctx context.Context) error
}

// NewID は新しい識別子を生成する。
func NewID() string {
	return bson.NewObjectID().Hex()
}

// ParseID は16進24桁の識別子をObjectIDに変換する。
func ParseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// validateFilter はフィルタと並び替えのフィールド名を検証する。
func validateFilter(filter Filter, opts FindOptions) error {
	for key := range filter {
		if !fieldNamePattern.MatchString(key) {
			return fmt.Errorf("フィールド名が不正です: %q", key)
		}
	}
	if opts.SortDescending != "" && !fieldNamePattern.MatchString(opts.SortDescending) {
		return fmt.Errorf("並び替えフィールド名が不正です: %q", opts.SortDescending)
	}
	return nil
}

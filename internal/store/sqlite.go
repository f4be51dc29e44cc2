package store

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smartdeals/server/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// memoryPath はインメモリデータベースを表すパス。
const memoryPath = ":memory:"

// SQLiteDatabase はSQLite上にJSONドキュメントを保存するDatabase実装。
type SQLiteDatabase struct {
	db *sql.DB
}

// OpenSQLite はSQLiteデータベースを開き、スキーマを適用する。
// path に ":memory:" を指定するとインメモリデータベースになる。
func OpenSQLite(ctx context.Context, path string, logger logrus.FieldLogger) (*SQLiteDatabase, error) {
	dsn := memoryPath
	if path != memoryPath {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if path == memoryPath {
		// 接続ごとに別のDBになるため1接続に固定する
		db.SetMaxOpenConns(1)
	}

	if _, err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteDatabase{db: db}, nil
}

// Collection は名前付きコレクションを返す。
func (d *SQLiteDatabase) Collection(name string) Collection {
	return &sqliteCollection{db: d.db, name: name}
}

// Ping は接続を確認する。
func (d *SQLiteDatabase) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close はデータベースを閉じる。
func (d *SQLiteDatabase) Close(_ context.Context) error {
	return d.db.Close()
}

type sqliteCollection struct {
	db   *sql.DB
	name string
}

func (c *sqliteCollection) Find(ctx context.Context, filter Filter, opts FindOptions) ([]Document, error) {
	if err := validateFilter(filter, opts); err != nil {
		return nil, err
	}

	var query strings.Builder
	query.WriteString("SELECT body FROM documents WHERE collection = ?")
	args := []any{c.name}
	for _, key := range slices.Sorted(maps.Keys(filter)) {
		query.WriteString(" AND json_extract(body, ?) = ?")
		args = append(args, "$."+key, filter[key])
	}
	if opts.SortDescending != "" {
		query.WriteString(" ORDER BY json_extract(body, ?) DESC, seq ASC")
		args = append(args, "$."+opts.SortDescending)
	} else {
		query.WriteString(" ORDER BY seq ASC")
	}
	if opts.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%s の検索に失敗: %w", c.name, err)
	}
	defer func() { _ = rows.Close() }()

	docs := make([]Document, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("%s の読み取りに失敗: %w", c.name, err)
		}
		doc, err := decodeDocument(body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *sqliteCollection) FindOne(ctx context.Context, id string) (Document, error) {
	if _, err := ParseID(id); err != nil {
		return nil, err
	}

	var body []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND id = ?", c.name, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s の取得に失敗: %w", c.name, err)
	}
	return decodeDocument(body)
}

func (c *sqliteCollection) InsertOne(ctx context.Context, doc Document) (*InsertResult, error) {
	stored := maps.Clone(doc)
	if stored == nil {
		stored = Document{}
	}

	var id string
	switch v := stored[FieldID].(type) {
	case nil:
		id = NewID()
	case string:
		id = v
	default:
		return nil, fmt.Errorf("%w: _idは文字列である必要があります", ErrInvalidID)
	}
	stored[FieldID] = id

	body, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントのシリアライズに失敗: %w", err)
	}
	if _, err := c.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)", c.name, id, string(body),
	); err != nil {
		return nil, fmt.Errorf("%s への挿入に失敗: %w", c.name, err)
	}
	return &InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (c *sqliteCollection) UpdateOne(ctx context.Context, id string, fields Document) (*UpdateResult, error) {
	if _, err := ParseID(id); err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var body []byte
	err = tx.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND id = ?", c.name, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return &UpdateResult{Acknowledged: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s の取得に失敗: %w", c.name, err)
	}

	doc, err := decodeDocument(body)
	if err != nil {
		return nil, err
	}
	before, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントのシリアライズに失敗: %w", err)
	}
	for k, v := range fields {
		if k == FieldID {
			continue
		}
		doc[k] = v
	}
	after, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントのシリアライズに失敗: %w", err)
	}

	result := &UpdateResult{Acknowledged: true, MatchedCount: 1}
	if bytes.Equal(before, after) {
		return result, nil
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET body = ? WHERE collection = ? AND id = ?", string(after), c.name, id,
	); err != nil {
		return nil, fmt.Errorf("%s の更新に失敗: %w", c.name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	result.ModifiedCount = 1
	return result, nil
}

func (c *sqliteCollection) DeleteOne(ctx context.Context, id string) (*DeleteResult, error) {
	if _, err := ParseID(id); err != nil {
		return nil, err
	}

	res, err := c.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?", c.name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("%s からの削除に失敗: %w", c.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return &DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

func decodeDocument(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("ドキュメントのデシリアライズに失敗: %w", err)
	}
	return doc, nil
}

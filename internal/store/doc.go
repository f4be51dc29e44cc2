// Package store はドキュメントストアへの薄いゲートウェイを提供する。
//
// 商品(products)と入札(bids)のドキュメントはスキーマを持たず、
// クライアントから受け取ったJSONをそのまま保存する。
// 本番ではMongoDB、ローカル開発とテストではSQLite上のJSONドキュメントを使う。
// どちらの実装も単一ドキュメント操作のみを提供し、トランザクションや
// キャッシュは持たない。
package store

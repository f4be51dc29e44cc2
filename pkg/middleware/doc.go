// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// ベアラートークンによる認証ゲート、所有者チェック、リクエストログ、
// パニックリカバリ、CORS設定を含む。
package middleware

// Package httpclient は外部サービスとのJSON over HTTP通信を行うクライアントを提供する。
//
// トークンイントロスペクション等、認証基盤へのリクエストで使用する。
// 2xx以外のレスポンスは *StatusError として返すため、呼び出し側は
// errors.As でステータスコードを判別できる。
package httpclient

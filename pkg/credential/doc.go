// Package credential はベアラートークンを検証し、認証済みのメールアドレスを返す。
//
// 本番ではFirebase AuthenticationのIDトークンを検証する。
// ローカル開発とテスト向けにHS256署名のJWTを検証する実装、
// 外部のイントロスペクションエンドポイントに問い合わせる実装も持つ。
// どの実装も検証結果をキャッシュせず、呼び出しごとに検証を行う。
package credential

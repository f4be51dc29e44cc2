package credential

import (
	"context"

	"github.com/smartdeals/server/pkg/httpclient"
)

// introspectPath はイントロスペクションエンドポイントのパス。
const introspectPath = "/introspect"

// introspectRequest はイントロスペクションのリクエストボディ。
type introspectRequest struct {
	Token string `json:"token"`
}

// introspectResponse はイントロスペクションのレスポンスボディ。
type introspectResponse struct {
	// Active はトークンが有効かどうか。
	Active bool `json:"active"`
	// Email はトークンの持ち主のメールアドレス。
	Email string `json:"email"`
}

// RemoteVerifier は外部の認証サービスにトークンを問い合わせて検証する。
type RemoteVerifier struct {
	client *httpclient.Client
}

// NewRemoteVerifier は指定したHTTPクライアントを使うRemoteVerifierを生成する。
func NewRemoteVerifier(client *httpclient.Client) *RemoteVerifier {
	return &RemoteVerifier{client: client}
}

// Verify はトークンを認証サービスに送り、有効であればemailを返す。
// 通信エラーも検証失敗として扱う。
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (string, error) {
	var resp introspectResponse
	if err := v.client.PostJSON(ctx, introspectPath, introspectRequest{Token: token}, &resp); err != nil {
		return "", invalidToken("イントロスペクションに失敗", err)
	}
	if !resp.Active {
		return "", invalidToken("トークンが無効化されています", nil)
	}
	if resp.Email == "" {
		return "", invalidToken("emailがありません", nil)
	}
	return resp.Email, nil
}

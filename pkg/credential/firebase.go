package credential

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// idTokenVerifier はFirebase AuthクライアントのうちIDトークン検証に使う部分。
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier はFirebase AuthenticationのIDトークンを検証する。
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier はサービスアカウントからFirebase Authクライアントを初期化する。
func NewFirebaseVerifier(ctx context.Context, account *ServiceAccount) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx,
		&firebase.Config{ProjectID: account.ProjectID},
		option.WithCredentialsJSON(account.JSON()),
	)
	if err != nil {
		return nil, fmt.Errorf("Firebaseアプリの初期化に失敗: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("Firebase Authクライアントの初期化に失敗: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify はIDトークンを検証し、emailクレームを返す。
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", invalidToken("IDトークンの検証に失敗", err)
	}

	email, _ := decoded.Claims["email"].(string)
	if email == "" {
		return "", invalidToken("emailクレームがありません", nil)
	}
	return email, nil
}

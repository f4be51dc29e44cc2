package credential

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidToken はトークンが不正・期限切れ・拒否されたことを表す。
// 各Verifierが返すエラーはすべてこのエラーをラップする。
var ErrInvalidToken = errors.New("トークンが無効です")

// Verifier はベアラートークンを検証するインターフェース。
type Verifier interface {
	// Verify はトークンを検証し、プリンシパルのメールアドレスを返す。
	Verify(ctx context.Context, token string) (string, error)
}

// invalidToken はErrInvalidTokenに原因を付加したエラーを返す。
func invalidToken(reason string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrInvalidToken, reason)
	}
	return fmt.Errorf("%w: %s: %w", ErrInvalidToken, reason, cause)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smartdeals/server/pkg/credential"
)

// contextKeyVerifiedEmail は検証済みメールアドレスを格納するコンテキストキー。
const contextKeyVerifiedEmail = "verified_email"

// BearerAuth はAuthorizationヘッダーのトークンを検証するGinミドルウェアを返す。
// ヘッダーの2番目の空白区切りセグメントをトークンとして扱う。
// 検証に成功した場合、コンテキストに "verified_email" を設定する。
func BearerAuth(v credential.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c)
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 {
			abortUnauthorized(c)
			return
		}

		email, err := v.Verify(c.Request.Context(), fields[1])
		if err != nil {
			_ = c.Error(err)
			abortUnauthorized(c)
			return
		}

		c.Set(contextKeyVerifiedEmail, email)
		c.Next()
	}
}

// RequireOwner は検証済みメールアドレスがパスパラメータと一致するかを確認する。
// 一致しない場合は403を返す。BearerAuthの後に適用する。
func RequireOwner(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := VerifiedEmail(c)
		if email == "" || email != c.Param(param) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Forbidden Access",
			})
			return
		}
		c.Next()
	}
}

// VerifiedEmail はGinコンテキストから検証済みメールアドレスを取得する。
// BearerAuthミドルウェアが事前に適用されている必要がある。
func VerifiedEmail(c *gin.Context) string {
	return c.GetString(contextKeyVerifiedEmail)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		// クライアントが文字列一致で判定するため表記を変えない
		"message": "Unauthorize Access",
	})
}

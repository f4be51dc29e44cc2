package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smartdeals/server/pkg/credential"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubVerifier は固定のトークンだけを受け付けるテスト用Verifier。
type stubVerifier struct {
	tokens map[string]string
}

func (s stubVerifier) Verify(_ context.Context, token string) (string, error) {
	if email, ok := s.tokens[token]; ok {
		return email, nil
	}
	return "", credential.ErrInvalidToken
}

func newAuthRouter() *gin.Engine {
	v := stubVerifier{tokens: map[string]string{"good-token": "alice@example.com"}}
	router := gin.New()
	router.GET("/private", BearerAuth(v), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": VerifiedEmail(c)})
	})
	router.GET("/owned/:email", BearerAuth(v), RequireOwner("email"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": VerifiedEmail(c)})
	})
	return router
}

func serve(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v, body=%s", err, w.Body.String())
	}
	return body
}

// TestBearerAuth はBearerAuthミドルウェアを検証する。
func TestBearerAuth(t *testing.T) {
	t.Parallel()

	t.Run("有効なトークンでハンドラに検証済みemailが渡ること", func(t *testing.T) {
		t.Parallel()

		w := serve(newAuthRouter(), "/private", "Bearer good-token")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := decodeBody(t, w)["email"]; got != "alice@example.com" {
			t.Errorf("email = %q, want %q", got, "alice@example.com")
		}
	})

	t.Run("スキーム名に関わらず2番目のセグメントをトークンとして扱うこと", func(t *testing.T) {
		t.Parallel()

		w := serve(newAuthRouter(), "/private", "bearer   good-token")
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})

	unauthorized := []struct {
		name   string
		header string
	}{
		{name: "Authorizationヘッダーがない", header: ""},
		{name: "トークン部分がない", header: "Bearer"},
		{name: "検証できないトークン", header: "Bearer bad-token"},
	}
	for _, tc := range unauthorized {
		t.Run(tc.name+"場合401が返ること", func(t *testing.T) {
			t.Parallel()

			w := serve(newAuthRouter(), "/private", tc.header)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := decodeBody(t, w)["message"]; got != "Unauthorize Access" {
				t.Errorf("message = %q, want %q", got, "Unauthorize Access")
			}
		})
	}

	t.Run("検証失敗の原因がコンテキストのエラーに記録されること", func(t *testing.T) {
		t.Parallel()

		var recorded error
		v := stubVerifier{}
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Next()
			recorded = c.Errors.Last()
		})
		router.GET("/private", BearerAuth(v), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		serve(router, "/private", "Bearer whatever")
		if !errors.Is(recorded, credential.ErrInvalidToken) {
			t.Errorf("recorded = %v, want ErrInvalidToken", recorded)
		}
	})
}

// TestRequireOwner はRequireOwnerミドルウェアを検証する。
func TestRequireOwner(t *testing.T) {
	t.Parallel()

	t.Run("本人のリソースにはアクセスできること", func(t *testing.T) {
		t.Parallel()

		w := serve(newAuthRouter(), "/owned/alice@example.com", "Bearer good-token")
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("他人のリソースには403が返ること", func(t *testing.T) {
		t.Parallel()

		w := serve(newAuthRouter(), "/owned/bob@example.com", "Bearer good-token")
		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
		if got := decodeBody(t, w)["message"]; got != "Forbidden Access" {
			t.Errorf("message = %q, want %q", got, "Forbidden Access")
		}
	})

	t.Run("認証前に所有者チェックだけを適用した場合は403が返ること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/owned/:email", RequireOwner("email"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := serve(router, "/owned/alice@example.com", "")
		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}

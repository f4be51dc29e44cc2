package deals

import (
	"math"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/smartdeals/server/internal/store"
)

// defaultRecentLimit は新着商品の既定件数。
const defaultRecentLimit = 6

// parseLimit は limit クエリを先頭の整数部分として解釈する。
// 先頭の空白と符号を許し、数字の後ろに続く文字は無視する（"3abc" や "3.5" は3）。
// "0x" で始まる場合は16進数として読む。整数が読めない場合と0は既定値になる。
func parseLimit(raw string) int {
	s := strings.TrimLeftFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})

	// 負の値も絶対値で件数を制限するため、符号は読み捨てる
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}

	base := 10
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	n, digits := 0, 0
	for _, r := range s {
		d := digitValue(r)
		if d < 0 || d >= base {
			break
		}
		digits++
		if n > (math.MaxInt-d)/base {
			n = math.MaxInt
			continue
		}
		n = n*base + d
	}

	if digits == 0 || n == 0 {
		return defaultRecentLimit
	}
	return n
}

// digitValue は16進数までの1桁の値を返す。数字でなければ-1を返す。
func digitValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}

// handleListProducts は全商品を新しい順に返すハンドラを返す。
func (s *Server) handleListProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := s.products.Find(c.Request.Context(), nil, newestFirst)
		if err != nil {
			s.respondStoreError(c, "商品一覧の取得", err)
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleRecentProducts は新着商品を limit 件まで返すハンドラを返す。
func (s *Server) handleRecentProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := newestFirst
		opts.Limit = parseLimit(c.Query("limit"))

		docs, err := s.products.Find(c.Request.Context(), nil, opts)
		if err != nil {
			s.respondStoreError(c, "新着商品の取得", err)
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleGetProduct は商品を1件返すハンドラを返す。
// 存在しない場合も200で null を返す。
func (s *Server) handleGetProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := s.products.FindOne(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondStoreError(c, "商品の取得", err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// handleCreateProduct はリクエストボディをそのまま商品として保存するハンドラを返す。
func (s *Server) handleCreateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, ok := bindDocument(c)
		if !ok {
			return
		}

		res, err := s.products.InsertOne(c.Request.Context(), doc)
		if err != nil {
			s.respondStoreError(c, "商品の作成", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// handleListMyProducts は出品者本人の商品を新しい順に返すハンドラを返す。
func (s *Server) handleListMyProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.Filter{"email": c.Param("email")}
		docs, err := s.products.Find(c.Request.Context(), filter, newestFirst)
		if err != nil {
			s.respondStoreError(c, "出品商品の取得", err)
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleUpdateProduct はリクエストボディのフィールドで商品を上書きするハンドラを返す。
func (s *Server) handleUpdateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		fields, ok := bindDocument(c)
		if !ok {
			return
		}

		res, err := s.products.UpdateOne(c.Request.Context(), c.Param("id"), fields)
		if err != nil {
			s.respondStoreError(c, "商品の更新", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// handleDeleteProduct は商品を削除するハンドラを返す。
func (s *Server) handleDeleteProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.products.DeleteOne(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondStoreError(c, "商品の削除", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

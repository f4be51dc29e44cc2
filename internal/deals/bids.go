package deals

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smartdeals/server/internal/store"
)

// handleCreateBid はリクエストボディをそのまま入札として保存するハンドラを返す。
// 商品の存在は確認しない。
func (s *Server) handleCreateBid() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, ok := bindDocument(c)
		if !ok {
			return
		}

		res, err := s.bids.InsertOne(c.Request.Context(), doc)
		if err != nil {
			s.respondStoreError(c, "入札の作成", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// handleListBidsByProduct は商品に対する入札を新しい順に返すハンドラを返す。
func (s *Server) handleListBidsByProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.Filter{"product_id": c.Param("productId")}
		docs, err := s.bids.Find(c.Request.Context(), filter, newestFirst)
		if err != nil {
			s.respondStoreError(c, "商品の入札一覧の取得", err)
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleListBidsByUser は購入希望者本人の入札を新しい順に返すハンドラを返す。
func (s *Server) handleListBidsByUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.Filter{"buyer_email": c.Param("email")}
		docs, err := s.bids.Find(c.Request.Context(), filter, newestFirst)
		if err != nil {
			s.respondStoreError(c, "入札一覧の取得", err)
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// handleDeleteBid は入札を削除するハンドラを返す。
func (s *Server) handleDeleteBid() gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.bids.DeleteOne(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondStoreError(c, "入札の削除", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

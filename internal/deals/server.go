package deals

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smartdeals/server/internal/store"
	"github.com/smartdeals/server/pkg/credential"
	"github.com/smartdeals/server/pkg/middleware"
)

// statusMessage はルートパスが返す稼働メッセージ。
const statusMessage = "smart deals server running"

// Dependencies はServerが使う外部コンポーネント。
type Dependencies struct {
	// Products は商品コレクション。
	Products store.Collection
	// Bids は入札コレクション。
	Bids store.Collection
	// Verifier はベアラートークンの検証器。
	Verifier credential.Verifier
	// Logger はアクセスログとエラーログの出力先。
	Logger *logrus.Logger
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
}

// Server はマーケットプレイスAPIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// httpServer はrouterを公開するHTTPサーバー。
	httpServer *http.Server
	// products は商品コレクション。
	products store.Collection
	// bids は入札コレクション。
	bids store.Collection
	// verifier はベアラートークンの検証器。
	verifier credential.Verifier
	// logger はエラーログの出力先。
	logger *logrus.Logger
}

// NewServer は新しいサーバーを生成し、ルーティングを設定する。
func NewServer(port string, deps Dependencies) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(deps.AllowedOrigins))

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		products: deps.Products,
		bids:     deps.Bids,
		verifier: deps.Verifier,
		logger:   deps.Logger,
	}
	s.setupRoutes()

	return s
}

// Handler はルーティング済みのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動する。Shutdownで停止した場合はnilを返す。
func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown は処理中のリクエストを待ってサーバーを停止する。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	auth := middleware.BearerAuth(s.verifier)

	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, statusMessage)
	})

	// 商品
	s.router.GET("/products", s.handleListProducts())
	s.router.GET("/recentProducts", s.handleRecentProducts())
	s.router.GET("/products/:id", s.handleGetProduct())
	s.router.POST("/products", auth, s.handleCreateProduct())
	s.router.GET("/myProducts/:email", auth, middleware.RequireOwner("email"), s.handleListMyProducts())
	s.router.PUT("/products/:id", auth, s.handleUpdateProduct())
	s.router.DELETE("/products/:id", auth, s.handleDeleteProduct())

	// 入札
	s.router.POST("/bids", auth, s.handleCreateBid())
	s.router.GET("/bids/product/:productId", auth, s.handleListBidsByProduct())
	s.router.GET("/bids/user/:email", auth, middleware.RequireOwner("email"), s.handleListBidsByUser())
	s.router.DELETE("/bids/:id", auth, s.handleDeleteBid())
}

// newestFirst は作成日時の降順を表す検索オプション。
var newestFirst = store.FindOptions{SortDescending: store.FieldCreatedAt}

// bindDocument はリクエストボディをJSONオブジェクトとして読み込む。
// 空のボディは空のドキュメントとして扱う。
// 失敗した場合は400を返してfalseを返す。
func bindDocument(c *gin.Context) (store.Document, bool) {
	var doc store.Document
	err := c.ShouldBindJSON(&doc)
	if errors.Is(err, io.EOF) {
		return store.Document{}, true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
		return nil, false
	}
	if doc == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディはJSONオブジェクトである必要があります"})
		return nil, false
	}
	return doc, true
}

// respondStoreError はストレージ操作のエラーをレスポンスに変換する。
func (s *Server) respondStoreError(c *gin.Context, op string, err error) {
	_ = c.Error(err)
	if errors.Is(err, store.ErrInvalidID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "識別子が不正です"})
		return
	}
	s.logger.WithFields(logrus.Fields{
		"op":    op,
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	}).Error("ストレージ操作に失敗しました")
	c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%sに失敗しました", op)})
}

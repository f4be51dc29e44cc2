// smart dealsサーバーのエントリポイント。
// 商品と入札のCRUDをHTTPで公開し、書き込み系のルートはベアラートークンで保護する。
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/smartdeals/server/internal/config"
	"github.com/smartdeals/server/internal/deals"
	"github.com/smartdeals/server/internal/store"
	"github.com/smartdeals/server/pkg/credential"
	"github.com/smartdeals/server/pkg/httpclient"
	"github.com/smartdeals/server/pkg/logging"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの初期化に失敗: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("smart dealsサーバーが異常終了しました")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			logger.WithError(err).Error("ストレージのクローズに失敗")
		}
	}()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	server := deals.NewServer(cfg.HTTP.Port, deals.Dependencies{
		Products:       db.Collection(cfg.Store.ProductsCollection),
		Bids:           db.Collection(cfg.Store.BidsCollection),
		Verifier:       verifier,
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"port":  cfg.HTTP.Port,
			"store": cfg.Store.Driver,
			"auth":  cfg.Auth.Provider,
		}).Info("smart dealsサーバーを起動します")
		return server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("シャットダウンを開始します")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("smart dealsサーバーを停止しました")
	return nil
}

// openDatabase は設定されたドライバでストレージを開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store.Database, error) {
	var (
		db     store.Database
		fields logrus.Fields
	)
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		sqlite, err := store.OpenSQLite(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("SQLiteの初期化に失敗: %w", err)
		}
		db, fields = sqlite, logrus.Fields{"driver": cfg.Store.Driver, "path": cfg.Store.SQLitePath}
	default:
		mongo, err := store.OpenMongo(cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("MongoDBクライアントの初期化に失敗: %w", err)
		}
		db, fields = mongo, logrus.Fields{"driver": cfg.Store.Driver, "database": cfg.Store.MongoDatabase}
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("ストレージへの接続に失敗: %w", err)
	}
	logger.WithFields(fields).Info("ストレージに接続しました")
	return db, nil
}

// newVerifier は設定された認証プロバイダのトークン検証器を構築する。
func newVerifier(ctx context.Context, cfg *config.Config) (credential.Verifier, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderJWT:
		return credential.NewJWTVerifier(cfg.Auth.JWTSecret), nil
	case config.AuthProviderRemote:
		opts := []httpclient.Option{httpclient.WithTimeout(cfg.Auth.IntrospectionTimeout)}
		if cfg.Auth.IntrospectionAuth != "" {
			opts = append(opts, httpclient.WithHeader("Authorization", cfg.Auth.IntrospectionAuth))
		}
		return credential.NewRemoteVerifier(httpclient.New(cfg.Auth.IntrospectionURL, opts...)), nil
	default:
		account, err := credential.DecodeServiceAccount(cfg.Auth.FirebaseServiceKey)
		if err != nil {
			return nil, fmt.Errorf("サービスアカウントの読み込みに失敗: %w", err)
		}
		v, err := credential.NewFirebaseVerifier(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("Firebase検証器の初期化に失敗: %w", err)
		}
		return v, nil
	}
}

// Package config は環境変数と .env.local からサービス設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultEnvFile は起動時に読み込むdotenvファイル。存在しなくてもよい。
const DefaultEnvFile = ".env.local"

// ErrInvalidConfig は設定値が不足または不正であることを表す。
var ErrInvalidConfig = errors.New("設定が不正です")

// StoreDriver はストレージの実装。
type StoreDriver string

const (
	StoreDriverMongo  StoreDriver = "mongo"
	StoreDriverSQLite StoreDriver = "sqlite"
)

// AuthProvider はトークン検証の実装。
type AuthProvider string

const (
	AuthProviderFirebase AuthProvider = "firebase"
	AuthProviderJWT      AuthProvider = "jwt"
	AuthProviderRemote   AuthProvider = "remote"
)

type (
	// Config はサービス全体の設定。
	Config struct {
		HTTP
		Store
		Auth
		Log
	}

	HTTP struct {
		Port            string
		AllowedOrigins  []string
		ShutdownTimeout time.Duration
	}
	Store struct {
		Driver             StoreDriver
		MongoURI           string
		MongoDatabase      string
		ProductsCollection string
		BidsCollection     string
		SQLitePath         string
	}
	Auth struct {
		Provider             AuthProvider
		FirebaseServiceKey   string // base64エンコードされたサービスアカウントJSON
		JWTSecret            string
		IntrospectionURL     string
		IntrospectionAuth    string // イントロスペクション呼び出し時のAuthorizationヘッダー
		IntrospectionTimeout time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
)

// Load は envFile と環境変数から設定を読み込み、検証する。
// 同じキーがあれば環境変数を優先する。envFile が存在しない場合は無視する。
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", "3000")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("store_driver", string(StoreDriverMongo))
	v.SetDefault("mongodb_database", "smartDeals")
	v.SetDefault("products_collection", "productsCollection")
	v.SetDefault("bids_collection", "bidsCollection")
	v.SetDefault("sqlite_path", "smartdeals.db")
	v.SetDefault("auth_provider", string(AuthProviderFirebase))
	v.SetDefault("auth_introspection_timeout", "5s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s の読み込みに失敗: %w", envFile, err)
		}
	}

	cfg := &Config{
		HTTP: HTTP{
			Port:            v.GetString("PORT"),
			AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Store: Store{
			Driver:             StoreDriver(strings.ToLower(v.GetString("STORE_DRIVER"))),
			MongoURI:           v.GetString("MONGODB_URI"),
			MongoDatabase:      v.GetString("MONGODB_DATABASE"),
			ProductsCollection: v.GetString("PRODUCTS_COLLECTION"),
			BidsCollection:     v.GetString("BIDS_COLLECTION"),
			SQLitePath:         v.GetString("SQLITE_PATH"),
		},
		Auth: Auth{
			Provider:             AuthProvider(strings.ToLower(v.GetString("AUTH_PROVIDER"))),
			FirebaseServiceKey:   v.GetString("FIREBASE_SERVICE_KEY"),
			JWTSecret:            v.GetString("JWT_SECRET"),
			IntrospectionURL:     v.GetString("AUTH_INTROSPECTION_URL"),
			IntrospectionAuth:    v.GetString("AUTH_INTROSPECTION_AUTHORIZATION"),
			IntrospectionTimeout: v.GetDuration("AUTH_INTROSPECTION_TIMEOUT"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は必須項目と列挙値を検証する。問題はまとめて報告する。
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORTが空です"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUTは正の値である必要があります"))
	}

	switch c.Driver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URIが設定されていません"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGODB_DATABASEが空です"))
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATHが空です"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVERが不正です: %q", c.Driver))
	}
	if c.ProductsCollection == "" || c.BidsCollection == "" {
		errs = append(errs, errors.New("コレクション名が空です"))
	}

	switch c.Provider {
	case AuthProviderFirebase:
		if c.FirebaseServiceKey == "" {
			errs = append(errs, errors.New("FIREBASE_SERVICE_KEYが設定されていません"))
		}
	case AuthProviderJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRETが設定されていません"))
		}
	case AuthProviderRemote:
		if c.IntrospectionURL == "" {
			errs = append(errs, errors.New("AUTH_INTROSPECTION_URLが設定されていません"))
		}
		if c.IntrospectionTimeout <= 0 {
			errs = append(errs, errors.New("AUTH_INTROSPECTION_TIMEOUTは正の値である必要があります"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_PROVIDERが不正です: %q", c.Provider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// splitList はカンマ区切りの値を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

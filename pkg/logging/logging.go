// Package logging はサービス全体で使う構造化ロガーを生成する。
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// FormatJSON はJSON形式のログ出力を表す。
const FormatJSON = "json"

// New は指定されたレベルと形式のロガーを標準出力向けに生成する。
func New(level, format string) (*logrus.Logger, error) {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter は出力先を指定してロガーを生成する。
func NewWithWriter(w io.Writer, level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("ログレベルが不正です: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	switch format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("ログ形式が不正です: %q", format)
	}
	return logger, nil
}

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	t.Run("JSON形式で出力されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := NewWithWriter(&buf, "debug", FormatJSON)
		if err != nil {
			t.Fatalf("NewWithWriter()でエラーが発生: %v", err)
		}
		logger.WithField("collection", "bidsCollection").Info("ok")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("ログのパースに失敗: %v, body=%s", err, buf.String())
		}
		if entry["collection"] != "bidsCollection" {
			t.Errorf("collection = %v, want bidsCollection", entry["collection"])
		}
		if logger.GetLevel() != logrus.DebugLevel {
			t.Errorf("level = %v, want debug", logger.GetLevel())
		}
	})

	t.Run("不正なレベルはエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := NewWithWriter(&bytes.Buffer{}, "loud", "text"); err == nil {
			t.Fatal("エラーを返すべきだが、nilが返った")
		}
	})

	t.Run("不正な形式はエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := NewWithWriter(&bytes.Buffer{}, "info", "xml"); err == nil {
			t.Fatal("エラーを返すべきだが、nilが返った")
		}
	})
}

package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ServiceAccount はFirebase Admin SDKのサービスアカウント認証情報。
type ServiceAccount struct {
	// Type は認証情報の種別。"service_account" のみ受け付ける。
	Type string `json:"type"`
	// ProjectID はFirebaseプロジェクトID。
	ProjectID string `json:"project_id"`
	// ClientEmail はサービスアカウントのメールアドレス。
	ClientEmail string `json:"client_email"`

	raw []byte
}

// JSON はデコード済みの認証情報JSONを返す。
func (s *ServiceAccount) JSON() []byte {
	return s.raw
}

// DecodeServiceAccount はbase64エンコードされたサービスアカウントJSONをデコードする。
// 環境変数に鍵ファイルを直接置けないため、起動時にこの形式で受け取る。
func DecodeServiceAccount(encoded string) (*ServiceAccount, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("サービスアカウントが空です")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("サービスアカウントのbase64デコードに失敗: %w", err)
	}

	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("サービスアカウントJSONのパースに失敗: %w", err)
	}
	if sa.Type != "service_account" {
		return nil, fmt.Errorf("サービスアカウントの種別が不正です: %q", sa.Type)
	}
	if sa.ProjectID == "" {
		return nil, fmt.Errorf("サービスアカウントにproject_idがありません")
	}

	sa.raw = raw
	return &sa, nil
}

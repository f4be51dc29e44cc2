package deals

import (
	"fmt"
	"math"
	"net/http"
	"testing"

	"github.com/smartdeals/server/internal/store"
)

// TestParseLimit はlimitクエリの解釈を検証する。
func TestParseLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want int
	}{
		{raw: "3", want: 3},
		{raw: "20", want: 20},
		{raw: "+4", want: 4},
		{raw: "3abc", want: 3},
		{raw: "3.5", want: 3},
		{raw: " 3", want: 3},
		{raw: "\t\n3", want: 3},
		{raw: "-3", want: 3},
		{raw: "0x10", want: 16},
		{raw: "007", want: 7},
		{raw: "99999999999999999999999", want: math.MaxInt},
		{raw: "", want: defaultRecentLimit},
		{raw: "abc", want: defaultRecentLimit},
		{raw: "0", want: defaultRecentLimit},
		{raw: "-0", want: defaultRecentLimit},
		{raw: "0.9", want: defaultRecentLimit},
		{raw: "-", want: defaultRecentLimit},
		{raw: "0x", want: defaultRecentLimit},
		{raw: "a3", want: defaultRecentLimit},
	}
	for _, tc := range cases {
		if got := parseLimit(tc.raw); got != tc.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

// TestHandleListProducts は商品一覧ハンドラのテスト。
func TestHandleListProducts(t *testing.T) {
	t.Parallel()

	t.Run("認証なしで作成日時の降順に全件返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		createTestDoc(t, env.products, store.Document{"title": "old", "created_at": "2025-01-01T00:00:00Z"})
		createTestDoc(t, env.products, store.Document{"title": "new", "created_at": "2025-01-03T00:00:00Z"})
		createTestDoc(t, env.products, store.Document{"title": "mid", "created_at": "2025-01-02T00:00:00Z"})

		w := doRequest(env, http.MethodGet, "/products", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		result := parseJSONArray(t, w)
		if len(result) != 3 {
			t.Fatalf("件数: got %d, want 3", len(result))
		}
		for i, want := range []string{"new", "mid", "old"} {
			if result[i]["title"] != want {
				t.Errorf("result[%d].title: got %v, want %s", i, result[i]["title"], want)
			}
		}
	})

	t.Run("商品がない場合は空配列を返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		w := doRequest(env, http.MethodGet, "/products", "", nil)
		if w.Body.String() != "[]" {
			t.Errorf("body: got %s, want []", w.Body.String())
		}
	})
}

// TestHandleRecentProducts は新着商品ハンドラのテスト。
func TestHandleRecentProducts(t *testing.T) {
	t.Parallel()

	seed := func(t *testing.T, env *testEnv, n int) {
		t.Helper()
		for i := range n {
			createTestDoc(t, env.products, store.Document{
				"title":      fmt.Sprintf("item-%02d", i),
				"created_at": fmt.Sprintf("2025-02-%02dT00:00:00Z", i+1),
			})
		}
	}

	t.Run("limit=3で新しい順に3件返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		seed(t, env, 10)

		result := parseJSONArray(t, doRequest(env, http.MethodGet, "/recentProducts?limit=3", "", nil))
		if len(result) != 3 {
			t.Fatalf("件数: got %d, want 3", len(result))
		}
		for i, want := range []string{"item-09", "item-08", "item-07"} {
			if result[i]["title"] != want {
				t.Errorf("result[%d].title: got %v, want %s", i, result[i]["title"], want)
			}
		}
	})

	t.Run("limitを省略した場合は6件返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		seed(t, env, 10)

		result := parseJSONArray(t, doRequest(env, http.MethodGet, "/recentProducts", "", nil))
		if len(result) != 6 {
			t.Errorf("件数: got %d, want 6", len(result))
		}
	})

	t.Run("limitが数値でない場合は6件返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		seed(t, env, 10)

		result := parseJSONArray(t, doRequest(env, http.MethodGet, "/recentProducts?limit=many", "", nil))
		if len(result) != 6 {
			t.Errorf("件数: got %d, want 6", len(result))
		}
	})

	t.Run("limitは先頭の整数部分として解釈する", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		seed(t, env, 8)

		cases := []struct {
			query string
			want  int
		}{
			{query: "3", want: 3},
			{query: "3abc", want: 3},
			{query: "3.5", want: 3},
			{query: "-3", want: 3},
			{query: "%203", want: 3},
			{query: "0", want: 6},
		}
		for _, tc := range cases {
			result := parseJSONArray(t, doRequest(env, http.MethodGet, "/recentProducts?limit="+tc.query, "", nil))
			if len(result) != tc.want {
				t.Errorf("limit=%s: 件数 got %d, want %d", tc.query, len(result), tc.want)
			}
		}
	})

	t.Run("件数がlimitより少ない場合は全件返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		seed(t, env, 2)

		result := parseJSONArray(t, doRequest(env, http.MethodGet, "/recentProducts?limit=5", "", nil))
		if len(result) != 2 {
			t.Errorf("件数: got %d, want 2", len(result))
		}
	})
}

// TestHandleCreateAndGetProduct は商品作成と取得のテスト。
func TestHandleCreateAndGetProduct(t *testing.T) {
	t.Parallel()

	t.Run("作成した商品を返却された識別子で取得できる", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		body := map[string]any{
			"title":       "ヴィンテージギター",
			"price_min":   float64(300),
			"price_max":   float64(450),
			"email":       "seller@example.com",
			"category":    "Musical Instruments",
			"created_at":  "2025-05-01T10:00:00Z",
			"status":      "pending",
			"seller_name": "出品者A",
		}
		w := doRequest(env, http.MethodPost, "/products", tokenFor(t, "seller@example.com"), body)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		ack := parseJSON(t, w)
		if ack["acknowledged"] != true {
			t.Errorf("acknowledged: got %v, want true", ack["acknowledged"])
		}
		id, ok := ack["insertedId"].(string)
		if !ok || id == "" {
			t.Fatalf("insertedId: got %v", ack["insertedId"])
		}

		got := parseJSON(t, doRequest(env, http.MethodGet, "/products/"+id, "", nil))
		for k, v := range body {
			if got[k] != v {
				t.Errorf("%s: got %v, want %v", k, got[k], v)
			}
		}
		if got["_id"] != id {
			t.Errorf("_id: got %v, want %v", got["_id"], id)
		}
	})

	t.Run("存在しない商品は200でnullを返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		w := doRequest(env, http.MethodGet, "/products/"+store.NewID(), "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if w.Body.String() != "null" {
			t.Errorf("body: got %s, want null", w.Body.String())
		}
	})
}

// TestHandleListMyProducts は出品商品一覧ハンドラのテスト。
func TestHandleListMyProducts(t *testing.T) {
	t.Parallel()

	env := setupTestServer(t)
	createTestDoc(t, env.products, store.Document{"title": "a1", "email": "alice@example.com", "created_at": "2025-01-01"})
	createTestDoc(t, env.products, store.Document{"title": "b1", "email": "bob@example.com", "created_at": "2025-01-02"})
	createTestDoc(t, env.products, store.Document{"title": "a2", "email": "alice@example.com", "created_at": "2025-01-03"})

	w := doRequest(env, http.MethodGet, "/myProducts/alice@example.com", tokenFor(t, "alice@example.com"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	result := parseJSONArray(t, w)
	if len(result) != 2 {
		t.Fatalf("件数: got %d, want 2", len(result))
	}
	if result[0]["title"] != "a2" || result[1]["title"] != "a1" {
		t.Errorf("順序: got %v, %v", result[0]["title"], result[1]["title"])
	}
}

// TestHandleUpdateProduct は商品更新ハンドラのテスト。
func TestHandleUpdateProduct(t *testing.T) {
	t.Parallel()

	t.Run("ボディのフィールドをマージして確認応答を返す", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)
		id := createTestDoc(t, env.products, store.Document{"title": "時計", "status": "pending", "email": "s@example.com"})

		w := doRequest(env, http.MethodPut, "/products/"+id, tokenFor(t, "s@example.com"), map[string]any{"status": "sold"})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}
		ack := parseJSON(t, w)
		if ack["matchedCount"] != float64(1) || ack["modifiedCount"] != float64(1) {
			t.Errorf("ack: got %v", ack)
		}
		if _, ok := ack["upsertedId"]; !ok {
			t.Error("upsertedIdが含まれていない")
		}

		got := parseJSON(t, doRequest(env, http.MethodGet, "/products/"+id, "", nil))
		if got["status"] != "sold" || got["title"] != "時計" {
			t.Errorf("更新後: got %v", got)
		}
	})

	t.Run("存在しない商品ではmatchedCountが0", func(t *testing.T) {
		t.Parallel()
		env := setupTestServer(t)

		w := doRequest(env, http.MethodPut, "/products/"+store.NewID(), tokenFor(t, "s@example.com"), map[string]any{"status": "sold"})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if ack := parseJSON(t, w); ack["matchedCount"] != float64(0) {
			t.Errorf("matchedCount: got %v, want 0", ack["matchedCount"])
		}
	})
}

// TestHandleDeleteProduct は商品削除ハンドラのテスト。
func TestHandleDeleteProduct(t *testing.T) {
	t.Parallel()

	env := setupTestServer(t)
	id := createTestDoc(t, env.products, store.Document{"title": "ランプ"})

	w := doRequest(env, http.MethodDelete, "/products/"+id, tokenFor(t, "s@example.com"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	if ack := parseJSON(t, w); ack["deletedCount"] != float64(1) || ack["acknowledged"] != true {
		t.Errorf("ack: got %v", ack)
	}

	if w := doRequest(env, http.MethodGet, "/products/"+id, "", nil); w.Body.String() != "null" {
		t.Errorf("削除後の取得: got %s, want null", w.Body.String())
	}
}

// Package deals はマーケットプレイス(商品と入札)のHTTP APIを提供する。
//
// 各エンドポイントはストレージの単一操作に直接対応し、
// ビジネスロジックやスキーマ検証は持たない。
// 書き込み系と本人のデータ一覧はベアラートークン認証が必要で、
// 本人のデータ一覧はトークンのemailとパスパラメータが一致しなければ403を返す。
package deals

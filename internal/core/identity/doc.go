// Package identity 实现节点身份
//
// 每个 Runner / Mediator / 应用都持有一把 Ed25519 密钥。节点 ID 由公钥派生：
//
//	ID = Base58(SHA256(公钥原始字节))
//
// 该 ID 同时作为 TLS 证书指纹使用，pinned 校验策略直接比较 ID。
package identity

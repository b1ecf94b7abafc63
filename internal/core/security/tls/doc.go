// Package tls 实现连接的 TLS 1.3 双向认证
//
// 每个节点用自己的 Ed25519 身份密钥签发自签名证书（或加载 CA 签发的证书，
// 但证书公钥必须是身份公钥）。握手时跳过标准链校验，改由
// CertificateValidationPolicy 决定是否接受对端：
//
//   - AcceptAny:          接受任何对端
//   - PinnedFingerprint:  对端 ID 必须在白名单中
//   - TrustedRoot:        对端证书链必须由受信 CA 签发
//
// 对端 ID 总是从证书公钥派生，不可伪造。
//
// # 使用示例
//
//	tr, _ := tls.NewTransport(id, cfg.Security)
//	sc, err := tr.SecureOutbound(ctx, rawConn)
//	log.Info("已连接", "peer", sc.RemoteIdentity().ID)
package tls

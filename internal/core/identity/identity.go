package identity

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
)

// IDSize 解码后的节点 ID 长度（SHA256 摘要）
const IDSize = sha256.Size

// Identity 节点身份
type Identity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	id   string
}

// Generate 生成新的随机身份
func Generate() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("生成 Ed25519 密钥失败: %w", err)
	}
	return FromPrivateKey(priv)
}

// FromPrivateKey 从私钥创建身份
func FromPrivateKey(priv ed25519.PrivateKey) (*Identity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrNilPrivateKey
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, ErrUnsupportedKeyType
	}
	id, err := IDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return &Identity{priv: priv, pub: pub, id: id}, nil
}

// ID 返回节点 ID
func (i *Identity) ID() string {
	return i.id
}

// PublicKey 返回公钥
func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.pub
}

// PrivateKey 返回私钥
func (i *Identity) PrivateKey() ed25519.PrivateKey {
	return i.priv
}

// Signer 返回 crypto.Signer，用于签发证书
func (i *Identity) Signer() crypto.Signer {
	return i.priv
}

// Sign 签名数据
func (i *Identity) Sign(data []byte) []byte {
	return ed25519.Sign(i.priv, data)
}

// Verify 使用给定公钥验证签名
func Verify(pub ed25519.PublicKey, data, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}

// ============================================================================
// ID 派生
// ============================================================================

// IDFromPublicKey 从公钥派生节点 ID
//
// 派生算法：Base58(SHA256(公钥原始字节))
func IDFromPublicKey(pub crypto.PublicKey) (string, error) {
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return "", ErrUnsupportedKeyType
	}
	if len(edPub) == 0 {
		return "", ErrEmptyPublicKey
	}
	sum := sha256.Sum256(edPub)
	return base58.Encode(sum[:]), nil
}

// ValidateID 验证节点 ID 格式是否有效
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	raw, err := base58.Decode(id)
	if err != nil || len(raw) != IDSize {
		return ErrInvalidID
	}
	return nil
}

package identity

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dep2p/go-offload/config"
	"github.com/dep2p/go-offload/internal/util/logger"
)

var log = logger.Logger("identity")

const pemTypePrivate = "PRIVATE KEY"

// ============================================================================
//                              私钥持久化
// ============================================================================

// SavePrivateKeyPEM 保存私钥到 PEM 文件（PKCS#8）
//
// 使用原子写操作（临时文件 + rename），文件权限 0600。
func SavePrivateKeyPEM(priv ed25519.PrivateKey, path string) error {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("编码私钥失败: %w", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: der})
	return atomicWriteFile(path, data, 0o600)
}

// LoadPrivateKeyPEM 从 PEM 文件加载私钥
func LoadPrivateKeyPEM(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return ParsePrivateKeyPEM(data)
}

// ParsePrivateKeyPEM 解析 PEM 编码的 Ed25519 私钥
func ParsePrivateKeyPEM(data []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePrivate {
		return nil, ErrInvalidPEM
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKeyType
	}
	return priv, nil
}

// Load 按配置加载或生成身份
//
// 优先级：KeyFile 存在 > AutoGenerate（有 KeyFile 时写回文件）
func Load(cfg config.IdentityConfig) (*Identity, error) {
	if cfg.KeyFile != "" {
		priv, err := LoadPrivateKeyPEM(cfg.KeyFile)
		switch {
		case err == nil:
			return FromPrivateKey(priv)
		case errors.Is(err, ErrKeyNotFound) && cfg.AutoGenerate:
			id, genErr := Generate()
			if genErr != nil {
				return nil, genErr
			}
			if saveErr := SavePrivateKeyPEM(id.PrivateKey(), cfg.KeyFile); saveErr != nil {
				return nil, fmt.Errorf("保存身份失败: %w", saveErr)
			}
			log.Info("已生成新身份", "id", logger.TruncateID(id.ID(), 8), "path", cfg.KeyFile)
			return id, nil
		default:
			return nil, fmt.Errorf("加载身份失败: %w", err)
		}
	}

	if !cfg.AutoGenerate {
		return nil, ErrKeyNotFound
	}
	return Generate()
}

// atomicWriteFile 原子写入文件
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".key-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

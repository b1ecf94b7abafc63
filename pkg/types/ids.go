package types

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// ============================================================================
//                              TaskID - 任务标识
// ============================================================================

// TaskID 任务唯一标识（UUID 字符串）
type TaskID string

// NewTaskID 生成新的任务 ID
func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// String 返回字符串表示
func (id TaskID) String() string {
	return string(id)
}

// IsEmpty 检查是否为空
func (id TaskID) IsEmpty() bool {
	return id == ""
}

// ============================================================================
//                              RunnerID - Runner 标识
// ============================================================================

// RunnerID Runner 唯一标识
//
// 由 Runner 身份公钥派生（Base58(SHA256(pubkey))），
// 同时作为证书指纹用于 pinned-fingerprint 校验。
type RunnerID string

// String 返回字符串表示
func (id RunnerID) String() string {
	return string(id)
}

// ShortString 返回用于日志的短标识
func (id RunnerID) ShortString() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// ============================================================================
//                              ChannelID - 逻辑通道标识
// ============================================================================

// ChannelID 逻辑通道标识，在单个连接内唯一
type ChannelID uint16

// NamedChannelBase 命名通道哈希后的最小 ID
//
// [0, NamedChannelBase) 保留给众所周知的小整数通道。
const NamedChannelBase ChannelID = 256

// ErrEmptyChannelName 通道名为空
var ErrEmptyChannelName = errors.New("types: empty channel name")

// ChannelIDFromName 将稳定的字符串通道名哈希为 ChannelID
//
// 使用 murmur3 32 位哈希，映射到 [NamedChannelBase, 65535]。
// 两端使用相同名字即可得到相同 ID，无需协商。
func ChannelIDFromName(name string) (ChannelID, error) {
	if name == "" {
		return 0, ErrEmptyChannelName
	}
	span := uint32(1<<16) - uint32(NamedChannelBase)
	h := murmur3.Sum32([]byte(name))
	return NamedChannelBase + ChannelID(h%span), nil
}

package taskmsg

import "github.com/dep2p/go-offload/pkg/types"

// 众所周知的通道 ID
const (
	ChannelControl        types.ChannelID = 1
	ChannelTask           types.ChannelID = 2
	ChannelAssembly       types.ChannelID = 3
	ChannelFile           types.ChannelID = 4
	ChannelAppMediator    types.ChannelID = 5
	ChannelRunnerMediator types.ChannelID = 6
)

// Package interfaces 定义 offload 核心依赖的外部协作者接口
//
// 核心只依赖这些接口，从不依赖其实现：
//   - codec.go    - TaskPayloadCodec / Invocable / Env：任务负载编解码
//   - resolver.go - AssemblyResolver / FileProvider：依赖解析与文件代理
//   - security.go - CertificateValidationPolicy / PeerIdentity：对端身份校验
package interfaces

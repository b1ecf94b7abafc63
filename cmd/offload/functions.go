package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/dep2p/go-offload"
)

// builtinFunctions 命令行 Runner 自带的演示函数
func builtinFunctions() *offload.Functions {
	fns := offload.NewFunctions()
	offload.MustRegister(fns, "double", func(_ context.Context, x int) (int, error) {
		return x * 2, nil
	})
	offload.MustRegister(fns, "sum", func(_ context.Context, xs []int) (int, error) {
		total := 0
		for _, x := range xs {
			total += x
		}
		return total, nil
	})
	offload.MustRegister(fns, "upper", func(_ context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	})
	// 读取应用侧文件并返回 SHA-256
	offload.MustRegister(fns, "sha256", func(ctx context.Context, path string) (string, error) {
		data, err := offload.ReadFile(ctx, path)
		if err != nil {
			return "", err
		}
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	})
	return fns
}

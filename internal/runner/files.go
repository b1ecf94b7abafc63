package runner

import (
	"context"

	"github.com/dep2p/go-offload/pkg/interfaces"
)

type filesKey struct{}

// WithFiles 把文件代理放入任务上下文
func WithFiles(ctx context.Context, files interfaces.FileProvider) context.Context {
	return context.WithValue(ctx, filesKey{}, files)
}

// ReadFile 在任务内读取应用侧文件
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	files, ok := ctx.Value(filesKey{}).(interfaces.FileProvider)
	if !ok || files == nil {
		return nil, ErrNoFileProvider
	}
	return files.ReadFile(ctx, path)
}

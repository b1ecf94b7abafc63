package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// fn 类型擦除后的注册函数
type fn func(ctx context.Context, args json.RawMessage) ([]byte, error)

// Registry 已注册函数表
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]fn
}

// NewRegistry 创建函数表
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]fn)}
}

// Register 注册一个强类型函数
//
// 参数与返回值都以 JSON 编码传输。
func Register[A, R any](reg *Registry, name string, f func(ctx context.Context, args A) (R, error)) error {
	wrapped := func(ctx context.Context, raw json.RawMessage) ([]byte, error) {
		var args A
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("解析 %s 参数失败: %w", name, err)
			}
		}
		result, err := f(ctx, args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.funcs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, name)
	}
	reg.funcs[name] = wrapped
	return nil
}

// MustRegister 注册，失败时 panic
func MustRegister[A, R any](reg *Registry, name string, f func(ctx context.Context, args A) (R, error)) {
	if err := Register(reg, name, f); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(name string) (fn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Names 返回已注册函数名（有序）
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeResult 把 Response 中的结果字节解析为 R
func DecodeResult[R any](data []byte) (R, error) {
	var out R
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("解析结果失败: %w", err)
	}
	return out, nil
}

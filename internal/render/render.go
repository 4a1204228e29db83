// Package render 在静态 HTML 抽取失败时，借助远程无头浏览器渲染页面后重新抽取。
package render

import (
	"context"
	"errors"
)

// ErrRenderUnavailable 渲染服务未配置、无法连接或渲染失败
var ErrRenderUnavailable = errors.New("render unavailable")

// Renderer 返回页面执行脚本之后的完整 HTML
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// NopRenderer 用于未配置渲染服务的环境，所有调用都返回 ErrRenderUnavailable
type NopRenderer struct{}

func (NopRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	return "", ErrRenderUnavailable
}

package storeclient

import "errors"

// 预定义错误
var (
	// ErrMissingProject 未配置项目 id
	ErrMissingProject = errors.New("project id is not configured")

	// ErrMissingWriteKey 写入操作需要写入密钥
	ErrMissingWriteKey = errors.New("write key is required for this operation")

	// ErrUnauthorized 服务端拒绝了凭证
	ErrUnauthorized = errors.New("store rejected the credentials")

	// ErrNotFound 项目或语言不存在
	ErrNotFound = errors.New("resource not found in store")
)

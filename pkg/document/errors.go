package document

import "errors"

// 预定义错误
var (
	// ErrLocked 宿主拒绝修改锁定元素
	ErrLocked = errors.New("element is locked")

	// ErrElementMissing 元素已不存在（例如扫描与应用之间被删除）
	ErrElementMissing = errors.New("element no longer exists")

	// ErrFontUnavailable 字体无法加载
	ErrFontUnavailable = errors.New("font unavailable")

	// ErrUnsupportedFormat 无法识别的文档格式
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

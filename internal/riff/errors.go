package riff

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete 剩余字节不足以解码定长字段
	ErrIncomplete = errors.New("riff: incomplete input")
	// ErrMismatch 字节存在但与期望的字面量不一致
	ErrMismatch = errors.New("riff: literal mismatch")
	// ErrUnrecognizedContainer 不是支持的容器格式
	ErrUnrecognizedContainer = errors.New("riff: unrecognized container")
	// ErrUnknownListType 严格模式下遇到未知 LIST 类型
	ErrUnknownListType = errors.New("riff: unknown list type")
	// ErrTruncatedChunk 块声明的大小超出可用数据
	ErrTruncatedChunk = errors.New("riff: truncated chunk")
	// ErrShortList LIST 块太小，放不下列表类型
	ErrShortList = errors.New("riff: list too short for list type")
	// ErrTooDeep movi 嵌套超出深度限制
	ErrTooDeep = errors.New("riff: list nesting too deep")
	// ErrFileSizeMismatch 严格模式下头部声明的文件大小超出缓冲区
	ErrFileSizeMismatch = errors.New("riff: declared file size exceeds buffer")
)

// ParseError 块序列中的解析错误，带出错位置
type ParseError struct {
	Offset int
	Tag    FourCC
	Err    error
}

func (e *ParseError) Error() string {
	if e.Tag == (FourCC{}) {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d (chunk %q)", e.Err, e.Offset, e.Tag.String())
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

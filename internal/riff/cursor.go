// Package riff 解析 RIFF 家族容器 (AVI/AVIX/AMV/ON2) 的块结构。
//
// 所有解析都是零拷贝的：结果中的字节切片直接引用调用者传入的缓冲区，
// 缓冲区必须比所有解析结果活得更久。
package riff

import "encoding/binary"

var le = binary.LittleEndian

// FourCC 4 字节标签
type FourCC [4]byte

// NewFourCC 从字符串构造标签，超出 4 字节的部分被截断
func NewFourCC(s string) FourCC {
	var t FourCC
	copy(t[:], s)
	return t
}

func (t FourCC) String() string {
	return string(t[:])
}

// Cursor 缓冲区上的只读游标，值语义，每次读取返回新游标
type Cursor struct {
	buf []byte
	off int
}

// NewCursor 创建从 off 开始的游标
func NewCursor(buf []byte, off int) Cursor {
	return Cursor{buf: buf, off: off}
}

// Offset 当前偏移
func (c Cursor) Offset() int { return c.off }

// Remaining 剩余字节数
func (c Cursor) Remaining() int {
	if c.off >= len(c.buf) {
		return 0
	}
	return len(c.buf) - c.off
}

// Take 读取 n 字节
func (c Cursor) Take(n int) ([]byte, Cursor, error) {
	if n < 0 || c.Remaining() < n {
		return nil, c, ErrIncomplete
	}
	out := c.buf[c.off : c.off+n : c.off+n]
	return out, Cursor{buf: c.buf, off: c.off + n}, nil
}

// FourCC 读取任意 4 字节标签
func (c Cursor) FourCC() (FourCC, Cursor, error) {
	b, next, err := c.Take(4)
	if err != nil {
		return FourCC{}, c, err
	}
	var t FourCC
	copy(t[:], b)
	return t, next, nil
}

// Literal 读取 4 字节并要求等于 lit
func (c Cursor) Literal(lit FourCC) (Cursor, error) {
	t, next, err := c.FourCC()
	if err != nil {
		return c, err
	}
	if t != lit {
		return c, ErrMismatch
	}
	return next, nil
}

// Uint32 读取小端 uint32
func (c Cursor) Uint32() (uint32, Cursor, error) {
	b, next, err := c.Take(4)
	if err != nil {
		return 0, c, err
	}
	return le.Uint32(b), next, nil
}

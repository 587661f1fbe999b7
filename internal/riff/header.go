package riff

import "fmt"

// HeaderSize 容器头固定 12 字节
const HeaderSize = 12

// 容器标签
var (
	TagRIFF  = NewFourCC("RIFF")
	TagON2   = NewFourCC("ON2 ")
	TagAVI   = NewFourCC("AVI ")
	TagAVIX  = NewFourCC("AVIX")
	TagAVI19 = NewFourCC("AVI\x19")
	TagAMV   = NewFourCC("AMV ")
	TagON2f  = NewFourCC("ON2f")
)

// Header 容器头
// FileSize 是 magic1+FileSize 之后的字节数，仅供参考，不用于边界判断
type Header struct {
	Magic1   FourCC
	FileSize uint32
	Magic2   FourCC
}

func (h Header) String() string {
	return fmt.Sprintf("%s(%s) size=%d", h.Magic1, h.Magic2, h.FileSize)
}

// containerAlt 一种容器头写法：magic1 + size + formats 中的任一个
type containerAlt struct {
	magic   FourCC
	formats []FourCC
}

// 按优先级排列，先匹配者胜出
var containerAlts = []containerAlt{
	{magic: TagRIFF, formats: []FourCC{TagAVI, TagAVIX, TagAVI19, TagAMV}},
	{magic: TagON2, formats: []FourCC{TagON2f}},
}

// ParseHeader 解析 12 字节容器头，返回头部和新偏移 (12)
func ParseHeader(buf []byte) (Header, int, error) {
	if len(buf) < HeaderSize {
		return Header{}, 0, ErrIncomplete
	}

	for _, alt := range containerAlts {
		if h, c, ok := alt.match(NewCursor(buf, 0)); ok {
			return h, c.Offset(), nil
		}
	}
	return Header{}, 0, fmt.Errorf("%w: %w", ErrUnrecognizedContainer, ErrMismatch)
}

func (a containerAlt) match(c Cursor) (Header, Cursor, bool) {
	c, err := c.Literal(a.magic)
	if err != nil {
		return Header{}, c, false
	}
	size, c, err := c.Uint32()
	if err != nil {
		return Header{}, c, false
	}
	for _, f := range a.formats {
		if next, err := c.Literal(f); err == nil {
			return Header{Magic1: a.magic, FileSize: size, Magic2: f}, next, true
		}
	}
	return Header{}, c, false
}

// IsSupportedHeader 检查 magic1/magic2 组合是否合法
func IsSupportedHeader(magic1, magic2 FourCC) bool {
	for _, alt := range containerAlts {
		if alt.magic != magic1 {
			continue
		}
		for _, f := range alt.formats {
			if f == magic2 {
				return true
			}
		}
	}
	return false
}

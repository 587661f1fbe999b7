package riff

// ChunkHeaderSize 通用块头 8 字节：标签 + 小端长度
const ChunkHeaderSize = 8

// ChunkHeader 通用块头，Size 不含块头本身，也不含奇数长度后的填充字节
type ChunkHeader struct {
	Tag  FourCC
	Size uint32
}

// PaddedSize 按 RIFF 2 字节对齐后的负载长度
func (h ChunkHeader) PaddedSize() uint64 {
	return uint64(h.Size) + uint64(h.Size&1)
}

// ParseChunkHeader 在 off 处解析块头
// 不检查 Size 是否超出缓冲区，由调用方根据真实边界决定
func ParseChunkHeader(buf []byte, off int) (ChunkHeader, int, error) {
	c := NewCursor(buf, off)
	tag, c, err := c.FourCC()
	if err != nil {
		return ChunkHeader{}, off, err
	}
	size, c, err := c.Uint32()
	if err != nil {
		return ChunkHeader{}, off, err
	}
	return ChunkHeader{Tag: tag, Size: size}, c.Offset(), nil
}

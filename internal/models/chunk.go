package models

// ChunkRecord 扁平化的块记录 (32 bytes, 固定内存布局)
// 缓存文件直接按此布局写入，mmap 后零拷贝读取
type ChunkRecord struct {
	Offset   uint64  // 块头在文件中的偏移 (8 bytes) - 放在开头确保对齐
	Size     uint32  // 负载长度，不含块头和填充
	Tag      [4]byte // 块标签
	ListType [4]byte // LIST 块的列表类型，其他块为 0
	Parent   int32   // 父块在记录切片中的下标，顶层为 -1
	Depth    uint16  // 嵌套深度，顶层为 0
	Kind     uint16  // 记录类型
	_        uint32  // 对齐填充
}

// Kind 记录类型常量
const (
	KindChunk = 0 // 不透明块
	KindList  = 1 // 不展开的 LIST
	KindMovi  = 2 // movi 列表
)

// RecordSize ChunkRecord 的内存大小
const RecordSize = 32

// PayloadOffset 负载在文件中的偏移
func (r *ChunkRecord) PayloadOffset() uint64 {
	return r.Offset + 8
}

// TagString 标签字符串
func (r *ChunkRecord) TagString() string {
	return string(r.Tag[:])
}

// ListTypeString 列表类型字符串，非 LIST 返回空
func (r *ChunkRecord) ListTypeString() string {
	if r.Kind == KindChunk {
		return ""
	}
	return string(r.ListType[:])
}

// 流数据块类型 (movi 子块标签后两位)
const (
	StreamVideo    = "dc" // 压缩视频
	StreamVideoRaw = "db" // 未压缩视频
	StreamAudio    = "wb" // 音频
	StreamPalette  = "pc" // 调色板变化
	StreamIndex    = "ix" // OpenDML 索引 (ix##)
	StreamSubtitle = "tx" // 字幕
	StreamUnknown  = ""
)

// StreamNumber 从 movi 子块标签解析流编号，如 "01wb" -> 1，"ix00" -> 0
// 不是流数据块时返回 -1
func StreamNumber(tag [4]byte) int {
	if tag[0] == 'i' && tag[1] == 'x' {
		return digits(tag[2], tag[3])
	}
	return digits(tag[0], tag[1])
}

// StreamKind 从 movi 子块标签解析数据类型，如 "00dc" -> "dc"
func StreamKind(tag [4]byte) string {
	if tag[0] == 'i' && tag[1] == 'x' && digits(tag[2], tag[3]) >= 0 {
		return StreamIndex
	}
	if digits(tag[0], tag[1]) < 0 {
		return StreamUnknown
	}
	return string(tag[2:4])
}

func digits(a, b byte) int {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return -1
	}
	return int(a-'0')*10 + int(b-'0')
}

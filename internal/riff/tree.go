package riff

// DefaultMaxDepth movi 列表默认最大嵌套层数
const DefaultMaxDepth = 32

// Span 原始缓冲区中的一段 [Offset, Offset+Length)
type Span struct {
	Offset int
	Length int
}

// End 结束偏移
func (s Span) End() int { return s.Offset + s.Length }

// Block 一个已解析的块
// List 为 nil 表示普通不透明块，负载不做解释
type Block struct {
	Header ChunkHeader
	// Offset 块头在缓冲区中的起始位置
	Offset  int
	Payload Span
	// Data 负载的零拷贝切片
	Data []byte
	List *List
}

// IsList 是否为 LIST 块
func (b *Block) IsList() bool { return b.List != nil }

// IsMovi 是否为 movi 列表
func (b *Block) IsMovi() bool { return b.List != nil && b.List.Kind == ListMovi }

// Next 下一个兄弟块的起始偏移（含填充字节）
func (b *Block) Next() int {
	return b.Offset + ChunkHeaderSize + int(b.Header.PaddedSize())
}

// File 一次解析的完整结果
type File struct {
	Header Header
	Blocks []Block
}

// Options 解析选项
type Options struct {
	// StrictListTypes 未知 LIST 类型时报错，否则降级为 ListDefault
	StrictListTypes bool
	// StrictFileSize 头部声明大小超出缓冲区时报错
	StrictFileSize bool
	// MaxDepth movi 嵌套上限，<=0 时使用 DefaultMaxDepth
	MaxDepth int
}

// Parser 块树解析器，不持有可变状态，可并发使用
type Parser struct {
	opts Options
}

// NewParser 创建解析器
func NewParser(opts Options) *Parser {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Parser{opts: opts}
}

// Parse 使用默认选项解析
func Parse(buf []byte) (*File, error) {
	return NewParser(Options{}).Parse(buf)
}

// Parse 解析容器头和其后的全部块
// 头部失败时返回 nil；块序列出错时返回已解析的前缀和错误
func (p *Parser) Parse(buf []byte) (*File, error) {
	h, off, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	f := &File{Header: h}
	if p.opts.StrictFileSize && uint64(h.FileSize)+8 > uint64(len(buf)) {
		return f, &ParseError{Offset: 4, Tag: h.Magic1, Err: ErrFileSizeMismatch}
	}

	f.Blocks, err = p.parseSequence(buf, off, len(buf), 0)
	return f, err
}

// parseSequence 解析 [start, end) 内的块序列
func (p *Parser) parseSequence(buf []byte, start, end, depth int) ([]Block, error) {
	var blocks []Block
	off := start

	for {
		hdr, payloadStart, err := ParseChunkHeader(buf[:end], off)
		if err != nil {
			// 不足一个块头：序列自然结束
			return blocks, nil
		}

		payloadEnd := uint64(payloadStart) + uint64(hdr.Size)
		if payloadEnd > uint64(end) {
			return blocks, &ParseError{Offset: off, Tag: hdr.Tag, Err: ErrTruncatedChunk}
		}

		b := Block{
			Header:  hdr,
			Offset:  off,
			Payload: Span{Offset: payloadStart, Length: int(hdr.Size)},
			Data:    buf[payloadStart:int(payloadEnd):int(payloadEnd)],
		}

		if hdr.Tag == TagLIST {
			l, err := dispatchList(b.Data, p.opts.StrictListTypes)
			if err == ErrShortList {
				return blocks, &ParseError{Offset: off, Tag: hdr.Tag, Err: err}
			}
			if err != nil {
				return blocks, &ParseError{Offset: off, Tag: l.Type, Err: err}
			}
			if l.Kind == ListMovi {
				if depth+1 > p.opts.MaxDepth {
					return blocks, &ParseError{Offset: off, Tag: l.Type, Err: ErrTooDeep}
				}
				children, err := p.parseSequence(buf, payloadStart+4, int(payloadEnd), depth+1)
				l.Children = children
				if err != nil {
					b.List = &l
					blocks = append(blocks, b)
					return blocks, err
				}
			}
			b.List = &l
		}
		blocks = append(blocks, b)

		// 区间末尾缺少的填充字节可以容忍
		next := b.Next()
		if next >= end {
			return blocks, nil
		}
		off = next
	}
}

// Walk 深度优先遍历所有块，fn 返回错误时停止
func (f *File) Walk(fn func(b *Block, depth int) error) error {
	return walk(f.Blocks, 0, fn)
}

func walk(blocks []Block, depth int, fn func(b *Block, depth int) error) error {
	for i := range blocks {
		b := &blocks[i]
		if err := fn(b, depth); err != nil {
			return err
		}
		if b.List != nil && len(b.List.Children) > 0 {
			if err := walk(b.List.Children, depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Movi 返回第一个顶层 movi 列表
func (f *File) Movi() *List {
	for i := range f.Blocks {
		if f.Blocks[i].IsMovi() {
			return f.Blocks[i].List
		}
	}
	return nil
}

// Count 块总数（含嵌套）
func (f *File) Count() int {
	n := 0
	f.Walk(func(*Block, int) error {
		n++
		return nil
	})
	return n
}

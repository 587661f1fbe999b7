// Package avi RIFF/AVI 检查库
//
// 在 riff 块解析引擎之上提供文件加载 (mmap)、块树扁平化、统计摘要、
// 负载读取和带磁盘缓存的检查入口。服务端和命令行工具都通过这里访问解析结果。
package avi

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"riffscope/internal/config"
	"riffscope/internal/models"
	"riffscope/internal/riff"

	"golang.org/x/sys/unix"
)

// ============================================================================
// 文件加载
// ============================================================================

// Mapped 只读 mmap 映射的文件
type Mapped struct {
	Path string
	Data []byte
}

// Open 以只读方式 mmap 整个文件
// 解析结果引用 Data，Close 之后不能再使用
func Open(path string) (*Mapped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	m := &Mapped{Path: path}
	size := info.Size()
	if size == 0 {
		return m, nil
	}
	if size != int64(int(size)) {
		return nil, fmt.Errorf("file too large to map: %d", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", filepath.Base(path), err)
	}
	m.Data = data
	return m, nil
}

// Close 释放映射
func (m *Mapped) Close() error {
	if m.Data == nil {
		return nil
	}
	err := unix.Munmap(m.Data)
	m.Data = nil
	return err
}

// ============================================================================
// 检查结果
// ============================================================================

// StreamStat 单个流在 movi 中的统计
type StreamStat struct {
	Stream int    `json:"stream" cbor:"stream"`
	Kind   string `json:"kind" cbor:"kind"`
	Chunks int    `json:"chunks" cbor:"chunks"`
	Bytes  uint64 `json:"bytes" cbor:"bytes"`
}

// Summary 块统计
type Summary struct {
	TopLevel   int            `json:"topLevel" cbor:"topLevel"`
	Total      int            `json:"total" cbor:"total"`
	Lists      int            `json:"lists" cbor:"lists"`
	MoviChunks int            `json:"moviChunks" cbor:"moviChunks"`
	MaxDepth   int            `json:"maxDepth" cbor:"maxDepth"`
	Tags       map[string]int `json:"tags" cbor:"tags"`
	Streams    []StreamStat   `json:"streams" cbor:"streams"`
}

// Container 容器头的可序列化形式
type Container struct {
	Magic1   string `json:"magic1" cbor:"magic1"`
	FileSize uint32 `json:"fileSize" cbor:"fileSize"`
	Magic2   string `json:"magic2" cbor:"magic2"`
}

func containerOf(h riff.Header) Container {
	return Container{Magic1: h.Magic1.String(), FileSize: h.FileSize, Magic2: h.Magic2.String()}
}

// Inspection 一个文件的检查结果，不引用原始缓冲区
type Inspection struct {
	Name      string               `json:"name" cbor:"name"`
	Size      int64                `json:"size" cbor:"size"`
	Container Container            `json:"container" cbor:"container"`
	Header    riff.Header          `json:"-" cbor:"-"`
	Records   []models.ChunkRecord `json:"-" cbor:"-"`
	Summary   Summary              `json:"summary" cbor:"summary"`
	// Err 块序列解析出错时的错误文本，Records 为出错前的前缀
	Err       string `json:"error,omitempty" cbor:"error,omitempty"`
	FromCache bool   `json:"fromCache" cbor:"fromCache"`
}

// Partial 是否只解析了前缀
func (in *Inspection) Partial() bool {
	return in.Err != ""
}

// ParseOptions 把配置转换为解析选项
func ParseOptions(c config.ParseConfig) riff.Options {
	return riff.Options{
		StrictListTypes: c.StrictListTypes,
		StrictFileSize:  c.StrictFileSize,
		MaxDepth:        c.MaxDepth,
	}
}

// InspectBytes 解析内存中的容器
// 头部无法识别时返回错误；块序列出错时返回前缀结果并记录在 Err 中
func InspectBytes(name string, buf []byte, opts riff.Options) (*Inspection, error) {
	f, err := riff.NewParser(opts).Parse(buf)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	records := Flatten(f)
	in := &Inspection{
		Name:      name,
		Size:      int64(len(buf)),
		Container: containerOf(f.Header),
		Header:    f.Header,
		Records:   records,
		Summary:   Summarize(records),
	}
	if err != nil {
		in.Err = err.Error()
		LogWarn("块序列解析中断", "file", name, "error", err, "parsed", len(records))
	}
	LogDebug("解析完成", "file", name, "header", f.Header.String(), "chunks", len(records))
	return in, nil
}

// Inspect 解析磁盘上的文件
func Inspect(path string, opts riff.Options) (*Inspection, error) {
	m, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	return InspectBytes(filepath.Base(path), m.Data, opts)
}

// ============================================================================
// 扁平化与统计
// ============================================================================

// Flatten 把块树按深度优先的文件顺序展开为记录
func Flatten(f *riff.File) []models.ChunkRecord {
	var records []models.ChunkRecord
	var stack []int32 // 各层父记录下标

	f.Walk(func(b *riff.Block, depth int) error {
		stack = stack[:depth]
		parent := int32(-1)
		if depth > 0 {
			parent = stack[depth-1]
		}

		r := models.ChunkRecord{
			Offset: uint64(b.Offset),
			Size:   b.Header.Size,
			Tag:    b.Header.Tag,
			Parent: parent,
			Depth:  uint16(depth),
			Kind:   models.KindChunk,
		}
		if b.List != nil {
			r.ListType = b.List.Type
			r.Kind = models.KindList
			if b.List.Kind == riff.ListMovi {
				r.Kind = models.KindMovi
			}
		}

		stack = append(stack, int32(len(records)))
		records = append(records, r)
		return nil
	})
	return records
}

// Summarize 统计记录
func Summarize(records []models.ChunkRecord) Summary {
	s := Summary{Tags: make(map[string]int)}
	streams := make(map[string]*StreamStat)

	for i := range records {
		r := &records[i]
		s.Total++
		if r.Depth == 0 {
			s.TopLevel++
		}
		if int(r.Depth) > s.MaxDepth {
			s.MaxDepth = int(r.Depth)
		}
		if r.Kind != models.KindChunk {
			s.Lists++
			s.Tags["LIST:"+r.ListTypeString()]++
		} else {
			s.Tags[r.TagString()]++
		}

		if r.Parent < 0 || records[r.Parent].Kind != models.KindMovi || r.Kind != models.KindChunk {
			continue
		}
		s.MoviChunks++

		num := models.StreamNumber(r.Tag)
		if num < 0 {
			continue
		}
		kind := models.StreamKind(r.Tag)
		key := fmt.Sprintf("%02d%s", num, kind)
		st := streams[key]
		if st == nil {
			st = &StreamStat{Stream: num, Kind: kind}
			streams[key] = st
		}
		st.Chunks++
		st.Bytes += uint64(r.Size)
	}

	for _, st := range streams {
		s.Streams = append(s.Streams, *st)
	}
	sort.Slice(s.Streams, func(i, j int) bool {
		if s.Streams[i].Stream != s.Streams[j].Stream {
			return s.Streams[i].Stream < s.Streams[j].Stream
		}
		return s.Streams[i].Kind < s.Streams[j].Kind
	})
	return s
}

// ============================================================================
// 负载读取
// ============================================================================

// ReadPayload 从文件读取一个块的负载
func ReadPayload(filePath string, r models.ChunkRecord) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(int64(r.PayloadOffset()), io.SeekStart); err != nil {
		return nil, err
	}

	data := make([]byte, r.Size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("reading %s payload at %d: %w", r.TagString(), r.Offset, err)
	}
	return data, nil
}

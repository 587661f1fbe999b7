package avi

import (
	"os"
	"path/filepath"
	"sync"

	"riffscope/internal/index"
	"riffscope/internal/models"
	"riffscope/internal/riff"
)

// ============================================================================
// 带缓存的检查
// ============================================================================

// InspectWithCache 检查文件（带 mmap 块索引缓存）
// 首次解析后缓存到磁盘，后续直接 mmap 读取记录，不再解析原始文件
// 缓存键只包含文件本身，非默认解析选项下的结果可能不同，直接解析
func InspectWithCache(path string, opts riff.Options) (*Inspection, error) {
	if !cacheable(opts) {
		return Inspect(path, opts)
	}

	if index.CacheExists(path) {
		in, err := loadCached(path)
		if err == nil {
			LogDebug("IndexCache 加载", "file", filepath.Base(path), "count", len(in.Records))
			return in, nil
		}
		// 缓存无效，继续解析原始文件
		LogDebug("IndexCache 无效", "file", filepath.Base(path), "error", err)
	}

	in, err := Inspect(path, opts)
	if err != nil {
		return nil, err
	}

	meta := index.Meta{
		Magic1:   in.Header.Magic1,
		FileSize: in.Header.FileSize,
		Magic2:   in.Header.Magic2,
	}
	if in.Partial() {
		meta.Flags |= index.FlagPartial
	}
	if err := index.SaveCache(path, meta, in.Records); err != nil {
		LogWarn("IndexCache 保存失败", "file", filepath.Base(path), "error", err)
	} else {
		LogDebug("IndexCache 保存", "file", filepath.Base(path), "count", len(in.Records))
	}
	return in, nil
}

// cacheable 只有默认解析选项的结果写入/读取磁盘缓存
func cacheable(opts riff.Options) bool {
	if opts.StrictListTypes || opts.StrictFileSize {
		return false
	}
	return opts.MaxDepth <= 0 || opts.MaxDepth == riff.DefaultMaxDepth
}

func loadCached(path string) (*Inspection, error) {
	c, err := index.LoadCache(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	// 复制出 mmap 内存，Close 之后记录仍然有效
	records := make([]models.ChunkRecord, c.Count)
	copy(records, c.Records)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	h := riff.Header{
		Magic1:   c.Meta.Magic1,
		FileSize: c.Meta.FileSize,
		Magic2:   c.Meta.Magic2,
	}
	in := &Inspection{
		Name:      filepath.Base(path),
		Size:      info.Size(),
		Container: containerOf(h),
		Header:    h,
		Records:   records,
		Summary:   Summarize(records),
		FromCache: true,
	}
	if c.Meta.Flags&index.FlagPartial != 0 {
		in.Err = "partial index: chunk sequence ended with an error"
	}
	return in, nil
}

// ============================================================================
// 全局检查结果管理器
// ============================================================================

// Registry 进程内的检查结果表，按路径索引
type Registry struct {
	mu    sync.RWMutex
	items map[string]*Inspection
	opts  riff.Options
}

// NewRegistry 创建结果表
func NewRegistry(opts riff.Options) *Registry {
	return &Registry{
		items: make(map[string]*Inspection),
		opts:  opts,
	}
}

// Get 获取检查结果，不存在时解析（带磁盘缓存）
func (r *Registry) Get(path string) (*Inspection, error) {
	r.mu.RLock()
	in, ok := r.items[path]
	r.mu.RUnlock()
	if ok {
		return in, nil
	}

	in, err := InspectWithCache(path, r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.items[path] = in
	r.mu.Unlock()
	return in, nil
}

// Peek 只查内存，不触发解析
func (r *Registry) Peek(path string) (*Inspection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.items[path]
	return in, ok
}

// Len 已加载的数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Clear 清空
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = make(map[string]*Inspection)
}

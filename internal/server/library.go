package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"riffscope/internal/avi"
	"riffscope/internal/config"
	"riffscope/internal/models"
	"riffscope/internal/riff"
)

// ErrFileNotFound 媒体库中没有该文件
var ErrFileNotFound = errors.New("file not found in library")

// Library 媒体库：一个目录下的全部 RIFF 文件及其块索引
type Library struct {
	basePath string
	loaded   bool
	opts     riff.Options

	mu       sync.RWMutex
	files    []FileEntry
	byName   map[string]int
	registry *avi.Registry

	// 索引构建状态
	building bool
	progress int
	total    int
	current  int
	failed   int
}

// FileEntry 媒体库中的文件
type FileEntry struct {
	Name    string    `json:"name"`
	Path    string    `json:"-"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// NewLibrary 创建媒体库
func NewLibrary(basePath string, opts riff.Options) *Library {
	return &Library{
		basePath: basePath,
		opts:     opts,
		byName:   make(map[string]int),
		registry: avi.NewRegistry(opts),
	}
}

// Load 扫描目录
func (l *Library) Load() error {
	if l.basePath == "" {
		return fmt.Errorf("library path not set")
	}
	info, err := os.Stat(l.basePath)
	if err != nil {
		return fmt.Errorf("媒体目录不存在: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("不是目录: %s", l.basePath)
	}

	var files []FileEntry
	err = filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// 跳过隐藏目录（包括缓存目录）
			if path != l.basePath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isMediaFile(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return nil
		}
		files = append(files, FileEntry{
			Name:    filepath.ToSlash(rel),
			Path:    path,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("扫描媒体目录失败: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	byName := make(map[string]int, len(files))
	for i, f := range files {
		byName[f.Name] = i
	}

	l.mu.Lock()
	l.files = files
	l.byName = byName
	l.loaded = true
	l.mu.Unlock()

	avi.LogInfo("媒体库已加载", "path", l.basePath, "files", len(files))
	return nil
}

func isMediaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range config.MediaExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// BuildIndex 为所有文件构建块索引
func (l *Library) BuildIndex() error {
	if !l.IsLoaded() {
		if err := l.Load(); err != nil {
			return err
		}
	}

	files := l.GetFiles()
	l.mu.Lock()
	l.building = true
	l.total = len(files)
	l.current = 0
	l.progress = 0
	l.failed = 0
	l.mu.Unlock()

	avi.LogInfo("开始构建块索引", "files", len(files))
	startTime := time.Now()

	for i, f := range files {
		if _, err := l.registry.Get(f.Path); err != nil {
			avi.LogWarn("文件解析失败", "file", f.Name, "error", err)
			l.mu.Lock()
			l.failed++
			l.mu.Unlock()
		}
		l.updateProgress(i + 1)
	}

	l.mu.Lock()
	l.building = false
	l.progress = 100
	l.mu.Unlock()

	avi.LogInfo("块索引构建完成", "files", len(files), "elapsed", time.Since(startTime).Round(time.Millisecond))
	return nil
}

func (l *Library) updateProgress(current int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = current
	if l.total > 0 {
		l.progress = current * 100 / l.total
	}
}

// IsLoaded 是否已加载
func (l *Library) IsLoaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// GetBasePath 媒体目录
func (l *Library) GetBasePath() string {
	return l.basePath
}

// Options 解析选项
func (l *Library) Options() riff.Options {
	return l.opts
}

// GetFiles 文件列表副本
func (l *Library) GetFiles() []FileEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	files := make([]FileEntry, len(l.files))
	copy(files, l.files)
	return files
}

func (l *Library) lookup(name string) (FileEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byName[name]
	if !ok {
		return FileEntry{}, false
	}
	return l.files[i], true
}

// Inspect 获取文件的检查结果，未解析过时解析
func (l *Library) Inspect(name string) (*avi.Inspection, error) {
	f, ok := l.lookup(name)
	if !ok {
		return nil, ErrFileNotFound
	}
	return l.registry.Get(f.Path)
}

// Parsed 文件是否已有检查结果
func (l *Library) Parsed(name string) (*avi.Inspection, bool) {
	f, ok := l.lookup(name)
	if !ok {
		return nil, false
	}
	return l.registry.Peek(f.Path)
}

// ReadPayload 读取文件中第 idx 条记录的负载
func (l *Library) ReadPayload(name string, idx int) (models.ChunkRecord, []byte, error) {
	f, ok := l.lookup(name)
	if !ok {
		return models.ChunkRecord{}, nil, ErrFileNotFound
	}
	in, err := l.registry.Get(f.Path)
	if err != nil {
		return models.ChunkRecord{}, nil, err
	}
	if idx < 0 || idx >= len(in.Records) {
		return models.ChunkRecord{}, nil, fmt.Errorf("chunk index out of range: %d", idx)
	}
	r := in.Records[idx]
	data, err := avi.ReadPayload(f.Path, r)
	return r, data, err
}

// GetCacheStatus 获取索引构建状态
func (l *Library) GetCacheStatus() CacheStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.building {
		return CacheStatus{
			Status:   "building",
			Progress: l.progress,
			Total:    l.total,
			Current:  l.current,
			Cached:   l.registry.Len(),
			Failed:   l.failed,
		}
	}

	return CacheStatus{
		Status:   "ready",
		Progress: 100,
		Total:    len(l.files),
		Current:  len(l.files),
		Cached:   l.registry.Len(),
		Failed:   l.failed,
	}
}

// GetConfig 获取配置
func (l *Library) GetConfig() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cfg := Config{
		LibraryPath:     l.basePath,
		Loaded:          l.loaded,
		StrictListTypes: l.opts.StrictListTypes,
		StrictFileSize:  l.opts.StrictFileSize,
	}
	if l.loaded {
		cfg.FileCount = len(l.files)
	}
	return cfg
}

// Close 释放资源
func (l *Library) Close() {
	l.registry.Clear()
}

// ==================== 数据类型 ====================

// CacheStatus 索引构建状态
type CacheStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
	Current  int    `json:"current"`
	Cached   int    `json:"cached"`
	Failed   int    `json:"failed"`
}

// Config 配置
type Config struct {
	LibraryPath     string `json:"libraryPath"`
	Loaded          bool   `json:"loaded"`
	StrictListTypes bool   `json:"strictListTypes"`
	StrictFileSize  bool   `json:"strictFileSize"`
	FileCount       int    `json:"fileCount,omitempty"`
}

package server

import (
	"errors"
	"io"
	"strconv"
	"sync"

	"riffscope/internal/avi"
	"riffscope/internal/codec"

	"github.com/kataras/iris/v12"
)

// LibraryCache 单个路径的媒体库缓存
type LibraryCache struct {
	lib  *Library
	hash string // fileCount 用于验证缓存有效性
}

// Handlers API 处理器
type Handlers struct {
	lib *Library
	mu  sync.RWMutex

	maxUpload int64

	// 路径历史记录（最多保留 10 个）
	pathHistory []string

	// 路径 -> Library 缓存 Map
	libCache map[string]*LibraryCache
}

const maxPathHistory = 10

// NewHandlers 创建处理器
func NewHandlers(lib *Library, maxUpload int64) *Handlers {
	return &Handlers{
		lib:         lib,
		maxUpload:   maxUpload,
		pathHistory: []string{},
		libCache:    make(map[string]*LibraryCache),
	}
}

// Library 当前媒体库
func (h *Handlers) Library() *Library {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lib
}

// computeLibraryHash 计算媒体库缓存的 hash 值
func computeLibraryHash(lib *Library) string {
	return strconv.Itoa(lib.GetConfig().FileCount)
}

// addToPathHistory 添加路径到历史记录
func (h *Handlers) addToPathHistory(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var newHistory []string
	for _, p := range h.pathHistory {
		if p != path {
			newHistory = append(newHistory, p)
		}
	}
	h.pathHistory = append([]string{path}, newHistory...)
	if len(h.pathHistory) > maxPathHistory {
		h.pathHistory = h.pathHistory[:maxPathHistory]
	}
}

func (h *Handlers) copyPathHistory() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.pathHistory))
	copy(out, h.pathHistory)
	return out
}

// GetConfig 获取配置
// GET /api/v1/config
func (h *Handlers) GetConfig(ctx iris.Context) {
	lib := h.Library()
	cfg := lib.GetConfig()

	result := iris.Map{
		"libraryPath":     cfg.LibraryPath,
		"loaded":          cfg.Loaded,
		"strictListTypes": cfg.StrictListTypes,
		"strictFileSize":  cfg.StrictFileSize,
		"pathHistory":     h.copyPathHistory(),
	}
	if cfg.Loaded {
		result["fileCount"] = cfg.FileCount
		result["cacheStatus"] = lib.GetCacheStatus()
	}
	ctx.JSON(result)
}

// SetConfig 切换媒体目录
// POST /api/v1/config
func (h *Handlers) SetConfig(ctx iris.Context) {
	var req struct {
		LibraryPath string `json:"libraryPath"`
	}
	if err := ctx.ReadJSON(&req); err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "无效的 JSON"})
		return
	}
	if req.LibraryPath == "" {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "缺少 libraryPath"})
		return
	}

	h.mu.Lock()
	current := h.lib
	opts := current.Options()

	// 保存当前媒体库到缓存（如果已加载）
	if current.IsLoaded() {
		if p := current.GetBasePath(); p != "" && p != req.LibraryPath {
			h.libCache[p] = &LibraryCache{lib: current, hash: computeLibraryHash(current)}
		}
	}

	newLib := NewLibrary(req.LibraryPath, opts)
	if err := newLib.Load(); err != nil {
		h.mu.Unlock()
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{
			"libraryPath": req.LibraryPath,
			"loaded":      false,
			"error":       err.Error(),
		})
		return
	}

	fromCache := false
	if cached, ok := h.libCache[req.LibraryPath]; ok {
		// 文件数量一致，沿用已解析的结果
		if computeLibraryHash(newLib) == cached.hash {
			newLib = cached.lib
			fromCache = true
		}
		delete(h.libCache, req.LibraryPath)
	}
	h.lib = newLib
	h.mu.Unlock()

	h.addToPathHistory(req.LibraryPath)

	if !fromCache {
		go newLib.BuildIndex()
	}

	ctx.JSON(iris.Map{
		"libraryPath": req.LibraryPath,
		"loaded":      true,
		"fileCount":   len(newLib.GetFiles()),
		"cacheStatus": newLib.GetCacheStatus(),
		"pathHistory": h.copyPathHistory(),
		"fromCache":   fromCache,
	})
}

// GetCacheStatus 获取索引构建状态
// GET /api/v1/cache/status
func (h *Handlers) GetCacheStatus(ctx iris.Context) {
	ctx.JSON(h.Library().GetCacheStatus())
}

// FileInfo 文件列表项
type FileInfo struct {
	FileEntry
	Parsed    bool           `json:"parsed"`
	Container *avi.Container `json:"container,omitempty"`
	Chunks    int            `json:"chunks,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// GetFiles 获取文件列表
// GET /api/v1/files
func (h *Handlers) GetFiles(ctx iris.Context) {
	lib := h.Library()
	files := lib.GetFiles()

	out := make([]FileInfo, 0, len(files))
	for _, f := range files {
		info := FileInfo{FileEntry: f}
		if in, ok := lib.Parsed(f.Name); ok {
			info.Parsed = true
			c := in.Container
			info.Container = &c
			info.Chunks = len(in.Records)
			info.Error = in.Err
		}
		out = append(out, info)
	}
	ctx.JSON(iris.Map{"files": out})
}

// GetChunks 获取文件的块列表
// GET /api/v1/chunks?file=&format=json|cbor&from=&limit=
func (h *Handlers) GetChunks(ctx iris.Context) {
	name := ctx.URLParam("file")
	if name == "" {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "缺少 file 参数"})
		return
	}

	in, err := h.Library().Inspect(name)
	if err != nil {
		writeError(ctx, err)
		return
	}

	from := ctx.URLParamIntDefault("from", 0)
	limit := ctx.URLParamIntDefault("limit", len(in.Records))
	if from < 0 || limit < 0 {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "from 和 limit 不能为负数"})
		return
	}
	// 先截断再相加，避免溢出
	if from > len(in.Records) {
		from = len(in.Records)
	}
	if limit > len(in.Records)-from {
		limit = len(in.Records) - from
	}
	doc := codec.Document{
		Inspection: in,
		Chunks:     codec.Records(in.Records, from, from+limit),
	}
	writeDocument(ctx, doc)
}

// PostInspect 解析请求体中上传的文件，不落盘
// POST /api/v1/inspect?name=
func (h *Handlers) PostInspect(ctx iris.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, h.maxUpload+1))
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "读取请求体失败: " + err.Error()})
		return
	}
	if int64(len(body)) > h.maxUpload {
		ctx.StatusCode(iris.StatusRequestEntityTooLarge)
		ctx.JSON(iris.Map{"error": "文件过大"})
		return
	}

	name := ctx.URLParamDefault("name", "upload")
	in, err := avi.InspectBytes(name, body, h.Library().Options())
	if err != nil {
		ctx.StatusCode(iris.StatusUnprocessableEntity)
		ctx.JSON(iris.Map{"error": err.Error()})
		return
	}
	writeDocument(ctx, codec.NewDocument(in))
}

// GetPayload 读取块负载（二进制）
// GET /api/v1/payload?file=&index=
func (h *Handlers) GetPayload(ctx iris.Context) {
	name := ctx.URLParam("file")
	idx, err := ctx.URLParamInt("index")
	if name == "" || err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.JSON(iris.Map{"error": "缺少 file 或 index 参数"})
		return
	}

	r, data, err := h.Library().ReadPayload(name, idx)
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.Header("X-Chunk-Tag", r.TagString())
	ctx.Header("X-Chunk-Offset", strconv.FormatUint(r.Offset, 10))
	ctx.ContentType("application/octet-stream")
	ctx.Write(data)
}

func writeDocument(ctx iris.Context, doc codec.Document) {
	if ctx.URLParam("format") == "cbor" {
		b, err := codec.Marshal(doc)
		if err != nil {
			ctx.StatusCode(iris.StatusInternalServerError)
			ctx.JSON(iris.Map{"error": err.Error()})
			return
		}
		ctx.ContentType(codec.ContentType)
		ctx.Write(b)
		return
	}
	ctx.JSON(doc)
}

func writeError(ctx iris.Context, err error) {
	if errors.Is(err, ErrFileNotFound) {
		ctx.StatusCode(iris.StatusNotFound)
	} else {
		ctx.StatusCode(iris.StatusUnprocessableEntity)
	}
	ctx.JSON(iris.Map{"error": err.Error()})
}

// ==================== 路由注册 ====================

// RegisterRoutes 注册路由
func RegisterRoutes(app *iris.Application, h *Handlers) {
	v1 := app.Party("/api/v1")
	{
		v1.Get("/config", h.GetConfig)
		v1.Post("/config", h.SetConfig)
		v1.Get("/cache/status", h.GetCacheStatus)
		v1.Get("/files", h.GetFiles)
		v1.Get("/chunks", h.GetChunks)
		v1.Get("/payload", h.GetPayload)
		v1.Post("/inspect", h.PostInspect)
		v1.Get("/stream", h.HandleWebSocket) // WebSocket 块流
	}
}

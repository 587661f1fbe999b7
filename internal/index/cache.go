package index

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"riffscope/internal/config"
	"riffscope/internal/models"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

// 缓存文件格式:
// Header (32 bytes):
//   Magic (4): "RIDX"
//   Version (4)
//   RecordCount (4)
//   Magic1 (4) / FileSize (4) / Magic2 (4): 容器头
//   Flags (4)
//   Reserved (4)
// Records (N * 32 bytes) - 与 models.ChunkRecord 内存布局一致

// Flags
const (
	FlagPartial = 1 << 0 // 解析中途出错，只缓存了前缀
)

// Meta 缓存头中的容器信息
type Meta struct {
	Magic1   [4]byte
	FileSize uint32
	Magic2   [4]byte
	Flags    uint32
}

// IndexCache mmap 映射的块索引缓存
type IndexCache struct {
	data    []byte               // mmap 映射的原始数据
	Meta    Meta                 // 容器头
	Records []models.ChunkRecord // 零拷贝切片视图
	Count   int
}

var (
	cacheDir   string
	cacheDirMu sync.Mutex
)

func init() {
	// 默认缓存目录：工作目录下的 .riff_cache
	cwd, err := os.Getwd()
	if err != nil {
		cacheDir = config.DefaultCacheDirName
	} else {
		cacheDir = filepath.Join(cwd, config.DefaultCacheDirName)
	}
}

// SetCacheDir 设置缓存目录
func SetCacheDir(dir string) error {
	cacheDirMu.Lock()
	defer cacheDirMu.Unlock()
	cacheDir = dir
	return os.MkdirAll(dir, 0755)
}

// GetCacheDir 获取当前缓存目录
func GetCacheDir() string {
	cacheDirMu.Lock()
	defer cacheDirMu.Unlock()
	return cacheDir
}

// GetFileHash 计算文件的唯一标识
// 文件名 + 大小 + 修改时间 + 头部 4KB 内容
func GetFileHash(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 4096)
	n, _ := f.Read(buf)

	h := blake3.New()
	h.Write([]byte(filepath.Base(filePath)))
	binary.Write(h, binary.LittleEndian, info.Size())
	binary.Write(h, binary.LittleEndian, info.ModTime().UnixNano())
	h.Write(buf[:n])

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16]), nil
}

func getCachePath(hash string) string {
	return filepath.Join(GetCacheDir(), hash+".ridx")
}

// LoadCache 使用 mmap 加载索引缓存 (零拷贝)
func LoadCache(filePath string) (*IndexCache, error) {
	hash, err := GetFileHash(filePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(getCachePath(hash))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := int(info.Size())
	if size < config.CacheHeaderSize {
		return nil, fmt.Errorf("cache file too small: %d", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	if string(data[0:4]) != config.CacheMagic {
		unix.Munmap(data)
		return nil, fmt.Errorf("invalid cache magic")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != config.CacheVersion {
		unix.Munmap(data)
		return nil, fmt.Errorf("cache version mismatch: got %d, want %d", v, config.CacheVersion)
	}

	count := int(binary.LittleEndian.Uint32(data[8:12]))
	if size < config.CacheHeaderSize+count*models.RecordSize {
		unix.Munmap(data)
		return nil, fmt.Errorf("cache file truncated")
	}

	c := &IndexCache{data: data, Count: count}
	copy(c.Meta.Magic1[:], data[12:16])
	c.Meta.FileSize = binary.LittleEndian.Uint32(data[16:20])
	copy(c.Meta.Magic2[:], data[20:24])
	c.Meta.Flags = binary.LittleEndian.Uint32(data[24:28])

	// 零拷贝: 直接将 mmap 内存解释为结构体切片
	if count > 0 {
		c.Records = unsafe.Slice((*models.ChunkRecord)(unsafe.Pointer(&data[config.CacheHeaderSize])), count)
	}
	return c, nil
}

// Close 释放 mmap 映射
func (c *IndexCache) Close() error {
	if c.data == nil {
		return nil
	}
	err := unix.Munmap(c.data)
	c.data = nil
	c.Records = nil
	c.Count = 0
	return err
}

// SaveCache 保存块索引到缓存文件
func SaveCache(filePath string, meta Meta, records []models.ChunkRecord) error {
	hash, err := GetFileHash(filePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(GetCacheDir(), 0755); err != nil {
		return err
	}

	header := make([]byte, config.CacheHeaderSize)
	copy(header[0:4], config.CacheMagic)
	binary.LittleEndian.PutUint32(header[4:8], config.CacheVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(records)))
	copy(header[12:16], meta.Magic1[:])
	binary.LittleEndian.PutUint32(header[16:20], meta.FileSize)
	copy(header[20:24], meta.Magic2[:])
	binary.LittleEndian.PutUint32(header[24:28], meta.Flags)

	// 先写临时文件再改名，避免读到写了一半的缓存
	cachePath := getCachePath(hash)
	tmp := cachePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := f.Write(header); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if len(records) > 0 {
		// 直接写入结构体内存
		data := unsafe.Slice((*byte)(unsafe.Pointer(&records[0])), len(records)*models.RecordSize)
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, cachePath)
}

// CacheExists 检查缓存是否存在
func CacheExists(filePath string) bool {
	hash, err := GetFileHash(filePath)
	if err != nil {
		return false
	}
	info, err := os.Stat(getCachePath(hash))
	return err == nil && info.Size() >= config.CacheHeaderSize
}

// RemoveCache 删除文件对应的缓存
func RemoveCache(filePath string) error {
	hash, err := GetFileHash(filePath)
	if err != nil {
		return err
	}
	err = os.Remove(getCachePath(hash))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

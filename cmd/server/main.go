package main

import (
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"riffscope/internal/avi"
	"riffscope/internal/config"
	"riffscope/internal/handlers"
	"riffscope/internal/index"
	"riffscope/internal/server"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/websocket"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	port := flag.Int("port", 0, "Server port (overrides config)")
	libPath := flag.String("path", "", "Media library path (optional, can be set via web UI)")
	strict := flag.Bool("strict", false, "Reject unknown LIST types")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noBrowser := flag.Bool("no-browser", false, "Don't open browser automatically")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *libPath != "" {
		cfg.LibraryPath = *libPath
	}
	if *strict {
		cfg.Parse.StrictListTypes = true
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "配置错误: %v\n", err)
		os.Exit(1)
	}

	// 设置日志级别
	if cfg.Debug {
		avi.SetDebugMode(true)
	}
	if cfg.CacheDir != "" {
		if err := index.SetCacheDir(cfg.CacheDir); err != nil {
			avi.LogWarn("无法创建缓存目录", "dir", cfg.CacheDir, "error", err)
		}
	}

	// 查找可用端口
	actualPort := findAvailablePort(cfg.Port)

	fmt.Println("============================================================")
	fmt.Println("RIFF/AVI 块结构查看器")
	fmt.Println("============================================================")
	if cfg.LibraryPath != "" {
		fmt.Printf("媒体目录: %s\n", cfg.LibraryPath)
	}
	fmt.Printf("缓存目录: %s\n", index.GetCacheDir())
	fmt.Printf("监听地址: http://localhost:%d\n", actualPort)
	fmt.Println("============================================================")

	// 创建媒体库
	lib := server.NewLibrary(cfg.LibraryPath, avi.ParseOptions(cfg.Parse))
	defer lib.Close()
	if cfg.LibraryPath != "" {
		go func() {
			if err := lib.BuildIndex(); err != nil {
				avi.LogError("媒体库加载失败", "error", err)
			}
		}()
	}

	// 创建 Iris 应用
	app := iris.New()
	app.Logger().SetLevel("warn")

	// CORS
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type")
		if ctx.Method() == "OPTIONS" {
			ctx.StatusCode(204)
			return
		}
		ctx.Next()
	})

	// 注册 API 路由
	h := server.NewHandlers(lib, cfg.MaxUploadBytes)
	server.RegisterRoutes(app, h)

	// neffos 事件通道
	events := handlers.NewEventHandler(h)
	ws := websocket.New(websocket.DefaultGorillaUpgrader, events.RegisterEvents())
	app.Get("/api/v1/events", websocket.Handler(ws))

	// 嵌入的静态文件
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		avi.LogWarn("无法加载嵌入的静态文件", "error", err)
	} else {
		app.HandleDir("/", http.FS(staticSub), iris.DirOptions{
			IndexName: "index.html",
			SPA:       true,
		})
	}

	// 优雅关闭
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		fmt.Println("\n正在关闭...")
		app.Shutdown(nil)
	}()

	// 自动打开浏览器
	if !*noBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(fmt.Sprintf("http://localhost:%d", actualPort))
		}()
	}

	fmt.Printf("\n服务器已启动: http://localhost:%d\n", actualPort)
	if err := app.Listen(fmt.Sprintf("%s:%d", cfg.Host, actualPort)); err != nil {
		avi.LogError("服务器错误", "error", err)
	}
}

// findAvailablePort 查找可用端口，如果指定端口被占用则递增
func findAvailablePort(startPort int) int {
	for port := startPort; port < startPort+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			ln.Close()
			return port
		}
	}
	return startPort // 回退到原始端口
}

// openBrowser 打开默认浏览器
func openBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "darwin":
		err = exec.Command("open", url).Start()
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	}
	if err != nil {
		fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
	}
}

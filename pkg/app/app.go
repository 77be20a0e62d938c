// Package app 提供渲染演示应用的核心包装器
//
// 该包将初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/quasilyte/gdata/v2"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/decker502/neonsnake/internal/demo"
	"github.com/decker502/neonsnake/internal/particle"
	"github.com/decker502/neonsnake/pkg/config"
	"github.com/decker502/neonsnake/pkg/game"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/render"
	"github.com/decker502/neonsnake/pkg/utils"
)

// AppName gdata 存储使用的应用名
const AppName = "neonsnake"

// tapZoneSize 四角点击区域的边长（逻辑像素）
const tapZoneSize = 96

// overlayColor 调试信息文字颜色
var overlayColor = color.RGBA{R: 0xd8, G: 0xff, B: 0xf4, A: 0xff}

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// ConfigPath 渲染配置路径，为空时使用 data/render.yaml
	ConfigPath string
	// Mode 强制渲染模式（canvas2d/webgl/hybrid），为空时使用设置或配置
	Mode string
	// Level 初始画质等级（如 "low"），为空时使用配置
	Level string
	// Seed 演示模拟的随机种子
	Seed int64
}

// App 是应用的核心包装器，实现 ebiten.Game 接口
type App struct {
	sceneManager             *game.SceneManager
	session                  *game.Session
	emitters                 particle.Library
	face                     text.Face
	seed                     int64
	verbose                  bool
	pendingWindowSizeReset   bool // 延迟设置窗口大小标志
	windowSizeResetCountdown int  // 延迟帧数
}

// NewApp 创建并初始化应用
//
// 调用此函数前，必须先调用 embedded.Init() 初始化嵌入资源。
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.DefaultRenderConfigPath
	}
	renderConfig, err := config.LoadRenderConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("渲染配置加载失败: %w", err)
	}
	if cfg.Level != "" {
		level, err := quality.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("无效的画质等级: %w", err)
		}
		renderConfig.Telemetry.InitialLevel = level
	} else if utils.IsMobile() && renderConfig.Telemetry.InitialLevel > quality.LevelMedium {
		// 移动端从 MEDIUM 起步，由遥测往上调
		renderConfig.Telemetry.InitialLevel = quality.LevelMedium
	}
	var forcedMode *render.Mode
	if cfg.Mode != "" {
		mode, err := render.ParseMode(cfg.Mode)
		if err != nil {
			return nil, fmt.Errorf("无效的渲染模式: %w", err)
		}
		forcedMode = &mode
	}

	// 设置存储失败时降级为仅内存设置
	if err := utils.EnsureStorageDir(); err != nil {
		log.Printf("[App] 警告: %v", err)
	}
	gdataManager, err := gdata.Open(gdata.Config{AppName: AppName})
	if err != nil {
		log.Printf("[App] 警告: 无法打开设置存储: %v（设置不会保存）", err)
		gdataManager = nil
	}
	settings := game.NewSettingsManager(gdataManager)

	faceSource, err := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	if err != nil {
		return nil, fmt.Errorf("字体加载失败: %w", err)
	}
	face := &text.GoTextFace{Source: faceSource, Size: 12}

	emitters, err := particle.LoadLibrary(particle.DefaultEmittersPath)
	if err != nil {
		log.Printf("[App] 警告: 粒子配置加载失败: %v（不显示粒子）", err)
	}

	session := game.NewSession(game.SessionDeps{
		Config:   renderConfig,
		Settings: settings,
		Face:     face,
	})
	if forcedMode != nil && !session.Renderer().SetMode(*forcedMode) {
		log.Printf("[App] 警告: 无法切换到渲染模式 %s", *forcedMode)
	}

	a := &App{
		sceneManager: game.NewSceneManager(),
		session:      session,
		emitters:     emitters,
		face:         face,
		seed:         cfg.Seed,
		verbose:      cfg.Verbose,
	}
	a.restart()
	a.sceneManager.SwitchTo(session)

	if settings.GetSettings().Fullscreen {
		ebiten.SetFullscreen(true)
	}
	log.Printf("[App] 启动完成: 模式 %s, 画质 %s", session.Renderer().Mode(), session.Renderer().CurrentQualityLevel())
	return a, nil
}

// restart 用新的种子重新开始演示模拟，渲染资源保留
func (a *App) restart() {
	simConfig := demo.DefaultConfig()
	simConfig.Seed = a.seed
	a.session.SetSimulation(demo.New(simConfig, a.emitters))
	log.Printf("[App] 演示模拟已开始: seed=%d", a.seed)
	a.seed++
}

// Update 更新逻辑
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	// 延迟设置窗口大小（退出全屏后需要等待几帧才能正确设置）
	if a.pendingWindowSizeReset {
		a.windowSizeResetCountdown--
		if a.windowSizeResetCountdown <= 0 {
			w, h := a.session.ScreenSize()
			ebiten.SetWindowSize(w, h)
			log.Printf("[App] Delayed SetWindowSize(%d, %d)", w, h)
			a.pendingWindowSizeReset = false
		}
	}

	a.handleDebugKeys()

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		isFullscreen := ebiten.IsFullscreen()
		if isFullscreen {
			// 退出全屏
			ebiten.SetFullscreen(false)
			if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
				ebiten.RestoreWindow()
			}
			// 延迟几帧后设置窗口大小，让窗口管理器有时间处理
			a.pendingWindowSizeReset = true
			a.windowSizeResetCountdown = 3
			log.Printf("[App] Exit fullscreen, will reset window size in 3 frames")
		} else {
			ebiten.SetFullscreen(true)
		}
		a.session.Settings().SetFullscreen(!isFullscreen)
	}

	deltaTime := 1.0 / float64(ebiten.TPS())
	a.sceneManager.Update(deltaTime)
	return nil
}

// handleDebugKeys F2 模式 / F3 调试信息 / F4 CRT / F5 画质上限 / F6 蛇身外观 / R 重新开始
// 点击屏幕四角：左上调试信息 / 右上模式 / 左下 CRT / 右下画质上限
func (a *App) handleDebugKeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF2):
		log.Printf("[App] 渲染模式: %s", a.session.CycleMode())
	case inpututil.IsKeyJustPressed(ebiten.KeyF3):
		a.session.ToggleOverlay()
	case inpututil.IsKeyJustPressed(ebiten.KeyF4):
		log.Printf("[App] CRT: %t", a.session.ToggleCRT())
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		log.Printf("[App] 画质上限: %s", a.session.CycleCeiling())
	case inpututil.IsKeyJustPressed(ebiten.KeyF6):
		a.session.CycleSkin()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		a.restart()
	}

	// 触摸设备没有功能键，用屏幕四角代替
	tapped, x, y := utils.IsJustTouchedOrClicked()
	if !tapped {
		return
	}
	w, h := a.session.ScreenSize()
	switch utils.CornerAt(x, y, w, h, tapZoneSize) {
	case utils.CornerTopLeft:
		a.session.ToggleOverlay()
	case utils.CornerTopRight:
		log.Printf("[App] 渲染模式: %s", a.session.CycleMode())
	case utils.CornerBottomLeft:
		log.Printf("[App] CRT: %t", a.session.ToggleCRT())
	case utils.CornerBottomRight:
		log.Printf("[App] 画质上限: %s", a.session.CycleCeiling())
	}
}

// Draw 绘制画面
// 每帧调用一次
func (a *App) Draw(screen *ebiten.Image) {
	a.sceneManager.Draw(screen)
	if a.session.ShowOverlay() {
		a.drawOverlay(screen)
	}
}

func (a *App) drawOverlay(screen *ebiten.Image) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(8, 8)
	op.ColorScale.ScaleWithColor(overlayColor)
	op.LineSpacing = 16
	text.Draw(screen, a.session.Debug(), a.face, op)
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 用于控制全屏时的缩放和 letterbox 颜色
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	// 先填充黑色背景（全屏时左右两边为黑色）
	screen.Fill(color.Black)
	// 使用线性滤波绘制画面，提高缩放质量
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 返回逻辑屏幕尺寸
// 此尺寸独立于实际窗口大小，Ebitengine 会自动处理缩放
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.session.ScreenSize()
}

// Close 保存设置并释放渲染资源
// 在窗口关闭后调用
func (a *App) Close() {
	a.session.Close()
}

// Session 返回渲染会话
func (a *App) Session() *game.Session {
	return a.session
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}

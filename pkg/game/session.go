package game

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"github.com/decker502/neonsnake/pkg/canvas"
	"github.com/decker502/neonsnake/pkg/config"
	"github.com/decker502/neonsnake/pkg/entity"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/render"
	"github.com/decker502/neonsnake/pkg/telemetry"
	"github.com/decker502/neonsnake/pkg/texture"
)

// Simulation 每帧产生快照的模拟层
type Simulation interface {
	Step(dt float64)
	Frame() entity.Frame
}

// Flasher 可选接口：模拟层提供受伤闪屏强度（0~1），驱动瞬时色差
type Flasher interface {
	Flash() float64
}

// Skinner 可选接口：模拟层支持切换蛇身外观
type Skinner interface {
	CycleSkin() (from, to string)
}

// SessionDeps 会话依赖
type SessionDeps struct {
	// Config 为 nil 时使用 config.DefaultRenderConfig()
	Config *config.RenderConfig
	// Settings 为 nil 时使用仅内存的设置
	Settings *SettingsManager
	// Face 文字粒子和调试信息使用的字体，可为 nil
	Face  text.Face
	Clock telemetry.Clock
	// Customize 在创建渲染管理器之前调整参数，测试用它替换后端和滤镜
	Customize func(*render.Options)
}

// Session 一次运行的渲染服务集合
//
// 持有遥测记录器、渲染管理器、即时渲染器和设置，按固定顺序驱动一帧：
//
//	Update: BeginFrame → BeginSimulation → Step → EndSimulation
//	Draw:   BeginRender → 批量渲染 → 即时渲染 Fallback → EndFrame → Present → EndRender → 记录器 EndFrame
//
// 实现 Scene 和 Saveable。
type Session struct {
	cfg      *config.RenderConfig
	settings *SettingsManager
	recorder *telemetry.Recorder
	manager  *render.Manager
	canvas   *canvas.Renderer
	sim      Simulation

	initErr  error
	clock    telemetry.Clock
	lastDraw time.Time
	time     float64
	lastDt   float64
	frame    entity.Frame
	unsub    func()
}

// NewSession 创建会话并初始化渲染管理器
//
// GPU 路径不可用不是致命错误：会话回退到 canvas2d，错误可通过 InitError 查看。
func NewSession(deps SessionDeps) *Session {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultRenderConfig()
	}
	settings := deps.Settings
	if settings == nil {
		settings = NewSettingsManager(nil)
	}
	prefs := settings.GetSettings()

	recorder := telemetry.NewRecorder(cfg.RecorderOptions(deps.Clock))
	recorder.SetQualityCeiling(prefs.QualityCeiling)
	recorder.SetAutoScale(prefs.AutoScale)

	opts := cfg.ManagerOptions(recorder)
	if deps.Customize != nil {
		deps.Customize(&opts)
	}
	manager := render.NewManager(opts)

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &Session{
		cfg:      cfg,
		clock:    clock,
		settings: settings,
		recorder: recorder,
		manager:  manager,
		canvas:   canvas.NewRenderer(deps.Face),
	}

	// 持久化的偏好优先于配置文件
	mode := cfg.Mode
	if settings.IsPersistent() {
		mode = prefs.RenderMode
	}
	surface := render.NewSurface(cfg.Screen.Width, cfg.Screen.Height)
	if err := manager.Init(surface, mode); err != nil {
		if !errors.Is(err, render.ErrGPUUnavailable) {
			log.Printf("[Session] 错误: 渲染管理器初始化失败: %v", err)
		}
		s.initErr = err
	}
	s.applyFilterSettings()

	s.unsub = manager.OnQualityChange(func(ev render.QualityEvent) {
		if ev.Source == render.SourceTelemetry {
			log.Printf("[Session] 画质 -> %s (%s)", ev.Level, ev.Reason)
		}
	})
	log.Printf("[Session] 会话已创建: 模式 %s, 画质 %s", manager.Mode(), manager.CurrentQualityLevel())
	return s
}

func (s *Session) applyFilterSettings() {
	fm := s.manager.Filters()
	if fm == nil {
		return
	}
	prefs := s.settings.GetSettings()
	fm.ApplySettings(prefs.CRTEnabled, prefs.FXIntensity)
	fm.SetQuality(prefs.ShaderQuality)
}

// SetSimulation 替换模拟层，渲染资源保持不变
func (s *Session) SetSimulation(sim Simulation) {
	s.sim = sim
	s.frame = entity.Frame{}
}

// Update 推进模拟（实现 Scene）
func (s *Session) Update(deltaTime float64) {
	s.recorder.BeginFrame()
	s.recorder.BeginSimulation()
	if s.sim != nil {
		s.sim.Step(deltaTime)
	}
	s.recorder.EndSimulation()

	if deltaTime > 0 {
		s.time += deltaTime
		s.lastDt = deltaTime
	}
	if f, ok := s.sim.(Flasher); ok {
		if fm := s.manager.Filters(); fm != nil {
			fm.SetChromaticIntensity(f.Flash())
		}
	}
}

// Draw 渲染一帧到 screen（实现 Scene）
func (s *Session) Draw(screen *ebiten.Image) {
	// ebiten 可能在第一次 Update 之前调用 Draw
	s.recorder.BeginFrame()
	s.recorder.BeginRender()

	if s.sim != nil {
		s.frame = s.sim.Frame()
	}
	s.drawFrame(s.frame, s.frameDelta())

	s.manager.Present(screen)
	s.recorder.EndRender()
	s.recorder.EndFrame()
}

// frameDelta 两次 Draw 之间的实际间隔（秒）
// 模拟按固定步长推进，但滤镜自动 LOD 和画质过渡需要真实帧率；第一帧用模拟步长
func (s *Session) frameDelta() float64 {
	now := s.clock()
	dt := s.lastDt
	if !s.lastDraw.IsZero() {
		dt = now.Sub(s.lastDraw).Seconds()
	}
	s.lastDraw = now
	return dt
}

// drawFrame 两条路径的编排：批量渲染先提交，即时渲染只画 Fallback
func (s *Session) drawFrame(f entity.Frame, dt float64) {
	m := s.manager
	m.BeginFrame()

	settings := m.QualitySettings()
	zoom := f.View.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	shake := settings.ScreenShakeIntensity
	m.ApplyCameraTransform(f.View.X, f.View.Y, zoom, f.View.ShakeX*shake, f.View.ShakeY*shake)
	cam := m.Camera()

	target := m.Surface().Image()
	calls := s.canvas.DrawBackground(target, cam, settings)

	ents := m.RenderEntities(f.Entities)
	projs := m.RenderProjectiles(f.Projectiles)
	parts := m.RenderParticles(f.Particles)
	m.EndGPUPass()

	calls += s.canvas.Draw(target, cam, canvas.Input{
		Entities:    ents.Fallback,
		Projectiles: projs.Fallback,
		Particles:   parts.Fallback,
		Settings:    settings,
		Time:        s.time,
	})
	m.AddImmediateDrawCalls(calls)
	m.EndFrame(dt)
}

// CycleMode 切换到下一个渲染模式，GPU 不可用时跳过 GPU 模式
func (s *Session) CycleMode() render.Mode {
	mode := s.manager.Mode()
	for i := 0; i < 3; i++ {
		mode = mode.Next()
		if s.manager.SetMode(mode) {
			s.settings.SetRenderMode(mode)
			break
		}
	}
	return s.manager.Mode()
}

// CycleSkin 切换蛇身外观，旧外观的贴图立即失效
// 模拟层不支持换肤时返回 false
func (s *Session) CycleSkin() bool {
	sk, ok := s.sim.(Skinner)
	if !ok {
		return false
	}
	from, to := sk.CycleSkin()
	n := s.manager.InvalidateTextures(texture.StylePrefix(texture.ShapeOrb, from))
	log.Printf("[Session] 外观 %s -> %s，失效 %d 张贴图", from, to, n)
	return true
}

// ToggleCRT 切换 CRT 效果
func (s *Session) ToggleCRT() bool {
	enabled := !s.settings.GetSettings().CRTEnabled
	s.settings.SetCRTEnabled(enabled)
	s.applyFilterSettings()
	return enabled
}

// CycleCeiling 把画质上限降一级，到 POTATO 后回到 ULTRA
func (s *Session) CycleCeiling() quality.Level {
	next, ok := quality.NextLower(s.settings.GetSettings().QualityCeiling)
	if !ok {
		next = quality.MaxLevel
	}
	s.settings.SetQualityCeiling(next)
	s.recorder.SetQualityCeiling(next)
	return next
}

// SetShaderQuality 手动设置着色器档位，ShaderAuto 恢复自动调节
func (s *Session) SetShaderQuality(tier quality.ShaderTier) {
	s.settings.SetShaderQuality(tier)
	s.applyFilterSettings()
}

// ToggleOverlay 切换调试信息显示
func (s *Session) ToggleOverlay() bool {
	show := !s.settings.GetSettings().ShowOverlay
	s.settings.SetShowOverlay(show)
	return show
}

// ShowOverlay 是否显示调试信息
func (s *Session) ShowOverlay() bool {
	return s.settings.GetSettings().ShowOverlay
}

// Debug 调试信息文本
func (s *Session) Debug() string {
	var b strings.Builder
	b.WriteString(s.manager.FormatMetricsDebug())
	st := s.canvas.Stats()
	fmt.Fprintf(&b, "\nImmediate: ent %d  proj %d  part %d (culled %d, skipped %d, dropped %d)",
		st.Entities, st.Projectiles, st.Particles, st.Culled, st.Skipped, st.Dropped)
	fmt.Fprintf(&b, "\nCeiling: %s  Auto: %t", s.recorder.QualityCeiling(), s.recorder.AutoScale())
	return b.String()
}

// ScreenSize 逻辑屏幕尺寸
func (s *Session) ScreenSize() (int, int) {
	return s.cfg.Screen.Width, s.cfg.Screen.Height
}

// Recorder 遥测记录器
func (s *Session) Recorder() *telemetry.Recorder { return s.recorder }

// Renderer 渲染管理器
func (s *Session) Renderer() *render.Manager { return s.manager }

// Canvas 即时渲染器
func (s *Session) Canvas() *canvas.Renderer { return s.canvas }

// Settings 设置管理器
func (s *Session) Settings() *SettingsManager { return s.settings }

// InitError GPU 路径初始化失败的原因，成功时为 nil
func (s *Session) InitError() error { return s.initErr }

// SaveOnExit 保存设置（实现 Saveable）
func (s *Session) SaveOnExit() bool {
	if err := s.settings.Save(); err != nil {
		log.Printf("[Session] 警告: 保存设置失败: %v", err)
		return false
	}
	return true
}

// Close 保存设置并释放渲染资源，可以重复调用
func (s *Session) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
		s.SaveOnExit()
	}
	s.manager.Destroy()
}

package render

import (
	"errors"
	"fmt"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/pkg/entity"
	"github.com/decker502/neonsnake/pkg/filters"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/sprite"
	"github.com/decker502/neonsnake/pkg/telemetry"
	"github.com/decker502/neonsnake/pkg/texture"
	"github.com/decker502/neonsnake/pkg/utils"
)

var (
	// ErrGPUUnavailable GPU 路径初始化失败，管理器已回退到 canvas2d
	ErrGPUUnavailable = errors.New("render: gpu path unavailable")
	// ErrNoSurface Init 时没有提供画布
	ErrNoSurface = errors.New("render: nil surface")
)

// Background 每帧开始时清屏的颜色
var Background = color.RGBA{R: 0x07, G: 0x06, B: 0x12, A: 0xff}

// QualitySource 统一画质事件的来源
type QualitySource int

const (
	// SourceTelemetry 玩法画质等级变化（来自 telemetry.Recorder）
	SourceTelemetry QualitySource = iota
	// SourceShader 着色器档位变化（来自滤镜管理器的自动 LOD 或手动设置）
	SourceShader
)

// QualityEvent 两套画质阶梯共用的粗粒度事件
type QualityEvent struct {
	Source     QualitySource
	Level      quality.Level
	ShaderTier quality.ShaderTier
	Reason     telemetry.Reason // 仅 SourceTelemetry 有意义
}

// Options 渲染管理器配置
type Options struct {
	// Recorder 可为 nil，此时画质等级固定为 InitialLevel
	Recorder           *telemetry.Recorder
	InitialLevel       quality.Level
	BackendFactory     BackendFactory
	Filters            filters.Options
	TextureGenerator   texture.Generator
	TextureLimits      texture.Limits
	PoolTrimSize       int     // 每隔 TrimInterval 帧把每个池裁剪到此大小
	TrimInterval       int     // 默认 300 帧
	TransitionDuration float64 // 画质过渡时长（秒），默认 0.5
}

// DefaultOptions 默认配置：内置批量后端、内置着色器、程序化贴图
func DefaultOptions(recorder *telemetry.Recorder) Options {
	return Options{
		Recorder:           recorder,
		InitialLevel:       quality.LevelHigh,
		BackendFactory:     NewBatchBackend,
		Filters:            filters.DefaultOptions(),
		TextureGenerator:   texture.NewProceduralGenerator().Generate,
		TextureLimits:      texture.DefaultLimits(),
		PoolTrimSize:       4096,
		TrimInterval:       300,
		TransitionDuration: quality.DefaultTransitionDuration,
	}
}

type qualityListener struct {
	id int
	fn func(QualityEvent)
}

// Manager 渲染编排
//
// 每个游戏会话一个实例。帧内调用顺序：
//
//	BeginFrame → ApplyCameraTransform → Render* → EndGPUPass → （即时渲染 Fallback）→ EndFrame → Present
//
// 画质变化在下一次 BeginFrame 时才生效，不会改动已经开始的帧。
type Manager struct {
	opts     Options
	recorder *telemetry.Recorder

	initialized bool
	ready       bool // GPU 路径可用
	mode        Mode

	surface     *Surface
	backend     Backend
	filterMgr   *filters.Manager
	cache       *texture.Cache
	pools       *sprite.Set
	particles   *ParticleRenderer
	projectiles *ProjectileRenderer
	entities    *EntityRenderer

	camera      Camera
	inFrame     bool
	gpuFrame    bool
	frameIndex  uint64
	spriteBuf   []*sprite.Sprite
	gpuCalls    int
	immCalls    int
	lastReport  FrameReport
	frameStats  [3]RenderStats
	lastDt      float64
	transition  *quality.Transition
	level       quality.Level
	pending     *telemetry.QualityChange
	unsubscribe []func()

	listeners []qualityListener
	nextID    int
}

// NewManager 创建渲染管理器，GPU 资源在 Init 时才创建
func NewManager(opts Options) *Manager {
	def := DefaultOptions(opts.Recorder)
	if opts.BackendFactory == nil {
		opts.BackendFactory = def.BackendFactory
	}
	if opts.TextureGenerator == nil {
		opts.TextureGenerator = def.TextureGenerator
	}
	if opts.Filters.Factory == nil {
		opts.Filters.Factory = def.Filters.Factory
	}
	if opts.TrimInterval <= 0 {
		opts.TrimInterval = def.TrimInterval
	}
	if opts.PoolTrimSize <= 0 {
		opts.PoolTrimSize = def.PoolTrimSize
	}
	if opts.TransitionDuration < 0 {
		opts.TransitionDuration = 0
	}
	if !opts.InitialLevel.Valid() {
		opts.InitialLevel = def.InitialLevel
	}

	level := opts.InitialLevel
	if opts.Recorder != nil {
		level = opts.Recorder.QualityLevel()
	}
	return &Manager{
		opts:        opts,
		recorder:    opts.Recorder,
		mode:        ModeCanvas2D,
		particles:   NewParticleRenderer(),
		projectiles: NewProjectileRenderer(),
		entities:    NewEntityRenderer(),
		transition:  quality.NewTransition(level),
		level:       level,
	}
}

// Init 绑定画布并构建 GPU 路径
//
// GPU 路径任何一步失败（包括 panic）都会释放已创建的部分、回退到 canvas2d 并返回包装了
// ErrGPUUnavailable 的错误；管理器本身仍然可用。重复调用只打印警告。
func (m *Manager) Init(surface *Surface, mode Mode) error {
	if m.initialized {
		log.Printf("[RenderManager] 警告: 重复初始化，已忽略")
		return nil
	}
	if surface == nil {
		return ErrNoSurface
	}
	m.surface = surface
	w, h := surface.Size()
	m.camera = NewCamera(float64(w), float64(h))
	m.initialized = true

	if m.recorder != nil {
		m.unsubscribe = append(m.unsubscribe, m.recorder.OnQualityChange(func(c telemetry.QualityChange) {
			change := c
			m.pending = &change
		}))
	}
	m.applyLevel(m.level)

	if err := m.initGPU(w, h); err != nil {
		m.mode = ModeCanvas2D
		m.ready = false
		log.Printf("[RenderManager] 警告: GPU 渲染不可用，回退到 canvas2d: %v", err)
		return fmt.Errorf("%w: %v", ErrGPUUnavailable, err)
	}

	m.ready = true
	m.mode = mode
	log.Printf("[RenderManager] 初始化完成: %dx%d, 模式 %s", w, h, mode)
	return nil
}

func (m *Manager) initGPU(w, h int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during gpu init: %v", r)
		}
		if err != nil {
			m.teardownGPU()
		}
	}()

	backend, err := m.opts.BackendFactory(w, h)
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}
	if backend == nil {
		return errors.New("backend factory returned nil")
	}
	m.backend = backend

	cache, err := texture.NewCache(m.opts.TextureGenerator, m.opts.TextureLimits)
	if err != nil {
		return fmt.Errorf("failed to create texture cache: %w", err)
	}
	m.cache = cache

	m.pools = sprite.NewSet(sprite.PoolEntities, sprite.PoolProjectiles, sprite.PoolParticles)
	if err := m.entities.Init(m.pools.Pool(sprite.PoolEntities), cache); err != nil {
		return fmt.Errorf("failed to init entity renderer: %w", err)
	}
	if err := m.projectiles.Init(m.pools.Pool(sprite.PoolProjectiles), cache); err != nil {
		return fmt.Errorf("failed to init projectile renderer: %w", err)
	}
	if err := m.particles.Init(m.pools.Pool(sprite.PoolParticles), cache); err != nil {
		return fmt.Errorf("failed to init particle renderer: %w", err)
	}

	// 滤镜失败不影响批量渲染，只是没有后处理
	fm := filters.NewManager(m.opts.Filters)
	if ferr := fm.Init(m.surface, w, h); ferr != nil {
		log.Printf("[RenderManager] 警告: 后处理滤镜不可用: %v", ferr)
	} else {
		fm.ApplyQuality(m.transition.Target())
		m.unsubscribe = append(m.unsubscribe, fm.OnTierChange(func(_, to quality.ShaderTier) {
			m.emit(QualityEvent{Source: SourceShader, Level: m.level, ShaderTier: to})
		}))
		m.filterMgr = fm
	}
	return nil
}

// teardownGPU 按依赖的反序释放 GPU 路径：子渲染器 → 精灵池 → 贴图缓存 → 后端
func (m *Manager) teardownGPU() {
	if m.filterMgr != nil {
		m.filterMgr.Destroy()
		m.filterMgr = nil
	}
	m.entities.Destroy()
	m.projectiles.Destroy()
	m.particles.Destroy()
	if m.pools != nil {
		m.pools.Destroy()
		m.pools = nil
	}
	if m.cache != nil {
		m.cache.Destroy()
		m.cache = nil
	}
	if m.backend != nil {
		m.backend.Destroy()
		m.backend = nil
	}
}

// IsReady GPU 路径是否可用
func (m *Manager) IsReady() bool {
	return m.ready
}

// Mode 当前渲染模式
func (m *Manager) Mode() Mode {
	return m.mode
}

// SetMode 切换渲染模式，GPU 不可用时拒绝切换到 webgl/hybrid
func (m *Manager) SetMode(mode Mode) bool {
	if mode < ModeCanvas2D || mode > ModeHybrid {
		log.Printf("[RenderManager] 警告: 无效的渲染模式 %d", int(mode))
		return false
	}
	if mode.UsesGPU() && !m.ready {
		log.Printf("[RenderManager] 警告: GPU 不可用，无法切换到 %s", mode)
		return false
	}
	if mode != m.mode {
		log.Printf("[RenderManager] 渲染模式 %s -> %s", m.mode, mode)
		m.mode = mode
	}
	return true
}

// BeginFrame 开始一帧：应用待生效的画质变化、释放上一帧的精灵、清空画布
func (m *Manager) BeginFrame() {
	if !m.initialized {
		return
	}
	if m.inFrame {
		log.Printf("[RenderManager] 警告: 上一帧未调用 EndFrame")
	}
	m.inFrame = true
	m.frameIndex++
	m.gpuCalls = 0
	m.immCalls = 0
	m.frameStats = [3]RenderStats{}

	if m.pending != nil {
		change := *m.pending
		m.pending = nil
		m.applyLevel(change.To)
		m.emit(QualityEvent{Source: SourceTelemetry, Level: change.To, ShaderTier: m.ShaderTier(), Reason: change.Reason})
	}

	m.surface.Clear(Background)

	m.gpuFrame = m.ready && m.mode.UsesGPU()
	if !m.ready {
		return
	}
	m.cache.Sweep()
	m.pools.ReleaseAll()
	if m.frameIndex%uint64(m.opts.TrimInterval) == 0 {
		if n := m.pools.Trim(m.opts.PoolTrimSize); n > 0 {
			log.Printf("[RenderManager] 精灵池裁剪 %d 个空闲精灵", n)
		}
	}
}

func (m *Manager) applyLevel(level quality.Level) {
	m.level = level
	target := quality.SettingsFor(level)
	m.transition.Start(target, m.opts.TransitionDuration)
	m.particles.SetQuality(target)
	m.entities.SetQuality(target)
	if m.filterMgr != nil {
		m.filterMgr.ApplyQuality(target)
	}
}

// ApplyCameraTransform 设置本帧相机
//
// 即时渲染器必须使用 Camera() 返回的同一个相机，保证两条路径的映射一致。
func (m *Manager) ApplyCameraTransform(x, y, zoom, shakeX, shakeY float64) {
	m.camera.X = x
	m.camera.Y = y
	m.camera.Zoom = zoom
	m.camera.ShakeX = shakeX
	m.camera.ShakeY = shakeY
	if m.surface != nil {
		w, h := m.surface.Size()
		m.camera.ViewW, m.camera.ViewH = float64(w), float64(h)
	}
}

// Camera 本帧相机
func (m *Manager) Camera() Camera {
	return m.camera
}

// RenderParticles 批量渲染粒子；canvas2d 模式或 GPU 不可用时返回未处理
func (m *Manager) RenderParticles(particles []entity.Particle) Result[entity.Particle] {
	res := notHandled(particles)
	if m.gpuFrame {
		res = m.particles.Render(particles)
	}
	m.frameStats[statParticles] = res.Stats()
	return res
}

// RenderProjectiles 批量渲染子弹
func (m *Manager) RenderProjectiles(projectiles []entity.Projectile) Result[entity.Projectile] {
	res := notHandled(projectiles)
	if m.gpuFrame {
		res = m.projectiles.Render(projectiles)
	}
	m.frameStats[statProjectiles] = res.Stats()
	return res
}

// RenderEntities 批量渲染实体；hybrid 模式下实体全部交给即时渲染
func (m *Manager) RenderEntities(entities []entity.Entity) Result[entity.Entity] {
	res := notHandled(entities)
	if m.gpuFrame && m.mode != ModeHybrid {
		res = m.entities.Render(entities)
	}
	m.frameStats[statEntities] = res.Stats()
	return res
}

// EndGPUPass 把本帧占用的精灵提交给后端
func (m *Manager) EndGPUPass() int {
	if !m.gpuFrame {
		return 0
	}
	m.spriteBuf = m.pools.ActiveSprites(m.spriteBuf[:0])
	m.backend.BeginPass(m.surface.Image(), m.camera)
	m.backend.Draw(m.spriteBuf)
	calls := m.backend.EndPass()
	m.gpuCalls += calls
	return calls
}

// InvalidateTextures 让键前缀匹配的贴图失效（如切换外观），返回失效数量
//
// 贴图在下一次 Sweep 时释放，需要时按新外观重新生成。
func (m *Manager) InvalidateTextures(typePrefix string) int {
	if m.cache == nil {
		return 0
	}
	n := m.cache.Invalidate(typePrefix)
	m.entities.forgetFailures(typePrefix)
	m.projectiles.forgetFailures(typePrefix)
	m.particles.forgetFailures(typePrefix)
	return n
}

// AddImmediateDrawCalls 即时渲染器上报本帧的绘制调用数
func (m *Manager) AddImmediateDrawCalls(n int) {
	if n > 0 {
		m.immCalls += n
	}
}

// EndFrame 结束一帧：汇总统计、上报绘制调用、推进画质过渡和滤镜
// dt 是实际帧间隔（秒），滤镜的自动 LOD 用 1/dt 作为瞬时帧率
func (m *Manager) EndFrame(dt float64) {
	if !m.initialized || !m.inFrame {
		return
	}
	m.inFrame = false
	if !utils.IsFinite(dt) || dt < 0 {
		dt = 0
	}
	m.lastDt = dt

	total := m.gpuCalls + m.immCalls
	if m.recorder != nil {
		m.recorder.SetDrawCalls(total)
	}
	m.transition.Advance(dt)

	if m.filterMgr != nil {
		fps := 0.0
		if dt > 0 {
			fps = 1 / dt
		}
		m.filterMgr.Update(dt, fps)
	}

	m.lastReport = m.buildReport()
}

// Present 把画布经过滤镜链输出到屏幕
func (m *Manager) Present(screen *ebiten.Image) {
	if m.surface == nil {
		return
	}
	m.surface.Present(screen)
}

// CurrentQualityLevel 当前生效的玩法画质等级
func (m *Manager) CurrentQualityLevel() quality.Level {
	return m.level
}

// QualitySettings 当前（过渡中）的画质参数，即时渲染器使用
func (m *Manager) QualitySettings() quality.Settings {
	return m.transition.Current()
}

// ShaderTier 滤镜实际生效的着色器档位，滤镜不可用时为 OFF
func (m *Manager) ShaderTier() quality.ShaderTier {
	if m.filterMgr == nil {
		return quality.ShaderOff
	}
	return m.filterMgr.EffectiveQuality()
}

// Filters 滤镜管理器，GPU 或滤镜不可用时为 nil
func (m *Manager) Filters() *filters.Manager {
	return m.filterMgr
}

// Surface 画布
func (m *Manager) Surface() *Surface {
	return m.surface
}

// OnQualityChange 订阅统一画质事件（玩法等级或着色器档位任一变化）
func (m *Manager) OnQualityChange(fn func(QualityEvent)) func() {
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, qualityListener{id: id, fn: fn})
	return func() {
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) emit(ev QualityEvent) {
	snapshot := append([]qualityListener(nil), m.listeners...)
	for _, l := range snapshot {
		l.fn(ev)
	}
}

// Resize 同时调整画布、后端、滤镜和相机视口
func (m *Manager) Resize(width, height int) {
	if !m.initialized || width <= 0 || height <= 0 {
		return
	}
	if !m.surface.Resize(width, height) {
		return
	}
	if m.backend != nil {
		m.backend.Resize(width, height)
	}
	if m.filterMgr != nil {
		m.filterMgr.Resize(width, height)
	}
	m.camera.ViewW, m.camera.ViewH = float64(width), float64(height)
	log.Printf("[RenderManager] 尺寸变为 %dx%d", width, height)
}

// Destroy 取消订阅并按依赖的反序释放所有资源，可以重复调用
func (m *Manager) Destroy() {
	if !m.initialized {
		return
	}
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
	m.teardownGPU()
	m.initialized = false
	m.ready = false
	m.gpuFrame = false
	m.inFrame = false
	m.mode = ModeCanvas2D
	m.pending = nil
	m.listeners = nil
	log.Printf("[RenderManager] 已销毁")
}

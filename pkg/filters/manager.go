package filters

import (
	"log"
	"math"

	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/utils"
)

// 滤镜基础强度（再乘以 fxIntensity）
const (
	bloomIntensity     = 0.6
	bloomThreshold     = 0.55
	bloomRadius        = 6.0
	chromaticStrength  = 0.35
	crtNoise           = 0.04
	crtVignette        = 0.35
	scanlineScrollRate = 12.0 // 像素/秒
	maxFXIntensity     = 2.0
)

// Options 滤镜管理器配置
type Options struct {
	Factory         Factory
	Rules           Rules
	WindowSize      int // 帧率滑动窗口，默认 60
	DowngradeFrames int // 默认 30
	UpgradeFrames   int // 默认 120
}

// DefaultOptions 使用内置着色器和默认规则
func DefaultOptions() Options {
	return Options{
		Factory:         NewShaderFactory(),
		Rules:           DefaultRules(),
		WindowSize:      60,
		DowngradeFrames: 30,
		UpgradeFrames:   120,
	}
}

type tierListener struct {
	id int
	fn func(from, to quality.ShaderTier)
}

// Manager 后处理滤镜链管理器
//
// 每个游戏会话一个实例。它有自己的自动 LOD 循环，直接根据原始帧率调整着色器档位，
// 与 telemetry.Recorder 的玩法画质等级互相独立；两者的关系只有一处：
// ApplyQuality 传入的玩法画质会限制着色器档位上限并开关各个滤镜。
type Manager struct {
	factory Factory
	rules   Rules

	target      Target
	width       int
	height      int
	initialized bool

	filters map[Kind]Filter
	chain   []Filter

	requested quality.ShaderTier // 手动档位，ShaderAuto 表示自动
	autoTier  quality.ShaderTier
	ceiling   quality.ShaderTier
	gameplay  quality.Settings
	effective quality.ShaderTier

	crtEnabled     bool
	fxIntensity    float64
	chromaticBoost float64
	time           float64

	fpsWindow       *utils.Ring[float64]
	lowFrames       int
	highFrames      int
	downgradeFrames int
	upgradeFrames   int

	listeners []tierListener
	nextID    int
}

// NewManager 创建滤镜管理器（此时还不会创建任何 GPU 资源）
func NewManager(opts Options) *Manager {
	if opts.WindowSize <= 0 {
		opts.WindowSize = 60
	}
	if opts.DowngradeFrames <= 0 {
		opts.DowngradeFrames = 30
	}
	if opts.UpgradeFrames <= 0 {
		opts.UpgradeFrames = 120
	}
	if opts.Rules == (Rules{}) {
		opts.Rules = DefaultRules()
	}
	return &Manager{
		factory:         opts.Factory,
		rules:           opts.Rules,
		requested:       quality.ShaderAuto,
		autoTier:        quality.ShaderHigh,
		ceiling:         quality.ShaderHigh,
		gameplay:        quality.SettingsFor(quality.LevelHigh),
		effective:       quality.ShaderOff,
		crtEnabled:      true,
		fxIntensity:     1,
		fpsWindow:       utils.NewRing[float64](opts.WindowSize),
		downgradeFrames: opts.DowngradeFrames,
		upgradeFrames:   opts.UpgradeFrames,
	}
}

// Init 构建全部滤镜实例并挂到目标表面
//
// 重复调用只打印警告。任一滤镜创建失败时释放已创建的滤镜并返回错误，
// 管理器保持未初始化状态（所有调用都是空操作）。
func (m *Manager) Init(target Target, width, height int) error {
	if m.initialized {
		log.Printf("[FilterManager] 警告: 重复初始化，已忽略")
		return nil
	}
	if target == nil {
		return ErrNoTarget
	}
	if m.factory == nil {
		return ErrNoFactory
	}

	built := make(map[Kind]Filter, len(AllKinds))
	for _, kind := range AllKinds {
		f, err := m.factory(kind)
		if err != nil {
			for _, b := range built {
				b.Dispose()
			}
			return err
		}
		f.Resize(width, height)
		built[kind] = f
	}

	m.filters = built
	m.target = target
	m.width, m.height = width, height
	m.initialized = true
	m.effective = m.computeEffective()
	m.rebuild()

	log.Printf("[FilterManager] 初始化完成: %dx%d, 档位 %s", width, height, m.effective)
	return nil
}

// IsActive 是否有滤镜正在生效
func (m *Manager) IsActive() bool {
	return m.initialized && m.chain != nil
}

// EffectiveQuality 当前实际生效的着色器档位
func (m *Manager) EffectiveQuality() quality.ShaderTier {
	return m.effective
}

// RequestedQuality 手动设置的档位（可能是 ShaderAuto）
func (m *Manager) RequestedQuality() quality.ShaderTier {
	return m.requested
}

// Chain 当前滤镜链（只读）
func (m *Manager) Chain() []Filter {
	return m.chain
}

// Update 推进时间相关的 uniform，并在 AUTO 档位下运行自动 LOD
func (m *Manager) Update(dt, fps float64) {
	if !m.initialized {
		return
	}
	if utils.IsFinite(dt) && dt > 0 {
		m.time += dt
	}
	m.updateUniforms()

	if m.requested != quality.ShaderAuto {
		return
	}
	if !utils.IsFinite(fps) || fps <= 0 {
		return
	}
	m.evaluate(fps)
}

func (m *Manager) evaluate(fps float64) {
	m.fpsWindow.Push(fps)
	if !m.fpsWindow.Full() {
		return
	}
	avg := utils.MeanFloat(m.fpsWindow)
	cur := m.autoTier

	if avg < m.rules.For(cur).MinFPS {
		m.highFrames = 0
		m.lowFrames++
		if m.lowFrames >= m.downgradeFrames {
			if lower, ok := quality.NextLowerShader(cur); ok {
				m.setAutoTier(lower)
			} else {
				m.lowFrames = 0
			}
		}
		return
	}

	// 升档必须达到上一档自己的门槛
	if next, ok := quality.NextHigherShader(cur); ok && next <= m.upperBound() && avg >= m.rules.For(next).MinFPS {
		m.lowFrames = 0
		m.highFrames++
		if m.highFrames >= m.upgradeFrames {
			m.setAutoTier(next)
		}
		return
	}

	if m.lowFrames > 0 {
		m.lowFrames--
	}
	if m.highFrames > 0 {
		m.highFrames--
	}
}

func (m *Manager) setAutoTier(tier quality.ShaderTier) {
	log.Printf("[FilterManager] 自动 LOD: %s -> %s (平均帧率 %.1f)", m.autoTier, tier, utils.MeanFloat(m.fpsWindow))
	m.autoTier = tier
	m.resetLOD()
	m.refresh()
}

func (m *Manager) resetLOD() {
	m.lowFrames = 0
	m.highFrames = 0
	m.fpsWindow.Reset()
}

// upperBound 用户上限与玩法画质上限中较低者
func (m *Manager) upperBound() quality.ShaderTier {
	bound := m.ceiling
	if m.gameplay.ShaderQuality < bound {
		bound = m.gameplay.ShaderQuality
	}
	if bound < quality.ShaderOff {
		bound = quality.ShaderOff
	}
	return bound
}

func (m *Manager) computeEffective() quality.ShaderTier {
	tier := m.requested
	if tier == quality.ShaderAuto {
		tier = m.autoTier
	}
	if bound := m.upperBound(); tier > bound {
		tier = bound
	}
	return tier
}

// refresh 重新计算生效档位，变化时通知监听者并重建滤镜链
func (m *Manager) refresh() {
	prev := m.effective
	m.effective = m.computeEffective()
	if m.initialized {
		m.rebuild()
	}
	if prev != m.effective {
		snapshot := append([]tierListener(nil), m.listeners...)
		for _, l := range snapshot {
			l.fn(prev, m.effective)
		}
	}
}

// rebuild 按当前档位重新组合滤镜链并挂到目标表面
func (m *Manager) rebuild() {
	if !m.initialized {
		return
	}

	var chain []Filter
	if m.effective > quality.ShaderOff {
		rule := m.rules.For(m.effective)

		if rule.BloomSamples > 0 && m.gameplay.BloomEnabled {
			chain = m.appendFilter(chain, KindBloom)
		}
		if m.chromaticStrength(rule) > 0 {
			chain = m.appendFilter(chain, KindChromatic)
		}
		if m.crtEnabled && rule.CRT && m.gameplay.CRTEnabled {
			chain = m.appendFilter(chain, KindCRT)
		} else if rule.ScanlineIntensity > 0 {
			chain = m.appendFilter(chain, KindScanline)
		}
	}

	// 空链一律传 nil
	if len(chain) == 0 {
		chain = nil
	}
	m.chain = chain
	m.updateUniforms()
	m.target.SetFilters(chain)
}

func (m *Manager) appendFilter(chain []Filter, kind Kind) []Filter {
	if f, ok := m.filters[kind]; ok && f != nil {
		return append(chain, f)
	}
	return chain
}

func (m *Manager) chromaticStrength(rule LODRule) float64 {
	s := m.chromaticBoost
	if rule.Chromatic && m.gameplay.ChromaticEnabled {
		s += chromaticStrength * m.fxIntensity
	}
	return s
}

func (m *Manager) updateUniforms() {
	if !m.initialized || m.chain == nil {
		return
	}
	rule := m.rules.For(m.effective)
	fx := m.fxIntensity
	for _, f := range m.chain {
		switch f.Kind() {
		case KindBloom:
			f.SetUniform(UniformSamples, float64(rule.BloomSamples))
			f.SetUniform(UniformIntensity, bloomIntensity*fx*m.gameplay.GlowIntensity)
			f.SetUniform(UniformThreshold, bloomThreshold)
			f.SetUniform(UniformRadius, bloomRadius)
		case KindChromatic:
			f.SetUniform(UniformStrength, m.chromaticStrength(rule))
		case KindCRT:
			f.SetUniform(UniformTime, m.time)
			f.SetUniform(UniformScanlineIntensity, math.Min(1, rule.ScanlineIntensity*fx))
			f.SetUniform(UniformNoise, crtNoise*fx)
			f.SetUniform(UniformVignette, crtVignette*fx)
		case KindScanline:
			f.SetUniform(UniformIntensity, math.Min(1, rule.ScanlineIntensity*fx))
			f.SetUniform(UniformScroll, math.Mod(m.time*scanlineScrollRate, 2))
		}
	}
}

// ApplySettings 应用用户设置：CRT 开关与全局特效强度倍率
func (m *Manager) ApplySettings(crtEnabled bool, fxIntensity float64) {
	if !utils.IsFinite(fxIntensity) {
		fxIntensity = 1
	}
	m.crtEnabled = crtEnabled
	m.fxIntensity = math.Max(0, math.Min(maxFXIntensity, fxIntensity))
	m.rebuild()
}

// ApplyQuality 应用玩法画质参数
//
// 着色器档位上限取 settings.ShaderQuality，bloom/色差/CRT 是否允许也由它决定。
// 作为 telemetry.Recorder 的画质变化订阅者使用。
func (m *Manager) ApplyQuality(settings quality.Settings) {
	m.gameplay = settings
	m.refresh()
}

// SetQuality 手动设置着色器档位，ShaderAuto 恢复自动 LOD 并清空其状态
func (m *Manager) SetQuality(tier quality.ShaderTier) {
	if tier < quality.ShaderAuto || tier > quality.ShaderHigh {
		log.Printf("[FilterManager] 警告: 无效的着色器档位 %d", int(tier))
		return
	}
	m.requested = tier
	if tier == quality.ShaderAuto {
		m.resetLOD()
	}
	m.refresh()
}

// SetQualityCeiling 设置用户档位上限，自动档位高于上限时立即降下来
func (m *Manager) SetQualityCeiling(ceiling quality.ShaderTier) {
	if ceiling < quality.ShaderOff || ceiling > quality.ShaderHigh {
		log.Printf("[FilterManager] 警告: 无效的档位上限 %d", int(ceiling))
		return
	}
	m.ceiling = ceiling
	if m.autoTier > ceiling {
		m.autoTier = ceiling
		m.resetLOD()
	}
	m.refresh()
}

// QualityCeiling 用户档位上限
func (m *Manager) QualityCeiling() quality.ShaderTier {
	return m.ceiling
}

// SetChromaticIntensity 设置瞬时色差强度（受伤/死亡效果），与档位无关
//
// 只有色差从无到有或从有到无时才重建滤镜链，其余情况只更新 uniform。
// OFF 档位下不生效。
func (m *Manager) SetChromaticIntensity(intensity float64) {
	if !utils.IsFinite(intensity) || intensity < 0 {
		intensity = 0
	}
	intensity = math.Min(1, intensity)
	was := m.chromaticBoost > 0
	m.chromaticBoost = intensity
	if was != (intensity > 0) {
		m.rebuild()
		return
	}
	m.updateUniforms()
}

// ChromaticIntensity 当前瞬时色差强度
func (m *Manager) ChromaticIntensity() float64 {
	return m.chromaticBoost
}

// OnTierChange 订阅生效档位变化，返回取消订阅函数
func (m *Manager) OnTierChange(fn func(from, to quality.ShaderTier)) func() {
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, tierListener{id: id, fn: fn})
	return func() {
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Resize 通知所有与尺寸相关的滤镜
func (m *Manager) Resize(width, height int) {
	if !m.initialized || width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	for _, f := range m.filters {
		f.Resize(width, height)
	}
}

// Destroy 先把目标表面的滤镜列表置为 nil，再释放所有滤镜
func (m *Manager) Destroy() {
	if !m.initialized {
		return
	}
	m.target.SetFilters(nil)
	for _, kind := range AllKinds {
		if f, ok := m.filters[kind]; ok {
			f.Dispose()
		}
	}
	m.filters = nil
	m.chain = nil
	m.target = nil
	m.initialized = false
	m.listeners = nil
	log.Printf("[FilterManager] 已销毁")
}

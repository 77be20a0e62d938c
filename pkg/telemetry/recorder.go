package telemetry

import (
	"log"
	"time"

	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/utils"
)

// Clock 时间源，测试中可替换为可控时钟
type Clock func() time.Time

// Options Recorder 构造参数
type Options struct {
	Thresholds      quality.Thresholds
	HistorySize     int           // 滚动历史容量（默认 120）
	SmoothingWindow int           // FPS 平滑窗口（默认 30）
	InitialLevel    quality.Level // 初始画质（默认 HIGH）
	Ceiling         quality.Level // 用户设置的画质上限（默认 ULTRA）
	AutoScale       bool
	Clock           Clock
}

// DefaultOptions 返回默认参数（自动调节开启）
func DefaultOptions() Options {
	return Options{
		Thresholds:      quality.DefaultThresholds(),
		HistorySize:     120,
		SmoothingWindow: 30,
		InitialLevel:    quality.LevelHigh,
		Ceiling:         quality.LevelUltra,
		AutoScale:       true,
		Clock:           time.Now,
	}
}

type subscriber struct {
	id int
	fn func(QualityChange)
}

// Recorder 帧指标记录器 + 画质自动调节
//
// 单线程使用：所有方法都应在帧循环中调用。
// 订阅回调在 SetQuality 内同步执行，回调内再次调用 SetQuality 会被拒绝。
type Recorder struct {
	thresholds quality.Thresholds
	clock      Clock

	// 当前帧的计时
	inFrame          bool
	frameStart       time.Time
	simStart         time.Time
	renderStart      time.Time
	simTime          float64
	renderTime       float64
	pendingDrawCalls int

	current    FrameMetrics
	history    *utils.Ring[FrameMetrics]
	fpsWindow  *utils.Ring[float64]
	frameCount uint64

	// 画质状态
	level             quality.Level
	ceiling           quality.Level
	autoScale         bool
	lowFPSFrames      int
	highFPSFrames     int
	framesSinceChange int

	subscribers []subscriber
	nextSubID   int
	dispatching bool

	pendingCeiling quality.Level
	ceilingPending bool
}

// NewRecorder 创建记录器
//
// 通常以 DefaultOptions() 为基础修改；阈值、历史容量、平滑窗口和时钟为零值时使用默认值。
func NewRecorder(opts Options) *Recorder {
	def := DefaultOptions()
	if opts.Thresholds == (quality.Thresholds{}) {
		opts.Thresholds = def.Thresholds
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = def.HistorySize
	}
	if opts.SmoothingWindow <= 0 {
		opts.SmoothingWindow = def.SmoothingWindow
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	if !opts.Ceiling.Valid() {
		opts.Ceiling = def.Ceiling
	}
	if !opts.InitialLevel.Valid() {
		opts.InitialLevel = def.InitialLevel
	}

	return &Recorder{
		thresholds: opts.Thresholds,
		clock:      opts.Clock,
		history:    utils.NewRing[FrameMetrics](opts.HistorySize),
		fpsWindow:  utils.NewRing[float64](opts.SmoothingWindow),
		level:      quality.Clamp(opts.InitialLevel, opts.Ceiling),
		ceiling:    opts.Ceiling,
		autoScale:  opts.AutoScale,
		// 启动时不处于冷却期
		framesSinceChange: opts.Thresholds.CooldownFrames,
	}
}

// BeginFrame 标记一帧开始
// 上一帧尚未结束时（例如 Update 连续调用两次）保留原有起点
func (r *Recorder) BeginFrame() {
	if r.inFrame {
		return
	}
	r.inFrame = true
	r.frameStart = r.clock()
	r.simTime = 0
	r.renderTime = 0
}

// BeginSimulation 标记模拟阶段开始
func (r *Recorder) BeginSimulation() {
	r.simStart = r.clock()
}

// EndSimulation 标记模拟阶段结束，累加到当前帧
func (r *Recorder) EndSimulation() {
	if r.simStart.IsZero() {
		return
	}
	r.simTime += durationMs(r.clock().Sub(r.simStart))
	r.simStart = time.Time{}
}

// BeginRender 标记渲染阶段开始
func (r *Recorder) BeginRender() {
	r.renderStart = r.clock()
}

// EndRender 标记渲染阶段结束，累加到当前帧
func (r *Recorder) EndRender() {
	if r.renderStart.IsZero() {
		return
	}
	r.renderTime += durationMs(r.clock().Sub(r.renderStart))
	r.renderStart = time.Time{}
}

// SetDrawCalls 设置本帧的绘制调用次数（由渲染后端提供，EndFrame 时读取）
func (r *Recorder) SetDrawCalls(n int) {
	if n < 0 {
		n = 0
	}
	r.pendingDrawCalls = n
}

// EndFrame 结束一帧：计算指标、写入历史，并在开启自动调节时评估画质
func (r *Recorder) EndFrame() FrameMetrics {
	if !r.inFrame {
		return r.current
	}
	r.inFrame = false

	now := r.clock()
	frameTime := durationMs(now.Sub(r.frameStart))
	instantFPS := 60.0
	if frameTime > 0 {
		instantFPS = 1000 / frameTime
	}
	r.fpsWindow.Push(instantFPS)

	m := FrameMetrics{
		FrameTime:      frameTime,
		SimulationTime: r.simTime,
		RenderTime:     r.renderTime,
		DrawCalls:      r.pendingDrawCalls,
		FPS:            utils.MeanFloat(r.fpsWindow),
		Timestamp:      now,
	}
	r.current = m
	r.history.Push(m)
	r.frameCount++
	r.pendingDrawCalls = 0

	if r.autoScale {
		r.evaluate(m)
	}
	return m
}

// evaluate 画质调节算法（每帧最多执行一次）
func (r *Recorder) evaluate(m FrameMetrics) {
	t := r.thresholds
	r.framesSinceChange++

	// 1. 紧急降级：跳过所有迟滞和冷却
	if m.FrameTime > t.EmergencyFrameTimeMs {
		if lower, ok := quality.NextLower(r.level); ok {
			log.Printf("[Telemetry] 紧急降级: 帧耗时 %.1fms > %.1fms", m.FrameTime, t.EmergencyFrameTimeMs)
			r.SetQuality(lower, ReasonEmergency)
		}
		return
	}

	// 2. 冷却期：刚切换过，暂不评估
	if r.framesSinceChange < t.CooldownFrames {
		return
	}

	switch {
	case m.FPS < t.DowngradeFPS:
		r.highFPSFrames = 0
		r.lowFPSFrames++
		if r.lowFPSFrames >= t.DowngradeFrames {
			if lower, ok := quality.NextLower(r.level); ok {
				r.SetQuality(lower, ReasonDowngrade)
			} else {
				r.lowFPSFrames = 0
			}
		}

	case m.FPS >= t.UpgradeFPS:
		r.lowFPSFrames = 0
		r.highFPSFrames++
		if r.highFPSFrames >= t.UpgradeFrames {
			higher, ok := quality.NextHigher(r.level)
			if ok && higher <= r.ceiling {
				r.SetQuality(higher, ReasonUpgrade)
			} else {
				r.highFPSFrames = 0
			}
		}

	default:
		// 稳定区间：计数器逐帧衰减，而不是直接清零
		if r.lowFPSFrames > 0 {
			r.lowFPSFrames--
		}
		if r.highFPSFrames > 0 {
			r.highFPSFrames--
		}
	}
}

// SetQuality 设置画质等级（权威入口）
//
// 等级会被限制在用户上限以内；迟滞计数器被清零；
// 等级确实变化时重新进入冷却期并同步通知所有订阅者。
// 返回等级是否发生了变化。
func (r *Recorder) SetQuality(level quality.Level, reason Reason) bool {
	if r.dispatching {
		log.Printf("[Telemetry] 错误: 在画质变更通知中再次调用 SetQuality(%s)，已忽略", level)
		return false
	}
	if !level.Valid() {
		log.Printf("[Telemetry] 警告: 非法画质等级 %d，已忽略", int(level))
		return false
	}

	level = quality.Clamp(level, r.ceiling)
	r.lowFPSFrames = 0
	r.highFPSFrames = 0
	if level == r.level {
		return false
	}

	change := QualityChange{From: r.level, To: level, Reason: reason, Frame: r.frameCount}
	r.level = level
	r.framesSinceChange = 0
	log.Printf("[Telemetry] 画质 %s -> %s (%s)", change.From, change.To, reason)

	r.notify(change)
	return true
}

// notify 同步通知订阅者
// 遍历的是订阅列表快照，回调中取消订阅是安全的
func (r *Recorder) notify(change QualityChange) {
	subs := make([]subscriber, len(r.subscribers))
	copy(subs, r.subscribers)

	func() {
		r.dispatching = true
		defer func() { r.dispatching = false }()
		for _, s := range subs {
			s.fn(change)
		}
	}()

	// 回调中设置的上限在通知结束后生效
	if r.ceilingPending {
		r.ceilingPending = false
		r.SetQualityCeiling(r.pendingCeiling)
	}
}

// OnQualityChange 订阅画质变更，返回取消订阅函数
func (r *Recorder) OnQualityChange(fn func(QualityChange)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	r.nextSubID++
	id := r.nextSubID
	r.subscribers = append(r.subscribers, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range r.subscribers {
			if s.id == id {
				r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
				return
			}
		}
	}
}

// SetQualityCeiling 设置用户画质上限
// 当前等级高于新上限时立即降级；在画质变更通知中调用时推迟到通知结束
func (r *Recorder) SetQualityCeiling(ceiling quality.Level) {
	if !ceiling.Valid() {
		return
	}
	if r.dispatching {
		r.pendingCeiling = ceiling
		r.ceilingPending = true
		return
	}
	r.ceiling = ceiling
	if r.level > ceiling {
		r.SetQuality(ceiling, ReasonCeiling)
	}
}

// SetAutoScale 开关自动调节
// 关闭时冻结当前等级；重新开启时从干净状态（计数器清零、重新冷却）开始评估
func (r *Recorder) SetAutoScale(enabled bool) {
	r.autoScale = enabled
	r.lowFPSFrames = 0
	r.highFPSFrames = 0
	if enabled {
		r.framesSinceChange = 0
	}
}

// AutoScale 是否开启自动调节
func (r *Recorder) AutoScale() bool { return r.autoScale }

// QualityLevel 当前画质等级
func (r *Recorder) QualityLevel() quality.Level { return r.level }

// QualityCeiling 用户画质上限
func (r *Recorder) QualityCeiling() quality.Level { return r.ceiling }

// Thresholds 当前阈值
func (r *Recorder) Thresholds() quality.Thresholds { return r.thresholds }

// FrameCount 已完成的帧数
func (r *Recorder) FrameCount() uint64 { return r.frameCount }

// CurrentMetrics 最近一帧的指标
func (r *Recorder) CurrentMetrics() FrameMetrics { return r.current }

// History 按从旧到新的顺序返回历史指标副本
func (r *Recorder) History() []FrameMetrics {
	out := make([]FrameMetrics, 0, r.history.Len())
	r.history.Each(func(_ int, m FrameMetrics) {
		out = append(out, m)
	})
	return out
}

// AverageMetrics 滚动历史上的平均指标
func (r *Recorder) AverageMetrics() FrameMetrics {
	n := r.history.Len()
	if n == 0 {
		return FrameMetrics{}
	}
	var avg FrameMetrics
	drawCalls := 0
	r.history.Each(func(_ int, m FrameMetrics) {
		avg.FrameTime += m.FrameTime
		avg.SimulationTime += m.SimulationTime
		avg.RenderTime += m.RenderTime
		avg.FPS += m.FPS
		drawCalls += m.DrawCalls
	})
	f := float64(n)
	avg.FrameTime /= f
	avg.SimulationTime /= f
	avg.RenderTime /= f
	avg.FPS /= f
	avg.DrawCalls = (drawCalls + n/2) / n
	avg.Timestamp = r.current.Timestamp
	return avg
}

// PeakMetrics 滚动历史上的最差指标（耗时/绘制调用取最大，FPS 取最小）
func (r *Recorder) PeakMetrics() FrameMetrics {
	if r.history.Len() == 0 {
		return FrameMetrics{}
	}
	peak := r.history.At(0)
	r.history.Each(func(_ int, m FrameMetrics) {
		if m.FrameTime > peak.FrameTime {
			peak.FrameTime = m.FrameTime
		}
		if m.SimulationTime > peak.SimulationTime {
			peak.SimulationTime = m.SimulationTime
		}
		if m.RenderTime > peak.RenderTime {
			peak.RenderTime = m.RenderTime
		}
		if m.DrawCalls > peak.DrawCalls {
			peak.DrawCalls = m.DrawCalls
		}
		if m.FPS < peak.FPS {
			peak.FPS = m.FPS
		}
	})
	peak.Timestamp = r.current.Timestamp
	return peak
}

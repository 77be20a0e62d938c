package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/decker502/neonsnake/pkg/quality"
)

// fakeClock 可控时钟
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestRecorder 创建使用可控时钟的记录器
func newTestRecorder(initial quality.Level) (*Recorder, *fakeClock) {
	clock := newFakeClock()
	opts := DefaultOptions()
	opts.Clock = clock.Now
	opts.InitialLevel = initial
	return NewRecorder(opts), clock
}

// runFrame 模拟一帧耗时 frameTime
func runFrame(r *Recorder, c *fakeClock, frameTime time.Duration) FrameMetrics {
	r.BeginFrame()
	c.Advance(frameTime)
	return r.EndFrame()
}

// recordChanges 订阅并收集画质变更事件
func recordChanges(r *Recorder) *[]QualityChange {
	var changes []QualityChange
	r.OnQualityChange(func(c QualityChange) {
		changes = append(changes, c)
	})
	return &changes
}

// TestEndFrame_ComputesMetrics 测试帧指标计算
func TestEndFrame_ComputesMetrics(t *testing.T) {
	r, c := newTestRecorder(quality.LevelHigh)

	r.BeginFrame()
	r.BeginSimulation()
	c.Advance(4 * time.Millisecond)
	r.EndSimulation()
	r.BeginRender()
	c.Advance(6 * time.Millisecond)
	r.EndRender()
	r.SetDrawCalls(42)
	c.Advance(10 * time.Millisecond)
	m := r.EndFrame()

	if m.FrameTime != 20 {
		t.Errorf("FrameTime: got %v, want 20", m.FrameTime)
	}
	if m.SimulationTime != 4 || m.RenderTime != 6 {
		t.Errorf("phase times: got sim=%v render=%v, want 4 and 6", m.SimulationTime, m.RenderTime)
	}
	if m.DrawCalls != 42 {
		t.Errorf("DrawCalls: got %d, want 42", m.DrawCalls)
	}
	if m.FPS != 50 {
		t.Errorf("FPS: got %v, want 50", m.FPS)
	}
	if r.CurrentMetrics() != m {
		t.Error("CurrentMetrics should return the last recorded frame")
	}

	// 绘制调用只作用于一帧
	m2 := runFrame(r, c, 20*time.Millisecond)
	if m2.DrawCalls != 0 {
		t.Errorf("DrawCalls should reset after EndFrame, got %d", m2.DrawCalls)
	}
}

// TestEndFrame_ZeroFrameTime 测试帧耗时为 0 时按 60 FPS 计算
func TestEndFrame_ZeroFrameTime(t *testing.T) {
	r, c := newTestRecorder(quality.LevelHigh)
	m := runFrame(r, c, 0)
	if m.FPS != 60 {
		t.Errorf("FPS for zero frame time: got %v, want 60", m.FPS)
	}
}

// TestEndFrame_Smoothing 测试 FPS 平滑窗口
func TestEndFrame_Smoothing(t *testing.T) {
	r, c := newTestRecorder(quality.LevelHigh)
	r.SetAutoScale(false)

	runFrame(r, c, 10*time.Millisecond) // 100 FPS
	m := runFrame(r, c, 20*time.Millisecond)
	if m.FPS != 75 {
		t.Errorf("smoothed FPS: got %v, want 75", m.FPS)
	}
}

// TestHistory_RingBuffer 测试历史容量固定，最旧的先淘汰
func TestHistory_RingBuffer(t *testing.T) {
	clock := newFakeClock()
	opts := DefaultOptions()
	opts.Clock = clock.Now
	opts.HistorySize = 4
	opts.AutoScale = false
	r := NewRecorder(opts)

	for i := 1; i <= 6; i++ {
		runFrame(r, clock, time.Duration(i)*time.Millisecond)
	}
	h := r.History()
	if len(h) != 4 {
		t.Fatalf("history length: got %d, want 4", len(h))
	}
	if h[0].FrameTime != 3 || h[3].FrameTime != 6 {
		t.Errorf("history should hold frames 3..6, got first=%v last=%v", h[0].FrameTime, h[3].FrameTime)
	}
}

// TestAverageAndPeakMetrics 测试平均值与峰值
func TestAverageAndPeakMetrics(t *testing.T) {
	r, c := newTestRecorder(quality.LevelHigh)
	r.SetAutoScale(false)

	if (r.AverageMetrics() != FrameMetrics{}) || (r.PeakMetrics() != FrameMetrics{}) {
		t.Fatal("empty history should yield zero metrics")
	}

	r.BeginFrame()
	r.SetDrawCalls(10)
	c.Advance(10 * time.Millisecond)
	r.EndFrame()

	r.BeginFrame()
	r.SetDrawCalls(30)
	c.Advance(30 * time.Millisecond)
	r.EndFrame()

	avg := r.AverageMetrics()
	if avg.FrameTime != 20 || avg.DrawCalls != 20 {
		t.Errorf("average: got frame=%v draw=%d, want 20 and 20", avg.FrameTime, avg.DrawCalls)
	}

	peak := r.PeakMetrics()
	if peak.FrameTime != 30 || peak.DrawCalls != 30 {
		t.Errorf("peak: got frame=%v draw=%d, want 30 and 30", peak.FrameTime, peak.DrawCalls)
	}
	// 第一帧平滑 FPS=100，第二帧=(100+33.3)/2，峰值取最小
	if peak.FPS >= 100 || peak.FPS != r.CurrentMetrics().FPS {
		t.Errorf("peak FPS should be the minimum smoothed FPS, got %v", peak.FPS)
	}
}

// TestScenario_SustainedLoadSpike 持续低帧：40 帧 20FPS，从 HIGH 开始，第 30 帧降到 MEDIUM 且仅一次
func TestScenario_SustainedLoadSpike(t *testing.T) {
	r, c := newTestRecorder(quality.LevelHigh)
	changes := recordChanges(r)

	firedAt := 0
	for frame := 1; frame <= 40; frame++ {
		runFrame(r, c, 50*time.Millisecond) // 20 FPS，恰好等于紧急阈值，不触发紧急降级
		if len(*changes) == 1 && firedAt == 0 {
			firedAt = frame
		}
	}

	if len(*changes) != 1 {
		t.Fatalf("expected exactly one change, got %d: %+v", len(*changes), *changes)
	}
	ch := (*changes)[0]
	if ch.From != quality.LevelHigh || ch.To != quality.LevelMedium {
		t.Errorf("change: got %v -> %v, want HIGH -> MEDIUM", ch.From, ch.To)
	}
	if ch.Reason != ReasonDowngrade {
		t.Errorf("reason: got %v, want downgrade", ch.Reason)
	}
	if firedAt != 30 {
		t.Errorf("downgrade fired on frame %d, want 30", firedAt)
	}
	if r.QualityLevel() != quality.LevelMedium {
		t.Errorf("level: got %v, want MEDIUM", r.QualityLevel())
	}
}

// TestHysteresis_ShortLowSequence 少于 DowngradeFrames 的低帧序列不会改变画质
func TestHysteresis_ShortLowSequence(t *testing.T) {
	for _, n := range []int{1, 10, 29} {
		r, c := newTestRecorder(quality.LevelHigh)
		changes := recordChanges(r)
		for i := 0; i < n; i++ {
			runFrame(r, c, 40*time.Millisecond) // 25 FPS
		}
		if len(*changes) != 0 || r.QualityLevel() != quality.LevelHigh {
			t.Errorf("%d low frames changed quality to %v", n, r.QualityLevel())
		}
	}
}

// TestHysteresis_NeverDropsMoreThanOne 每次降级只降一级
func TestHysteresis_NeverDropsMoreThanOne(t *testing.T) {
	r, c := newTestRecorder(quality.LevelUltra)
	changes := recordChanges(r)

	// 30 帧低帧 → 降一级；冷却 30 帧 + 再 30 帧低帧 → 再降一级
	for i := 0; i < 59; i++ {
		runFrame(r, c, 40*time.Millisecond)
	}
	if len(*changes) != 1 || r.QualityLevel() != quality.LevelHigh {
		t.Fatalf("after 59 low frames: changes=%d level=%v, want 1 and HIGH", len(*changes), r.QualityLevel())
	}
	for _, ch := range *changes {
		if int(ch.From)-int(ch.To) != 1 {
			t.Errorf("change %v -> %v skipped levels", ch.From, ch.To)
		}
	}
}

// TestScenario_SingleSpike 单帧尖峰：ULTRA 下一帧 60ms → 立即降到 HIGH（即使处于冷却期）
func TestScenario_SingleSpike(t *testing.T) {
	r, c := newTestRecorder(quality.LevelHigh)
	changes := recordChanges(r)

	// 手动切换到 ULTRA，进入冷却期
	r.SetQuality(quality.LevelUltra, ReasonManual)
	*changes = nil

	runFrame(r, c, 60*time.Millisecond)

	if len(*changes) != 1 {
		t.Fatalf("expected one emergency change, got %d", len(*changes))
	}
	ch := (*changes)[0]
	if ch.From != quality.LevelUltra || ch.To != quality.LevelHigh || ch.Reason != ReasonEmergency {
		t.Errorf("got %v -> %v (%v), want ULTRA -> HIGH (emergency)", ch.From, ch.To, ch.Reason)
	}
}

// TestEmergency_AtFloor 最低等级下的紧急帧不会产生事件
func TestEmergency_AtFloor(t *testing.T) {
	r, c := newTestRecorder(quality.LevelPotato)
	changes := recordChanges(r)
	runFrame(r, c, 200*time.Millisecond)
	if len(*changes) != 0 || r.QualityLevel() != quality.LevelPotato {
		t.Error("emergency at POTATO should be a no-op")
	}
}

// TestUpgrade_RespectsCeiling 持续高帧率也不会超过上限
func TestUpgrade_RespectsCeiling(t *testing.T) {
	r, c := newTestRecorder(quality.LevelLow)
	r.SetQualityCeiling(quality.LevelMedium)
	changes := recordChanges(r)

	for i := 0; i < 2000; i++ {
		runFrame(r, c, 10*time.Millisecond) // 100 FPS
		if r.QualityLevel() > quality.LevelMedium {
			t.Fatalf("frame %d: level %v exceeds ceiling MEDIUM", i, r.QualityLevel())
		}
	}
	if r.QualityLevel() != quality.LevelMedium {
		t.Errorf("level: got %v, want MEDIUM", r.QualityLevel())
	}
	if len(*changes) != 1 || (*changes)[0].Reason != ReasonUpgrade {
		t.Errorf("expected a single upgrade, got %+v", *changes)
	}
}

// TestUpgrade_RequiresUpgradeFrames 升级需要连续 UpgradeFrames 帧
func TestUpgrade_RequiresUpgradeFrames(t *testing.T) {
	r, c := newTestRecorder(quality.LevelMedium)
	need := r.Thresholds().UpgradeFrames

	for i := 0; i < need-1; i++ {
		runFrame(r, c, 10*time.Millisecond)
	}
	if r.QualityLevel() != quality.LevelMedium {
		t.Fatalf("upgraded after %d frames, want %d", need-1, need)
	}
	runFrame(r, c, 10*time.Millisecond)
	if r.QualityLevel() != quality.LevelHigh {
		t.Errorf("level after %d high frames: got %v, want HIGH", need, r.QualityLevel())
	}
}

// TestStableBand_DecaysCounters 稳定区间逐帧衰减计数器而不是清零
func TestStableBand_DecaysCounters(t *testing.T) {
	r, c := newTestRecorder(quality.LevelHigh)

	for i := 0; i < 20; i++ {
		runFrame(r, c, 40*time.Millisecond) // 25 FPS
	}
	if r.lowFPSFrames != 20 {
		t.Fatalf("lowFPSFrames: got %d, want 20", r.lowFPSFrames)
	}

	// 清空平滑窗口，让后续帧的平滑值直接落在稳定区间
	r.fpsWindow.Reset()
	for i := 0; i < 5; i++ {
		runFrame(r, c, 20*time.Millisecond) // 50 FPS：位于 45 ~ 58 之间
	}
	if r.lowFPSFrames != 15 {
		t.Errorf("lowFPSFrames after 5 stable frames: got %d, want 15", r.lowFPSFrames)
	}
}

// TestSetQualityCeiling_ForcesDowngrade 降低上限会立即降级
func TestSetQualityCeiling_ForcesDowngrade(t *testing.T) {
	r, _ := newTestRecorder(quality.LevelUltra)
	changes := recordChanges(r)

	r.SetQualityCeiling(quality.LevelLow)
	if r.QualityLevel() != quality.LevelLow {
		t.Errorf("level: got %v, want LOW", r.QualityLevel())
	}
	if len(*changes) != 1 || (*changes)[0].Reason != ReasonCeiling {
		t.Errorf("expected one ceiling change, got %+v", *changes)
	}

	// 手动设置也不能超过上限
	r.SetQuality(quality.LevelUltra, ReasonManual)
	if r.QualityLevel() != quality.LevelLow {
		t.Errorf("SetQuality above ceiling: got %v, want LOW", r.QualityLevel())
	}
}

// TestSetAutoScale_Freezes 关闭自动调节后等级冻结
func TestSetAutoScale_Freezes(t *testing.T) {
	r, c := newTestRecorder(quality.LevelHigh)
	r.SetAutoScale(false)

	for i := 0; i < 100; i++ {
		runFrame(r, c, 100*time.Millisecond) // 10 FPS，且超过紧急阈值
	}
	if r.QualityLevel() != quality.LevelHigh {
		t.Errorf("auto-scale disabled but level changed to %v", r.QualityLevel())
	}

	r.SetAutoScale(true)
	if r.lowFPSFrames != 0 || r.highFPSFrames != 0 {
		t.Error("re-enabling should start from clean counters")
	}
	runFrame(r, c, 100*time.Millisecond)
	if r.QualityLevel() != quality.LevelMedium {
		t.Errorf("after re-enable emergency frame: got %v, want MEDIUM", r.QualityLevel())
	}
}

// TestOnQualityChange_Unsubscribe 测试取消订阅
func TestOnQualityChange_Unsubscribe(t *testing.T) {
	r, _ := newTestRecorder(quality.LevelHigh)
	calls := 0
	unsubscribe := r.OnQualityChange(func(QualityChange) { calls++ })

	r.SetQuality(quality.LevelLow, ReasonManual)
	unsubscribe()
	r.SetQuality(quality.LevelMedium, ReasonManual)

	if calls != 1 {
		t.Errorf("subscriber calls: got %d, want 1", calls)
	}
}

// TestOnQualityChange_Reentrancy 回调内再次 SetQuality 被拒绝
func TestOnQualityChange_Reentrancy(t *testing.T) {
	r, _ := newTestRecorder(quality.LevelHigh)
	calls := 0
	r.OnQualityChange(func(c QualityChange) {
		calls++
		if r.SetQuality(quality.LevelPotato, ReasonManual) {
			t.Error("nested SetQuality should be rejected")
		}
	})

	r.SetQuality(quality.LevelMedium, ReasonManual)
	if calls != 1 {
		t.Errorf("subscriber calls: got %d, want 1", calls)
	}
	if r.QualityLevel() != quality.LevelMedium {
		t.Errorf("level: got %v, want MEDIUM", r.QualityLevel())
	}
}

// TestSetQualityCeiling_DuringNotify 回调中设置的上限在通知结束后立即生效
func TestSetQualityCeiling_DuringNotify(t *testing.T) {
	r, _ := newTestRecorder(quality.LevelHigh)
	var seen []QualityChange
	r.OnQualityChange(func(c QualityChange) {
		seen = append(seen, c)
		r.SetQualityCeiling(quality.LevelLow)
	})

	r.SetQuality(quality.LevelMedium, ReasonManual)

	if r.QualityCeiling() != quality.LevelLow {
		t.Errorf("ceiling: got %v, want LOW", r.QualityCeiling())
	}
	if r.QualityLevel() != quality.LevelLow {
		t.Errorf("level: got %v, want LOW (clamped after dispatch)", r.QualityLevel())
	}
	if len(seen) != 2 || seen[1].From != quality.LevelMedium || seen[1].Reason != ReasonCeiling {
		t.Errorf("changes: got %+v, want MEDIUM then ceiling downgrade to LOW", seen)
	}
}

// TestDeterminism 相同的帧序列得到相同的等级决策
func TestDeterminism(t *testing.T) {
	sequence := []time.Duration{}
	for i := 0; i < 300; i++ {
		ms := 12 + (i*37)%45
		sequence = append(sequence, time.Duration(ms)*time.Millisecond)
	}

	run := func() []QualityChange {
		r, c := newTestRecorder(quality.LevelHigh)
		changes := recordChanges(r)
		for _, d := range sequence {
			runFrame(r, c, d)
		}
		return *changes
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("runs diverged: %d vs %d changes", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("change %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

// TestFormatDebug 测试调试文本
func TestFormatDebug(t *testing.T) {
	s := FormatDebug(FrameMetrics{FPS: 59.5, FrameTime: 16.8, DrawCalls: 12}, quality.LevelMedium)
	for _, want := range []string{"FPS: 59.5", "MEDIUM", "Draw calls: 12"} {
		if !strings.Contains(s, want) {
			t.Errorf("FormatDebug output %q missing %q", s, want)
		}
	}
}

package quality

import "github.com/decker502/neonsnake/pkg/utils"

// DefaultTransitionDuration 等级切换时的默认过渡时长（秒）
const DefaultTransitionDuration = 0.5

// Transition 在两个等级的预设之间做时间上的平滑过渡
//
// 等级本身是瞬间切换的，Transition 只影响视觉参数，
// 避免粒子数量、辉光强度在一帧内突变。
type Transition struct {
	from     Settings
	to       Settings
	duration float64
	elapsed  float64
}

// NewTransition 创建一个已经稳定在 level 的过渡器
func NewTransition(level Level) *Transition {
	s := SettingsFor(level)
	return &Transition{from: s, to: s}
}

// Start 从当前插值结果开始过渡到 target
// duration <= 0 时立即完成
func (t *Transition) Start(target Settings, duration float64) {
	t.from = t.Current()
	t.to = target
	t.duration = duration
	t.elapsed = 0
}

// Advance 推进 dt 秒
func (t *Transition) Advance(dt float64) {
	if dt > 0 {
		t.elapsed += dt
	}
}

// Done 过渡是否完成
func (t *Transition) Done() bool {
	return t.duration <= 0 || t.elapsed >= t.duration
}

// Current 返回当前的插值结果
func (t *Transition) Current() Settings {
	if t.Done() {
		return t.to
	}
	p := utils.EaseInOutCubic(utils.Clamp01(t.elapsed / t.duration))
	return Interpolate(t.from, t.to, p)
}

// Target 返回过渡目标
func (t *Transition) Target() Settings {
	return t.to
}

package quality

import "fmt"

// Thresholds 控制何时切换画质等级
//
// 降级/升级需要连续多帧满足条件（迟滞），
// 单帧耗时超过 EmergencyFrameTimeMs 时跳过迟滞直接降一级。
type Thresholds struct {
	DowngradeFPS         float64 `yaml:"downgradeFps"`         // 平滑 FPS 低于此值计入降级计数
	UpgradeFPS           float64 `yaml:"upgradeFps"`           // 平滑 FPS 不低于此值计入升级计数
	DowngradeFrames      int     `yaml:"downgradeFrames"`      // 连续低帧数达到后降一级
	UpgradeFrames        int     `yaml:"upgradeFrames"`        // 连续高帧数达到后升一级
	EmergencyFrameTimeMs float64 `yaml:"emergencyFrameTimeMs"` // 紧急降级的单帧耗时上限
	CooldownFrames       int     `yaml:"cooldownFrames"`       // 切换后的冷却帧数
}

// DefaultThresholds 返回默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		DowngradeFPS:         45,
		UpgradeFPS:           58,
		DowngradeFrames:      30,
		UpgradeFrames:        120,
		EmergencyFrameTimeMs: 50,
		CooldownFrames:       30,
	}
}

// Validate 检查阈值是否合理
func (t Thresholds) Validate() error {
	if t.DowngradeFPS <= 0 {
		return fmt.Errorf("downgradeFps must be positive, got %.1f", t.DowngradeFPS)
	}
	if t.UpgradeFPS <= t.DowngradeFPS {
		return fmt.Errorf("upgradeFps(%.1f) must be greater than downgradeFps(%.1f)", t.UpgradeFPS, t.DowngradeFPS)
	}
	if t.DowngradeFrames < 1 || t.UpgradeFrames < 1 {
		return fmt.Errorf("downgradeFrames(%d) and upgradeFrames(%d) must be >= 1", t.DowngradeFrames, t.UpgradeFrames)
	}
	if t.EmergencyFrameTimeMs <= 0 {
		return fmt.Errorf("emergencyFrameTimeMs must be positive, got %.1f", t.EmergencyFrameTimeMs)
	}
	if t.CooldownFrames < 0 {
		return fmt.Errorf("cooldownFrames must be >= 0, got %d", t.CooldownFrames)
	}
	return nil
}

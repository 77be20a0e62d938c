package quality

import (
	"fmt"
	"math"

	"github.com/decker502/neonsnake/pkg/utils"
)

// Complexity 粒子复杂度
type Complexity int

const (
	ComplexityLow Complexity = iota
	ComplexityMedium
	ComplexityHigh
)

// String 返回复杂度名称
func (c Complexity) String() string {
	switch c {
	case ComplexityLow:
		return "low"
	case ComplexityMedium:
		return "medium"
	case ComplexityHigh:
		return "high"
	}
	return fmt.Sprintf("Complexity(%d)", int(c))
}

// Settings 某个画质等级对应的具体视觉参数
//
// 各字段互相独立。通过 SettingsFor 获取的是副本，调用方可以随意修改。
type Settings struct {
	ParticleLimit        int        // 每帧最多绘制的粒子数
	ParticleComplexity   Complexity // 粒子贴图复杂度
	ShaderQuality        ShaderTier // 允许的最高着色器档位
	BloomEnabled         bool
	ChromaticEnabled     bool
	CRTEnabled           bool
	ScanlineIntensity    float64 // 0.0 ~ 1.0
	ShadowBlur           float64 // 辉光/阴影模糊半径（像素）
	GlowIntensity        float64 // 0.0 ~ 1.0
	TrailLength          int     // 拖尾残影数量
	ScreenShakeIntensity float64 // 屏幕震动倍率
}

// presets 静态预设表
var presets = [...]Settings{
	LevelPotato: {
		ParticleLimit:        80,
		ParticleComplexity:   ComplexityLow,
		ShaderQuality:        ShaderOff,
		ScanlineIntensity:    0,
		ShadowBlur:           0,
		GlowIntensity:        0,
		TrailLength:          0,
		ScreenShakeIntensity: 0.25,
	},
	LevelLow: {
		ParticleLimit:        250,
		ParticleComplexity:   ComplexityLow,
		ShaderQuality:        ShaderLow,
		ScanlineIntensity:    0.08,
		ShadowBlur:           4,
		GlowIntensity:        0.3,
		TrailLength:          3,
		ScreenShakeIntensity: 0.5,
	},
	LevelMedium: {
		ParticleLimit:        600,
		ParticleComplexity:   ComplexityMedium,
		ShaderQuality:        ShaderMedium,
		BloomEnabled:         true,
		ScanlineIntensity:    0.12,
		ShadowBlur:           8,
		GlowIntensity:        0.6,
		TrailLength:          6,
		ScreenShakeIntensity: 0.75,
	},
	LevelHigh: {
		ParticleLimit:        1200,
		ParticleComplexity:   ComplexityHigh,
		ShaderQuality:        ShaderHigh,
		BloomEnabled:         true,
		ChromaticEnabled:     true,
		CRTEnabled:           true,
		ScanlineIntensity:    0.15,
		ShadowBlur:           12,
		GlowIntensity:        0.85,
		TrailLength:          10,
		ScreenShakeIntensity: 1,
	},
	LevelUltra: {
		ParticleLimit:        2500,
		ParticleComplexity:   ComplexityHigh,
		ShaderQuality:        ShaderHigh,
		BloomEnabled:         true,
		ChromaticEnabled:     true,
		CRTEnabled:           true,
		ScanlineIntensity:    0.18,
		ShadowBlur:           20,
		GlowIntensity:        1,
		TrailLength:          16,
		ScreenShakeIntensity: 1,
	},
}

// SettingsFor 返回指定等级的画质参数副本
// 非法等级按 LevelHigh 处理
func SettingsFor(level Level) Settings {
	if !level.Valid() {
		level = LevelHigh
	}
	return presets[level]
}

// Interpolate 在两组画质参数之间插值
//
// 规则：
//   - 数值字段线性插值（整数四舍五入）
//   - 布尔/枚举字段在 t=0.5 处跳变（t < 0.5 取 from，否则取 to）
//   - t 被限制在 [0, 1]；t=0 精确等于 from，t=1 精确等于 to
func Interpolate(from, to Settings, t float64) Settings {
	t = utils.Clamp01(t)
	if t == 0 {
		return from
	}
	if t == 1 {
		return to
	}

	step := from
	if t >= 0.5 {
		step = to
	}

	return Settings{
		ParticleLimit:        lerpInt(from.ParticleLimit, to.ParticleLimit, t),
		ParticleComplexity:   step.ParticleComplexity,
		ShaderQuality:        step.ShaderQuality,
		BloomEnabled:         step.BloomEnabled,
		ChromaticEnabled:     step.ChromaticEnabled,
		CRTEnabled:           step.CRTEnabled,
		ScanlineIntensity:    utils.Lerp(from.ScanlineIntensity, to.ScanlineIntensity, t),
		ShadowBlur:           utils.Lerp(from.ShadowBlur, to.ShadowBlur, t),
		GlowIntensity:        utils.Lerp(from.GlowIntensity, to.GlowIntensity, t),
		TrailLength:          lerpInt(from.TrailLength, to.TrailLength, t),
		ScreenShakeIntensity: utils.Lerp(from.ScreenShakeIntensity, to.ScreenShakeIntensity, t),
	}
}

func lerpInt(a, b int, t float64) int {
	return int(math.Round(utils.Lerp(float64(a), float64(b), t)))
}

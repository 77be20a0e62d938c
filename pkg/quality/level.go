// Package quality 提供画质等级、预设表以及等级之间的插值。
//
// 本包是纯数据/纯函数模块，不依赖任何渲染实现：
//   - 遥测记录器（telemetry）根据帧率在等级之间切换
//   - 滤镜链管理器（filters）和即时模式渲染器（canvas）读取对应的 Settings
package quality

import (
	"fmt"
	"strings"
)

// Level 画质等级
//
// 数值越大画质越高，等级之间存在严格全序：
// POTATO < LOW < MEDIUM < HIGH < ULTRA
type Level int

const (
	LevelPotato Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelUltra
)

// MinLevel / MaxLevel 等级边界
const (
	MinLevel = LevelPotato
	MaxLevel = LevelUltra
)

var levelNames = [...]string{
	LevelPotato: "POTATO",
	LevelLow:    "LOW",
	LevelMedium: "MEDIUM",
	LevelHigh:   "HIGH",
	LevelUltra:  "ULTRA",
}

// String 返回等级名称
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid 是否为合法等级
func (l Level) Valid() bool {
	return l >= MinLevel && l <= MaxLevel
}

// ParseLevel 解析等级名称（大小写不敏感）
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelHigh, fmt.Errorf("unknown quality level %q", s)
}

// MarshalText 实现 encoding.TextMarshaler（YAML 中以名称保存）
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid quality level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// NextLower 返回下一个更低的等级
// 已经是最低等级时返回 (level, false)，不会越界或回绕
func NextLower(level Level) (Level, bool) {
	if level <= MinLevel || !level.Valid() {
		return level, false
	}
	return level - 1, true
}

// NextHigher 返回下一个更高的等级
// 已经是最高等级时返回 (level, false)
func NextHigher(level Level) (Level, bool) {
	if level >= MaxLevel || !level.Valid() {
		return level, false
	}
	return level + 1, true
}

// Clamp 将等级限制在 [MinLevel, ceiling] 内
func Clamp(level, ceiling Level) Level {
	if level > ceiling {
		level = ceiling
	}
	if level < MinLevel {
		level = MinLevel
	}
	return level
}

// ShaderTier 着色器画质档位
//
// 这是一套独立于 Level 的精简档位（OFF < LOW < MEDIUM < HIGH），
// 由滤镜链管理器根据原始帧率单独调节。
// ShaderAuto 只用于手动设置，表示交给自动 LOD 决定。
type ShaderTier int

const (
	ShaderAuto ShaderTier = iota - 1
	ShaderOff
	ShaderLow
	ShaderMedium
	ShaderHigh
)

var shaderTierNames = map[ShaderTier]string{
	ShaderAuto:   "AUTO",
	ShaderOff:    "OFF",
	ShaderLow:    "LOW",
	ShaderMedium: "MEDIUM",
	ShaderHigh:   "HIGH",
}

// String 返回档位名称
func (t ShaderTier) String() string {
	if name, ok := shaderTierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ShaderTier(%d)", int(t))
}

// ParseShaderTier 解析着色器档位名称
func ParseShaderTier(s string) (ShaderTier, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for tier, n := range shaderTierNames {
		if n == name {
			return tier, nil
		}
	}
	return ShaderAuto, fmt.Errorf("unknown shader tier %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (t ShaderTier) MarshalText() ([]byte, error) {
	if _, ok := shaderTierNames[t]; !ok {
		return nil, fmt.Errorf("invalid shader tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (t *ShaderTier) UnmarshalText(text []byte) error {
	parsed, err := ParseShaderTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// NextLowerShader 返回下一个更低的着色器档位，OFF 时返回 false
func NextLowerShader(t ShaderTier) (ShaderTier, bool) {
	if t <= ShaderOff || t > ShaderHigh {
		return t, false
	}
	return t - 1, true
}

// NextHigherShader 返回下一个更高的着色器档位，HIGH 时返回 false
func NextHigherShader(t ShaderTier) (ShaderTier, bool) {
	if t < ShaderOff || t >= ShaderHigh {
		return t, false
	}
	return t + 1, true
}

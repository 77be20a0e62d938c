// Package render 负责一帧内 GPU 批量渲染与即时渲染两条路径的编排。
//
// 模拟层只提交快照，不关心哪条路径画了哪些对象：每个 Render* 调用都会返回
// 没有被 GPU 处理的那部分（Fallback），即时渲染器只画这部分。
package render

import (
	"fmt"
	"strings"
)

// Mode 渲染模式
type Mode int

const (
	// ModeCanvas2D 只使用即时渲染
	ModeCanvas2D Mode = iota
	// ModeWebGL GPU 批量渲染所有可批量的对象
	ModeWebGL
	// ModeHybrid GPU 只负责粒子和子弹，实体交给即时渲染
	ModeHybrid
)

var modeNames = [...]string{
	ModeCanvas2D: "canvas2d",
	ModeWebGL:    "webgl",
	ModeHybrid:   "hybrid",
}

// String 返回模式名称
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// UsesGPU 模式是否需要 GPU 批量渲染
func (m Mode) UsesGPU() bool {
	return m == ModeWebGL || m == ModeHybrid
}

// Next 循环切换到下一个模式（调试按键使用）
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(modeNames))
}

// ParseMode 解析模式名称
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return ModeCanvas2D, fmt.Errorf("unknown render mode %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeNames) {
		return nil, fmt.Errorf("invalid render mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

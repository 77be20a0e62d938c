// Package telemetry 记录每帧的性能指标，并根据帧率自动调整画质等级。
//
// Recorder 是显式构造的服务对象，由游戏会话持有（每个会话一个实例），
// 不是全局单例，测试中可以同时创建多个互不影响的实例。
package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/decker502/neonsnake/pkg/quality"
)

// FrameMetrics 单帧性能指标（记录后不可变）
//
// 时间单位均为毫秒。
type FrameMetrics struct {
	FrameTime      float64
	SimulationTime float64
	RenderTime     float64
	DrawCalls      int
	FPS            float64 // 平滑后的 FPS
	Timestamp      time.Time
}

// Reason 画质切换原因
type Reason int

const (
	ReasonManual Reason = iota
	ReasonEmergency
	ReasonDowngrade
	ReasonUpgrade
	ReasonCeiling
)

// String 返回原因名称
func (r Reason) String() string {
	switch r {
	case ReasonManual:
		return "manual"
	case ReasonEmergency:
		return "emergency"
	case ReasonDowngrade:
		return "downgrade"
	case ReasonUpgrade:
		return "upgrade"
	case ReasonCeiling:
		return "ceiling"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// QualityChange 画质变更事件
type QualityChange struct {
	From   quality.Level
	To     quality.Level
	Reason Reason
	Frame  uint64 // 发生变更的帧序号
}

// FormatDebug 格式化指标，用于屏幕调试信息
func FormatDebug(m FrameMetrics, level quality.Level) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FPS: %.1f  Quality: %s\n", m.FPS, level)
	fmt.Fprintf(&b, "Frame: %.2fms  Sim: %.2fms  Render: %.2fms\n", m.FrameTime, m.SimulationTime, m.RenderTime)
	fmt.Fprintf(&b, "Draw calls: %d", m.DrawCalls)
	return b.String()
}

func durationMs(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

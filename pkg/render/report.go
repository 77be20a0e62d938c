package render

import (
	"fmt"
	"strings"

	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/sprite"
	"github.com/decker502/neonsnake/pkg/telemetry"
	"github.com/decker502/neonsnake/pkg/texture"
)

const (
	statEntities = iota
	statProjectiles
	statParticles
)

// FrameReport 最近一帧的只读统计快照，供调试界面使用
type FrameReport struct {
	Frame              uint64
	Mode               Mode
	Ready              bool
	Level              quality.Level
	ShaderTier         quality.ShaderTier
	Metrics            telemetry.FrameMetrics // 上一帧完成的指标
	GPUDrawCalls       int
	ImmediateDrawCalls int
	Batch              BatchStats
	Entities           RenderStats
	Projectiles        RenderStats
	Particles          RenderStats
	Pools              []sprite.Stats
	Textures           texture.Stats
}

// DrawCalls 本帧总绘制调用数
func (r FrameReport) DrawCalls() int {
	return r.GPUDrawCalls + r.ImmediateDrawCalls
}

func (m *Manager) buildReport() FrameReport {
	r := FrameReport{
		Frame:              m.frameIndex,
		Mode:               m.mode,
		Ready:              m.ready,
		Level:              m.level,
		ShaderTier:         m.ShaderTier(),
		GPUDrawCalls:       m.gpuCalls,
		ImmediateDrawCalls: m.immCalls,
		Entities:           m.frameStats[statEntities],
		Projectiles:        m.frameStats[statProjectiles],
		Particles:          m.frameStats[statParticles],
	}
	if m.recorder != nil {
		r.Metrics = m.recorder.CurrentMetrics()
	}
	if m.ready {
		r.Batch = m.backend.Stats()
		r.Pools = m.pools.Stats()
		r.Textures = m.cache.Stats()
	}
	return r
}

// FrameMetrics 最近一次 EndFrame 时的统计快照
func (m *Manager) FrameMetrics() FrameReport {
	r := m.lastReport
	// 指标在 EndFrame 之后才由 Recorder 完成，这里取最新值
	if m.recorder != nil {
		r.Metrics = m.recorder.CurrentMetrics()
	}
	return r
}

// FormatMetricsDebug 格式化调试信息
func (m *Manager) FormatMetricsDebug() string {
	r := m.FrameMetrics()
	var b strings.Builder
	b.WriteString(telemetry.FormatDebug(r.Metrics, r.Level))
	fmt.Fprintf(&b, " (gpu %d / imm %d)\n", r.GPUDrawCalls, r.ImmediateDrawCalls)
	fmt.Fprintf(&b, "Mode: %s  Ready: %t  Shader: %s\n", r.Mode, r.Ready, r.ShaderTier)
	if r.Ready {
		fmt.Fprintf(&b, "Sprites: %d (culled %d, batches %d)\n", r.Batch.Sprites, r.Batch.Culled, r.Batch.Batches)
		fmt.Fprintf(&b, "Textures: %d (%.1f MiB, hit %d / miss %d)\n",
			r.Textures.Entries, float64(r.Textures.Bytes)/(1<<20), r.Textures.Hits, r.Textures.Misses)
	}
	fmt.Fprintf(&b, "Fallback: ent %d  proj %d  part %d",
		r.Entities.Fallback, r.Projectiles.Fallback, r.Particles.Fallback)
	return b.String()
}

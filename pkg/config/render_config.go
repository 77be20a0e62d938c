package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/decker502/neonsnake/pkg/embedded"
	"github.com/decker502/neonsnake/pkg/filters"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/render"
	"github.com/decker502/neonsnake/pkg/telemetry"
	"github.com/decker502/neonsnake/pkg/texture"
)

// DefaultRenderConfigPath 默认渲染配置文件
const DefaultRenderConfigPath = "data/render.yaml"

// 逻辑屏幕尺寸默认值
const (
	DefaultScreenWidth  = 1280
	DefaultScreenHeight = 720
)

// RenderConfig 渲染核心配置
//
// 配置文件位置: data/render.yaml
// 文件中缺省的字段保留 DefaultRenderConfig() 的值。
type RenderConfig struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Mode      render.Mode     `yaml:"mode"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Shader    ShaderConfig    `yaml:"shader"`
	Textures  texture.Limits  `yaml:"textures"`
	Pools     PoolConfig      `yaml:"pools"`

	// TransitionSeconds 画质切换的过渡时长
	TransitionSeconds float64 `yaml:"transitionSeconds"`
}

// ScreenConfig 逻辑屏幕尺寸
type ScreenConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TelemetryConfig 遥测与自动画质
type TelemetryConfig struct {
	HistorySize     int                `yaml:"historySize"`
	SmoothingWindow int                `yaml:"smoothingWindow"`
	InitialLevel    quality.Level      `yaml:"initialLevel"`
	Ceiling         quality.Level      `yaml:"ceiling"`
	AutoScale       bool               `yaml:"autoScale"`
	Thresholds      quality.Thresholds `yaml:"thresholds"`
}

// ShaderConfig 滤镜链自动 LOD
type ShaderConfig struct {
	WindowSize      int            `yaml:"windowSize"`
	DowngradeFrames int            `yaml:"downgradeFrames"`
	UpgradeFrames   int            `yaml:"upgradeFrames"`
	LOD             ShaderLODTable `yaml:"lod"`
}

// ShaderLODTable 按档位名称书写的 LOD 规则
type ShaderLODTable struct {
	Off    filters.LODRule `yaml:"off"`
	Low    filters.LODRule `yaml:"low"`
	Medium filters.LODRule `yaml:"medium"`
	High   filters.LODRule `yaml:"high"`
}

// Rules 转换为滤镜管理器使用的规则表
func (t ShaderLODTable) Rules() filters.Rules {
	return filters.Rules{
		quality.ShaderOff:    t.Off,
		quality.ShaderLow:    t.Low,
		quality.ShaderMedium: t.Medium,
		quality.ShaderHigh:   t.High,
	}
}

func lodTable(r filters.Rules) ShaderLODTable {
	return ShaderLODTable{
		Off:    r[quality.ShaderOff],
		Low:    r[quality.ShaderLow],
		Medium: r[quality.ShaderMedium],
		High:   r[quality.ShaderHigh],
	}
}

// PoolConfig 精灵池裁剪
type PoolConfig struct {
	TrimSize     int `yaml:"trimSize"`
	TrimInterval int `yaml:"trimInterval"` // 帧
}

// DefaultRenderConfig 返回与各包默认值一致的配置
func DefaultRenderConfig() *RenderConfig {
	rec := telemetry.DefaultOptions()
	fo := filters.DefaultOptions()
	ro := render.DefaultOptions(nil)
	return &RenderConfig{
		Screen: ScreenConfig{Width: DefaultScreenWidth, Height: DefaultScreenHeight},
		Mode:   render.ModeWebGL,
		Telemetry: TelemetryConfig{
			HistorySize:     rec.HistorySize,
			SmoothingWindow: rec.SmoothingWindow,
			InitialLevel:    rec.InitialLevel,
			Ceiling:         rec.Ceiling,
			AutoScale:       rec.AutoScale,
			Thresholds:      rec.Thresholds,
		},
		Shader: ShaderConfig{
			WindowSize:      fo.WindowSize,
			DowngradeFrames: fo.DowngradeFrames,
			UpgradeFrames:   fo.UpgradeFrames,
			LOD:             lodTable(fo.Rules),
		},
		Textures:          ro.TextureLimits,
		Pools:             PoolConfig{TrimSize: ro.PoolTrimSize, TrimInterval: ro.TrimInterval},
		TransitionSeconds: ro.TransitionDuration,
	}
}

// LoadRenderConfig 加载渲染配置
//
// 优先从嵌入资源读取，嵌入资源中没有该文件时从磁盘读取。
//
// 参数:
//   - path: 配置文件路径（如 "data/render.yaml"）
//
// 返回:
//   - *RenderConfig: 以默认值为底、覆盖了文件内容并通过校验的配置
//   - error: 读取、解析或校验失败
func LoadRenderConfig(path string) (*RenderConfig, error) {
	var (
		data []byte
		err  error
	)
	if embedded.Exists(path) {
		data, err = embedded.ReadFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read render config %s: %w", path, err)
	}

	cfg, err := ParseRenderConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid render config %s: %w", path, err)
	}
	log.Printf("[Config] 加载渲染配置: %s", path)
	return cfg, nil
}

// ParseRenderConfig 解析 YAML 并校验
func ParseRenderConfig(data []byte) (*RenderConfig, error) {
	cfg := DefaultRenderConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse render config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置有效性
func (c *RenderConfig) Validate() error {
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return fmt.Errorf("screen size must be positive, got %dx%d", c.Screen.Width, c.Screen.Height)
	}
	if c.Telemetry.HistorySize < 1 || c.Telemetry.SmoothingWindow < 1 {
		return fmt.Errorf("historySize(%d) and smoothingWindow(%d) must be >= 1",
			c.Telemetry.HistorySize, c.Telemetry.SmoothingWindow)
	}
	if !c.Telemetry.InitialLevel.Valid() || !c.Telemetry.Ceiling.Valid() {
		return fmt.Errorf("invalid quality level: initial=%s ceiling=%s", c.Telemetry.InitialLevel, c.Telemetry.Ceiling)
	}
	if err := c.Telemetry.Thresholds.Validate(); err != nil {
		return fmt.Errorf("telemetry thresholds: %w", err)
	}
	if c.Shader.WindowSize < 1 || c.Shader.DowngradeFrames < 1 || c.Shader.UpgradeFrames < 1 {
		return fmt.Errorf("shader windowSize(%d), downgradeFrames(%d), upgradeFrames(%d) must be >= 1",
			c.Shader.WindowSize, c.Shader.DowngradeFrames, c.Shader.UpgradeFrames)
	}
	if err := c.Shader.LOD.Rules().Validate(); err != nil {
		return fmt.Errorf("shader lod: %w", err)
	}
	if c.Textures.MaxEntries < 1 || c.Textures.MaxBytes < 1 {
		return fmt.Errorf("texture limits must be positive, got %d entries / %d bytes",
			c.Textures.MaxEntries, c.Textures.MaxBytes)
	}
	if c.Pools.TrimSize < 0 || c.Pools.TrimInterval < 1 {
		return fmt.Errorf("pool trimSize(%d) must be >= 0 and trimInterval(%d) >= 1",
			c.Pools.TrimSize, c.Pools.TrimInterval)
	}
	if c.TransitionSeconds < 0 {
		return fmt.Errorf("transitionSeconds must be >= 0, got %v", c.TransitionSeconds)
	}
	return nil
}

// RecorderOptions 转换为遥测记录器参数，clock 为 nil 时使用 time.Now
func (c *RenderConfig) RecorderOptions(clock func() time.Time) telemetry.Options {
	opts := telemetry.DefaultOptions()
	opts.Thresholds = c.Telemetry.Thresholds
	opts.HistorySize = c.Telemetry.HistorySize
	opts.SmoothingWindow = c.Telemetry.SmoothingWindow
	opts.InitialLevel = c.Telemetry.InitialLevel
	opts.Ceiling = c.Telemetry.Ceiling
	opts.AutoScale = c.Telemetry.AutoScale
	if clock != nil {
		opts.Clock = clock
	}
	return opts
}

// FilterOptions 转换为滤镜管理器参数（使用内置着色器）
func (c *RenderConfig) FilterOptions() filters.Options {
	opts := filters.DefaultOptions()
	opts.Rules = c.Shader.LOD.Rules()
	opts.WindowSize = c.Shader.WindowSize
	opts.DowngradeFrames = c.Shader.DowngradeFrames
	opts.UpgradeFrames = c.Shader.UpgradeFrames
	return opts
}

// ManagerOptions 转换为渲染管理器参数
func (c *RenderConfig) ManagerOptions(recorder *telemetry.Recorder) render.Options {
	opts := render.DefaultOptions(recorder)
	opts.InitialLevel = c.Telemetry.InitialLevel
	opts.Filters = c.FilterOptions()
	opts.TextureLimits = c.Textures
	opts.PoolTrimSize = c.Pools.TrimSize
	opts.TrimInterval = c.Pools.TrimInterval
	opts.TransitionDuration = c.TransitionSeconds
	return opts
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/decker502/neonsnake/pkg/embedded"
	"github.com/decker502/neonsnake/pkg/filters"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/render"
)

// TestDefaultRenderConfigValid 默认配置必须通过校验
func TestDefaultRenderConfigValid(t *testing.T) {
	cfg := DefaultRenderConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("默认配置校验失败: %v", err)
	}
	if cfg.Shader.LOD.Rules() != filters.DefaultRules() {
		t.Error("默认 LOD 规则应与 filters.DefaultRules 一致")
	}
	if cfg.Mode != render.ModeWebGL {
		t.Errorf("默认模式 = %s", cfg.Mode)
	}
}

// TestParseRenderConfigPartial 测试部分字段覆盖默认值
func TestParseRenderConfigPartial(t *testing.T) {
	data := []byte(`
mode: hybrid
telemetry:
  initialLevel: medium
  thresholds:
    downgradeFps: 40
shader:
  lod:
    high:
      bloomSamples: 12
      chromatic: true
      crt: true
      scanlineIntensity: 0.2
      minFps: 55
`)
	cfg, err := ParseRenderConfig(data)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}

	if cfg.Mode != render.ModeHybrid {
		t.Errorf("Mode = %s, want hybrid", cfg.Mode)
	}
	if cfg.Telemetry.InitialLevel != quality.LevelMedium {
		t.Errorf("InitialLevel = %s, want MEDIUM", cfg.Telemetry.InitialLevel)
	}
	if cfg.Telemetry.Thresholds.DowngradeFPS != 40 {
		t.Errorf("DowngradeFPS = %v, want 40", cfg.Telemetry.Thresholds.DowngradeFPS)
	}
	// 未写出的字段保持默认值
	if cfg.Telemetry.Thresholds.UpgradeFPS != quality.DefaultThresholds().UpgradeFPS {
		t.Errorf("UpgradeFPS = %v, 应保持默认值", cfg.Telemetry.Thresholds.UpgradeFPS)
	}
	if cfg.Screen.Width != DefaultScreenWidth {
		t.Errorf("Screen.Width = %d, 应保持默认值", cfg.Screen.Width)
	}
	if got := cfg.Shader.LOD.Rules().For(quality.ShaderHigh).BloomSamples; got != 12 {
		t.Errorf("HIGH bloomSamples = %d, want 12", got)
	}
	if got := cfg.Shader.LOD.Rules().For(quality.ShaderMedium).BloomSamples; got != 4 {
		t.Errorf("MEDIUM bloomSamples = %d, 应保持默认值 4", got)
	}
}

// TestParseRenderConfigInvalid 测试非法配置
func TestParseRenderConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"屏幕尺寸为零", "screen: {width: 0, height: 720}", "screen size"},
		{"未知渲染模式", "mode: vulkan", "render mode"},
		{"未知画质等级", "telemetry: {initialLevel: EXTREME}", "quality level"},
		{"升级阈值不高于降级阈值", "telemetry: {thresholds: {downgradeFps: 50, upgradeFps: 50}}", "upgradeFps"},
		{"bloom 采样数越界", "shader: {lod: {high: {bloomSamples: 32, minFps: 55}}}", "bloomSamples"},
		{"minFps 递减", "shader: {lod: {medium: {minFps: 20}}}", "minFps"},
		{"窗口为零", "shader: {windowSize: 0}", "windowSize"},
		{"贴图上限为零", "textures: {maxEntries: 0}", "texture limits"},
		{"裁剪间隔为零", "pools: {trimInterval: 0}", "trimInterval"},
		{"负的过渡时长", "transitionSeconds: -1", "transitionSeconds"},
		{"YAML 语法错误", "screen: [", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRenderConfig([]byte(tt.yaml))
			if err == nil {
				t.Fatal("期望返回错误")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("错误 %q 不包含 %q", err, tt.wantErr)
			}
		})
	}
}

// TestLoadRenderConfigFromDisk 未初始化嵌入资源时从磁盘读取
func TestLoadRenderConfigFromDisk(t *testing.T) {
	embedded.Reset()

	path := filepath.Join(t.TempDir(), "render.yaml")
	if err := os.WriteFile(path, []byte("screen: {width: 800, height: 600}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadRenderConfig(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.Screen != (ScreenConfig{Width: 800, Height: 600}) {
		t.Errorf("Screen = %+v", cfg.Screen)
	}

	if _, err := LoadRenderConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("文件不存在时应返回错误")
	}
}

// TestShippedRenderConfig 仓库自带的 data/render.yaml 必须合法且与默认值一致
func TestShippedRenderConfig(t *testing.T) {
	embedded.Reset()

	cfg, err := LoadRenderConfig(filepath.Join("..", "..", DefaultRenderConfigPath))
	if err != nil {
		t.Fatalf("加载 data/render.yaml 失败: %v", err)
	}
	if *cfg != *DefaultRenderConfig() {
		t.Errorf("data/render.yaml 与默认配置不一致:\n got %+v\nwant %+v", *cfg, *DefaultRenderConfig())
	}
}

// TestConfigConversions 测试转换为各服务的参数
func TestConfigConversions(t *testing.T) {
	cfg := DefaultRenderConfig()
	cfg.Telemetry.HistorySize = 60
	cfg.Shader.WindowSize = 20
	cfg.Pools.TrimSize = 128
	cfg.TransitionSeconds = 0

	fixed := time.Unix(100, 0)
	ro := cfg.RecorderOptions(func() time.Time { return fixed })
	if ro.HistorySize != 60 || ro.Clock() != fixed {
		t.Errorf("RecorderOptions = %+v", ro)
	}
	if cfg.RecorderOptions(nil).Clock == nil {
		t.Error("clock 为 nil 时应使用默认时钟")
	}

	mo := cfg.ManagerOptions(nil)
	if mo.Filters.WindowSize != 20 || mo.PoolTrimSize != 128 || mo.TransitionDuration != 0 {
		t.Errorf("ManagerOptions = %+v", mo)
	}
	if mo.Filters.Factory == nil || mo.BackendFactory == nil {
		t.Error("ManagerOptions 应保留默认工厂")
	}
}

package game

import (
	"fmt"
	"log"
	"math"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/render"
)

// MaxFXIntensity 特效强度倍率上限
const MaxFXIntensity = 2.0

// RenderSettings 玩家的渲染偏好
// 与设备绑定，不随存档迁移
type RenderSettings struct {
	// 画质
	QualityCeiling quality.Level      `yaml:"qualityCeiling"` // 自动调节的上限
	AutoScale      bool               `yaml:"autoScale"`      // 按帧率自动调节画质
	ShaderQuality  quality.ShaderTier `yaml:"shaderQuality"`  // AUTO 或固定档位

	// 特效
	CRTEnabled  bool    `yaml:"crtEnabled"`
	FXIntensity float64 `yaml:"fxIntensity"` // 0.0 ~ 2.0

	// 显示设置
	RenderMode  render.Mode `yaml:"renderMode"`
	ShowOverlay bool        `yaml:"showOverlay"` // 调试信息
	Fullscreen  bool        `yaml:"fullscreen"`  // 启动时是否全屏
}

// DefaultSettings 返回默认设置
func DefaultSettings() *RenderSettings {
	return &RenderSettings{
		QualityCeiling: quality.LevelUltra,
		AutoScale:      true,
		ShaderQuality:  quality.ShaderAuto,
		CRTEnabled:     true,
		FXIntensity:    1.0,
		RenderMode:     render.ModeWebGL,
		ShowOverlay:    false,
		Fullscreen:     false,
	}
}

// sanitize 把越界的值修正为合法值
func (s *RenderSettings) sanitize() {
	def := DefaultSettings()
	if !s.QualityCeiling.Valid() {
		s.QualityCeiling = def.QualityCeiling
	}
	if s.ShaderQuality < quality.ShaderAuto || s.ShaderQuality > quality.ShaderHigh {
		s.ShaderQuality = def.ShaderQuality
	}
	if s.RenderMode < render.ModeCanvas2D || s.RenderMode > render.ModeHybrid {
		s.RenderMode = def.RenderMode
	}
	s.FXIntensity = clampFX(s.FXIntensity)
}

// SettingsManager 设置管理器
// 负责渲染设置的加载、保存和内存管理
type SettingsManager struct {
	gdataManager *gdata.Manager  // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *RenderSettings // 当前设置
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "render"
)

// NewSettingsManager 创建新的设置管理器实例
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式，仅内存设置）
//
// 加载失败不是致命错误，使用默认设置并打印警告。
func NewSettingsManager(gdataManager *gdata.Manager) *SettingsManager {
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
	}

	if err := sm.Load(); err != nil {
		log.Printf("[SettingsManager] 警告: 加载设置失败: %v（使用默认设置）", err)
	}
	return sm
}

// Load 从 gdata 加载设置
//
// 如果 gdataManager 为 nil 或文件不存在，使用默认设置。
// 文件中缺省的字段保留默认值，越界的值被修正。
func (sm *SettingsManager) Load() error {
	// 降级模式：无法持久化，使用默认设置
	if sm.gdataManager == nil {
		sm.settings = DefaultSettings()
		return nil
	}

	if !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		sm.settings = DefaultSettings()
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	loaded.sanitize()

	sm.settings = loaded
	log.Printf("[SettingsManager] 设置加载成功")
	return nil
}

// Save 保存设置到 gdata
//
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	log.Printf("[SettingsManager] 设置已保存")
	return nil
}

// IsPersistent 是否能持久化（非降级模式）
func (sm *SettingsManager) IsPersistent() bool {
	return sm.gdataManager != nil
}

// GetSettings 获取当前设置
func (sm *SettingsManager) GetSettings() *RenderSettings {
	return sm.settings
}

// SetQualityCeiling 设置画质上限，非法等级被忽略
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (sm *SettingsManager) SetQualityCeiling(level quality.Level) {
	if !level.Valid() {
		return
	}
	sm.settings.QualityCeiling = level
}

// SetAutoScale 设置是否自动调节画质
func (sm *SettingsManager) SetAutoScale(enabled bool) {
	sm.settings.AutoScale = enabled
}

// SetShaderQuality 设置着色器档位（ShaderAuto 表示自动），非法档位被忽略
func (sm *SettingsManager) SetShaderQuality(tier quality.ShaderTier) {
	if tier < quality.ShaderAuto || tier > quality.ShaderHigh {
		return
	}
	sm.settings.ShaderQuality = tier
}

// SetCRTEnabled 设置 CRT 效果开关
func (sm *SettingsManager) SetCRTEnabled(enabled bool) {
	sm.settings.CRTEnabled = enabled
}

// SetFXIntensity 设置特效强度倍率
//
// 值会被限制在 0.0 ~ MaxFXIntensity 范围内，非有限值按 1.0 处理
func (sm *SettingsManager) SetFXIntensity(intensity float64) {
	sm.settings.FXIntensity = clampFX(intensity)
}

// SetRenderMode 设置偏好的渲染模式
func (sm *SettingsManager) SetRenderMode(mode render.Mode) {
	if mode < render.ModeCanvas2D || mode > render.ModeHybrid {
		return
	}
	sm.settings.RenderMode = mode
}

// SetShowOverlay 设置是否显示调试信息
func (sm *SettingsManager) SetShowOverlay(show bool) {
	sm.settings.ShowOverlay = show
}

// SetFullscreen 设置全屏模式
func (sm *SettingsManager) SetFullscreen(enabled bool) {
	sm.settings.Fullscreen = enabled
}

// clampFX 将特效强度限制在 0.0 ~ MaxFXIntensity 范围内
func clampFX(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	if v > MaxFXIntensity {
		return MaxFXIntensity
	}
	return v
}

package filters

import (
	"fmt"

	"github.com/decker502/neonsnake/pkg/quality"
)

// LODRule 某个着色器档位下的滤镜参数
type LODRule struct {
	BloomSamples      int     `yaml:"bloomSamples"` // 0 表示不启用 bloom
	Chromatic         bool    `yaml:"chromatic"`
	CRT               bool    `yaml:"crt"` // 档位是否允许 CRT（还需要用户开启）
	ScanlineIntensity float64 `yaml:"scanlineIntensity"`
	MinFPS            float64 `yaml:"minFps"` // 平均帧率低于此值时降档
}

// Rules 按档位索引的 LOD 规则表（OFF..HIGH）
type Rules [4]LODRule

// DefaultRules 默认 LOD 规则
func DefaultRules() Rules {
	return Rules{
		quality.ShaderOff:    {MinFPS: 0},
		quality.ShaderLow:    {ScanlineIntensity: 0.08, MinFPS: 30},
		quality.ShaderMedium: {BloomSamples: 4, CRT: true, ScanlineIntensity: 0.12, MinFPS: 45},
		quality.ShaderHigh:   {BloomSamples: 8, Chromatic: true, CRT: true, ScanlineIntensity: 0.15, MinFPS: 55},
	}
}

// For 返回档位对应的规则，AUTO 或越界时返回 OFF 的规则
func (r Rules) For(tier quality.ShaderTier) LODRule {
	if tier < quality.ShaderOff || tier > quality.ShaderHigh {
		return r[quality.ShaderOff]
	}
	return r[tier]
}

// Validate 校验规则表
func (r Rules) Validate() error {
	for i, rule := range r {
		tier := quality.ShaderTier(i)
		if rule.BloomSamples < 0 || rule.BloomSamples > MaxBloomSamples {
			return fmt.Errorf("%s: bloomSamples must be in [0, %d], got %d", tier, MaxBloomSamples, rule.BloomSamples)
		}
		if rule.ScanlineIntensity < 0 || rule.ScanlineIntensity > 1 {
			return fmt.Errorf("%s: scanlineIntensity must be in [0, 1], got %v", tier, rule.ScanlineIntensity)
		}
		if rule.MinFPS < 0 {
			return fmt.Errorf("%s: minFps must be >= 0, got %v", tier, rule.MinFPS)
		}
		if i > 0 && rule.MinFPS < r[i-1].MinFPS {
			return fmt.Errorf("%s: minFps must not be lower than %s", tier, quality.ShaderTier(i-1))
		}
	}
	return nil
}

// MaxBloomSamples bloom 着色器循环上限
const MaxBloomSamples = 16

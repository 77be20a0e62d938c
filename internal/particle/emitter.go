package particle

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/decker502/neonsnake/pkg/embedded"
	"github.com/decker502/neonsnake/pkg/entity"
)

// DefaultEmittersPath 默认发射器配置
const DefaultEmittersPath = "data/emitters.yaml"

// EmitterConfig 一种粒子效果
type EmitterConfig struct {
	Kind     string `yaml:"kind"` // spark | glow | smoke | text
	Style    string `yaml:"style"`
	Additive bool   `yaml:"additive"`

	Count    Range   `yaml:"count"`    // 每次爆发的粒子数
	Speed    Range   `yaml:"speed"`    // 世界单位/秒
	Angle    Range   `yaml:"angle"`    // 发射角（度），缺省为 [0 360]
	Life     Range   `yaml:"life"`     // 秒
	Size     Range   `yaml:"size"`     // 初始尺寸
	SizeOver Curve   `yaml:"sizeOver"` // 尺寸随寿命的倍率
	Drag     float64 `yaml:"drag"`     // 每秒速度衰减比例
	Gravity  float64 `yaml:"gravity"`
}

// UnmarshalYAML 未写出的 angle 默认为全方向
func (c *EmitterConfig) UnmarshalYAML(n *yaml.Node) error {
	type plain EmitterConfig
	p := plain{Angle: Range{Min: 0, Max: 360}}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*c = EmitterConfig(p)
	return nil
}

func (c *EmitterConfig) kind() (entity.ParticleKind, error) {
	switch strings.ToLower(c.Kind) {
	case "", "spark":
		return entity.ParticleSpark, nil
	case "glow":
		return entity.ParticleGlow, nil
	case "smoke":
		return entity.ParticleSmoke, nil
	case "text":
		return entity.ParticleText, nil
	}
	return 0, fmt.Errorf("unknown particle kind %q", c.Kind)
}

// Validate 验证配置有效性
func (c *EmitterConfig) Validate() error {
	if _, err := c.kind(); err != nil {
		return err
	}
	if c.Count.Min < 0 || c.Life.Min <= 0 || c.Size.Min < 0 {
		return fmt.Errorf("count(%v), life(%v) and size(%v) must be positive", c.Count, c.Life, c.Size)
	}
	if c.Drag < 0 || c.Drag >= 1 {
		return fmt.Errorf("drag must be in [0, 1), got %v", c.Drag)
	}
	return nil
}

// Library 按名称索引的发射器
type Library map[string]*EmitterConfig

// ParseLibrary 解析 YAML 并校验每个发射器
func ParseLibrary(data []byte) (Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("failed to parse emitters: %w", err)
	}
	for name, cfg := range lib {
		if cfg == nil {
			return nil, fmt.Errorf("emitter %s is empty", name)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("emitter %s: %w", name, err)
		}
	}
	return lib, nil
}

// LoadLibrary 从嵌入资源（优先）或磁盘加载发射器配置
func LoadLibrary(path string) (Library, error) {
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
		return nil, fmt.Errorf("failed to read emitters file %s: %w", path, err)
	}
	lib, err := ParseLibrary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("[Particle] 加载 %d 个发射器: %s", len(lib), path)
	return lib, nil
}

// live 运行中粒子的私有状态
type live struct {
	cfg      *EmitterConfig
	baseSize float64
}

// System 持有所有存活粒子
//
// Particles() 返回的切片每次 Step 后失效，调用方只能在当帧读取。
type System struct {
	lib   Library
	rng   *rand.Rand
	max   int
	parts []entity.Particle
	state []live
}

// NewSystem 创建粒子系统，maxParticles 为存活粒子上限（超出的爆发被截断）
func NewSystem(lib Library, rng *rand.Rand, maxParticles int) *System {
	return &System{lib: lib, rng: rng, max: maxParticles}
}

// Burst 在 (x, y) 爆发一次指定发射器，text 仅用于文字粒子，返回实际发射数
func (s *System) Burst(name string, x, y float64, text string) int {
	cfg, ok := s.lib[name]
	if !ok {
		log.Printf("[Particle] 警告: 未知发射器 %q", name)
		return 0
	}
	kind, _ := cfg.kind()

	n := int(math.Round(cfg.Count.Sample(s.rng)))
	if room := s.max - len(s.parts); n > room {
		n = room
	}
	for i := 0; i < n; i++ {
		angle := cfg.Angle.Sample(s.rng) * math.Pi / 180
		speed := cfg.Speed.Sample(s.rng)
		life := cfg.Life.Sample(s.rng)
		size := cfg.Size.Sample(s.rng)
		s.parts = append(s.parts, entity.Particle{
			Point:    entity.Point{X: x, Y: y},
			VX:       math.Cos(angle) * speed,
			VY:       math.Sin(angle) * speed,
			Life:     life,
			MaxLife:  life,
			Size:     size * cfg.SizeOver.Eval(0),
			Rotation: angle,
			Style:    cfg.Style,
			Kind:     kind,
			Additive: cfg.Additive,
			Text:     text,
		})
		s.state = append(s.state, live{cfg: cfg, baseSize: size})
	}
	return max(n, 0)
}

// Step 推进 dt 秒并移除寿命耗尽的粒子
func (s *System) Step(dt float64) {
	j := 0
	for i := range s.parts {
		p := &s.parts[i]
		st := s.state[i]
		p.Life -= dt
		if p.Life <= 0 {
			continue
		}
		damp := math.Pow(1-st.cfg.Drag, dt)
		p.VX *= damp
		p.VY = p.VY*damp + st.cfg.Gravity*dt
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.Size = st.baseSize * st.cfg.SizeOver.Eval(1-p.Life/p.MaxLife)

		s.parts[j] = *p
		s.state[j] = st
		j++
	}
	clear(s.state[j:])
	s.parts = s.parts[:j]
	s.state = s.state[:j]
}

// Particles 存活粒子
func (s *System) Particles() []entity.Particle {
	return s.parts
}

// Len 存活粒子数
func (s *System) Len() int {
	return len(s.parts)
}

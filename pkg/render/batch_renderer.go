package render

import (
	"errors"
	"image/color"
	"log"
	"strings"

	"github.com/decker502/neonsnake/pkg/sprite"
	"github.com/decker502/neonsnake/pkg/texture"
)

var errMissingResources = errors.New("render: renderer needs a sprite pool and a texture cache")

// batchRenderer 三种批量渲染器共用的部分：把一个对象放到池中的一个精灵上
type batchRenderer struct {
	name        string
	depth       int
	pool        *sprite.Pool
	cache       *texture.Cache
	initialized bool
	failedKeys  map[string]bool
}

// Init 绑定精灵池和贴图缓存，重复调用只打印警告
func (b *batchRenderer) Init(pool *sprite.Pool, cache *texture.Cache) error {
	if b.initialized {
		log.Printf("[%s] 警告: 重复初始化，已忽略", b.name)
		return nil
	}
	if pool == nil || cache == nil {
		return errMissingResources
	}
	b.pool = pool
	b.cache = cache
	b.failedKeys = make(map[string]bool)
	b.initialized = true
	return nil
}

// IsInitialized 是否已初始化
func (b *batchRenderer) IsInitialized() bool {
	return b.initialized
}

// Destroy 解除与池和缓存的绑定，池和缓存由渲染管理器负责销毁
func (b *batchRenderer) Destroy() {
	b.initialized = false
	b.pool = nil
	b.cache = nil
	b.failedKeys = nil
}

// forgetFailures 清除前缀匹配的失败记录，贴图重新生成失败时会再次告警
func (b *batchRenderer) forgetFailures(prefix string) {
	for k := range b.failedKeys {
		if strings.HasPrefix(k, prefix) {
			delete(b.failedKeys, k)
		}
	}
}

type placement struct {
	key      texture.Key
	x, y     float64
	diameter float64 // 形状主体的世界尺寸
	rotation float64
	alpha    float64
	tint     color.RGBA
	additive bool
}

// place 取贴图、占用一个精灵并写入视觉属性，失败时返回 false（调用方转为回退）
func (b *batchRenderer) place(p placement) bool {
	img, err := b.cache.Get(p.key)
	if err != nil {
		k := p.key.String()
		if !b.failedKeys[k] {
			b.failedKeys[k] = true
			log.Printf("[%s] 警告: 贴图 %s 不可用，改用即时渲染: %v", b.name, k, err)
		}
		return false
	}
	h := b.pool.Acquire(img)
	if h == nil {
		return false
	}

	s := h.Sprite
	s.X, s.Y = p.x, p.y
	s.SetScale(p.diameter / (float64(img.Bounds().Dx()) * texture.BodyFraction))
	s.Rotation = p.rotation
	s.Alpha = p.alpha
	s.Tint = p.tint
	s.Additive = p.additive
	s.Depth = b.depth
	return true
}

// Package texture 缓存按需程序化生成的精灵贴图。
package texture

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Key 贴图的组合键：实体类型、风格、状态、动画帧
type Key struct {
	Type  string
	Style string
	State string
	Frame int
}

// String 返回 "type:style:state:frame"
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%d", k.Type, k.Style, k.State, k.Frame)
}

// StylePrefix 返回某类型某风格全部贴图的键前缀，配合 Cache.Invalidate 使用
func StylePrefix(typ, style string) string {
	return typ + ":" + style + ":"
}

// Generator 生成一张贴图
type Generator func(key Key) (*ebiten.Image, error)

// ErrNoGenerator 缓存没有配置生成器
var ErrNoGenerator = errors.New("texture: nil generator")

// Limits 缓存上限，任意一项超出都会淘汰最久未使用的贴图
type Limits struct {
	MaxEntries int   `yaml:"maxEntries"`
	MaxBytes   int64 `yaml:"maxBytes"` // 按 宽*高*4 估算显存
}

// DefaultLimits 默认上限：512 张 / 64 MiB
func DefaultLimits() Limits {
	return Limits{MaxEntries: 512, MaxBytes: 64 << 20}
}

// Stats 缓存统计
type Stats struct {
	Entries   int
	Bytes     int64
	Hits      int
	Misses    int
	Evictions int
	Pending   int // 等待下一次 Sweep 释放的贴图
}

type entry struct {
	image *ebiten.Image
	bytes int64
}

// Cache 程序化贴图的 LRU 缓存
//
// 被淘汰的贴图不会立即 Deallocate：当前帧可能已经把它交给了批量渲染器，
// 所以先放进待释放列表，由下一帧开始时的 Sweep 统一释放。
type Cache struct {
	gen     Generator
	limits  Limits
	lru     *simplelru.LRU[string, entry]
	bytes   int64
	pending []*ebiten.Image
	stats   Stats
}

// NewCache 创建贴图缓存
func NewCache(gen Generator, limits Limits) (*Cache, error) {
	if gen == nil {
		return nil, ErrNoGenerator
	}
	if limits.MaxEntries <= 0 {
		limits.MaxEntries = DefaultLimits().MaxEntries
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultLimits().MaxBytes
	}
	c := &Cache{gen: gen, limits: limits}
	lru, err := simplelru.NewLRU[string, entry](limits.MaxEntries, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create texture LRU: %w", err)
	}
	c.lru = lru
	return c, nil
}

func (c *Cache) onEvict(_ string, e entry) {
	c.bytes -= e.bytes
	c.pending = append(c.pending, e.image)
	c.stats.Evictions++
}

// Get 返回 key 对应的贴图，未命中时调用生成器
func (c *Cache) Get(key Key) (*ebiten.Image, error) {
	k := key.String()
	if e, ok := c.lru.Get(k); ok {
		c.stats.Hits++
		return e.image, nil
	}
	c.stats.Misses++

	img, err := c.gen(key)
	if err != nil {
		return nil, fmt.Errorf("failed to generate texture %s: %w", k, err)
	}
	if img == nil {
		return nil, fmt.Errorf("generator returned nil image for %s", k)
	}

	b := img.Bounds()
	e := entry{image: img, bytes: int64(b.Dx()) * int64(b.Dy()) * 4}
	c.lru.Add(k, e)
	c.bytes += e.bytes

	// 显存估算超限：淘汰最旧的，但至少保留刚生成的这一张
	for c.bytes > c.limits.MaxBytes && c.lru.Len() > 1 {
		c.lru.RemoveOldest()
	}
	return img, nil
}

// Contains 判断 key 是否在缓存中（不影响 LRU 顺序）
func (c *Cache) Contains(key Key) bool {
	return c.lru.Contains(key.String())
}

// Invalidate 淘汰所有以 typePrefix 开头的贴图，返回数量
//
// 用于运行时切换外观：只清掉受影响的类型，其余贴图保留。
func (c *Cache) Invalidate(typePrefix string) int {
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, typePrefix) {
			c.lru.Remove(k)
			n++
		}
	}
	if n > 0 {
		log.Printf("[TextureCache] 失效 %d 张贴图 (前缀 %q)", n, typePrefix)
	}
	return n
}

// Clear 清空缓存
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Sweep 释放所有已淘汰的贴图，每帧开始时调用
func (c *Cache) Sweep() int {
	n := len(c.pending)
	for i, img := range c.pending {
		img.Deallocate()
		c.pending[i] = nil
	}
	c.pending = c.pending[:0]
	return n
}

// Stats 返回统计信息
func (c *Cache) Stats() Stats {
	s := c.stats
	s.Entries = c.lru.Len()
	s.Bytes = c.bytes
	s.Pending = len(c.pending)
	return s
}

// Limits 返回缓存上限
func (c *Cache) Limits() Limits {
	return c.limits
}

// Destroy 清空并立即释放所有贴图
func (c *Cache) Destroy() {
	c.Clear()
	c.Sweep()
}

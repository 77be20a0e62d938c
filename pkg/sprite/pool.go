package sprite

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2"
)

// Stats 对象池统计
type Stats struct {
	ID        string
	Active    int
	Inactive  int
	Total     int
	Created   int // 累计创建数
	Destroyed int // 累计销毁数（Trim/Destroy）
}

// Pool 单一类别的精灵对象池
//
// 空闲槽位保存在栈中，Acquire 为 O(1)。
type Pool struct {
	id        string
	slots     []*Pooled
	free      []int     // 空闲槽位栈
	active    []*Pooled // 本帧按获取顺序排列的活跃句柄
	created   int
	destroyed int
	closed    bool
}

// NewPool 创建对象池，prealloc 个精灵会被预先创建为空闲状态
func NewPool(id string, prealloc int) *Pool {
	p := &Pool{id: id}
	for i := 0; i < prealloc; i++ {
		p.slots = append(p.slots, &Pooled{Sprite: newSprite(), PoolID: id, slot: i})
		p.free = append(p.free, i)
		p.created++
	}
	return p
}

// ID 池标识
func (p *Pool) ID() string {
	return p.id
}

// Acquire 获取一个精灵
//
// 优先复用空闲精灵（先 Reset 所有视觉属性），否则创建新的并登记到池中。
// 池已销毁时返回 nil。
func (p *Pool) Acquire(texture *ebiten.Image) *Pooled {
	if p.closed {
		log.Printf("[SpritePool] 警告: 池 %s 已销毁，Acquire 被忽略", p.id)
		return nil
	}

	var h *Pooled
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		h = p.slots[idx]
		h.Sprite.Reset()
	} else {
		h = &Pooled{Sprite: newSprite(), PoolID: p.id, slot: len(p.slots)}
		p.slots = append(p.slots, h)
		p.created++
	}

	h.Sprite.Texture = texture
	h.Active = true
	p.active = append(p.active, h)
	return h
}

// ReleaseAll 把所有活跃精灵标记为空闲且不可见（不销毁）
func (p *Pool) ReleaseAll() {
	for _, h := range p.active {
		h.Active = false
		h.Sprite.Visible = false
		p.free = append(p.free, h.slot)
	}
	p.active = p.active[:0]
}

// Trim 销毁多余的空闲精灵，使总数不超过 maxSize
// 活跃精灵永远不会被销毁，返回销毁数量
func (p *Pool) Trim(maxSize int) int {
	if maxSize < 0 {
		maxSize = 0
	}
	excess := len(p.slots) - maxSize
	if excess <= 0 || len(p.free) == 0 {
		return 0
	}

	// 标记要销毁的空闲槽位（从栈底开始，保留最近使用的）
	remove := make(map[int]bool, excess)
	for i := 0; i < len(p.free) && len(remove) < excess; i++ {
		remove[p.free[i]] = true
	}

	kept := p.slots[:0]
	for _, h := range p.slots {
		if remove[h.slot] {
			h.Sprite.Texture = nil
			continue
		}
		kept = append(kept, h)
	}
	// 清掉尾部残留引用
	for i := len(kept); i < len(p.slots); i++ {
		p.slots[i] = nil
	}
	p.slots = kept

	// 重新编号并重建空闲栈
	p.free = p.free[:0]
	for i, h := range p.slots {
		h.slot = i
		if !h.Active {
			p.free = append(p.free, i)
		}
	}

	p.destroyed += len(remove)
	return len(remove)
}

// Active 返回本帧的活跃句柄（按获取顺序）
// 返回的切片在下一次 ReleaseAll 前有效
func (p *Pool) Active() []*Pooled {
	return p.active
}

// Owns 判断句柄是否属于本池的某个槽位
func (p *Pool) Owns(h *Pooled) bool {
	if h == nil || h.PoolID != p.id || h.slot < 0 || h.slot >= len(p.slots) {
		return false
	}
	return p.slots[h.slot] == h
}

// Stats 返回统计信息
func (p *Pool) Stats() Stats {
	return Stats{
		ID:        p.id,
		Active:    len(p.active),
		Inactive:  len(p.slots) - len(p.active),
		Total:     len(p.slots),
		Created:   p.created,
		Destroyed: p.destroyed,
	}
}

// Destroy 销毁池中所有精灵
func (p *Pool) Destroy() {
	if p.closed {
		return
	}
	for _, h := range p.slots {
		h.Active = false
		h.Sprite.Texture = nil
	}
	p.destroyed += len(p.slots)
	p.slots = nil
	p.free = nil
	p.active = nil
	p.closed = true
}

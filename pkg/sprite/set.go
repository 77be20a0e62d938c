package sprite

// 内置的池名称
const (
	PoolEntities    = "entities"
	PoolProjectiles = "projectiles"
	PoolParticles   = "particles"
)

// Set 按实体类别管理多个对象池
//
// 池按注册顺序遍历，这个顺序也是批量绘制的叠放顺序（先注册的在下层）。
type Set struct {
	order []string
	pools map[string]*Pool
}

// NewSet 创建对象池集合
func NewSet(ids ...string) *Set {
	s := &Set{pools: make(map[string]*Pool, len(ids))}
	for _, id := range ids {
		s.Pool(id)
	}
	return s
}

// Pool 返回指定名称的池，不存在时创建
func (s *Set) Pool(id string) *Pool {
	if p, ok := s.pools[id]; ok {
		return p
	}
	p := NewPool(id, 0)
	s.pools[id] = p
	s.order = append(s.order, id)
	return p
}

// ReleaseAll 释放所有池的活跃精灵
func (s *Set) ReleaseAll() {
	for _, id := range s.order {
		s.pools[id].ReleaseAll()
	}
}

// Trim 对每个池执行 Trim，返回总销毁数
func (s *Set) Trim(maxSize int) int {
	n := 0
	for _, id := range s.order {
		n += s.pools[id].Trim(maxSize)
	}
	return n
}

// ActiveSprites 按池顺序收集所有可见的活跃精灵，追加到 dst
func (s *Set) ActiveSprites(dst []*Sprite) []*Sprite {
	for _, id := range s.order {
		for _, h := range s.pools[id].Active() {
			if h.Sprite.Visible && h.Sprite.Texture != nil {
				dst = append(dst, h.Sprite)
			}
		}
	}
	return dst
}

// Stats 返回每个池的统计（按注册顺序）
func (s *Set) Stats() []Stats {
	out := make([]Stats, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.pools[id].Stats())
	}
	return out
}

// ActiveCount 所有池的活跃精灵总数
func (s *Set) ActiveCount() int {
	n := 0
	for _, id := range s.order {
		n += len(s.pools[id].active)
	}
	return n
}

// Destroy 销毁所有池
func (s *Set) Destroy() {
	for _, id := range s.order {
		s.pools[id].Destroy()
	}
}

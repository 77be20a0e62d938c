package entity

// View 模拟层提供的相机状态
type View struct {
	X, Y   float64 // 视口中心对应的世界坐标
	Zoom   float64
	ShakeX float64
	ShakeY float64
}

// Frame 一帧的完整快照
type Frame struct {
	Tick        uint64
	View        View
	Entities    []Entity
	Projectiles []Projectile
	Particles   []Particle
}

// Count 快照中的对象总数
func (f *Frame) Count() int {
	return len(f.Entities) + len(f.Projectiles) + len(f.Particles)
}

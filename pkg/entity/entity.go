// Package entity 定义模拟层每帧交给渲染层的纯数据快照。
//
// 渲染层只读这些数据，从不修改；实体类别用封闭接口 + 类型分支区分。
package entity

import (
	"fmt"

	"github.com/decker502/neonsnake/pkg/utils"
)

// Point 世界坐标点
type Point struct {
	X, Y float64
}

// Valid 坐标是否为有限值
func (p Point) Valid() bool {
	return utils.IsFinite(p.X) && utils.IsFinite(p.Y)
}

// Kind 实体类别
type Kind int

const (
	KindSnakeSegment Kind = iota
	KindEnemy
	KindXPOrb
	KindPickup
	KindBeam
)

// String 返回类别名称，同时用作贴图键的类型部分
func (k Kind) String() string {
	switch k {
	case KindSnakeSegment:
		return "snake"
	case KindEnemy:
		return "enemy"
	case KindXPOrb:
		return "xp"
	case KindPickup:
		return "pickup"
	case KindBeam:
		return "beam"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entity 封闭的实体接口，只有本包内的类型实现
type Entity interface {
	Kind() Kind
	// Valid 所有坐标和尺寸都是有限值
	Valid() bool
	sealed()
}

// SnakeSegment 蛇身的一节，Index 0 为蛇头
type SnakeSegment struct {
	Point
	Angle  float64
	Radius float64
	Index  int
	Style  string
	Trail  []Point // 拖尾残影位置，最近的在前
}

// Enemy 敌人
type Enemy struct {
	Point
	Angle    float64
	Radius   float64
	Style    string
	Shape    string  // 贴图形状
	HitFlash float64 // 0~1，受击闪白剩余比例
	Dying    bool
}

// XPOrb 经验球
type XPOrb struct {
	Point
	Radius float64
	Value  int
}

// Pickup 拾取物
type Pickup struct {
	Point
	Radius float64
	Style  string
	Phase  float64 // 动画相位（弧度）
}

// Beam 激光束，形状每帧都在变化，不走 GPU 批量渲染
type Beam struct {
	From  Point
	To    Point
	Width float64
	Style string
}

func (SnakeSegment) Kind() Kind { return KindSnakeSegment }
func (Enemy) Kind() Kind        { return KindEnemy }
func (XPOrb) Kind() Kind        { return KindXPOrb }
func (Pickup) Kind() Kind       { return KindPickup }
func (Beam) Kind() Kind         { return KindBeam }

func (SnakeSegment) sealed() {}
func (Enemy) sealed()        {}
func (XPOrb) sealed()        {}
func (Pickup) sealed()       {}
func (Beam) sealed()         {}

func (s SnakeSegment) Valid() bool {
	return s.Point.Valid() && finiteAll(s.Angle, s.Radius)
}

func (e Enemy) Valid() bool {
	return e.Point.Valid() && finiteAll(e.Angle, e.Radius, e.HitFlash)
}

func (o XPOrb) Valid() bool {
	return o.Point.Valid() && finiteAll(o.Radius)
}

func (p Pickup) Valid() bool {
	return p.Point.Valid() && finiteAll(p.Radius, p.Phase)
}

func (b Beam) Valid() bool {
	return b.From.Valid() && b.To.Valid() && finiteAll(b.Width)
}

// Batchable 实体能否交给 GPU 批量渲染
func Batchable(e Entity) bool {
	switch e.(type) {
	case SnakeSegment, Enemy, XPOrb, Pickup:
		return true
	case Beam:
		return false
	default:
		return false
	}
}

// Position 返回实体的锚点位置
func Position(e Entity) Point {
	switch v := e.(type) {
	case SnakeSegment:
		return v.Point
	case Enemy:
		return v.Point
	case XPOrb:
		return v.Point
	case Pickup:
		return v.Point
	case Beam:
		return Point{X: (v.From.X + v.To.X) / 2, Y: (v.From.Y + v.To.Y) / 2}
	default:
		return Point{}
	}
}

func finiteAll(vs ...float64) bool {
	for _, v := range vs {
		if !utils.IsFinite(v) {
			return false
		}
	}
	return true
}

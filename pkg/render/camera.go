package render

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/pkg/entity"
	"github.com/decker502/neonsnake/pkg/utils"
)

// Camera 世界坐标到屏幕坐标的映射
//
// (X, Y) 是视口中心对应的世界坐标；震动偏移在缩放之后叠加，单位是屏幕像素。
// GPU 路径使用 GeoM，即时渲染使用 WorldToScreen，两者必须给出完全相同的结果。
type Camera struct {
	X, Y   float64
	Zoom   float64
	ShakeX float64
	ShakeY float64
	ViewW  float64
	ViewH  float64
}

// NewCamera 创建视口尺寸为 w×h、缩放为 1 的相机
func NewCamera(viewW, viewH float64) Camera {
	return Camera{Zoom: 1, ViewW: viewW, ViewH: viewH}
}

// CameraFromView 用模拟层的相机状态构建相机
func CameraFromView(v entity.View, viewW, viewH float64) Camera {
	return Camera{
		X:      v.X,
		Y:      v.Y,
		Zoom:   v.Zoom,
		ShakeX: v.ShakeX,
		ShakeY: v.ShakeY,
		ViewW:  viewW,
		ViewH:  viewH,
	}
}

// Scale 实际使用的缩放（非法值按 1 处理）
func (c Camera) Scale() float64 {
	if !utils.IsFinite(c.Zoom) || c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

func (c Camera) offset() (float64, float64) {
	ox := c.ViewW/2 + c.ShakeX
	oy := c.ViewH/2 + c.ShakeY
	if !utils.IsFinite(ox) {
		ox = c.ViewW / 2
	}
	if !utils.IsFinite(oy) {
		oy = c.ViewH / 2
	}
	return ox, oy
}

// WorldToScreen 世界坐标 → 屏幕坐标
func (c Camera) WorldToScreen(x, y float64) (sx, sy float64) {
	z := c.Scale()
	ox, oy := c.offset()
	return (x-c.X)*z + ox, (y-c.Y)*z + oy
}

// ScreenToWorld 屏幕坐标 → 世界坐标
func (c Camera) ScreenToWorld(sx, sy float64) (x, y float64) {
	z := c.Scale()
	ox, oy := c.offset()
	return (sx-ox)/z + c.X, (sy-oy)/z + c.Y
}

// GeoM 返回与 WorldToScreen 等价的变换矩阵
func (c Camera) GeoM() ebiten.GeoM {
	z := c.Scale()
	ox, oy := c.offset()
	var g ebiten.GeoM
	g.Translate(-c.X, -c.Y)
	g.Scale(z, z)
	g.Translate(ox, oy)
	return g
}

// Visible 以 (x, y) 为中心、半径 r 的世界空间圆是否与视口相交
func (c Camera) Visible(x, y, r float64) bool {
	sx, sy := c.WorldToScreen(x, y)
	sr := r * c.Scale()
	return sx+sr >= 0 && sy+sr >= 0 && sx-sr <= c.ViewW && sy-sr <= c.ViewH
}

// Package utils 提供通用工具函数
package utils

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// IsJustTouchedOrClicked 检查是否刚刚发生点击或触摸
// 返回是否点击以及点击位置，优先检测触摸
func IsJustTouchedOrClicked() (bool, int, int) {
	touchIDs := inpututil.AppendJustPressedTouchIDs(nil)
	if len(touchIDs) > 0 {
		x, y := ebiten.TouchPosition(touchIDs[0])
		return true, x, y
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		return true, x, y
	}

	return false, 0, 0
}

// Corner 屏幕四角的点击区域
type Corner int

const (
	CornerNone Corner = iota
	CornerTopLeft
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight
)

// CornerAt 返回 (x, y) 落在哪个角的 size×size 区域内
// 区域重叠时（屏幕小于 2*size）上方、左侧优先
func CornerAt(x, y, width, height, size int) Corner {
	if x < 0 || y < 0 || x >= width || y >= height || size <= 0 {
		return CornerNone
	}
	left := x < size
	right := x >= width-size
	top := y < size
	bottom := y >= height-size

	switch {
	case top && left:
		return CornerTopLeft
	case top && right:
		return CornerTopRight
	case bottom && left:
		return CornerBottomLeft
	case bottom && right:
		return CornerBottomRight
	}
	return CornerNone
}

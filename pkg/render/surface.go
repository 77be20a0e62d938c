package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/pkg/filters"
)

// Surface 离屏场景画布及其后处理滤镜列表
//
// 两条渲染路径都画到 Image() 上，Present 时依次经过滤镜链输出到屏幕。
type Surface struct {
	scene   *ebiten.Image
	buffers [2]*ebiten.Image // 滤镜链中间结果，按需创建
	filters []filters.Filter
	width   int
	height  int
}

// NewSurface 创建 width×height 的画布
func NewSurface(width, height int) *Surface {
	return &Surface{
		scene:  ebiten.NewImage(width, height),
		width:  width,
		height: height,
	}
}

// Image 场景图像
func (s *Surface) Image() *ebiten.Image {
	return s.scene
}

// Size 画布尺寸
func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

// SetFilters 实现 filters.Target
func (s *Surface) SetFilters(fs []filters.Filter) {
	s.filters = fs
}

// Filters 实现 filters.Target
func (s *Surface) Filters() []filters.Filter {
	return s.filters
}

// Clear 用背景色填充画布
func (s *Surface) Clear(bg color.Color) {
	s.scene.Fill(bg)
}

// Present 把场景经过滤镜链输出到 dst，返回滤镜处理次数
//
// 滤镜列表为 nil 时直接拷贝；否则中间结果在两个缓冲之间交替，最后一个滤镜直接写入 dst。
func (s *Surface) Present(dst *ebiten.Image) int {
	if s.filters == nil {
		dst.DrawImage(s.scene, nil)
		return 0
	}

	src := s.scene
	last := len(s.filters) - 1
	for i, f := range s.filters {
		if i == last {
			f.Apply(dst, src)
			break
		}
		buf := s.buffer(i % 2)
		buf.Clear()
		f.Apply(buf, src)
		src = buf
	}
	return len(s.filters)
}

func (s *Surface) buffer(i int) *ebiten.Image {
	if s.buffers[i] == nil {
		s.buffers[i] = ebiten.NewImage(s.width, s.height)
	}
	return s.buffers[i]
}

// Resize 重新分配画布和中间缓冲，尺寸不变时什么都不做
func (s *Surface) Resize(width, height int) bool {
	if width <= 0 || height <= 0 || (width == s.width && height == s.height) {
		return false
	}
	old := s.scene
	s.scene = ebiten.NewImage(width, height)
	old.Deallocate()
	for i, b := range s.buffers {
		if b != nil {
			b.Deallocate()
			s.buffers[i] = nil
		}
	}
	s.width, s.height = width, height
	return true
}

// Deallocate 释放所有图像
func (s *Surface) Deallocate() {
	s.filters = nil
	s.scene.Deallocate()
	for i, b := range s.buffers {
		if b != nil {
			b.Deallocate()
			s.buffers[i] = nil
		}
	}
}

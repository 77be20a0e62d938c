package render

// Result 一次批量渲染调用的结果
//
// Handled 为 false 时 Fallback 就是全部输入，调用方需要自己绘制。
// Handled 为 true 时调用方只需绘制 Fallback 中的对象。
type Result[T any] struct {
	Handled  bool
	Rendered int // GPU 绘制的对象数
	Sprites  int // 占用的精灵数（拖尾残影也占精灵）
	Fallback []T
	Dropped  int // 坐标非法被丢弃
	Skipped  int // 超出画质预算未绘制
}

func notHandled[T any](items []T) Result[T] {
	return Result[T]{Fallback: items}
}

// Stats 去掉对象列表后的统计
func (r Result[T]) Stats() RenderStats {
	return RenderStats{
		Handled:  r.Handled,
		Rendered: r.Rendered,
		Sprites:  r.Sprites,
		Fallback: len(r.Fallback),
		Dropped:  r.Dropped,
		Skipped:  r.Skipped,
	}
}

// RenderStats 某一类对象本帧的渲染统计
type RenderStats struct {
	Handled  bool
	Rendered int
	Sprites  int
	Fallback int
	Dropped  int
	Skipped  int
}

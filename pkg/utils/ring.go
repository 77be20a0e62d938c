package utils

// Ring 固定容量的环形缓冲区
//
// 写满后新值覆盖最旧的值（先进先出淘汰）。
// 用于帧指标历史和 FPS 平滑窗口，避免每帧分配。
type Ring[T any] struct {
	buf   []T
	start int // 最旧元素的下标
	size  int
}

// NewRing 创建容量为 capacity 的环形缓冲区（capacity < 1 时按 1 处理）
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push 追加一个值，满时淘汰最旧的值
func (r *Ring[T]) Push(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len 返回当前元素数量
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap 返回容量
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Full 是否已写满
func (r *Ring[T]) Full() bool {
	return r.size == len(r.buf)
}

// At 返回第 i 个元素（0 为最旧）
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		var zero T
		return zero
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last 返回最新的元素
func (r *Ring[T]) Last() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.At(r.size - 1), true
}

// Each 按从旧到新的顺序遍历
func (r *Ring[T]) Each(fn func(i int, v T)) {
	for i := 0; i < r.size; i++ {
		fn(i, r.buf[(r.start+i)%len(r.buf)])
	}
}

// Reset 清空缓冲区（不释放底层数组）
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start = 0
	r.size = 0
}

// MeanFloat 计算 float64 环形缓冲区的平均值，空时返回 0
func MeanFloat(r *Ring[float64]) float64 {
	if r == nil || r.size == 0 {
		return 0
	}
	sum := 0.0
	r.Each(func(_ int, v float64) {
		sum += v
	})
	return sum / float64(r.size)
}

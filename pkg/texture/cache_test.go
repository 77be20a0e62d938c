package texture

import (
	"errors"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

type countingGen struct {
	calls int
	size  int
}

func (g *countingGen) generate(key Key) (*ebiten.Image, error) {
	g.calls++
	if key.Type == "broken" {
		return nil, errors.New("boom")
	}
	return ebiten.NewImage(g.size, g.size), nil
}

func newTestCache(t *testing.T, limits Limits) (*Cache, *countingGen) {
	t.Helper()
	g := &countingGen{size: 8}
	c, err := NewCache(g.generate, limits)
	if err != nil {
		t.Fatalf("NewCache 失败: %v", err)
	}
	return c, g
}

// TestKeyString 测试组合键格式
func TestKeyString(t *testing.T) {
	k := Key{Type: "enemy", Style: "magenta", State: "hit", Frame: 3}
	if got := k.String(); got != "enemy:magenta:hit:3" {
		t.Errorf("String() = %q", got)
	}
}

// TestGetGeneratesLazily 测试首次访问才生成，之后命中缓存
func TestGetGeneratesLazily(t *testing.T) {
	c, g := newTestCache(t, Limits{MaxEntries: 4, MaxBytes: 1 << 20})
	k := Key{Type: ShapeOrb, Style: "cyan", State: StateNormal}

	a, err := c.Get(k)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := c.Get(k)
	if a != b {
		t.Error("第二次 Get 应返回同一张贴图")
	}
	if g.calls != 1 {
		t.Errorf("生成次数 = %d, want 1", g.calls)
	}
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Entries != 1 || st.Bytes != 8*8*4 {
		t.Errorf("Stats = %+v", st)
	}
}

// TestEvictsByEntryCount 测试条目数超限时淘汰最久未使用的
func TestEvictsByEntryCount(t *testing.T) {
	c, _ := newTestCache(t, Limits{MaxEntries: 2, MaxBytes: 1 << 20})
	k1 := Key{Type: "a", Frame: 1}
	k2 := Key{Type: "a", Frame: 2}
	k3 := Key{Type: "a", Frame: 3}

	c.Get(k1)
	c.Get(k2)
	c.Get(k1) // k2 变成最久未使用
	c.Get(k3)

	if c.Contains(k2) {
		t.Error("k2 应被淘汰")
	}
	if !c.Contains(k1) || !c.Contains(k3) {
		t.Error("k1/k3 应保留")
	}
	st := c.Stats()
	if st.Evictions != 1 || st.Pending != 1 {
		t.Errorf("Evictions/Pending = %d/%d, want 1/1", st.Evictions, st.Pending)
	}
	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if c.Stats().Pending != 0 {
		t.Error("Sweep 后不应有待释放贴图")
	}
}

// TestEvictsByBytes 测试显存估算超限时淘汰，但保留刚生成的贴图
func TestEvictsByBytes(t *testing.T) {
	// 每张 8*8*4 = 256 字节，上限 600 → 最多 2 张
	c, _ := newTestCache(t, Limits{MaxEntries: 100, MaxBytes: 600})
	for i := 0; i < 5; i++ {
		c.Get(Key{Type: "p", Frame: i})
	}
	st := c.Stats()
	if st.Entries != 2 || st.Bytes != 512 {
		t.Errorf("Entries/Bytes = %d/%d, want 2/512", st.Entries, st.Bytes)
	}
	if !c.Contains(Key{Type: "p", Frame: 4}) {
		t.Error("最新贴图应保留")
	}

	// 单张超过上限时仍然保留
	big, _ := newTestCache(t, Limits{MaxEntries: 10, MaxBytes: 100})
	if _, err := big.Get(Key{Type: "x"}); err != nil {
		t.Fatal(err)
	}
	if big.Stats().Entries != 1 {
		t.Error("超大贴图应保留在缓存中")
	}
}

// TestInvalidatePrefix 测试按类型前缀批量失效
func TestInvalidatePrefix(t *testing.T) {
	c, g := newTestCache(t, Limits{MaxEntries: 16, MaxBytes: 1 << 20})
	c.Get(Key{Type: "snake", Style: "cyan", Frame: 0})
	c.Get(Key{Type: "snake", Style: "cyan", Frame: 1})
	c.Get(Key{Type: "enemy", Style: "red"})

	if n := c.Invalidate("snake:"); n != 2 {
		t.Errorf("Invalidate = %d, want 2", n)
	}
	if !c.Contains(Key{Type: "enemy", Style: "red"}) {
		t.Error("其他类型不应受影响")
	}
	if c.Stats().Bytes != 256 {
		t.Errorf("Bytes = %d, want 256", c.Stats().Bytes)
	}

	c.Get(Key{Type: "snake", Style: "cyan", Frame: 0})
	if g.calls != 4 {
		t.Errorf("失效后应重新生成, calls = %d", g.calls)
	}
}

// TestGeneratorError 测试生成失败不写入缓存
func TestGeneratorError(t *testing.T) {
	c, _ := newTestCache(t, Limits{})
	if _, err := c.Get(Key{Type: "broken"}); err == nil {
		t.Fatal("期望返回错误")
	}
	if c.Stats().Entries != 0 {
		t.Error("失败的贴图不应缓存")
	}
	if c.Limits() != DefaultLimits() {
		t.Errorf("零值上限应使用默认值, got %+v", c.Limits())
	}

	if _, err := NewCache(nil, Limits{}); !errors.Is(err, ErrNoGenerator) {
		t.Errorf("nil generator 错误 = %v", err)
	}
}

// TestClearAndDestroy 测试清空
func TestClearAndDestroy(t *testing.T) {
	c, _ := newTestCache(t, Limits{})
	c.Get(Key{Type: "a"})
	c.Get(Key{Type: "b"})
	c.Clear()
	st := c.Stats()
	if st.Entries != 0 || st.Bytes != 0 || st.Pending != 2 {
		t.Errorf("Clear 后 Stats = %+v", st)
	}
	c.Destroy()
	if c.Stats().Pending != 0 {
		t.Error("Destroy 后应释放全部贴图")
	}
}

// TestProceduralGenerator 测试内置形状都能生成
func TestProceduralGenerator(t *testing.T) {
	g := NewProceduralGenerator()
	shapes := []string{ShapeOrb, ShapeRing, ShapeGlow, ShapeDiamond, ShapeBolt, ShapeSquare}
	for _, shape := range shapes {
		img, err := g.Generate(Key{Type: shape, Style: "lime", State: StateHit, Frame: 2})
		if err != nil {
			t.Errorf("%s: %v", shape, err)
			continue
		}
		if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w != 32 || h != 32 {
			t.Errorf("%s 尺寸 = %dx%d", shape, w, h)
		}
	}
	if _, err := g.Generate(Key{Type: "nope"}); err == nil {
		t.Error("未知形状应返回错误")
	}
}

package render

import (
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/pkg/sprite"
)

func newTestSprite(tex *ebiten.Image, x, y float64) *sprite.Sprite {
	s := &sprite.Sprite{}
	s.Reset()
	s.Texture = tex
	s.X, s.Y = x, y
	return s
}

// TestAppendQuadUsesCamera 测试顶点位置经过相机变换
func TestAppendQuadUsesCamera(t *testing.T) {
	tex := ebiten.NewImage(32, 32)
	be, _ := NewBatchBackend(800, 600)
	b := be.(*batchBackend)
	// 相机中心 (100, 0)，视口 800x600：世界 (400,300) → 屏幕 (700, 600)
	b.camera = Camera{X: 100, Y: 0, Zoom: 1, ViewW: 800, ViewH: 600}

	s := newTestSprite(tex, 400, 300)
	vs := b.appendQuad(nil, s)
	if len(vs) != 4 {
		t.Fatalf("顶点数 = %d, want 4", len(vs))
	}
	want := [4][2]float64{{684, 584}, {716, 584}, {684, 616}, {716, 616}}
	for i, w := range want {
		if math.Abs(float64(vs[i].DstX)-w[0]) > 0.01 || math.Abs(float64(vs[i].DstY)-w[1]) > 0.01 {
			t.Errorf("顶点 %d = (%.2f,%.2f), want (%.0f,%.0f)", i, vs[i].DstX, vs[i].DstY, w[0], w[1])
		}
	}
	if vs[3].SrcX != 32 || vs[3].SrcY != 32 {
		t.Errorf("右下纹理坐标 = (%.0f,%.0f)", vs[3].SrcX, vs[3].SrcY)
	}
}

// TestAppendQuadRotationScaleAlpha 测试旋转、缩放和透明度
func TestAppendQuadRotationScaleAlpha(t *testing.T) {
	tex := ebiten.NewImage(10, 10)
	be, _ := NewBatchBackend(100, 100)
	b := be.(*batchBackend)
	b.camera = Camera{X: 50, Y: 50, Zoom: 2, ViewW: 100, ViewH: 100}

	s := newTestSprite(tex, 50, 50)
	s.SetScale(2)
	s.Rotation = math.Pi / 2
	s.Alpha = 0.5
	vs := b.appendQuad(nil, s)

	// 左上角 (-5,-5) 缩放 2 → (-10,-10)，旋转 90° → (10,-10)，相机缩放 2 → (20,-20)，平移到中心 (50,50)
	if math.Abs(float64(vs[0].DstX)-70) > 0.01 || math.Abs(float64(vs[0].DstY)-30) > 0.01 {
		t.Errorf("左上角 = (%.2f,%.2f), want (70,30)", vs[0].DstX, vs[0].DstY)
	}
	if vs[0].ColorA != 0.5 || vs[0].ColorR != 1 {
		t.Errorf("颜色 = (%.2f, a=%.2f)", vs[0].ColorR, vs[0].ColorA)
	}
}

// TestBatchGrouping 测试按贴图和混合模式分组
func TestBatchGrouping(t *testing.T) {
	texA := ebiten.NewImage(8, 8)
	texB := ebiten.NewImage(8, 8)
	target := ebiten.NewImage(100, 100)
	be, _ := NewBatchBackend(100, 100)

	glow := newTestSprite(texA, 10, 10)
	glow.Additive = true
	hidden := newTestSprite(texA, 10, 10)
	hidden.Visible = false
	far := newTestSprite(texB, 5000, 5000)

	be.BeginPass(target, NewCamera(100, 100))
	be.Draw([]*sprite.Sprite{
		newTestSprite(texA, 0, 0),
		newTestSprite(texA, 5, 5),
		newTestSprite(texB, -5, 0),
		glow,
		hidden,
		far,
		nil,
	})
	calls := be.EndPass()

	st := be.Stats()
	if calls != 3 || st.DrawCalls != 3 {
		t.Errorf("DrawCalls = %d/%d, want 3（A 普通、B 普通、A 加法）", calls, st.DrawCalls)
	}
	if st.Sprites != 4 || st.Culled != 1 || st.Batches != 3 {
		t.Errorf("Stats = %+v", st)
	}

	// 下一次绘制从干净状态开始
	be.BeginPass(target, NewCamera(100, 100))
	be.Draw([]*sprite.Sprite{newTestSprite(texB, 0, 0)})
	if calls := be.EndPass(); calls != 1 {
		t.Errorf("第二次 DrawCalls = %d, want 1", calls)
	}

	be.Destroy()
	be.BeginPass(target, NewCamera(100, 100))
	be.Draw([]*sprite.Sprite{newTestSprite(texB, 0, 0)})
	if calls := be.EndPass(); calls != 0 {
		t.Error("销毁后不应绘制")
	}
}

// TestBatchOrdering 测试层级和混合模式的绘制顺序
func TestBatchOrdering(t *testing.T) {
	tex := ebiten.NewImage(4, 4)
	be, _ := NewBatchBackend(100, 100)
	b := be.(*batchBackend)

	top := newTestSprite(tex, 0, 0)
	top.Depth = 2
	glow := newTestSprite(tex, 0, 0)
	glow.Additive = true
	base := newTestSprite(tex, 0, 0)

	b.BeginPass(ebiten.NewImage(100, 100), NewCamera(100, 100))
	b.Draw([]*sprite.Sprite{top, glow, base})
	b.EndPass()

	got := b.batches[:b.used]
	want := []batchKey{
		{depth: 0, image: tex, additive: false},
		{depth: 0, image: tex, additive: true},
		{depth: 2, image: tex, additive: false},
	}
	if len(got) != len(want) {
		t.Fatalf("批次数 = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].key != want[i] {
			t.Errorf("批次 %d = %+v, want %+v", i, got[i].key, want[i])
		}
	}
}

package render

import (
	"math"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/pkg/sprite"
)

// Backend GPU 批量绘制后端
type Backend interface {
	// BeginPass 开始一次绘制，sprite 坐标按 camera 映射到 target
	BeginPass(target *ebiten.Image, camera Camera)
	Draw(sprites []*sprite.Sprite)
	// EndPass 提交本次绘制，返回 GPU 绘制调用次数
	EndPass() int
	Stats() BatchStats
	Resize(width, height int)
	Destroy()
}

// BackendFactory 创建 GPU 后端，失败时渲染管理器回退到 canvas2d
type BackendFactory func(width, height int) (Backend, error)

// BatchStats 最近一次绘制的统计
type BatchStats struct {
	Sprites   int
	Culled    int
	Batches   int
	DrawCalls int
}

// maxSpritesPerCall uint16 索引最多寻址 65535 个顶点，每个精灵 4 个
const maxSpritesPerCall = 16000

// additiveBlend 加法混合（发光效果）
var additiveBlend = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorOne,
	BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
	BlendOperationRGB:           ebiten.BlendOperationAdd,
	BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
	BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
	BlendOperationAlpha:         ebiten.BlendOperationAdd,
}

type batchKey struct {
	depth    int
	image    *ebiten.Image
	additive bool
}

type batch struct {
	key     batchKey
	sprites []*sprite.Sprite
}

// batchBackend 按 (层级, 贴图, 混合模式) 分组，用 DrawTriangles 批量绘制
//
// 同一层级内先画普通混合再画加法混合，层级按 Depth 从小到大。
type batchBackend struct {
	target *ebiten.Image
	camera Camera

	index   map[batchKey]int
	batches []batch
	used    int

	vertices []ebiten.Vertex
	indices  []uint16

	stats     BatchStats
	destroyed bool
}

// NewBatchBackend 默认的 GPU 后端
func NewBatchBackend(width, height int) (Backend, error) {
	return &batchBackend{
		index:    make(map[batchKey]int),
		vertices: make([]ebiten.Vertex, 0, 4096),
		indices:  make([]uint16, 0, 6144),
	}, nil
}

func (b *batchBackend) BeginPass(target *ebiten.Image, camera Camera) {
	b.target = target
	b.camera = camera
	for i := 0; i < b.used; i++ {
		b.batches[i].sprites = b.batches[i].sprites[:0]
	}
	b.used = 0
	clear(b.index)
	b.stats = BatchStats{}
}

func (b *batchBackend) Draw(sprites []*sprite.Sprite) {
	if b.destroyed {
		return
	}
	for _, s := range sprites {
		if s == nil || !s.Visible || s.Texture == nil || s.Alpha <= 0 {
			continue
		}
		if !b.onScreen(s) {
			b.stats.Culled++
			continue
		}
		key := batchKey{depth: s.Depth, image: s.Texture, additive: s.Additive}
		i, ok := b.index[key]
		if !ok {
			if b.used == len(b.batches) {
				b.batches = append(b.batches, batch{})
			}
			i = b.used
			b.used++
			b.batches[i].key = key
			b.index[key] = i
		}
		b.batches[i].sprites = append(b.batches[i].sprites, s)
		b.stats.Sprites++
	}
}

// onScreen 用外接圆粗略裁剪屏幕外的精灵
func (b *batchBackend) onScreen(s *sprite.Sprite) bool {
	bounds := s.Texture.Bounds()
	w := float64(bounds.Dx()) * math.Abs(s.ScaleX)
	h := float64(bounds.Dy()) * math.Abs(s.ScaleY)
	r := math.Hypot(w, h) / 2
	return b.camera.Visible(s.X, s.Y, r)
}

func (b *batchBackend) EndPass() int {
	if b.destroyed || b.target == nil {
		return 0
	}
	active := b.batches[:b.used]
	// 先按层级，再普通混合在前；同组内保持首次出现的顺序
	sort.SliceStable(active, func(i, j int) bool {
		ki, kj := active[i].key, active[j].key
		if ki.depth != kj.depth {
			return ki.depth < kj.depth
		}
		return !ki.additive && kj.additive
	})
	// 排序打乱了 index，下一次 BeginPass 会清空，这里不需要修正

	calls := 0
	for i := range active {
		bt := &active[i]
		for start := 0; start < len(bt.sprites); start += maxSpritesPerCall {
			end := min(start+maxSpritesPerCall, len(bt.sprites))
			calls += b.flush(bt.key, bt.sprites[start:end])
		}
	}

	b.stats.Batches = len(active)
	b.stats.DrawCalls = calls
	b.target = nil
	return calls
}

func (b *batchBackend) flush(key batchKey, sprites []*sprite.Sprite) int {
	b.vertices = b.vertices[:0]
	b.indices = b.indices[:0]
	for _, s := range sprites {
		base := uint16(len(b.vertices))
		b.vertices = b.appendQuad(b.vertices, s)
		b.indices = append(b.indices,
			base+0, base+1, base+2,
			base+1, base+3, base+2,
		)
	}
	if len(b.vertices) == 0 {
		return 0
	}

	op := &ebiten.DrawTrianglesOptions{}
	op.AntiAlias = true
	if key.additive {
		op.Blend = additiveBlend
	}
	b.target.DrawTriangles(b.vertices, b.indices, key.image, op)
	return 1
}

// appendQuad 生成精灵的 4 个顶点：左上、右上、左下、右下
func (b *batchBackend) appendQuad(vs []ebiten.Vertex, s *sprite.Sprite) []ebiten.Vertex {
	bounds := s.Texture.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	srcX0 := float32(bounds.Min.X)
	srcY0 := float32(bounds.Min.Y)
	srcX1 := float32(bounds.Max.X)
	srcY1 := float32(bounds.Max.Y)

	var g ebiten.GeoM
	g.Translate(-w/2, -h/2)
	g.Scale(s.ScaleX, s.ScaleY)
	g.Rotate(s.Rotation)
	g.Translate(s.X, s.Y)
	g.Concat(b.camera.GeoM())

	r := float32(s.Tint.R) / 255
	gr := float32(s.Tint.G) / 255
	bl := float32(s.Tint.B) / 255
	a := float32(s.Tint.A) / 255 * float32(s.Alpha)

	corners := [4][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}}
	srcs := [4][2]float32{{srcX0, srcY0}, {srcX1, srcY0}, {srcX0, srcY1}, {srcX1, srcY1}}
	for i, c := range corners {
		x, y := g.Apply(c[0], c[1])
		vs = append(vs, ebiten.Vertex{
			DstX:   float32(x),
			DstY:   float32(y),
			SrcX:   srcs[i][0],
			SrcY:   srcs[i][1],
			ColorR: r,
			ColorG: gr,
			ColorB: bl,
			ColorA: a,
		})
	}
	return vs
}

func (b *batchBackend) Stats() BatchStats {
	return b.stats
}

func (b *batchBackend) Resize(width, height int) {}

func (b *batchBackend) Destroy() {
	b.destroyed = true
	b.batches = nil
	b.index = nil
	b.vertices = nil
	b.indices = nil
	b.target = nil
}

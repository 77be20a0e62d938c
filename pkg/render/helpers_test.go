package render

import (
	"errors"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/pkg/filters"
	"github.com/decker502/neonsnake/pkg/sprite"
	"github.com/decker502/neonsnake/pkg/telemetry"
	"github.com/decker502/neonsnake/pkg/texture"
)

// eventLog 记录销毁顺序
type eventLog []string

func (l *eventLog) add(s string) { *l = append(*l, s) }

type fakeBackend struct {
	log       *eventLog
	drawn     int
	passes    int
	resized   [2]int
	destroyed bool
}

func (b *fakeBackend) BeginPass(target *ebiten.Image, camera Camera) { b.passes++ }
func (b *fakeBackend) Draw(sprites []*sprite.Sprite)                 { b.drawn += len(sprites) }
func (b *fakeBackend) EndPass() int                                  { return 2 }
func (b *fakeBackend) Stats() BatchStats                             { return BatchStats{Sprites: b.drawn} }
func (b *fakeBackend) Resize(width, height int)                      { b.resized = [2]int{width, height} }
func (b *fakeBackend) Destroy() {
	b.destroyed = true
	if b.log != nil {
		b.log.add("backend")
	}
}

type fakeFilter struct {
	kind filters.Kind
	log  *eventLog
}

func (f *fakeFilter) Kind() filters.Kind                { return f.kind }
func (f *fakeFilter) Apply(dst, src *ebiten.Image)      {}
func (f *fakeFilter) SetUniform(name string, value any) {}
func (f *fakeFilter) Resize(width, height int)          {}
func (f *fakeFilter) Dispose() {
	if f.log != nil {
		f.log.add("filter:" + f.kind.String())
	}
}

func fakeFilterFactory(log *eventLog) filters.Factory {
	return func(kind filters.Kind) (filters.Filter, error) {
		return &fakeFilter{kind: kind, log: log}, nil
	}
}

func testGenerator(key texture.Key) (*ebiten.Image, error) {
	if key.Style == "broken" {
		return nil, errors.New("no art")
	}
	return ebiten.NewImage(10, 10), nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(ms float64) {
	c.now = c.now.Add(time.Duration(ms * float64(time.Millisecond)))
}

type testEnv struct {
	manager  *Manager
	recorder *telemetry.Recorder
	backend  *fakeBackend
	surface  *Surface
	clock    *testClock
	log      *eventLog
}

// newTestEnv 创建使用假后端和假滤镜的渲染管理器
func newTestEnv(t *testing.T, mode Mode) *testEnv {
	t.Helper()
	env := &testEnv{
		clock: &testClock{now: time.Unix(0, 0)},
		log:   &eventLog{},
	}
	opts := telemetry.DefaultOptions()
	opts.Clock = env.clock.Now
	env.recorder = telemetry.NewRecorder(opts)

	env.backend = &fakeBackend{log: env.log}
	ro := DefaultOptions(env.recorder)
	ro.BackendFactory = func(w, h int) (Backend, error) { return env.backend, nil }
	ro.Filters.Factory = fakeFilterFactory(env.log)
	ro.TextureGenerator = testGenerator

	env.manager = NewManager(ro)
	env.surface = NewSurface(320, 240)
	if err := env.manager.Init(env.surface, mode); err != nil {
		t.Fatalf("Init 失败: %v", err)
	}
	return env
}

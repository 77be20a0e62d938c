// Package main provides a render stress tool: it runs the swarm simulation with a forced
// render mode and quality level for a fixed number of frames, then prints average and
// peak frame metrics.
//
// Usage:
//
//	go run ./cmd/renderbench [flags]
//
// Flags:
//
//	--mode <name>      Render mode: canvas2d, webgl, hybrid (default webgl)
//	--level <name>     Quality level (default high)
//	--auto             Let telemetry adjust quality during the run
//	--enemies <n>      Enemies on screen (default 400)
//	--frames <n>       Frames to measure (default 600)
//	--seed <n>         Simulation seed
//	--config <path>    Render config (default data/render.yaml)
//	--verbose          Enable verbose logging
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/internal/demo"
	"github.com/decker502/neonsnake/internal/particle"
	"github.com/decker502/neonsnake/pkg/config"
	"github.com/decker502/neonsnake/pkg/game"
	"github.com/decker502/neonsnake/pkg/quality"
	"github.com/decker502/neonsnake/pkg/render"
	"github.com/decker502/neonsnake/pkg/telemetry"
)

var (
	modeFlag    = flag.String("mode", "webgl", "Render mode (canvas2d, webgl, hybrid)")
	levelFlag   = flag.String("level", "high", "Quality level (potato, low, medium, high, ultra)")
	autoFlag    = flag.Bool("auto", false, "Enable automatic quality scaling")
	enemiesFlag = flag.Int("enemies", 400, "Enemies on screen")
	framesFlag  = flag.Int("frames", 600, "Frames to measure")
	seedFlag    = flag.Int64("seed", 1, "Simulation seed")
	configFlag  = flag.String("config", config.DefaultRenderConfigPath, "Render config path")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging (default off)")
)

// benchGame 跑满指定帧数后退出
type benchGame struct {
	session *game.Session
	frames  int
	target  int
	changes []telemetry.QualityChange
}

func (b *benchGame) Update() error {
	if b.frames >= b.target {
		return ebiten.Termination
	}
	b.session.Update(1.0 / 60)
	return nil
}

func (b *benchGame) Draw(screen *ebiten.Image) {
	b.session.Draw(screen)
	b.frames++
}

func (b *benchGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return b.session.ScreenSize()
}

func newBench() (*benchGame, error) {
	mode, err := render.ParseMode(*modeFlag)
	if err != nil {
		return nil, err
	}
	level, err := quality.ParseLevel(*levelFlag)
	if err != nil {
		return nil, err
	}
	if *framesFlag < 1 {
		return nil, fmt.Errorf("frames must be >= 1, got %d", *framesFlag)
	}

	cfg, err := config.LoadRenderConfig(*configFlag)
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	cfg.Telemetry.InitialLevel = level
	cfg.Telemetry.AutoScale = *autoFlag
	// 历史覆盖整个测量区间，平均值和峰值才是全程的
	cfg.Telemetry.HistorySize = *framesFlag

	// 不读写玩家设置
	settings := game.NewSettingsManager(nil)
	settings.SetAutoScale(*autoFlag)
	settings.SetRenderMode(mode)

	session := game.NewSession(game.SessionDeps{Config: cfg, Settings: settings})
	if err := session.InitError(); err != nil && mode.UsesGPU() {
		return nil, fmt.Errorf("cannot benchmark %s: %w", mode, err)
	}

	lib, err := particle.LoadLibrary(particle.DefaultEmittersPath)
	if err != nil {
		log.Printf("Warning: %v (running without particles)", err)
	}
	simConfig := demo.DefaultConfig()
	simConfig.Seed = *seedFlag
	simConfig.Enemies = *enemiesFlag
	session.SetSimulation(demo.New(simConfig, lib))

	b := &benchGame{session: session, target: *framesFlag}
	session.Recorder().OnQualityChange(func(c telemetry.QualityChange) {
		b.changes = append(b.changes, c)
	})
	return b, nil
}

func printReport(w io.Writer, b *benchGame) {
	r := b.session.Recorder()
	avg, peak := r.AverageMetrics(), r.PeakMetrics()
	report := b.session.Renderer().FrameMetrics()

	fmt.Fprintf(w, "mode=%s level=%s enemies=%d frames=%d\n",
		b.session.Renderer().Mode(), b.session.Renderer().CurrentQualityLevel(), *enemiesFlag, b.frames)
	fmt.Fprintf(w, "%-8s %10s %10s %10s %8s %10s\n", "", "frame(ms)", "sim(ms)", "render(ms)", "fps", "drawcalls")
	fmt.Fprintf(w, "%-8s %10.2f %10.2f %10.2f %8.1f %10d\n", "average",
		avg.FrameTime, avg.SimulationTime, avg.RenderTime, avg.FPS, avg.DrawCalls)
	fmt.Fprintf(w, "%-8s %10.2f %10.2f %10.2f %8.1f %10d\n", "peak",
		peak.FrameTime, peak.SimulationTime, peak.RenderTime, peak.FPS, peak.DrawCalls)
	fmt.Fprintf(w, "last frame: gpu %d / imm %d, fallback ent %d proj %d part %d\n",
		report.GPUDrawCalls, report.ImmediateDrawCalls,
		report.Entities.Fallback, report.Projectiles.Fallback, report.Particles.Fallback)
	for _, c := range b.changes {
		fmt.Fprintf(w, "quality %s -> %s (%s) at frame %d\n", c.From, c.To, c.Reason, c.Frame)
	}
}

func main() {
	flag.Parse()

	if !*verboseFlag {
		log.SetOutput(io.Discard)
	}

	b, err := newBench()
	if err != nil {
		fmt.Fprintln(os.Stderr, "renderbench:", err)
		os.Exit(1)
	}
	defer b.session.Close()

	ebiten.SetWindowTitle("Neon Snake Render Bench")
	ebiten.SetVsyncEnabled(false)
	ebiten.SetTPS(ebiten.SyncWithFPS)

	if err := ebiten.RunGame(b); err != nil && !errors.Is(err, ebiten.Termination) {
		fmt.Fprintln(os.Stderr, "renderbench:", err)
		os.Exit(1)
	}
	printReport(os.Stdout, b)
}

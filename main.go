// Command neonsnake runs the neon render core with a stand-in swarm simulation.
//
// Usage:
//
//	go run . [flags]
//
// Flags:
//
//	--verbose           Enable verbose logging
//	--mode <name>       Force render mode: canvas2d, webgl or hybrid
//	--level <name>      Initial quality level: potato, low, medium, high, ultra
//	--config <path>     Render config (default data/render.yaml)
//	--seed <n>          Simulation seed
//	--vsync             Enable vsync (default true)
//
// Controls:
//
//	F2   - Cycle render mode
//	F3   - Toggle metrics overlay
//	F4   - Toggle CRT
//	F5   - Lower quality ceiling (wraps to ULTRA)
//	F6   - Cycle snake skin
//	F11  - Toggle fullscreen
//	R    - Restart simulation
package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/decker502/neonsnake/pkg/app"
	"github.com/decker502/neonsnake/pkg/embedded"
)

var (
	verboseFlag = flag.Bool("verbose", false, "Enable verbose logging (default off)")
	modeFlag    = flag.String("mode", "", "Force render mode (canvas2d, webgl, hybrid)")
	levelFlag   = flag.String("level", "", "Initial quality level (potato, low, medium, high, ultra)")
	configFlag  = flag.String("config", "", "Render config path (default data/render.yaml)")
	seedFlag    = flag.Int64("seed", 1, "Simulation seed")
	vsyncFlag   = flag.Bool("vsync", true, "Enable vsync")
)

func main() {
	flag.Parse()

	// 初始化嵌入资源
	embedded.Init(dataFS)

	gameApp, err := app.NewApp(app.Config{
		Verbose:    *verboseFlag,
		ConfigPath: *configFlag,
		Mode:       *modeFlag,
		Level:      *levelFlag,
		Seed:       *seedFlag,
	})
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	defer gameApp.Close()

	w, h := gameApp.Layout(0, 0)
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle("Neon Snake")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(*vsyncFlag)

	// 启动主循环，直到窗口关闭
	if err := ebiten.RunGame(gameApp); err != nil {
		log.Printf("RunGame 退出: %v", err)
	}
}

package game

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Scene 是 SceneManager 驱动的顶层单元（渲染会话、基准运行等）
type Scene interface {
	// Update 推进一帧逻辑，deltaTime 单位为秒
	Update(deltaTime float64)

	// Draw 把当前帧画到 screen
	Draw(screen *ebiten.Image)
}

// Saveable 是可选接口：场景被切走或窗口关闭时，SceneManager 会调用 SaveOnExit()
type Saveable interface {
	// SaveOnExit 持久化场景状态
	// 返回 false 表示保存失败，退出流程不受影响
	SaveOnExit() bool
}

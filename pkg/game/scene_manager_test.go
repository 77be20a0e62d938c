package game

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

// recordingScene 记录收到的 Update/Draw 调用
type recordingScene struct {
	updates int
	draws   int
	lastDt  float64
}

func (r *recordingScene) Update(deltaTime float64) {
	r.updates++
	r.lastDt = deltaTime
}

func (r *recordingScene) Draw(screen *ebiten.Image) {
	r.draws++
}

// savingScene 记录 SaveOnExit 调用次数
type savingScene struct {
	recordingScene
	saves int
	ok    bool
}

func (s *savingScene) SaveOnExit() bool {
	s.saves++
	return s.ok
}

func TestSceneManagerWithoutScene(t *testing.T) {
	sm := NewSceneManager()
	if sm.GetCurrentScene() != nil {
		t.Fatal("新建的 SceneManager 不应有活动场景")
	}
	// 没有场景时不应 panic
	sm.Update(0.016)
	sm.Draw(ebiten.NewImage(64, 64))
	if !sm.SaveOnExit() {
		t.Error("没有场景时 SaveOnExit 应返回 true")
	}
}

func TestSceneManagerForwardsToActiveScene(t *testing.T) {
	sm := NewSceneManager()
	first := &recordingScene{}
	second := &recordingScene{}
	screen := ebiten.NewImage(64, 64)

	sm.SwitchTo(first)
	sm.Update(1.0 / 60)
	sm.Draw(screen)

	sm.SwitchTo(second)
	sm.Update(0.5)
	sm.Draw(screen)
	sm.Draw(screen)

	tests := []struct {
		name           string
		scene          *recordingScene
		updates, draws int
		lastDt         float64
	}{
		{"切换前的场景", first, 1, 1, 1.0 / 60},
		{"切换后的场景", second, 1, 2, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.scene.updates != tt.updates || tt.scene.draws != tt.draws {
				t.Errorf("updates/draws = %d/%d, want %d/%d",
					tt.scene.updates, tt.scene.draws, tt.updates, tt.draws)
			}
			if tt.scene.lastDt != tt.lastDt {
				t.Errorf("lastDt = %v, want %v", tt.scene.lastDt, tt.lastDt)
			}
		})
	}
	if sm.GetCurrentScene() != second {
		t.Error("GetCurrentScene 应返回最后切换的场景")
	}
}

func TestSceneManagerSavesOnSwitch(t *testing.T) {
	sm := NewSceneManager()
	first := &savingScene{ok: true}
	sm.SwitchTo(first)
	sm.SwitchTo(first) // 同一场景不触发保存
	if first.saves != 0 {
		t.Fatalf("切换到同一场景后 saves = %d, want 0", first.saves)
	}

	sm.SwitchTo(&recordingScene{})
	if first.saves != 1 {
		t.Errorf("saves = %d, want 1", first.saves)
	}
	if !sm.SaveOnExit() {
		t.Error("不可保存的场景应返回 true")
	}

	failing := &savingScene{ok: false}
	sm.SwitchTo(failing)
	if sm.SaveOnExit() {
		t.Error("SaveOnExit 应返回场景的保存失败")
	}
}

package embedded

import (
	"errors"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"data/render.yaml":       {Data: []byte("screen:\n  width: 640\n")},
		"data/presets/low.yaml":  {Data: []byte("level: LOW\n")},
		"data/presets/high.yaml": {Data: []byte("level: HIGH\n")},
	}
}

// TestNotInitialized 测试未初始化时的行为
func TestNotInitialized(t *testing.T) {
	Reset()

	if IsInitialized() {
		t.Fatal("Reset 后不应处于初始化状态")
	}
	if _, err := ReadFile("data/render.yaml"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ReadFile err = %v, want ErrNotInitialized", err)
	}
	if _, err := Open("data/render.yaml"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Open err = %v, want ErrNotInitialized", err)
	}
	if Exists("data/render.yaml") {
		t.Error("未初始化时 Exists 应返回 false")
	}

	Init(nil)
	if IsInitialized() {
		t.Error("Init(nil) 不应视为已初始化")
	}
}

// TestReadFile 测试读取和路径标准化
func TestReadFile(t *testing.T) {
	Init(testFS())
	defer Reset()

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"普通路径", "data/render.yaml", "screen:\n  width: 640\n", false},
		{"带 ./ 前缀", "./data/render.yaml", "screen:\n  width: 640\n", false},
		{"多余的路径段", "data/presets/../render.yaml", "screen:\n  width: 640\n", false},
		{"未知前缀", "assets/render.yaml", "", true},
		{"文件不存在", "data/missing.yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFile(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadFile(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("ReadFile(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestExistsAndDir 测试 Exists / Glob / ReadDir
func TestExistsAndDir(t *testing.T) {
	Init(testFS())
	defer Reset()

	if !Exists("data/presets/low.yaml") {
		t.Error("low.yaml 应存在")
	}
	if Exists("data/presets/ultra.yaml") {
		t.Error("ultra.yaml 不应存在")
	}

	matches, err := Glob("data/presets/*.yaml")
	if err != nil {
		t.Fatalf("Glob 失败: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Glob 匹配 %d 个文件, want 2: %v", len(matches), matches)
	}

	entries, err := ReadDir("data")
	if err != nil {
		t.Fatalf("ReadDir 失败: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("data/ 下有 %d 项, want 2", len(entries))
	}

	if _, err := Glob("shaders/*.kage"); err == nil {
		t.Error("非 data/ 前缀应返回错误")
	}
}

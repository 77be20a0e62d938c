// Package embedded 提供嵌入数据文件的统一访问接口
//
// 由于 Go embed 指令只能嵌入当前包目录及其子目录的文件，
// embed.FS 变量必须声明在项目根目录（embed.go）。
// 本包持有该文件系统，让 config 等包可以按 "data/..." 路径读取。
//
// 使用前必须调用 Init() 初始化；未初始化时所有读取都返回 ErrNotInitialized，
// 调用方通常据此回退到磁盘文件。
package embedded

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotInitialized 未调用 Init
var ErrNotInitialized = errors.New("embedded package not initialized, call Init() first")

// dataPrefix 所有嵌入路径的前缀
const dataPrefix = "data/"

var (
	dataFS      fs.FS
	initialized bool
)

// Init 设置嵌入的数据文件系统
// 必须在 main() 开始时、任何配置加载之前调用
//
// 参数 data 的根目录下应包含 data/ 目录（即 //go:embed data 得到的 embed.FS）。
func Init(data fs.FS) {
	dataFS = data
	initialized = data != nil
}

// Reset 清除初始化状态，仅供测试使用
func Reset() {
	dataFS = nil
	initialized = false
}

// IsInitialized 返回 embedded 包是否已初始化
func IsInitialized() bool {
	return initialized
}

// clean 标准化路径并检查前缀
func clean(p string) (string, error) {
	if !initialized {
		return "", ErrNotInitialized
	}
	// embed.FS 只接受正斜杠路径
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	if !strings.HasPrefix(p, dataPrefix) {
		return "", fmt.Errorf("unknown resource path prefix: %s (must start with '%s')", p, dataPrefix)
	}
	return path.Clean(p), nil
}

// Open 打开嵌入文件，路径必须以 "data/" 开头
func Open(p string) (fs.File, error) {
	p, err := clean(p)
	if err != nil {
		return nil, err
	}
	return dataFS.Open(p)
}

// ReadFile 读取嵌入文件内容
func ReadFile(p string) ([]byte, error) {
	p, err := clean(p)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(dataFS, p)
}

// Exists 检查文件是否存在
func Exists(p string) bool {
	file, err := Open(p)
	if err != nil {
		return false
	}
	file.Close()
	return true
}

// Glob 匹配嵌入文件
func Glob(pattern string) ([]string, error) {
	pattern, err := clean(pattern)
	if err != nil {
		return nil, err
	}
	return fs.Glob(dataFS, pattern)
}

// ReadDir 读取嵌入目录
func ReadDir(p string) ([]fs.DirEntry, error) {
	p, err := clean(p)
	if err != nil {
		return nil, err
	}
	return fs.ReadDir(dataFS, p)
}

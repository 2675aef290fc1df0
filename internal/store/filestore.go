package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore 按内容寻址保存上传的原始文件
type FileStore struct {
	root string
}

// NewFileStore 创建文件存储，根目录不存在时自动创建
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create file store dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Save 写入文件内容，返回 sha256 定位符，重复内容写入幂等
func (f *FileStore) Save(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	locator := hex.EncodeToString(sum[:])
	path := f.path(locator)
	if _, err := os.Stat(path); err == nil {
		return locator, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create shard dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}
	return locator, nil
}

// Load 按定位符读取文件内容
func (f *FileStore) Load(locator string) ([]byte, error) {
	data, err := os.ReadFile(f.path(locator))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", locator, err)
	}
	return data, nil
}

// 按前两位散列分目录，避免单目录文件过多
func (f *FileStore) path(locator string) string {
	if len(locator) < 2 {
		return filepath.Join(f.root, locator)
	}
	return filepath.Join(f.root, locator[:2], locator)
}

package fileurl

import (
	"os"
	"path/filepath"
)

// IsExist determines if the given path exists
// IsExist 判断所给路径是否存在
func IsExist(dst string) bool {
	_, err := os.Stat(dst)
	if err != nil {
		return os.IsExist(err)
	}
	return true
}

// CreatePath creates the parent directory of dst
// CreatePath 创建 dst 所在目录
func CreatePath(dst string, perm os.FileMode) error {
	return os.MkdirAll(filepath.Dir(dst), perm)
}

// EnsureDirs creates every non-empty directory in dirs
// EnsureDirs 逐个创建目录，空字符串跳过
func EnsureDirs(perm os.FileMode, dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, perm); err != nil {
			return err
		}
	}
	return nil
}

// UserConfigPath returns name joined to the user's config directory, or "" when unknown
// UserConfigPath 返回用户配置目录下的文件路径
func UserConfigPath(parts ...string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append([]string{dir}, parts...)...)
}

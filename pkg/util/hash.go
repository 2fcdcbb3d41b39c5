package util

import "strconv"

// EncodeHash32 computes the 32-bit rolling hash used as the page index key.
// The algorithm matches the browser side `(h << 5) - h + c` loop over code points.
// EncodeHash32 计算页面索引使用的 32 位哈希
func EncodeHash32(content string) string {
	var hash int32
	for _, r := range content {
		hash = (hash << 5) - hash + int32(r)
	}
	return strconv.Itoa(int(hash))
}

// Package text holds small string helpers.
package text

import "unicode/utf8"

// Truncate 截断到最多 max 个字符并追加 "..."，不会切断多字节字符。
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

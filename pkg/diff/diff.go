// Package diff 文本差异与三方合并
package diff

import "github.com/sergi/go-diff/diffmatchpatch"

// Op 差异片段类型
type Op int8

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

// Segment 一段差异文本
type Segment struct {
	Op   Op
	Text string
}

// Compare 返回从 from 到 to 的差异，已做语义合并，适合直接展示
func Compare(from, to string) []Segment {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	out := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		seg := Segment{Text: d.Text}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			seg.Op = OpInsert
		case diffmatchpatch.DiffDelete:
			seg.Op = OpDelete
		default:
			seg.Op = OpEqual
		}
		out = append(out, seg)
	}
	return out
}

// Changed 判断差异中是否存在插入或删除
func Changed(segments []Segment) bool {
	for _, s := range segments {
		if s.Op != OpEqual {
			return true
		}
	}
	return false
}

// Merge 把 ours 相对 base 的修改应用到 theirs 上
// ok 为 false 表示有补丁无法定位，merged 仍返回尽力合并的结果
func Merge(base, theirs, ours string) (merged string, ok bool) {
	if ours == base || ours == theirs {
		return theirs, true
	}
	if theirs == base {
		return ours, true
	}

	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(base, ours)
	merged, applied := dmp.PatchApply(patches, theirs)

	ok = true
	for _, a := range applied {
		if !a {
			ok = false
			break
		}
	}
	return merged, ok
}

// Package timex provides a time type with a fixed JSON/DB layout
// Package timex 提供统一 JSON 与数据库格式的时间类型
package timex

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Layout JSON 输出格式
const Layout = "2006-01-02 15:04:05.000"

var parseLayouts = []string{
	Layout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// Time wraps time.Time and renders as Layout in JSON
type Time time.Time

// Now 当前时间
func Now() Time {
	return Time(time.Now())
}

// FromUnixMilli 由毫秒时间戳构造
func FromUnixMilli(ms int64) Time {
	return Time(time.UnixMilli(ms))
}

func (t Time) Time() time.Time {
	return time.Time(t)
}

func (t Time) Unix() int64 {
	return time.Time(t).Unix()
}

func (t Time) UnixMilli() int64 {
	return time.Time(t).UnixMilli()
}

func (t Time) UnixMicro() int64 {
	return time.Time(t).UnixMicro()
}

func (t Time) UnixNano() int64 {
	return time.Time(t).UnixNano()
}

func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Time) String() string {
	return time.Time(t).Format(Layout)
}

// MarshalJSON 以 Layout 格式输出
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON 解析 Layout 或 RFC3339 格式
func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == `""` || s == "null" {
		*t = Time{}
		return nil
	}
	if len(s) < 2 {
		return fmt.Errorf("timex: invalid time %s", s)
	}
	s = s[1 : len(s)-1]
	for _, layout := range parseLayouts {
		if v, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			*t = Time(v)
			return nil
		}
	}
	return fmt.Errorf("timex: invalid time %q", s)
}

// GormDataType 由各数据库方言决定具体列类型（sqlite/mysql datetime，postgres timestamptz）
func (Time) GormDataType() string {
	return "time"
}

// Value 实现 driver.Valuer
func (t Time) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return time.Time(t), nil
}

// Scan 实现 sql.Scanner
func (t *Time) Scan(v interface{}) error {
	switch value := v.(type) {
	case nil:
		*t = Time{}
	case time.Time:
		*t = Time(value)
	case string:
		return t.UnmarshalJSON([]byte(`"` + value + `"`))
	case []byte:
		return t.UnmarshalJSON([]byte(`"` + string(value) + `"`))
	default:
		return fmt.Errorf("timex: cannot scan %T", v)
	}
	return nil
}

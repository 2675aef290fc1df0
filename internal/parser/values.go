package parser

import (
	"strconv"
	"strings"
	"time"
)

// ParseAmount 容错解析金额（剥离货币符号、千分位、单位后缀）
func ParseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "，", "")
	s = strings.TrimPrefix(s, "￥")
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "元")
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dateLayouts 依序尝试的日期格式
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"2006-01-02 15:04:05",
	"2006年01月02日",
	"2006年1月2日",
}

// ParseDate 容错解析日期，返回是否落在合理区间（1990 年至当前年份次年）
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 1990 || t.Year() > time.Now().Year()+1 {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

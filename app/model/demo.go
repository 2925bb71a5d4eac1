package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DemoStatus 演示生成状态
type DemoStatus string

const (
	DemoStatusPending    DemoStatus = "pending"
	DemoStatusProcessing DemoStatus = "processing"
	DemoStatusCompleted  DemoStatus = "completed"
	DemoStatusFailed     DemoStatus = "failed"
)

// ParseDemoStatus 解析状态字符串，未知状态返回错误
func ParseDemoStatus(s string) (DemoStatus, error) {
	switch DemoStatus(s) {
	case DemoStatusPending, DemoStatusProcessing, DemoStatusCompleted, DemoStatusFailed:
		return DemoStatus(s), nil
	}
	return "", fmt.Errorf("未知的演示状态: %q", s)
}

// UnmarshalJSON 拒绝未知状态
func (s *DemoStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status, err := ParseDemoStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Rank 返回状态在生命周期中的顺序，completed 与 failed 同级
func (s DemoStatus) Rank() int {
	switch s {
	case DemoStatusPending:
		return 0
	case DemoStatusProcessing:
		return 1
	case DemoStatusCompleted, DemoStatusFailed:
		return 2
	}
	panic(fmt.Sprintf("未知的演示状态: %q", string(s)))
}

// Terminal 是否为终态
func (s DemoStatus) Terminal() bool {
	switch s {
	case DemoStatusPending, DemoStatusProcessing:
		return false
	case DemoStatusCompleted, DemoStatusFailed:
		return true
	}
	panic(fmt.Sprintf("未知的演示状态: %q", string(s)))
}

// Label 状态的展示文案
func (s DemoStatus) Label(progress int) string {
	switch s {
	case DemoStatusPending:
		return "排队中"
	case DemoStatusProcessing:
		return fmt.Sprintf("生成中 %d%%", progress)
	case DemoStatusCompleted:
		return "已完成"
	case DemoStatusFailed:
		return "生成失败"
	}
	panic(fmt.Sprintf("未知的演示状态: %q", string(s)))
}

// Step 演示中的一个步骤
type Step struct {
	StepNumber  int    `json:"step_number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Media       string `json:"media,omitempty"`
}

// Demo 服务端返回的演示快照
type Demo struct {
	ID              string     `json:"id"`
	Prompt          string     `json:"prompt"`
	Status          DemoStatus `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	VideoURL        string     `json:"video_url,omitempty"`
	ThumbnailURL    string     `json:"thumbnail_url,omitempty"`
	Duration        *float64   `json:"duration,omitempty"` // 秒
	FileSize        *int64     `json:"file_size,omitempty"` // 字节
	Language        string     `json:"language,omitempty"`
	Quality         string     `json:"quality,omitempty"`
	Voice           string     `json:"voice,omitempty"`
	Steps           []Step     `json:"steps"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Normalize 按 step_number 升序排列步骤并去重，进度限制在 0-100
func (d *Demo) Normalize() {
	if d.ProgressPercent < 0 {
		d.ProgressPercent = 0
	}
	if d.ProgressPercent > 100 {
		d.ProgressPercent = 100
	}

	if len(d.Steps) == 0 {
		return
	}
	sort.SliceStable(d.Steps, func(i, j int) bool {
		return d.Steps[i].StepNumber < d.Steps[j].StepNumber
	})
	steps := d.Steps[:1]
	for _, step := range d.Steps[1:] {
		if step.StepNumber == steps[len(steps)-1].StepNumber {
			continue
		}
		steps = append(steps, step)
	}
	d.Steps = steps
}

// Clone 深拷贝快照，避免调用方修改内部状态
func (d *Demo) Clone() *Demo {
	if d == nil {
		return nil
	}
	c := *d
	if d.Steps != nil {
		c.Steps = append([]Step(nil), d.Steps...)
	}
	if d.Duration != nil {
		v := *d.Duration
		c.Duration = &v
	}
	if d.FileSize != nil {
		v := *d.FileSize
		c.FileSize = &v
	}
	return &c
}

// HasVideo 视频是否已可用
func (d *Demo) HasVideo() bool {
	return d != nil && d.VideoURL != ""
}

// HistoryPage 历史记录分页
type HistoryPage struct {
	Items      []Demo `json:"demos"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
}

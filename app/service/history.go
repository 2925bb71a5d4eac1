package service

import (
	"context"
	"sort"
	"sync"

	"demo-engine/app/apiclient"
	"demo-engine/app/logger"
	"demo-engine/app/model"
)

// DefaultPageSize 每页条数
const DefaultPageSize = 10

// HistoryAPI 历史列表依赖的接口
type HistoryAPI interface {
	GetHistory(ctx context.Context, page, pageSize int) (*model.HistoryPage, error)
	DeleteDemo(ctx context.Context, id string) error
}

// SortCriterion 历史列表排序方式
type SortCriterion string

const (
	SortRecent   SortCriterion = "recent"
	SortOldest   SortCriterion = "oldest"
	SortDuration SortCriterion = "duration"
)

// ParseSortCriterion 解析排序方式
func ParseSortCriterion(s string) (SortCriterion, error) {
	switch SortCriterion(s) {
	case SortRecent, SortOldest, SortDuration:
		return SortCriterion(s), nil
	}
	return "", apiclient.NewValidationError("sort", "不支持的排序方式: "+s)
}

// HistoryList 单页历史记录。排序只作用于已加载的这一页，不会重新请求。
type HistoryList struct {
	api      HistoryAPI
	pageSize int
	logger   *logger.Logger

	mu         sync.Mutex
	items      []model.Demo // 服务端返回的顺序
	page       int
	totalPages int
	loaded     bool
	sortBy     SortCriterion
	lastErr    error
}

func NewHistoryList(api HistoryAPI, pageSize int, log *logger.Logger) *HistoryList {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &HistoryList{
		api:        api,
		pageSize:   pageSize,
		logger:     log,
		page:       1,
		totalPages: 1,
		sortBy:     SortRecent,
	}
}

// LoadPage 加载指定页，页码先限制在 [1, 已知总页数] 内。
// 失败时保留上一页的内容并返回错误。
func (h *HistoryList) LoadPage(ctx context.Context, page int) error {
	h.mu.Lock()
	page = clampPage(page, h.totalPages)
	h.mu.Unlock()

	result, err := h.api.GetHistory(ctx, page, h.pageSize)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.lastErr = err
		h.logger.Warnf("加载历史记录失败: 第 %d 页, 错误: %v", page, err)
		return err
	}

	h.items = append([]model.Demo(nil), result.Items...)
	h.page = page
	h.totalPages = result.TotalPages
	if h.totalPages < 1 {
		h.totalPages = 1
	}
	h.loaded = true
	h.lastErr = nil
	h.logger.Debugf("已加载历史记录: 第 %d/%d 页, %d 条", h.page, h.totalPages, len(h.items))
	return nil
}

// Sort 设置排序方式，只影响已加载页的展示顺序
func (h *HistoryList) Sort(criterion SortCriterion) error {
	if _, err := ParseSortCriterion(string(criterion)); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sortBy = criterion
	return nil
}

// Items 按当前排序方式返回本页条目副本
func (h *HistoryList) Items() []model.Demo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sortDemos(h.items, h.sortBy)
}

// Delete 服务端确认删除后才从本页移除
func (h *HistoryList) Delete(ctx context.Context, id string) error {
	if err := h.api.DeleteDemo(ctx, id); err != nil {
		h.mu.Lock()
		h.lastErr = err
		h.mu.Unlock()
		h.logger.Warnf("删除演示失败: DemoID=%s, 错误: %v", id, err)
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.items[:0:0]
	for _, d := range h.items {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	h.items = kept
	h.lastErr = nil
	return nil
}

func (h *HistoryList) Page() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.page
}

func (h *HistoryList) TotalPages() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalPages
}

func (h *HistoryList) SortBy() SortCriterion {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sortBy
}

// Loaded 是否已成功加载过任意一页
func (h *HistoryList) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded
}

func (h *HistoryList) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func clampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// sortDemos 稳定排序后的副本；按时长排序时没有时长的排在最后
func sortDemos(items []model.Demo, criterion SortCriterion) []model.Demo {
	sorted := append([]model.Demo(nil), items...)

	var less func(a, b model.Demo) bool
	switch criterion {
	case SortRecent:
		less = func(a, b model.Demo) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortOldest:
		less = func(a, b model.Demo) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortDuration:
		less = func(a, b model.Demo) bool {
			switch {
			case a.Duration == nil:
				return false
			case b.Duration == nil:
				return true
			}
			return *a.Duration > *b.Duration
		}
	default:
		return sorted
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"demo-engine/app/apiclient"
	"demo-engine/app/logger"
	"demo-engine/app/model"
	"demo-engine/app/scheduler"
)

const (
	// DefaultPollInterval 轮询间隔
	DefaultPollInterval = 3 * time.Second
	// DefaultQuota 免费版每月可生成的演示数
	DefaultQuota = 3
)

var errStopped = errors.New("控制器已停止")

// DemoAPI 生命周期控制器依赖的接口
type DemoAPI interface {
	GenerateDemo(ctx context.Context, prompt string, opts model.GenerateOptions) (string, error)
	GetDemo(ctx context.Context, id string) (*model.Demo, error)
	DownloadDemo(ctx context.Context, id string, w io.Writer) (int64, error)
	ShareDemo(ctx context.Context, id string) (string, error)
}

// LifecycleState 控制器状态
type LifecycleState int

const (
	StateIdle LifecycleState = iota
	StateSubmitting
	StatePolling
	StateCompleted
	StateFailed
	StateErrored
)

func (s LifecycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateErrored:
		return "errored"
	}
	return fmt.Sprintf("LifecycleState(%d)", int(s))
}

// Update 推送给订阅者的状态
type Update struct {
	State LifecycleState
	Demo  *model.Demo
	Err   error
}

// LifecycleOptions 控制器参数
type LifecycleOptions struct {
	Interval time.Duration
	Quota    int
}

// LifecycleStats 轮询统计
type LifecycleStats struct {
	Fetches int // 发出的 GetDemo 请求数
	Skipped int // 因上一请求未返回而跳过的触发次数
}

// DemoLifecycle 提交演示并轮询直到终态。
//
// 同一时刻最多只有一个 GetDemo 请求；请求未返回时到来的触发直接跳过，
// 因此快照总是按发起顺序应用。Stop 返回后订阅者不会再收到任何更新。
// 订阅回调串行执行，回调中可以调用 State、Snapshot 等只读方法，
// 但不要同步调用 Submit、Watch、Stop 等会改变状态的方法。
type DemoLifecycle struct {
	api      DemoAPI
	sched    scheduler.Scheduler
	interval time.Duration
	logger   *logger.Logger

	emitMu sync.Mutex // 串行化状态变更与回调

	mu        sync.Mutex
	state     LifecycleState
	demoID    string
	snapshot  *model.Demo
	lastErr   error
	quota     int
	inFlight  bool
	stopped   bool
	task      scheduler.Task
	ctx       context.Context
	cancel    context.CancelFunc
	listeners map[int]func(Update)
	nextID    int
	stats     LifecycleStats
}

// NewDemoLifecycle 创建处于 Idle 状态的控制器
func NewDemoLifecycle(api DemoAPI, sched scheduler.Scheduler, log *logger.Logger, opts LifecycleOptions) *DemoLifecycle {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DemoLifecycle{
		api:       api,
		sched:     sched,
		interval:  opts.Interval,
		logger:    log,
		quota:     opts.Quota,
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[int]func(Update)),
	}
}

// Subscribe 订阅状态更新，返回取消订阅函数
func (c *DemoLifecycle) Subscribe(fn func(Update)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Submit 提交生成请求，成功后转入轮询并返回演示 ID。
// 空提示词或额度用完时直接返回 ValidationError，不发请求。
func (c *DemoLifecycle) Submit(ctx context.Context, prompt string, opts model.GenerateOptions) (string, error) {
	prompt = apiclient.NormalizePrompt(prompt)

	var rejected error
	ok := c.transition(func() {
		switch {
		case c.state != StateIdle && c.state != StateErrored:
			rejected = apiclient.NewValidationError("state", "已有演示在处理中")
		case prompt == "":
			rejected = apiclient.NewValidationError("prompt", "请输入想学习的内容")
		case c.quota <= 0:
			rejected = apiclient.NewValidationError("quota", "本月生成次数已用完，升级套餐后继续使用")
		}
		if rejected != nil {
			c.lastErr = rejected
			return
		}
		c.state = StateSubmitting
		c.lastErr = nil
	})
	if !ok {
		return "", errStopped
	}
	if rejected != nil {
		return "", rejected
	}

	id, err := c.api.GenerateDemo(ctx, prompt, opts)
	if err != nil {
		c.logger.Warnf("提交演示失败: %v", err)
		c.transition(func() {
			c.state = StateErrored
			c.lastErr = err
		})
		return "", err
	}

	c.logger.Infof("演示已提交，开始轮询: DemoID=%s", id)
	c.transition(func() {
		c.quota--
		c.startPollingLocked(id)
	})
	return id, nil
}

// Watch 绑定已存在的演示并开始轮询
func (c *DemoLifecycle) Watch(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apiclient.NewValidationError("id", "演示 ID 为空")
	}

	var rejected error
	ok := c.transition(func() {
		if c.state != StateIdle && c.state != StateErrored {
			rejected = apiclient.NewValidationError("state", "已有演示在处理中")
			return
		}
		c.lastErr = nil
		c.startPollingLocked(id)
	})
	if !ok {
		return errStopped
	}
	return rejected
}

// startPollingLocked 进入轮询状态，调用方持有 mu
func (c *DemoLifecycle) startPollingLocked(id string) {
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.demoID = id
	c.state = StatePolling
	c.task = c.sched.Every(c.interval, c.tick)
}

// tick 一次轮询触发
func (c *DemoLifecycle) tick() {
	c.mu.Lock()
	if c.stopped || c.state != StatePolling {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		c.stats.Skipped++
		c.mu.Unlock()
		c.logger.Debugf("上一次轮询尚未返回，跳过本次: DemoID=%s", c.demoID)
		return
	}
	c.inFlight = true
	c.stats.Fetches++
	id, ctx := c.demoID, c.ctx
	c.mu.Unlock()

	demo, err := c.api.GetDemo(ctx, id)
	c.applyFetch(demo, err)
}

// applyFetch 应用一次轮询结果，到达终态时停止定时器
func (c *DemoLifecycle) applyFetch(demo *model.Demo, err error) {
	var (
		finished    scheduler.Task
		cancelFetch context.CancelFunc
	)
	if err == nil && demo == nil {
		err = &apiclient.ServerError{Message: "获取演示: 响应为空"}
	}

	c.transition(func() {
		c.inFlight = false
		defer func() {
			if finished != nil {
				cancelFetch = c.cancel
			}
		}()

		if err != nil {
			c.lastErr = err
			c.logger.Debugf("轮询失败，等待下次重试: DemoID=%s, 错误: %v", c.demoID, err)
			return
		}

		if prev := c.snapshot; prev != nil {
			if demo.Status.Rank() < prev.Status.Rank() {
				c.logger.Warnf("忽略状态回退的快照: DemoID=%s, %s -> %s", c.demoID, prev.Status, demo.Status)
				return
			}
			if demo.Status == model.DemoStatusProcessing && prev.Status == model.DemoStatusProcessing &&
				demo.ProgressPercent < prev.ProgressPercent {
				demo.ProgressPercent = prev.ProgressPercent
			}
		}

		c.snapshot = demo
		c.lastErr = nil

		switch demo.Status {
		case model.DemoStatusPending, model.DemoStatusProcessing:
			c.state = StatePolling
		case model.DemoStatusCompleted:
			c.state = StateCompleted
			finished = c.task
		case model.DemoStatusFailed:
			c.state = StateFailed
			finished = c.task
		}
	})

	if finished != nil {
		finished.Cancel()
		cancelFetch()
		c.logger.Infof("演示轮询结束: DemoID=%s, 状态: %s", c.DemoID(), c.State())
	}
}

// Stop 停止轮询并丢弃之后到达的响应，可重复调用
func (c *DemoLifecycle) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	task, cancel := c.task, c.cancel
	c.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
	cancel()

	// 等待正在进行的回调结束
	c.emitMu.Lock()
	c.emitMu.Unlock()
}

// Download 下载已完成的演示视频
func (c *DemoLifecycle) Download(ctx context.Context, w io.Writer) (int64, error) {
	id, err := c.requireCompleted()
	if err != nil {
		return 0, err
	}
	n, err := c.api.DownloadDemo(ctx, id, w)
	c.recordResult(err)
	return n, err
}

// Share 获取已完成演示的分享链接
func (c *DemoLifecycle) Share(ctx context.Context) (string, error) {
	id, err := c.requireCompleted()
	if err != nil {
		return "", err
	}
	url, err := c.api.ShareDemo(ctx, id)
	c.recordResult(err)
	return url, err
}

func (c *DemoLifecycle) requireCompleted() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCompleted {
		return "", apiclient.NewValidationError("state", "演示尚未生成完成")
	}
	return c.demoID, nil
}

// recordResult 成功清除上次错误，失败记录错误
func (c *DemoLifecycle) recordResult(err error) {
	c.transition(func() {
		c.lastErr = err
	})
}

// transition 在锁内修改状态并通知订阅者，控制器已停止时返回 false
func (c *DemoLifecycle) transition(mutate func()) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	mutate()
	update := Update{State: c.state, Demo: c.snapshot.Clone(), Err: c.lastErr}
	listeners := make([]func(Update), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(update)
	}
	return true
}

func (c *DemoLifecycle) State() LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot 最近一次成功获取的快照副本
func (c *DemoLifecycle) Snapshot() *model.Demo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot.Clone()
}

// Err 最近一次错误，之后的成功操作会清除它
func (c *DemoLifecycle) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *DemoLifecycle) DemoID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.demoID
}

func (c *DemoLifecycle) Quota() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota
}

// SetQuota 用服务端返回的额度覆盖本地值
func (c *DemoLifecycle) SetQuota(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quota = n
}

func (c *DemoLifecycle) Stats() LifecycleStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

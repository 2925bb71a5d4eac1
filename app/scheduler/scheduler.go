// Package scheduler 提供可取消的周期任务。
package scheduler

import (
	"sync"
	"time"

	"demo-engine/app/logger"

	"github.com/robfig/cron/v3"
)

// Task 已启动的周期任务句柄
type Task interface {
	// Cancel 停止后续触发，可重复调用，不等待正在执行的那一次
	Cancel()
}

// Scheduler 周期任务调度
type Scheduler interface {
	// Every 立即触发一次 fn，之后每隔 interval 触发；上一次还没返回时跳过本次
	Every(interval time.Duration, fn func()) Task
}

// CronScheduler 基于 robfig/cron 的调度器，间隔精度为秒
type CronScheduler struct {
	logger *logger.Logger
}

func NewCronScheduler(log *logger.Logger) *CronScheduler {
	return &CronScheduler{logger: log}
}

func (s *CronScheduler) Every(interval time.Duration, fn func()) Task {
	cronLog := s.logger.Cron()
	job := cron.NewChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	).Then(cron.FuncJob(fn))

	c := cron.New(cron.WithLogger(cronLog))
	c.Schedule(cron.Every(interval), job)
	c.Start()

	go job.Run()

	return &cronTask{cron: c}
}

type cronTask struct {
	cron *cron.Cron
	once sync.Once
}

func (t *cronTask) Cancel() {
	t.once.Do(func() {
		t.cron.Stop()
	})
}

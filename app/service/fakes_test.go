package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"demo-engine/app/apiclient"
	"demo-engine/app/model"
	"demo-engine/app/scheduler"
)

// manualScheduler 由测试手动触发的调度器
type manualScheduler struct {
	mu        sync.Mutex
	fn        func()
	interval  time.Duration
	started   int
	cancelled bool
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) scheduler.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn, s.interval = fn, interval
	s.started++
	s.cancelled = false
	return &manualTask{s: s}
}

// fire 在新协程中触发一次，返回本次触发结束的信号；任务已取消时不触发
func (s *manualScheduler) fire() <-chan struct{} {
	done := make(chan struct{})
	s.mu.Lock()
	fn, cancelled := s.fn, s.cancelled
	s.mu.Unlock()
	if fn == nil || cancelled {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		fn()
	}()
	return done
}

func (s *manualScheduler) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

type manualTask struct {
	s    *manualScheduler
	once sync.Once
}

func (t *manualTask) Cancel() {
	t.once.Do(func() {
		t.s.mu.Lock()
		t.s.cancelled = true
		t.s.mu.Unlock()
	})
}

type fetchResult struct {
	demo *model.Demo
	err  error
}

// fakeDemoAPI 每次 GetDemo 都阻塞到测试给出响应
type fakeDemoAPI struct {
	mu             sync.Mutex
	outstanding    int
	maxOutstanding int
	fetches        int
	ignoreCtx      bool

	entered   chan string
	responses chan fetchResult

	generateID    string
	generateErr   error
	generateCalls int
	lastPrompt    string

	video    []byte
	shareURL string
}

func newFakeDemoAPI() *fakeDemoAPI {
	return &fakeDemoAPI{
		entered:    make(chan string, 100),
		responses:  make(chan fetchResult),
		generateID: "demo-1",
		video:      []byte("mp4-bytes"),
		shareURL:   "https://share.example/s/demo-1",
	}
}

func (f *fakeDemoAPI) GenerateDemo(ctx context.Context, prompt string, opts model.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	f.lastPrompt = prompt
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.generateID, nil
}

func (f *fakeDemoAPI) GetDemo(ctx context.Context, id string) (*model.Demo, error) {
	f.mu.Lock()
	f.outstanding++
	f.fetches++
	if f.outstanding > f.maxOutstanding {
		f.maxOutstanding = f.outstanding
	}
	ignore := f.ignoreCtx
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.outstanding--
		f.mu.Unlock()
	}()

	f.entered <- id
	if ignore {
		r := <-f.responses
		return r.demo, r.err
	}
	select {
	case r := <-f.responses:
		return r.demo, r.err
	case <-ctx.Done():
		return nil, &apiclient.TransientError{Op: "获取演示", Err: ctx.Err()}
	}
}

func (f *fakeDemoAPI) DownloadDemo(ctx context.Context, id string, w io.Writer) (int64, error) {
	n, err := w.Write(f.video)
	return int64(n), err
}

func (f *fakeDemoAPI) ShareDemo(ctx context.Context, id string) (string, error) {
	return f.shareURL, nil
}

func (f *fakeDemoAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeDemoAPI) maxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxOutstanding
}

// startFetch 触发一次并等待 GetDemo 被调用
func startFetch(t *testing.T, sched *manualScheduler, api *fakeDemoAPI) <-chan struct{} {
	t.Helper()
	done := sched.fire()
	select {
	case <-api.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch was not started")
	}
	return done
}

// respond 给出在途请求的响应并等待本次触发结束
func respond(t *testing.T, api *fakeDemoAPI, done <-chan struct{}, r fetchResult) {
	t.Helper()
	select {
	case api.responses <- r:
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch waiting for a response")
	}
	waitDone(t, done)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tick did not finish")
	}
}

func processing(progress int) *model.Demo {
	return &model.Demo{
		ID:              "demo-1",
		Prompt:          "Teach me Jollof rice",
		Status:          model.DemoStatusProcessing,
		ProgressPercent: progress,
		Steps: []model.Step{
			{StepNumber: 1, Title: "Wash the rice"},
			{StepNumber: 2, Title: "Make the tomato base"},
		},
	}
}

func completed() *model.Demo {
	d := processing(100)
	d.Status = model.DemoStatusCompleted
	d.VideoURL = "https://cdn.example/demo-1.mp4"
	d.Steps = append(d.Steps, model.Step{StepNumber: 3, Title: "Simmer"})
	return d
}

var errReset = &apiclient.TransientError{Op: "获取演示", Err: errors.New("connection reset by peer")}

// recorder 记录订阅者收到的更新
type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) record(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func (r *recorder) count(state LifecycleState) int {
	n := 0
	prev := StateIdle
	for _, u := range r.all() {
		if u.State == state && prev != state {
			n++
		}
		prev = u.State
	}
	return n
}

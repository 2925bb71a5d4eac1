package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"demo-engine/app/apiclient"
	"demo-engine/app/logger"
	"demo-engine/app/model"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLifecycle(quota int) (*DemoLifecycle, *manualScheduler, *fakeDemoAPI, *recorder) {
	api := newFakeDemoAPI()
	sched := &manualScheduler{}
	c := NewDemoLifecycle(api, sched, logger.NewNop(), LifecycleOptions{Interval: time.Second, Quota: quota})
	rec := &recorder{}
	c.Subscribe(rec.record)
	return c, sched, api, rec
}

func TestSubmitStartsPolling(t *testing.T) {
	c, sched, api, _ := newTestLifecycle(3)
	defer c.Stop()

	id, err := c.Submit(context.Background(), "  Teach me Jollof rice ", model.GenerateOptions{}.WithDefaults())
	require.NoError(t, err)

	assert.Equal(t, "demo-1", id)
	assert.Equal(t, "demo-1", c.DemoID())
	assert.Equal(t, "Teach me Jollof rice", api.lastPrompt)
	assert.Equal(t, StatePolling, c.State())
	assert.Equal(t, 2, c.Quota())
	assert.Equal(t, 1, sched.started)
	assert.Equal(t, time.Second, sched.interval)
}

func TestSubmitRejectsLocally(t *testing.T) {
	c, _, api, _ := newTestLifecycle(3)
	defer c.Stop()

	_, err := c.Submit(context.Background(), "   ", model.GenerateOptions{}.WithDefaults())
	assert.True(t, apiclient.IsValidation(err))
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, err, c.Err())

	c.SetQuota(0)
	_, err = c.Submit(context.Background(), "Teach me Jollof rice", model.GenerateOptions{}.WithDefaults())
	assert.True(t, apiclient.IsValidation(err))

	assert.Equal(t, 0, api.generateCalls)
	assert.Equal(t, 0, c.Quota())
}

func TestSubmitFailureIsRecoverable(t *testing.T) {
	c, sched, api, _ := newTestLifecycle(3)
	defer c.Stop()

	api.generateErr = &apiclient.ClientError{Status: 400, Message: "prompt too long"}
	_, err := c.Submit(context.Background(), "Teach me Jollof rice", model.GenerateOptions{}.WithDefaults())
	require.Error(t, err)
	assert.Equal(t, StateErrored, c.State())
	assert.Equal(t, 3, c.Quota())
	assert.Equal(t, 0, sched.started)

	api.generateErr = nil
	_, err = c.Submit(context.Background(), "Teach me Jollof rice", model.GenerateOptions{}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, StatePolling, c.State())
	assert.Nil(t, c.Err())
}

func TestSubmitWhilePollingRejected(t *testing.T) {
	c, _, api, _ := newTestLifecycle(3)
	defer c.Stop()

	_, err := c.Submit(context.Background(), "Teach me Jollof rice", model.GenerateOptions{}.WithDefaults())
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), "Teach me egusi soup", model.GenerateOptions{}.WithDefaults())
	assert.True(t, apiclient.IsValidation(err))
	assert.Equal(t, 1, api.generateCalls)
	assert.Equal(t, 2, c.Quota())
}

func TestPollingUntilCompleted(t *testing.T) {
	c, sched, api, rec := newTestLifecycle(3)
	defer c.Stop()

	_, err := c.Share(context.Background())
	assert.True(t, apiclient.IsValidation(err))

	require.NoError(t, c.Watch("demo-1"))

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(40)})
	assert.Equal(t, 40, c.Snapshot().ProgressPercent)
	assert.Equal(t, StatePolling, c.State())

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(75)})
	assert.Equal(t, 75, c.Snapshot().ProgressPercent)

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: completed()})
	assert.Equal(t, StateCompleted, c.State())
	assert.True(t, sched.isCancelled())
	assert.Len(t, c.Snapshot().Steps, 3)
	assert.Equal(t, 1, rec.count(StateCompleted))

	// 终态之后不再发请求
	waitDone(t, sched.fire())
	assert.Equal(t, 3, api.fetchCount())
	assert.Equal(t, 3, c.Stats().Fetches)

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len("mp4-bytes")), n)
	assert.Equal(t, "mp4-bytes", buf.String())

	url, err := c.Share(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://share.example/s/demo-1", url)
}

func TestPollingFailedIsTerminal(t *testing.T) {
	c, sched, api, rec := newTestLifecycle(3)
	defer c.Stop()
	require.NoError(t, c.Watch("demo-1"))

	failed := processing(60)
	failed.Status = model.DemoStatusFailed
	respond(t, api, startFetch(t, sched, api), fetchResult{demo: failed})

	assert.Equal(t, StateFailed, c.State())
	assert.True(t, sched.isCancelled())
	assert.Equal(t, 1, rec.count(StateFailed))

	_, err := c.Download(context.Background(), &bytes.Buffer{})
	assert.True(t, apiclient.IsValidation(err))
}

func TestTickSkippedWhileFetchInFlight(t *testing.T) {
	c, sched, api, _ := newTestLifecycle(3)
	defer c.Stop()
	require.NoError(t, c.Watch("demo-1"))

	pending := startFetch(t, sched, api)
	waitDone(t, sched.fire())
	waitDone(t, sched.fire())

	assert.Equal(t, 1, api.fetchCount())
	assert.Equal(t, LifecycleStats{Fetches: 1, Skipped: 2}, c.Stats())

	respond(t, api, pending, fetchResult{demo: processing(10)})
	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(20)})
	assert.Equal(t, 1, api.maxInFlight())
}

func TestFetchErrorKeepsPolling(t *testing.T) {
	c, sched, api, _ := newTestLifecycle(3)
	defer c.Stop()
	require.NoError(t, c.Watch("demo-1"))

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(30)})
	respond(t, api, startFetch(t, sched, api), fetchResult{err: errReset})

	assert.Equal(t, StatePolling, c.State())
	assert.Equal(t, errReset, c.Err())
	assert.False(t, sched.isCancelled())
	assert.Equal(t, 30, c.Snapshot().ProgressPercent)

	respond(t, api, startFetch(t, sched, api), fetchResult{err: &apiclient.NotFoundError{Resource: "demo", ID: "demo-1"}})
	assert.Equal(t, StatePolling, c.State())

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(50)})
	assert.Nil(t, c.Err())
	assert.Equal(t, 50, c.Snapshot().ProgressPercent)
}

func TestEmptyResponseIsServerError(t *testing.T) {
	c, sched, api, _ := newTestLifecycle(3)
	defer c.Stop()
	require.NoError(t, c.Watch("demo-1"))

	respond(t, api, startFetch(t, sched, api), fetchResult{})
	assert.True(t, apiclient.IsServer(c.Err()))
	assert.Equal(t, StatePolling, c.State())
}

func TestStatusNeverRegresses(t *testing.T) {
	c, sched, api, _ := newTestLifecycle(3)
	defer c.Stop()
	require.NoError(t, c.Watch("demo-1"))

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(60)})

	pending := processing(0)
	pending.Status = model.DemoStatusPending
	respond(t, api, startFetch(t, sched, api), fetchResult{demo: pending})
	assert.Equal(t, model.DemoStatusProcessing, c.Snapshot().Status)
	assert.Equal(t, 60, c.Snapshot().ProgressPercent)

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(30)})
	assert.Equal(t, 60, c.Snapshot().ProgressPercent)
}

func TestStopDiscardsLateResponse(t *testing.T) {
	c, sched, api, rec := newTestLifecycle(3)
	api.ignoreCtx = true
	require.NoError(t, c.Watch("demo-1"))

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(40)})
	pending := startFetch(t, sched, api)

	c.Stop()
	before := len(rec.all())

	respond(t, api, pending, fetchResult{demo: completed()})

	assert.Len(t, rec.all(), before)
	assert.Equal(t, StatePolling, c.State())
	assert.Equal(t, 40, c.Snapshot().ProgressPercent)
	assert.True(t, sched.isCancelled())
}

func TestStopCancelsInFlightRequest(t *testing.T) {
	c, sched, api, rec := newTestLifecycle(3)
	require.NoError(t, c.Watch("demo-1"))

	pending := startFetch(t, sched, api)
	before := len(rec.all())
	c.Stop()
	waitDone(t, pending)

	assert.Len(t, rec.all(), before)
	assert.Nil(t, c.Err())
}

func TestStopIsIdempotent(t *testing.T) {
	c, _, _, _ := newTestLifecycle(3)
	c.Stop()
	c.Stop()

	assert.ErrorIs(t, c.Watch("demo-1"), errStopped)
	_, err := c.Submit(context.Background(), "Teach me Jollof rice", model.GenerateOptions{}.WithDefaults())
	assert.ErrorIs(t, err, errStopped)
}

func TestUnsubscribe(t *testing.T) {
	c, sched, api, _ := newTestLifecycle(3)
	defer c.Stop()

	extra := &recorder{}
	cancel := c.Subscribe(extra.record)
	require.NoError(t, c.Watch("demo-1"))
	cancel()

	respond(t, api, startFetch(t, sched, api), fetchResult{demo: processing(10)})
	assert.Len(t, extra.all(), 1)
}

// 任意触发与响应序列下，同时在途的请求不超过一个，终态之后不再请求
func TestAtMostOneFetchInFlight(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("single outstanding fetch", prop.ForAll(
		func(ops []int) bool {
			api := newFakeDemoAPI()
			sched := &manualScheduler{}
			c := NewDemoLifecycle(api, sched, logger.NewNop(), LifecycleOptions{Quota: 1})
			defer c.Stop()
			if err := c.Watch("demo-1"); err != nil {
				return false
			}

			var pending <-chan struct{}
			progress, terminal := 0, false
			for _, op := range ops {
				if op <= 2 {
					done := sched.fire()
					select {
					case <-api.entered:
						if pending != nil || terminal {
							return false
						}
						pending = done
					case <-done:
					}
					continue
				}
				if pending == nil {
					continue
				}
				var r fetchResult
				switch op {
				case 3:
					progress = min(progress+10, 99)
					r.demo = processing(progress)
				case 4:
					r.err = errReset
				default:
					r.demo = completed()
					terminal = true
				}
				api.responses <- r
				<-pending
				pending = nil
			}
			if pending != nil {
				api.responses <- fetchResult{demo: processing(progress)}
				<-pending
			}

			if terminal && c.State() != StateCompleted {
				return false
			}
			// 轮询失败只记录错误，不会进入 Errored
			if c.State() == StateErrored {
				return false
			}
			return api.maxInFlight() <= 1
		},
		gen.SliceOf(gen.IntRange(0, 5)),
	))

	properties.TestingRun(t)
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package hbsync_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/homer-conferencing/rtpcore/pkg/hbsync"
	"github.com/q191201771/naza/pkg/assert"
	tassert "github.com/stretchr/testify/assert"
)

func waitForWaiters(c *hbsync.Condition, n int) {
	for c.NumWaiters() != n {
		time.Sleep(time.Millisecond)
	}
}

func TestCondition_WaitTimeout(t *testing.T) {
	c := hbsync.NewCondition()
	m := hbsync.NewMutex()

	m.Lock()
	b := time.Now()
	ok := c.Wait(m, 100)
	cost := time.Since(b)
	m.Unlock()

	assert.Equal(t, false, ok)
	tassert.GreaterOrEqual(t, cost, 100*time.Millisecond)
	tassert.Less(t, cost, 150*time.Millisecond)
	assert.Equal(t, 0, c.NumWaiters())

	err := c.WaitTimeout(nil, 10)
	assert.Equal(t, true, errors.Is(err, base.ErrWaitTimeout))
}

func TestCondition_SignalOne(t *testing.T) {
	c := hbsync.NewCondition()
	m := hbsync.NewMutex()

	done := make(chan time.Time, 1)
	go func() {
		m.Lock()
		ok := c.Wait(m, 1000)
		wokeAt := time.Now()
		m.Unlock()
		tassert.True(t, ok)
		done <- wokeAt
	}()

	waitForWaiters(c, 1)
	signalAt := time.Now()
	assert.Equal(t, true, c.SignalOne())

	wokeAt := <-done
	tassert.Less(t, wokeAt.Sub(signalAt), 10*time.Millisecond)
}

func TestCondition_SignalOneWakesOldest(t *testing.T) {
	c := hbsync.NewCondition()

	order := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			if c.Wait(nil, 0) {
				order <- i
			}
		}(i)
		waitForWaiters(c, i+1)
	}

	c.SignalOne()
	assert.Equal(t, 0, <-order)
	assert.Equal(t, 1, c.NumWaiters())
	c.SignalOne()
	assert.Equal(t, 1, <-order)
}

func TestCondition_SignalAll(t *testing.T) {
	c := hbsync.NewCondition()
	m := hbsync.NewMutex()

	var wg sync.WaitGroup
	var mu sync.Mutex
	woken := 0
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock()
			ok := c.Wait(m, 0)
			m.Unlock()
			if ok {
				mu.Lock()
				woken++
				mu.Unlock()
			}
		}()
	}
	waitForWaiters(c, 3)
	c.SignalAll()
	wg.Wait()
	assert.Equal(t, 3, woken)
	assert.Equal(t, 0, c.NumWaiters())
}

func TestCondition_SignalWithoutWaiter(t *testing.T) {
	c := hbsync.NewCondition()
	assert.Equal(t, true, c.SignalOne())
	assert.Equal(t, true, c.SignalAll())

	// 信号不会被保存
	assert.Equal(t, false, c.Wait(nil, 20))
}

func TestCondition_Reset(t *testing.T) {
	c := hbsync.NewCondition()

	done := make(chan bool, 1)
	go func() {
		done <- c.Wait(nil, 0)
	}()
	waitForWaiters(c, 1)

	assert.Equal(t, true, c.Reset())
	assert.Equal(t, true, <-done)
	assert.Equal(t, 0, c.NumWaiters())

	// 和新建的对象表现相同
	assert.Equal(t, false, c.Wait(nil, 20))
}

func TestCondition_MutexReacquired(t *testing.T) {
	c := hbsync.NewCondition()
	m := hbsync.NewMutex()

	m.Lock()
	c.Wait(m, 10)
	// Wait返回后锁仍然被持有
	assert.Equal(t, false, m.TryLock())
	m.Unlock()
	assert.Equal(t, true, m.TryLock())
	m.Unlock()
}

func TestMutex_TryLockTimeout(t *testing.T) {
	m := hbsync.NewMutex()
	assert.Equal(t, true, m.TryLockTimeout(10))

	b := time.Now()
	assert.Equal(t, false, m.TryLockTimeout(50))
	tassert.GreaterOrEqual(t, time.Since(b), 50*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		m.Unlock()
	}()
	assert.Equal(t, true, m.TryLockTimeout(1000))
	m.Unlock()
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package hbsync

import (
	"sync"
	"time"

	"github.com/homer-conferencing/rtpcore/pkg/base"
)

// ICondition 带超时的条件变量
//
// 和pthread的语义保持一致：
// - 调用 Wait 时，调用方持有锁 m，等待期间 m 被释放，返回前重新持有 m
// - 信号不会被保存，没有等待者时调用 SignalOne 或 SignalAll 不产生任何效果
// - 允许虚假唤醒，调用方需要重新检查自己的条件
type ICondition interface {
	// Wait
	//
	// @param m:         可以为nil，此时在等待期间使用一个临时的私有锁
	// @param timeoutMs: 0表示一直等待
	//
	// @return 被唤醒返回true，超时返回false
	Wait(m sync.Locker, timeoutMs int) bool

	SignalOne() bool
	SignalAll() bool

	// Reset 恢复成新建时的状态，当前所有的等待者会被唤醒（属于虚假唤醒）
	Reset() bool
}

var _ ICondition = &Condition{}

type Condition struct {
	mu      sync.Mutex
	waiters []chan struct{} // 按等待的先后顺序排列
}

func NewCondition() *Condition {
	return &Condition{}
}

func (c *Condition) Wait(m sync.Locker, timeoutMs int) bool {
	if timeoutMs < 0 {
		Log.Warnf("invalid wait timeout, wait without timeout. timeout=%d", timeoutMs)
		timeoutMs = 0
	}

	if m == nil {
		pm := &sync.Mutex{}
		pm.Lock()
		defer pm.Unlock()
		m = pm
	}

	ch := make(chan struct{})
	c.mu.Lock()
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	m.Unlock()
	defer m.Lock()

	if timeoutMs == 0 {
		<-ch
		return true
	}

	t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer t.Stop()

	select {
	case <-ch:
		return true
	case <-t.C:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// 不在队列中了，说明超时的同时被唤醒了
	return !c.removeWaiter(ch)
}

// WaitTimeout 和 Wait 相同，超时时返回 base.ErrWaitTimeout
func (c *Condition) WaitTimeout(m sync.Locker, timeoutMs int) error {
	if !c.Wait(m, timeoutMs) {
		return base.ErrWaitTimeout
	}
	return nil
}

func (c *Condition) SignalOne() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) == 0 {
		return true
	}
	close(c.waiters[0])
	c.waiters[0] = nil
	c.waiters = c.waiters[1:]
	return true
}

func (c *Condition) SignalAll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wakeAll()
	return true
}

func (c *Condition) Reset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.waiters) != 0 {
		Log.Debugf("reset condition with waiters. num=%d", len(c.waiters))
	}
	c.wakeAll()
	c.waiters = nil
	return true
}

// NumWaiters 当前正在等待的数量
func (c *Condition) NumWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *Condition) wakeAll() {
	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = c.waiters[:0]
}

func (c *Condition) removeWaiter(ch chan struct{}) bool {
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

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
)

var _ sync.Locker = &Mutex{}

// Mutex 支持超时加锁的互斥锁，和 Condition 配对使用
//
// 注意，必须通过 NewMutex 创建
type Mutex struct {
	ch chan struct{}
}

func NewMutex() *Mutex {
	return &Mutex{
		ch: make(chan struct{}, 1),
	}
}

func (m *Mutex) Lock() {
	m.ch <- struct{}{}
}

func (m *Mutex) Unlock() {
	select {
	case <-m.ch:
	default:
		Log.Errorf("unlock of unlocked mutex. mutex=%p", m)
	}
}

func (m *Mutex) TryLock() bool {
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// TryLockTimeout
//
// @param timeoutMs: 0表示一直等待，和 Lock 相同
//
// @return 在超时时间内获取到锁返回true
func (m *Mutex) TryLockTimeout(timeoutMs int) bool {
	if timeoutMs <= 0 {
		m.Lock()
		return true
	}

	t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer t.Stop()
	select {
	case m.ch <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

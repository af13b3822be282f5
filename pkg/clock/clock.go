// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
// Package clock 提供墙上时间以及单调时间的读取，测试时可以替换成手动拨动的时钟
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	// Now 返回的time.Time同时带有墙上时间和单调时间读数，time.Sub使用单调时间计算
	Now() time.Time
}

var (
	_ Clock = SystemClock{}
	_ Clock = &MockClock{}
)

type SystemClock struct{}

func NewSystemClock() SystemClock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock 只在被调用 Set 或 Advance 时才会改变的时钟
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) Set(now time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Since 使用c计算从t开始经过的时间
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}

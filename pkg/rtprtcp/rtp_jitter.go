// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import "time"

// JitterCalculator rfc3550 A.8 Estimating the Interarrival Jitter
type JitterCalculator struct {
	clockRate int

	transit int64
	jitter  uint32
	started bool
}

func NewJitterCalculator(clockRate int) JitterCalculator {
	return JitterCalculator{
		clockRate: clockRate,
	}
}

// Feed
//
// @param arrival:   收到rtp包的本地时间
// @param timestamp: rtp包头中的时间戳
func (j *JitterCalculator) Feed(arrival time.Time, timestamp uint32) {
	// 物理时间和包时间的差值，都换算成包时间戳格式
	rate := int64(j.clockRate)
	transit := arrival.Unix()*rate + int64(arrival.Nanosecond())*rate/1e9 - int64(timestamp)

	// 第一次跳过
	if !j.started {
		j.started = true
		j.transit = transit
		return
	}

	// 这次差值，和上一次差值相减
	d := transit - j.transit
	j.transit = transit
	if d < 0 {
		d = -d
	}

	// 对应的get: return j.jitter >> 4
	// 注意，右边的计算结果肯定是正数
	j.jitter = j.jitter + uint32(d) - ((j.jitter + 8) >> 4)
}

// Jitter 单位是rtp时间戳
func (j *JitterCalculator) Jitter() uint32 {
	return j.jitter >> 4
}

// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import (
	"fmt"
	"math"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/q191201771/naza/pkg/nazaatomic"
)

const (
	VideoClockRate = 90000
	MpaClockRate   = 90000 // rfc3551 4.5.13
	G722ClockRate  = 8000  // rfc3551 4.5.2，历史原因，实际采样率是16000

	H261PayloadSizeMin = 64
	H261PayloadSizeMax = 65000
)

// GetRtpClockRate rtp时间戳的时钟频率
func GetRtpClockRate(stream base.StreamInfo) int {
	c := stream.Codec
	switch {
	case c.IsVideo():
		return VideoClockRate
	case c == base.CodecIdMp3:
		return MpaClockRate
	case c == base.CodecIdG722:
		return G722ClockRate
	case c == base.CodecIdOpus:
		return 48000 // rfc7587 4.1
	}
	if sr := stream.AudioSampleRate(); sr > 0 {
		return sr
	}
	return 8000
}

// CalculateClockRateFactor rtp时钟和编解码层pts时钟的比例
func CalculateClockRateFactor(rtpClock, codecClock int) float64 {
	if codecClock <= 0 {
		return 1
	}
	return float64(rtpClock) / float64(codecClock)
}

// Pts2RtpTimestamp 编解码层pts换算成rtp时间戳，四舍五入，截断到32位
func Pts2RtpTimestamp(pts int64, rtpClock, codecClock int) uint32 {
	return uint32(uint64(rescale(pts, int64(rtpClock), int64(codecClock))))
}

// RtpTimestamp2Pts 扩展后的rtp时间戳换算成编解码层pts，四舍五入
func RtpTimestamp2Pts(ext uint64, rtpClock, codecClock int) int64 {
	return rescale(int64(ext), int64(codecClock), int64(rtpClock))
}

// rescale v * num / den，四舍五入
func rescale(v, num, den int64) int64 {
	if num <= 0 || den <= 0 || num == den {
		return v
	}
	if v >= 0 && v <= math.MaxInt64/num {
		return (v*num + den/2) / den
	}
	return int64(math.Round(float64(v) * float64(num) / float64(den)))
}

var h261PayloadSizeMax nazaatomic.Int64

func init() {
	h261PayloadSizeMax.Store(int64(base.DefaultH261PayloadSizeMax))
}

// SetH261PayloadSizeMax 进程级别的h261单包最大负载，取值范围[64, 65000]
func SetH261PayloadSizeMax(n int) error {
	if n < H261PayloadSizeMin || n > H261PayloadSizeMax {
		return fmt.Errorf("%w. size=%d", base.ErrInvalidPayloadSize, n)
	}
	h261PayloadSizeMax.Store(int64(n))
	return nil
}

func GetH261PayloadSizeMax() int {
	return int(h261PayloadSizeMax.Load())
}

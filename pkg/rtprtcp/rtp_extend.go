// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package rtprtcp

// 将16位的序号和32位的时间戳扩展成不会翻转的64位值
//
// 扩展值的低16位（或低32位）和包头中的值相同，高位记录翻转的次数

type ExtendKind uint8

const (
	ExtendAdvance ExtendKind = iota + 1 // 正常前进，可能跳过了一部分值
	ExtendSame                          // 和上一个值相同
	ExtendLate                          // 迟到或乱序的值，扩展值保持不变
)

func (k ExtendKind) ReadableString() string {
	switch k {
	case ExtendAdvance:
		return "advance"
	case ExtendSame:
		return "same"
	case ExtendLate:
		return "late"
	}
	return "unknown"
}

const (
	seqRange         = uint64(1) << 16
	seqHalfRange     = uint64(1) << 15
	tsRange          = uint64(1) << 32
	tsHalfRange      = uint64(1) << 31
	seqLowMask       = seqRange - 1
	timestampLowMask = tsRange - 1
)

// ExtendSeq
//
// delta = (cur - prev) mod 2^16
//   - delta == 0            相同，即重复包
//   - 0 < delta < 2^15      前进，next = prev + delta
//   - delta >= 2^15         迟到的包，next = prev
func ExtendSeq(prev uint64, cur uint16) (next uint64, kind ExtendKind) {
	return extend(prev, uint64(cur), seqRange, seqHalfRange)
}

// ExtendTimestamp 和 ExtendSeq 相同，阈值是2^31
func ExtendTimestamp(prev uint64, cur uint32) (next uint64, kind ExtendKind) {
	return extend(prev, uint64(cur), tsRange, tsHalfRange)
}

func extend(prev, cur, rng, half uint64) (uint64, ExtendKind) {
	delta := (cur - (prev & (rng - 1))) & (rng - 1)
	switch {
	case delta == 0:
		return prev, ExtendSame
	case delta < half:
		return prev + delta, ExtendAdvance
	}
	return prev, ExtendLate
}

// SeqExtender 跟踪一路流的扩展序号
type SeqExtender struct {
	started bool
	ext     uint64

	// Wraps 翻转次数，ext = Wraps<<16 | 包头序号
	Wraps uint64

	// ConsecutiveWraps 两次翻转之间的距离小于半个取值范围的次数，正常情况下应该一直为0
	ConsecutiveWraps int
	lastWrapExt      uint64
}

// Feed
//
// @return ext:  扩展后的序号，迟到的包返回当前的扩展序号
// @return kind: 首个包返回 ExtendAdvance
func (s *SeqExtender) Feed(seq uint16) (ext uint64, kind ExtendKind) {
	if !s.started {
		s.started = true
		s.ext = uint64(seq)
		return s.ext, ExtendAdvance
	}

	next, kind := ExtendSeq(s.ext, seq)
	if kind == ExtendAdvance && next>>16 != s.ext>>16 {
		s.Wraps++
		if s.Wraps > 1 && next-s.lastWrapExt < seqHalfRange {
			s.ConsecutiveWraps++
			Log.Warnf("consecutive sequence number wraps. ext=%d, last wrap=%d, count=%d", next, s.lastWrapExt, s.ConsecutiveWraps)
		}
		s.lastWrapExt = next
	}
	s.ext = next
	return s.ext, kind
}

func (s *SeqExtender) Started() bool {
	return s.started
}

func (s *SeqExtender) Ext() uint64 {
	return s.ext
}

func (s *SeqExtender) Reset() {
	*s = SeqExtender{}
}

// TimestampExtender 跟踪一路流的扩展时间戳，同一帧的多个分片时间戳相同
type TimestampExtender struct {
	started bool
	ext     uint64

	Wraps uint64
}

func (t *TimestampExtender) Feed(ts uint32) (ext uint64, kind ExtendKind) {
	if !t.started {
		t.started = true
		t.ext = uint64(ts)
		return t.ext, ExtendAdvance
	}

	next, kind := ExtendTimestamp(t.ext, ts)
	if kind == ExtendAdvance && next>>32 != t.ext>>32 {
		t.Wraps++
	}
	t.ext = next
	return t.ext, kind
}

func (t *TimestampExtender) Started() bool {
	return t.started
}

func (t *TimestampExtender) Ext() uint64 {
	return t.ext
}

func (t *TimestampExtender) Reset() {
	*t = TimestampExtender{}
}

// LowBits 扩展时间戳对应的包头中的时间戳
func LowBits(ext uint64) uint32 {
	return uint32(ext & timestampLowMask)
}

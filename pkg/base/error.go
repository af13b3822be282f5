// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- 通用的 ---------------------------------------------------------------------------------------------------------

var (
	ErrShortBuffer = errors.New("rtpcore: buffer too short")
)

// ----- pkg/hbsync ----------------------------------------------------------------------------------------------------

var ErrWaitTimeout = errors.New("rtpcore.hbsync: wait timeout")

// ----- pkg/rtprtcp ---------------------------------------------------------------------------------------------------

var (
	ErrMalformedPacket    = errors.New("rtpcore.rtprtcp: malformed packet")
	ErrUnsupportedPayload = errors.New("rtpcore.rtprtcp: unsupported payload")
	ErrAlreadyOpen        = errors.New("rtpcore.rtprtcp: already open")
	ErrNotOpen            = errors.New("rtpcore.rtprtcp: not open")
	ErrPacketizer         = errors.New("rtpcore.rtprtcp: packetizer error")
	ErrInvalidPayloadSize = errors.New("rtpcore.rtprtcp: invalid payload size")
	ErrDuplicatePacket    = errors.New("rtpcore.rtprtcp: duplicate packet")
	ErrForeignSource      = errors.New("rtpcore.rtprtcp: packet from foreign source")
	ErrInvalidStreamInfo  = errors.New("rtpcore.rtprtcp: invalid stream info")

	// ErrSourceChanged 只作为信息使用，不会当成失败返回
	ErrSourceChanged = errors.New("rtpcore.rtprtcp: source changed")
)

func NewErrMalformedPacket(reason string, length int) error {
	return fmt.Errorf("%w. reason=%s, len=%d", ErrMalformedPacket, reason, length)
}

func NewErrUnsupportedPayload(payloadType uint8) error {
	return fmt.Errorf("%w. payload type=%d", ErrUnsupportedPayload, payloadType)
}

func NewErrInvalidStreamInfo(stream StreamInfo) error {
	return fmt.Errorf("%w. codec=%s, time base=%d", ErrInvalidStreamInfo, stream.Codec.ReadableString(), stream.TimeBase)
}

func NewErrPacketizer(err error) error {
	return fmt.Errorf("%w. err=%v", ErrPacketizer, err)
}

// ---------------------------------------------------------------------------------------------------------------------

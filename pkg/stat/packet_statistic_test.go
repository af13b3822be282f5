// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package stat_test

import (
	"testing"

	"github.com/homer-conferencing/rtpcore/pkg/stat"
	"github.com/q191201771/naza/pkg/assert"
)

func TestPacketStatistic(t *testing.T) {
	s := stat.NewPacketStatistic()
	s.OnPacketSent(100)
	s.OnPacketSent(200)
	s.OnPacketReceived(50)
	s.OnPacketLost(2)
	s.OnPacketLost(1)
	s.OnPacketDropped(7)
	s.SetJitter(90)

	st := s.GetStat()
	assert.Equal(t, uint64(2), st.SentPackets)
	assert.Equal(t, uint64(300), st.SentBytes)
	assert.Equal(t, uint64(1), st.ReceivedPackets)
	assert.Equal(t, uint64(50), st.ReceivedBytes)
	assert.Equal(t, uint64(3), st.LostPackets)
	assert.Equal(t, uint64(1), st.DroppedPackets)
	assert.Equal(t, uint32(90), st.Jitter)
	assert.Equal(t, true, st.SendBitrate >= 0)
}

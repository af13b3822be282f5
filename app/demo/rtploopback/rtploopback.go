// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"sync"
	"time"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/homer-conferencing/rtpcore/pkg/rtprtcp"
	"github.com/homer-conferencing/rtpcore/pkg/rtpsession"
	"github.com/homer-conferencing/rtpcore/pkg/stat"
	"github.com/q191201771/naza/pkg/bininfo"
	"github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/naza/pkg/nazanet"
)

// 本机回环的rtp收发示例
//
// 一个会话打包合成的帧，经过udp发送给自己，另一个会话解包并统计丢包、相对丢包率和同步参考值
//
// Usage of ./bin/rtploopback:
//   -c string
//     specify conf file
//   -v show bin info
// Example:
//   ./bin/rtploopback -c ./conf/rtploopback.conf.json

func main() {
	confFile := parseFlag()
	config := loadConf(confFile)
	initLog(config.Log)
	nazalog.Infof("bininfo: %s", bininfo.StringifySingleLine())
	nazalog.Infof("%s", base.RtpCoreFullInfo)

	if err := rtprtcp.SetH261PayloadSizeMax(config.H261PayloadSizeMax); err != nil {
		nazalog.Errorf("set h261 payload size max failed. err=%+v", err)
		os.Exit(1)
	}

	stream, err := makeStreamInfo(config)
	if err != nil {
		nazalog.Errorf("%+v", err)
		os.Exit(1)
	}

	run(config, stream)
	nazalog.Info("bye.")
}

func makeStreamInfo(config *Config) (base.StreamInfo, error) {
	pt, ok := rtprtcp.CodecToPayloadId(config.Codec)
	if !ok {
		return base.StreamInfo{}, fmt.Errorf("codec not supported. codec=%s", config.Codec)
	}
	stream := base.StreamInfo{
		Codec:    rtprtcp.PayloadIdToCodecId(pt),
		TimeBase: 1000,
	}
	if stream.Codec.IsAudio() {
		stream.SampleRate = config.SampleRate
		stream.Channels = 1
		stream.TimeBase = config.SampleRate
	}
	return stream, nil
}

func run(config *Config, stream base.StreamInfo) {
	uk := base.GenUkLoopback()

	port := uint16(config.LocalPort)
	if port == 0 {
		var err error
		pool := nazanet.NewAvailUdpConnPool(20000, 30000)
		port, err = pool.Peek()
		if err != nil {
			nazalog.Errorf("[%s] peek udp port failed. err=%+v", uk, err)
			return
		}
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	recvConn, err := nazanet.NewUdpConnection(func(option *nazanet.UdpConnectionOption) {
		option.LAddr = addr
		option.MaxReadPacketSize = rtprtcp.MaxRtpRtcpPacketSize
	})
	if err != nil {
		nazalog.Errorf("[%s] listen failed. addr=%s, err=%+v", uk, addr, err)
		return
	}
	sendConn, err := nazanet.NewUdpConnection(func(option *nazanet.UdpConnectionOption) {
		option.RAddr = addr
	})
	if err != nil {
		nazalog.Errorf("[%s] dial failed. addr=%s, err=%+v", uk, addr, err)
		return
	}

	sendStat := stat.NewPacketStatistic()
	recvStat := stat.NewPacketStatistic()

	sender := rtpsession.NewSession()
	sender.RegisterPacketStatistic(sendStat)
	receiver := rtpsession.NewSession()
	receiver.RegisterPacketStatistic(recvStat)
	if err = sender.Open("127.0.0.1", int(port), stream); err != nil {
		nazalog.Errorf("[%s] open sender failed. err=%+v", uk, err)
		return
	}
	if err = receiver.Open("127.0.0.1", int(port), stream); err != nil {
		nazalog.Errorf("[%s] open receiver failed. err=%+v", uk, err)
		return
	}
	nazalog.Infof("[%s] loopback start. addr=%s, codec=%s, sender=%s, receiver=%s",
		uk, addr, stream.Codec.ReadableString(), sender.UniqueKey(), receiver.UniqueKey())

	var frameCount, incompleteCount int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = recvConn.RunLoop(func(b []byte, raddr *net.UDPAddr, err error) bool {
			if err != nil {
				return false
			}
			ret, err := receiver.Parse(b, false)
			if err != nil {
				nazalog.Warnf("[%s] parse failed. len=%d, err=%+v", uk, len(b), err)
				return true
			}
			if ret.SourceChanged {
				nazalog.Infof("[%s] source changed. ssrc=%d", uk, ret.Header.Ssrc)
			}
			for _, f := range ret.Frames {
				frameCount++
				if !f.Complete {
					incompleteCount++
				}
			}
			return true
		})
	}()

	go func() {
		for receiver.WaitSynchronization(0) {
			ntp, pts := receiver.GetSynchronizationReference()
			nazalog.Infof("[%s] sync reference. ntp=%d, pts=%d, relative loss=%.3f",
				uk, ntp, pts, receiver.GetRelativeLoss())
		}
	}()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(time.Second):
				s := sendStat.GetStat()
				r := recvStat.GetStat()
				nazalog.Debugf("[%s] send bitrate=%.3fkbit/s, recv bitrate=%.3fkbit/s, lost=%d, jitter=%d",
					uk, s.SendBitrate, r.RecvBitrate, r.LostPackets, r.Jitter)
			}
		}
	}()

	var rtpCount int
	frame := make([]byte, config.FrameSize)
	for i := 0; i < config.FrameNum; i++ {
		rand.Read(frame)

		var pts int64
		if stream.Codec.IsAudio() {
			pts = int64(i * config.FrameSize)
		} else {
			pts = int64(i * config.FrameIntervalMs)
		}

		blob, err := sender.Create(frame, pts)
		if err != nil {
			nazalog.Errorf("[%s] create failed. err=%+v", uk, err)
			continue
		}
		for _, pkt := range blob.Packets {
			if !pkt.IsRtcp {
				rtpCount++
				if config.DropEveryN > 0 && rtpCount%config.DropEveryN == 0 {
					continue
				}
			}
			if err := sendConn.Write(pkt.Raw); err != nil {
				nazalog.Warnf("[%s] write failed. err=%+v", uk, err)
			}
		}
		time.Sleep(time.Duration(config.FrameIntervalMs) * time.Millisecond)
	}

	blob, _ := sender.Close()
	for _, pkt := range blob.Packets {
		_ = sendConn.Write(pkt.Raw)
	}
	time.Sleep(200 * time.Millisecond)

	_, _ = receiver.Close()
	_ = sendConn.Dispose()
	_ = recvConn.Dispose()
	wg.Wait()
	close(done)

	nazalog.Infof("[%s] loopback done. frames=%d, incomplete=%d, lost=%d, relative loss=%.3f, send=%+v, recv=%+v",
		uk, frameCount, incompleteCount, receiver.GetLostPackets(), receiver.GetRelativeLoss(), sendStat.GetStat(), recvStat.GetStat())
}

func parseFlag() string {
	binInfoFlag := flag.Bool("v", false, "show bin info")
	cf := flag.String("c", "", "specify conf file")
	flag.Parse()
	if *binInfoFlag {
		_, _ = fmt.Fprint(os.Stderr, bininfo.StringifyMultiLine())
		os.Exit(0)
	}
	if *cf == "" {
		flag.Usage()
		_, _ = fmt.Fprintf(os.Stderr, `
Example:
  ./bin/rtploopback -c ./conf/rtploopback.conf.json
`)
		os.Exit(1)
	}
	return *cf
}

func loadConf(confFile string) *Config {
	config, err := LoadConf(confFile)
	if err != nil {
		nazalog.Errorf("load conf failed. file=%s err=%+v", confFile, err)
		os.Exit(1)
	}
	nazalog.Infof("load conf file succ. file=%s content=%+v", confFile, config)
	return config
}

func initLog(opt nazalog.Option) {
	if err := nazalog.Init(func(option *nazalog.Option) {
		*option = opt
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "initial log failed. err=%+v\n", err)
		os.Exit(1)
	}
	nazalog.Info("initial log succ.")
}

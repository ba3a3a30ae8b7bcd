package webrtc

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

const opusPayloadType = 111

// peer wraps the underlying PeerConnection with the local opus track used to
// carry microphone audio upstream.
type peer struct {
	pc         *webrtc.PeerConnection
	audioTrack *webrtc.TrackLocalStaticRTP

	mu        sync.Mutex
	seq       uint16
	timestamp uint32
	ssrc      uint32
}

func newPeer(pc *webrtc.PeerConnection) (*peer, error) {
	var ssrcBytes [4]byte
	if _, err := rand.Read(ssrcBytes[:]); err != nil {
		return nil, err
	}
	ssrc := binary.BigEndian.Uint32(ssrcBytes[:])

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"mic-audio",
	)
	if err != nil {
		return nil, err
	}

	if _, err := pc.AddTrack(track); err != nil {
		return nil, err
	}

	return &peer{
		pc:         pc,
		audioTrack: track,
		ssrc:       ssrc,
	}, nil
}

// writeOpus packetizes one opus frame and writes it to the local track.
// samples advances the RTP timestamp by the frame's sample count.
func (p *peer) writeOpus(opusData []byte, samples int) error {
	p.mu.Lock()
	seq := p.seq
	ts := p.timestamp
	p.seq++
	p.timestamp += uint32(samples)
	p.mu.Unlock()

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           p.ssrc,
		},
		Payload: opusData,
	}

	data, err := pkt.Marshal()
	if err != nil {
		return err
	}

	_, err = p.audioTrack.Write(data)
	return err
}

func (p *peer) Close() error {
	return p.pc.Close()
}

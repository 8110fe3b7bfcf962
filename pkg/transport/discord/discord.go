// Package discord provides a [transport.Client] backed by Discord voice
// channels via the bwmarrin/discordgo library. It bridges Talkgate's 10 ms
// mono float32 frames to Discord's 20 ms stereo Opus packets.
//
// The client requires an active *discordgo.Session (owned by the caller) plus
// a guild and voice channel ID. Each CreateVoiceSink call joins the channel
// and returns a sink bound to that voice connection; closing the sink leaves
// the channel.
package discord

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"

	"github.com/MrWong99/talkgate/pkg/transport"
)

// Discord voice uses 48 kHz stereo Opus at 20 ms frame size.
const (
	opusSampleRate  = 48000
	opusChannels    = 2
	opusFrameSizeMs = 20
	// opusFrameSize is the number of samples per channel per 20 ms packet.
	opusFrameSize = opusSampleRate * opusFrameSizeMs / 1000 // 960
	// maxOpusBytes bounds the encoded packet size handed to gopus.
	maxOpusBytes = 4000
)

// Compile-time interface assertion.
var _ transport.Client = (*Client)(nil)

// Client implements [transport.Client] over a discordgo voice connection.
// It is safe for concurrent use.
type Client struct {
	session   *discordgo.Session
	guildID   string
	channelID string
}

// New creates a Client for the given session, guild, and voice channel.
func New(session *discordgo.Session, guildID, channelID string) *Client {
	return &Client{session: session, guildID: guildID, channelID: channelID}
}

// CreateVoiceSink joins the configured voice channel and returns a sink that
// encodes frames to Opus and ships them over the connection. mute=false (we
// send audio), deaf=true (we never consume incoming audio).
func (c *Client) CreateVoiceSink(ctx context.Context) (transport.Sink, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("discord: create sink: %w", err)
	}

	vc, err := c.session.ChannelVoiceJoin(c.guildID, c.channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("discord: join voice channel %q: %w", c.channelID, err)
	}

	enc, err := gopus.NewEncoder(opusSampleRate, opusChannels, gopus.Audio)
	if err != nil {
		_ = vc.Disconnect()
		return nil, fmt.Errorf("discord: create opus encoder: %w", err)
	}

	if err := vc.Speaking(true); err != nil {
		_ = vc.Disconnect()
		return nil, fmt.Errorf("discord: set speaking: %w", err)
	}

	return &sink{vc: vc, enc: enc}, nil
}

// sink accumulates mono float32 frames, duplicates them to stereo int16, and
// emits one Opus packet per 20 ms of audio. A single talking episode owns one
// sink; it is not safe for concurrent use.
type sink struct {
	vc  *discordgo.VoiceConnection
	enc *gopus.Encoder

	// pcm holds interleaved stereo int16 samples awaiting a full packet.
	pcm []int16

	closeOnce sync.Once
	closeErr  error
}

// WriteFrame implements [transport.Sink]. The send into OpusSend blocks when
// discordgo's UDP writer falls behind, which is the backpressure path.
func (s *sink) WriteFrame(ctx context.Context, frame []float32) error {
	for _, v := range frame {
		sample := floatToInt16(v)
		s.pcm = append(s.pcm, sample, sample)
	}

	const packetSamples = opusFrameSize * opusChannels
	for len(s.pcm) >= packetSamples {
		packet, err := s.enc.Encode(s.pcm[:packetSamples], opusFrameSize, maxOpusBytes)
		if err != nil {
			return fmt.Errorf("discord: opus encode: %w", err)
		}

		select {
		case s.vc.OpusSend <- packet:
		case <-ctx.Done():
			return fmt.Errorf("discord: send frame: %w", ctx.Err())
		}

		rest := make([]int16, len(s.pcm)-packetSamples)
		copy(rest, s.pcm[packetSamples:])
		s.pcm = rest
	}
	return nil
}

// Close implements [transport.Sink]. Audio shorter than one Opus packet is
// dropped; padding a final partial packet with silence buys nothing for a
// stream that has already ended.
func (s *sink) Close() error {
	s.closeOnce.Do(func() {
		s.pcm = nil
		if err := s.vc.Speaking(false); err != nil {
			s.closeErr = fmt.Errorf("discord: clear speaking: %w", err)
		}
		if err := s.vc.Disconnect(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("discord: disconnect: %w", err)
		}
	})
	return s.closeErr
}

// floatToInt16 converts a [-1, 1] float sample to int16, clamping overshoot.
func floatToInt16(v float32) int16 {
	scaled := v * math.MaxInt16
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

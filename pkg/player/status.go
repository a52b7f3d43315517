package player

import "github.com/drgolem/liteplayer/pkg/types"

// GetPosition returns the current playback position in milliseconds, based
// on frames actually written to the sink so far.
func (p *Player) GetPosition() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outRate == 0 {
		return 0
	}
	return p.playedFrames * 1000 / int64(p.outRate)
}

// GetDuration returns the stream's total duration in milliseconds, or -1 if
// unknown (spec.md §4.3: not every container carries duration metadata).
func (p *Player) GetDuration() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mediaInfo == nil {
		return -1
	}
	return p.mediaInfo.Duration()
}

// GetPlaybackStatus reports a snapshot of the player's current playback
// state, mirroring the teacher's audioplayer.Player status query.
func (p *Player) GetPlaybackStatus() types.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := types.PlaybackStatus{
		URL:        p.url,
		State:      p.state,
		DurationMs: -1,
	}
	if p.outRate != 0 {
		status.PositionMs = p.playedFrames * 1000 / int64(p.outRate)
	}
	if p.mediaInfo != nil {
		status.DurationMs = p.mediaInfo.Duration()
	}
	status.SampleRate = p.outRate
	status.Channels = p.outChannels
	status.BitsPerSample = p.outBits
	if p.pcmRing != nil {
		status.BufferAvailable = p.pcmRing.AvailableRead()
		status.BufferCapacity = p.pcmRing.Size()
	}
	return status
}

package proc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"podcastapi/internal/app/podcastapi/podcast"
)

// ErrUnsupportedAudio is returned by AudioProbe for formats it can't read
var ErrUnsupportedAudio = errors.New("unsupported audio format")

// Prober reads audio metadata of a file
type Prober interface {
	Probe(r io.ReadSeeker) (*podcast.Audio, error)
}

// AudioProbe reads mpeg audio and flac files
type AudioProbe struct{}

// Probe detects the container of r and reads its metadata
func (a *AudioProbe) Probe(r io.ReadSeeker) (*podcast.Audio, error) {
	if err := rewind(r); err != nil {
		return nil, err
	}
	_, typ, err := tag.Identify(r)
	if err != nil {
		typ = tag.UnknownFileType
	}
	if err := rewind(r); err != nil {
		return nil, err
	}

	switch typ {
	case tag.FLAC:
		return a.probeFLAC(r)
	case tag.MP3, tag.UnknownFileType:
		// unidentified content is read as mpeg audio only if a frame starts right at the top
		return a.probeMP3(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedAudio, typ)
}

// probeMP3 walks mpeg frames. The first frame has to follow the id3v2 tag directly and every
// next one the previous frame, with the same layer and sample rate.
func (a *AudioProbe) probeMP3(r io.ReadSeeker) (*podcast.Audio, error) {
	declared := declaredLength(r)
	offset, err := audioOffset(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	decoder := mp3.NewDecoder(r)
	var frame mp3.Frame
	var total time.Duration
	var frames, bits int64
	var sampleRate mp3.FrameSampleRate
	var layer mp3.FrameLayer
	var mode mp3.FrameChannelMode
	bitRates := map[mp3.FrameBitRate]struct{}{}

	for {
		skipped := 0
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if frames > 0 && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedAudio, err)
		}
		if skipped > 0 {
			return nil, fmt.Errorf("%w: %d bytes of garbage after frame %d", ErrUnsupportedAudio, skipped, frames)
		}

		header := frame.Header()
		if frames == 0 {
			sampleRate, layer, mode = header.SampleRate(), header.Layer(), header.ChannelMode()
		} else if header.SampleRate() != sampleRate || header.Layer() != layer {
			return nil, fmt.Errorf("%w: inconsistent frame %d", ErrUnsupportedAudio, frames)
		}
		bitRates[header.BitRate()] = struct{}{}
		bits += int64(frame.Size()) * 8
		total += frame.Duration()
		frames++
	}
	if total <= 0 {
		return nil, ErrUnsupportedAudio
	}

	channels := int64(2)
	if mode == mp3.SingleChannel {
		channels = 1
	}

	length := int64(math.Round(total.Seconds()))
	if declared > 0 {
		length = int64(math.Round(float64(declared) / 1000))
	}

	return &podcast.Audio{
		TrackLength:     length,
		BitRate:         int64(math.Round(float64(bits) / total.Seconds())),
		SampleRate:      int64(sampleRate),
		Channels:        channels,
		VariableBitRate: len(bitRates) > 1,
	}, nil
}

// audioOffset returns the position of the first mpeg frame, right after the id3v2 tag if any
func audioOffset(r io.ReadSeeker) (int64, error) {
	if err := rewind(r); err != nil {
		return 0, err
	}
	var head [10]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedAudio, err)
	}

	var offset int64
	if string(head[:3]) == "ID3" {
		// tag size is syncsafe, 7 bits per byte, footer adds another header
		offset = 10 + (int64(head[6]&0x7F)<<21 | int64(head[7]&0x7F)<<14 | int64(head[8]&0x7F)<<7 | int64(head[9]&0x7F))
		if head[5]&0x10 != 0 {
			offset += 10
		}
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return 0, err
		}
		if _, err := io.ReadFull(r, head[:4]); err != nil {
			return 0, fmt.Errorf("%w: no frame after id3 tag", ErrUnsupportedAudio)
		}
	}

	if !frameSync(head[:4]) {
		return 0, fmt.Errorf("%w: no mpeg frame at %d", ErrUnsupportedAudio, offset)
	}
	return offset, nil
}

// frameSync checks b holds a valid mpeg audio frame header
func frameSync(b []byte) bool {
	if len(b) < 4 || b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return false
	}
	version, layer := (b[1]>>3)&0x03, (b[1]>>1)&0x03
	bitRate, sampleRate := b[2]>>4, (b[2]>>2)&0x03
	return version != 1 && layer != 0 && bitRate != 0 && bitRate != 0x0F && sampleRate != 0x03
}

// declaredLength returns TLEN of the id3v2 tag in milliseconds or 0
func declaredLength(r io.Reader) int64 {
	id3, err := id3v2.ParseReader(r, id3v2.Options{Parse: true, ParseFrames: []string{"Length"}})
	if err != nil {
		return 0
	}
	frame := id3.GetTextFrame(id3.CommonID("Length"))
	ms, err := strconv.ParseInt(strings.TrimSpace(frame.Text), 10, 64)
	if err != nil || ms <= 0 {
		return 0
	}
	return ms
}

// probeFLAC reads STREAMINFO, always the first metadata block of a flac stream
func (a *AudioProbe) probeFLAC(r io.ReadSeeker) (*podcast.Audio, error) {
	var head [8]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	if string(head[:4]) != "fLaC" || head[4]&0x7F != 0 {
		return nil, fmt.Errorf("%w: no flac streaminfo", ErrUnsupportedAudio)
	}

	var info [34]byte
	if _, err := io.ReadFull(r, info[:]); err != nil {
		return nil, err
	}
	// sample rate 20 bits, channels-1 3 bits, bits per sample-1 5 bits, total samples 36 bits
	packed := binary.BigEndian.Uint64(info[10:18])
	sampleRate := int64(packed >> 44)
	channels := int64((packed>>41)&0x07) + 1
	samples := int64(packed & 0xFFFFFFFFF)
	if sampleRate == 0 || samples == 0 {
		return nil, fmt.Errorf("%w: empty flac stream", ErrUnsupportedAudio)
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	seconds := float64(samples) / float64(sampleRate)

	return &podcast.Audio{
		TrackLength:     int64(math.Round(seconds)),
		BitRate:         int64(math.Round(float64(size) * 8 / seconds)),
		SampleRate:      sampleRate,
		Channels:        channels,
		VariableBitRate: true,
		Lossless:        true,
	}, nil
}

package proc

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mp3Frames makes n bare mpeg1 layer III frames, 128kbit 44.1kHz stereo
func mp3Frames(n int) []byte {
	return repeatFrame([]byte{0xFF, 0xFB, 0x90, 0x00}, 417, n)
}

// mp3LowFrames makes n 64kbit frames
func mp3LowFrames(n int) []byte {
	return repeatFrame([]byte{0xFF, 0xFB, 0x50, 0x00}, 208, n)
}

func repeatFrame(header []byte, size, n int) []byte {
	frame := make([]byte, size)
	copy(frame, header)
	return bytes.Repeat(frame, n)
}

// flacStream makes a flac stream with STREAMINFO only
func flacStream(sampleRate, channels, samples uint64) []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	buf.Write([]byte{0x80, 0x00, 0x00, 34}) // last block, STREAMINFO, 34 bytes

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096)
	binary.BigEndian.PutUint16(info[2:4], 4096)
	packed := sampleRate<<44 | (channels-1)<<41 | 15<<36 | samples
	binary.BigEndian.PutUint64(info[10:18], packed)
	buf.Write(info)
	return buf.Bytes()
}

// wavFile makes a riff wave file of 44.1kHz 16 bit stereo pcm. The samples carry
// mpeg-like sync words to make sure they are never taken for frames.
func wavFile(seconds float64) []byte {
	dataSize := uint32(seconds * 44100 * 4)
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{uint32(16), uint16(1), uint16(2), uint32(44100), uint32(44100 * 4), uint16(4), uint16(16)} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataSize)

	pattern := []byte{0xFF, 0xFB, 0x90, 0x00, 0x12, 0x34, 0xFF, 0xE3}
	for i := uint32(0); i < dataSize; i++ {
		buf.WriteByte(pattern[int(i)%len(pattern)])
	}
	return buf.Bytes()
}

// id3Tagged prefixes data with an empty id3v2.3 tag of padding bytes
func id3Tagged(padding byte, data []byte) []byte {
	tag := append([]byte{'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, padding}, make([]byte, padding)...)
	return append(tag, data...)
}

func TestAudioProbeMP3(t *testing.T) {
	p := &AudioProbe{}

	// 383 frames of 1152 samples is ten seconds
	audio, err := p.Probe(bytes.NewReader(mp3Frames(383)))
	require.NoError(t, err)
	assert.Equal(t, int64(10), audio.TrackLength)
	assert.Equal(t, int64(44100), audio.SampleRate)
	assert.Equal(t, int64(2), audio.Channels)
	assert.InDelta(t, 128000, audio.BitRate, 1000)
	assert.False(t, audio.VariableBitRate)
	assert.False(t, audio.Lossless)
}

func TestAudioProbeMP3AfterID3(t *testing.T) {
	audio, err := (&AudioProbe{}).Probe(bytes.NewReader(id3Tagged(20, mp3Frames(383))))
	require.NoError(t, err)
	assert.Equal(t, int64(10), audio.TrackLength)
	assert.Equal(t, int64(44100), audio.SampleRate)
}

func TestAudioProbeMP3Variable(t *testing.T) {
	data := append(mp3Frames(100), mp3LowFrames(100)...)
	audio, err := (&AudioProbe{}).Probe(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, audio.VariableBitRate)
	assert.InDelta(t, 96000, audio.BitRate, 1500)
}

func TestAudioProbeFLAC(t *testing.T) {
	audio, err := (&AudioProbe{}).Probe(bytes.NewReader(flacStream(48000, 1, 48000*90)))
	require.NoError(t, err)
	assert.Equal(t, int64(90), audio.TrackLength)
	assert.Equal(t, int64(48000), audio.SampleRate)
	assert.Equal(t, int64(1), audio.Channels)
	assert.True(t, audio.Lossless)
	assert.True(t, audio.VariableBitRate)
	assert.Positive(t, audio.BitRate)
}

func TestAudioProbeBroken(t *testing.T) {
	p := &AudioProbe{}

	_, err := p.Probe(bytes.NewReader([]byte("this is not an audio file at all")))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)

	_, err = p.Probe(bytes.NewReader(flacStream(0, 2, 0)))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)

	_, err = p.Probe(bytes.NewReader(append([]byte("OggS"), make([]byte, 64)...)))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
}

func TestAudioProbeRejectsNonMPEG(t *testing.T) {
	p := &AudioProbe{}

	audio, err := p.Probe(bytes.NewReader(wavFile(1.5)))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
	assert.Nil(t, audio)

	noise := make([]byte, 256*1024)
	rand.New(rand.NewSource(42)).Read(noise)
	noise[0] = 0x00
	audio, err = p.Probe(bytes.NewReader(noise))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
	assert.Nil(t, audio)

	// a valid frame followed by noise is not an mpeg stream either
	audio, err = p.Probe(bytes.NewReader(append(mp3Frames(1), noise...)))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
	assert.Nil(t, audio)

	// id3 tag followed by something else than a frame
	audio, err = p.Probe(bytes.NewReader(id3Tagged(4, wavFile(0.1))))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
	assert.Nil(t, audio)
}

func TestAudioProbeRejectsGarbageBetweenFrames(t *testing.T) {
	data := append(mp3Frames(50), []byte("junk between frames")...)
	data = append(data, mp3Frames(50)...)
	_, err := (&AudioProbe{}).Probe(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
}

func TestAudioProbeRejectsMixedSampleRates(t *testing.T) {
	// 48kHz frames are 384 bytes at 128kbit
	data := append(mp3Frames(50), repeatFrame([]byte{0xFF, 0xFB, 0x94, 0x00}, 384, 50)...)
	_, err := (&AudioProbe{}).Probe(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
}

func TestFrameSync(t *testing.T) {
	assert.True(t, frameSync([]byte{0xFF, 0xFB, 0x90, 0x00}))
	assert.True(t, frameSync([]byte{0xFF, 0xF3, 0x50, 0xC0}))
	assert.False(t, frameSync([]byte{0xFF, 0xFB}), "short")
	assert.False(t, frameSync([]byte{0xFF, 0xEB, 0x90, 0x00}), "reserved version")
	assert.False(t, frameSync([]byte{0xFF, 0xF9, 0x90, 0x00}), "reserved layer")
	assert.False(t, frameSync([]byte{0xFF, 0xFB, 0xF0, 0x00}), "bad bitrate")
	assert.False(t, frameSync([]byte{0xFF, 0xFB, 0x0C, 0x00}), "free format")
	assert.False(t, frameSync([]byte{0xFF, 0xFB, 0x9C, 0x00}), "reserved sample rate")
	assert.False(t, frameSync([]byte("RIFF")))
}

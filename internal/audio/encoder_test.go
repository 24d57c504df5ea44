package audio

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

type fakeFrameEncoder struct {
	blocks  [][]int16
	flushed int
	failAt  int
}

func (f *fakeFrameEncoder) Encode(block []int16) ([]byte, error) {
	if f.failAt > 0 && len(f.blocks)+1 == f.failAt {
		return nil, errors.New("encode failed")
	}
	cp := make([]int16, len(block))
	copy(cp, block)
	f.blocks = append(f.blocks, cp)
	return []byte{byte(len(f.blocks))}, nil
}

func (f *fakeFrameEncoder) Flush() ([]byte, error) {
	f.flushed++
	return []byte{0xFF}, nil
}

func newFakeEncoder(t *testing.T, rate int) (*Encoder, *fakeFrameEncoder) {
	t.Helper()
	fake := &fakeFrameEncoder{}
	enc, err := NewEncoder(rate, func(sampleRate, ch int) (FrameEncoder, error) {
		if sampleRate != rate || ch != 1 {
			t.Fatalf("unexpected encoder params: rate=%d channels=%d", sampleRate, ch)
		}
		return fake, nil
	})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	return enc, fake
}

func TestToPCM16_AsymmetricScaling(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{in: -1.0, want: -32768},
		{in: 1.0, want: 32767},
		{in: 0, want: 0},
		{in: 0.5, want: 16383},
		{in: -0.5, want: -16384},
		{in: 2.5, want: 32767},
		{in: -3, want: -32768},
		{in: float32(math.NaN()), want: 0},
		{in: float32(math.Inf(1)), want: 32767},
		{in: float32(math.Inf(-1)), want: -32768},
	}
	for _, tt := range tests {
		got := ToPCM16([]float32{tt.in})[0]
		if got != tt.want {
			t.Fatalf("ToPCM16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncode_BlocksAndFlush(t *testing.T) {
	enc, fake := newFakeEncoder(t, 44100)
	samples := make([]float32, BlockSize*2+100)
	chunk, err := enc.Encode(SampleBuffer{Samples: samples, SampleRate: 44100})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(fake.blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(fake.blocks))
	}
	if len(fake.blocks[0]) != BlockSize || len(fake.blocks[2]) != 100 {
		t.Fatalf("unexpected block sizes: %d, %d", len(fake.blocks[0]), len(fake.blocks[2]))
	}
	if fake.flushed != 1 {
		t.Fatalf("expected one flush, got %d", fake.flushed)
	}
	if !bytes.Equal(chunk.Data, []byte{1, 2, 3, 0xFF}) {
		t.Fatalf("unexpected chunk bytes: %v", chunk.Data)
	}
	if chunk.MIMEType != MIMETypeMP3 {
		t.Fatalf("unexpected mime type: %s", chunk.MIMEType)
	}
	if chunk.ByteLength != len(chunk.Data) {
		t.Fatalf("byte length mismatch: %d vs %d", chunk.ByteLength, len(chunk.Data))
	}
}

func TestEncode_EmptyBufferStillFlushes(t *testing.T) {
	enc, fake := newFakeEncoder(t, 16000)
	chunk, err := enc.Encode(SampleBuffer{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(fake.blocks) != 0 || fake.flushed != 1 {
		t.Fatalf("unexpected encoder usage: blocks=%d flushed=%d", len(fake.blocks), fake.flushed)
	}
	if chunk.ByteLength != 1 {
		t.Fatalf("expected flush bytes only, got %d", chunk.ByteLength)
	}
}

func TestEncode_ResamplesToTarget(t *testing.T) {
	enc, fake := newFakeEncoder(t, 24000)
	samples := make([]float32, 4800)
	if _, err := enc.Encode(SampleBuffer{Samples: samples, SampleRate: 48000}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	total := 0
	for _, b := range fake.blocks {
		total += len(b)
	}
	if total != 2400 {
		t.Fatalf("expected 2400 resampled samples, got %d", total)
	}
}

func TestEncode_PropagatesEncoderError(t *testing.T) {
	fake := &fakeFrameEncoder{failAt: 2}
	enc, err := NewEncoder(44100, func(int, int) (FrameEncoder, error) { return fake, nil })
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if _, err := enc.Encode(SampleBuffer{Samples: make([]float32, BlockSize*3), SampleRate: 44100}); err == nil {
		t.Fatal("expected encode error")
	}
}

func TestNewEncoder_RejectsUnsupportedRate(t *testing.T) {
	_, err := NewEncoder(44000, func(int, int) (FrameEncoder, error) { return &fakeFrameEncoder{}, nil })
	if !errors.Is(err, ErrUnsupportedSampleRate) {
		t.Fatalf("expected ErrUnsupportedSampleRate, got %v", err)
	}
}

func TestResample_Interpolates(t *testing.T) {
	got := Resample([]float32{0, 1, 0, -1}, 2, 4)
	if len(got) != 8 {
		t.Fatalf("unexpected length: %d", len(got))
	}
	if got[1] != 0.5 || got[2] != 1 {
		t.Fatalf("unexpected interpolation: %v", got)
	}
	if same := Resample([]float32{0.1}, 8000, 8000); same[0] != 0.1 {
		t.Fatalf("expected passthrough, got %v", same)
	}
}

func TestDecodeRawSamples(t *testing.T) {
	buf, err := DecodeRawSamples(SampleFormatS16LE, []byte{0x00, 0x80, 0xFF, 0x7F}, 16000)
	if err != nil {
		t.Fatalf("DecodeRawSamples: %v", err)
	}
	if buf.Samples[0] != -1 || buf.Samples[1] != 1 {
		t.Fatalf("unexpected samples: %v", buf.Samples)
	}
	if buf.SampleRate != 16000 {
		t.Fatalf("unexpected sample rate: %d", buf.SampleRate)
	}

	f32 := []byte{0x00, 0x00, 0x80, 0x3F}
	buf, err = DecodeRawSamples(SampleFormatF32LE, f32, 48000)
	if err != nil || buf.Samples[0] != 1 {
		t.Fatalf("unexpected f32 decode: %v %v", buf.Samples, err)
	}

	if _, err := DecodeRawSamples(SampleFormatF32LE, []byte{1, 2, 3}, 48000); !errors.Is(err, ErrMisalignedSamples) {
		t.Fatalf("expected misaligned error, got %v", err)
	}
}

package audio

import "testing"

func TestBytesPerSecond(t *testing.T) {
	for _, tc := range []struct {
		encoding EncodingInfo
		expected int
	}{
		{encoding: DefaultEncodingInfo(), expected: 32000},
		{encoding: EncodingInfo{SampleRate: 8000, Format: FormatMulaw}, expected: 8000},
		{encoding: EncodingInfo{SampleRate: 8000, Format: FormatALaw}, expected: 8000},
		{encoding: EncodingInfo{SampleRate: 48000, Format: FormatLinear16}, expected: 96000},
	} {
		if got := tc.encoding.BytesPerSecond(); got != tc.expected {
			t.Errorf("%s at %d: expected %d bytes per second, got %d",
				tc.encoding.Format.Name(), tc.encoding.SampleRate, tc.expected, got)
		}
	}
}

func TestSilenceByte(t *testing.T) {
	if b := (EncodingInfo{Format: FormatLinear16}).SilenceByte(); b != 0 {
		t.Errorf("expected linear16 silence 0x00, got %#x", b)
	}
	if b := (EncodingInfo{Format: FormatMulaw}).SilenceByte(); b != 0xFF {
		t.Errorf("expected mulaw silence 0xFF, got %#x", b)
	}
	if b := (EncodingInfo{Format: FormatALaw}).SilenceByte(); b != 0x55 {
		t.Errorf("expected alaw silence 0x55, got %#x", b)
	}
}

func TestIsZero(t *testing.T) {
	if (EncodingInfo{}).IsZero() != true {
		t.Errorf("expected the zero value to report zero")
	}
	if (EncodingInfo{SampleRate: 16000}).IsZero() != true {
		t.Errorf("expected a missing format to report zero")
	}
	if DefaultEncodingInfo().IsZero() {
		t.Errorf("expected the default encoding to be non-zero")
	}
}

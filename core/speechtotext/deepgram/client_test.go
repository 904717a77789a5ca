package deepgram

import (
	"testing"

	"github.com/tkresnik/aria-core/core/audio"
)

func TestConvertEncoding(t *testing.T) {
	for _, tc := range []struct {
		name     string
		encoding audio.EncodingInfo
		valid    bool
	}{
		{
			name:     "default encoding",
			encoding: audio.DefaultEncodingInfo(),
			valid:    true,
		},
		{
			name:     "linear16 at 48kHz",
			encoding: audio.EncodingInfo{SampleRate: 48000, Format: audio.FormatLinear16},
			valid:    true,
		},
		{
			name:     "mulaw at telephony rate",
			encoding: audio.EncodingInfo{SampleRate: 8000, Format: audio.FormatMulaw},
			valid:    true,
		},
		{
			name:     "alaw at telephony rate",
			encoding: audio.EncodingInfo{SampleRate: 8000, Format: audio.FormatALaw},
			valid:    true,
		},
		{
			name:     "mulaw above telephony rate",
			encoding: audio.EncodingInfo{SampleRate: 16000, Format: audio.FormatMulaw},
			valid:    false,
		},
		{
			name:     "unsupported sample rate",
			encoding: audio.EncodingInfo{SampleRate: 44100, Format: audio.FormatLinear16},
			valid:    false,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			params, err := convertEncoding(tc.encoding)
			if tc.valid {
				if err != nil {
					t.Fatalf("expected encoding to convert, got %v", err)
				}
				if params.sampleRate != tc.encoding.SampleRate {
					t.Fatalf("expected sample rate %d, got %d", tc.encoding.SampleRate, params.sampleRate)
				}
				if params.encoding != tc.encoding.Format.Name() {
					t.Fatalf("expected encoding %q, got %q", tc.encoding.Format.Name(), params.encoding)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected an error for %+v", tc.encoding)
			}
		})
	}
}

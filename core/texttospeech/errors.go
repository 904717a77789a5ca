package texttospeech

import "errors"

// ErrSynthesis marks a speech generator that failed while producing audio.
var ErrSynthesis = errors.New("speech synthesis failed")

package speechtotext

import "errors"

// ErrConnection marks a transcription stream that could not be established or
// was lost, including a missing provider credential.
var ErrConnection = errors.New("transcription connection failed")

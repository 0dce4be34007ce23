package audio

import "strconv"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
	DefaultContainer  = "wav"
)

// GetDefaultRecordingEncoding describes the recordings the transport hands
// back for a wav record action: 16 kHz linear PCM in a wav container.
func GetDefaultRecordingEncoding() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat), Container: DefaultContainer}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
	// Container is empty for raw samples.
	Container string
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) IsContainerized() bool { return e.Container != "" }

// MIMEType returns the content type recognizers expect for this encoding.
func (e EncodingInfo) MIMEType() string {
	switch {
	case e.Container == "wav" && e.Format == EncodingLinear16:
		return `audio/wav; codec="audio/pcm"; samplerate=` + strconv.Itoa(e.SampleRate)
	case e.Container != "":
		return "audio/" + e.Container
	case e.Format == EncodingMulaw:
		return "audio/basic"
	}
	return "application/octet-stream"
}

// BytesPer returns how many bytes of raw samples cover ms milliseconds, or
// zero when the format has no fixed sample size.
func (e EncodingInfo) BytesPer(ms int) int {
	size := e.Format.ByteSize()
	if size <= 0 || e.SampleRate <= 0 {
		return 0
	}
	return e.SampleRate * size * ms / 1000
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case encodingFormat("mulaw"), encodingFormat("alaw"):
		return 1
	case encodingFormat("linear16"):
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)

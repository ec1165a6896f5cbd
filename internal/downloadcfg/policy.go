package downloadcfg

import "strings"

// Codec is the song codec requested from the tool.
type Codec string

const (
	CodecAACLegacy   Codec = "aac-legacy"
	CodecAACHELegacy Codec = "aac-he-legacy"
	CodecAAC         Codec = "aac"
	CodecAACHE       Codec = "aac-he"
	CodecAACBinaural Codec = "aac-binaural"
	CodecAACDownmix  Codec = "aac-downmix"
	CodecAC3         Codec = "ac3"
	CodecALAC        Codec = "alac"
	CodecAtmos       Codec = "atmos"
	CodecAsk         Codec = "ask"

	DefaultCodec = CodecAACLegacy
)

var knownCodecs = map[Codec]bool{
	CodecAACLegacy:   true,
	CodecAACHELegacy: true,
	CodecAAC:         true,
	CodecAACHE:       true,
	CodecAACBinaural: true,
	CodecAACDownmix:  true,
	CodecAC3:         true,
	CodecALAC:        true,
	CodecAtmos:       true,
	CodecAsk:         true,
}

// Known reports whether c is a codec the tool accepts.
func Known(c Codec) bool { return knownCodecs[c] }

// StartOptions carries the per-download options handed to the tool.
type StartOptions struct {
	Codec Codec
}

// ParseCodec converts s to a Codec, falling back to def (and then to
// aac-legacy) for empty or unknown values.
func ParseCodec(s string, def Codec) Codec {
	c := Codec(strings.ToLower(strings.TrimSpace(s)))
	if knownCodecs[c] {
		return c
	}
	if knownCodecs[def] {
		return def
	}
	return DefaultCodec
}

// Args returns the tool flags for o. ALAC only works through the decrypt
// wrapper, so it also enables wrapper mode.
func (o StartOptions) Args() []string {
	if o.Codec == "" {
		return nil
	}
	args := []string{"--song-codec", string(o.Codec)}
	if o.Codec == CodecALAC {
		args = append(args, "--use-wrapper")
	}
	return args
}

// Label is the short format name used in user-facing messages.
func (o StartOptions) Label() string {
	if o.Codec == CodecALAC {
		return "ALAC"
	}
	return "AAC"
}

package encoder

import (
	"fmt"
)

type Argument [2]string

// Arguments is an ordered ffmpeg argument list.
// Entries with an empty value are emitted as bare flags or positionals.
type Arguments []Argument

// FrameArguments builds ffmpeg arguments for grabbing one frame of in at
// timestamp at, scaled to exactly width x height, into out as JPEG.
// Seeking before -i makes ffmpeg jump to the nearest keyframe instead of decoding up to it.
func FrameArguments(in, out, at string, width, height, quality int) Arguments {
	return Arguments{
		{"-hide_banner", ""},
		{"-loglevel", "error"},
		{"-ss", at},
		{"-i", in},
		{"-frames:v", "1"},
		{"-vf", fmt.Sprintf("scale=%v:%v", width, height)},
		{"-q:v", fmt.Sprintf("%v", quality)},
		{"-f", "image2"},
		{"-y", ""},
		{out, ""},
	}
}

// GetStrArguments serializes ffmpeg arguments in a format suitable for exec.Command.
func (a Arguments) GetStrArguments() []string {
	strArgs := []string{}
	for _, v := range a {
		strArgs = append(strArgs, v[0])
		if v[1] != "" {
			strArgs = append(strArgs, v[1])
		}
	}
	return strArgs
}

package jsonrpc

import "strings"

// FrameReader reassembles newline-delimited frames from a byte stream that
// arrives in arbitrary-sized chunks. The final segment of each chunk is kept
// until the delimiter for it shows up.
type FrameReader struct {
	partial strings.Builder
}

// NewFrameReader creates an empty FrameReader.
func NewFrameReader() *FrameReader {
	return &FrameReader{}
}

// Feed appends chunk to the accumulator and returns every complete frame it
// closes, in order. A frame spanning several chunks is emitted once its
// trailing newline arrives. Frames are returned without the delimiter; a
// trailing carriage return is stripped.
func (r *FrameReader) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	r.partial.Write(chunk)

	data := r.partial.String()
	if !strings.Contains(data, "\n") {
		return nil
	}

	segments := strings.Split(data, "\n")
	r.partial.Reset()
	r.partial.WriteString(segments[len(segments)-1])

	frames := make([]string, 0, len(segments)-1)
	for _, segment := range segments[:len(segments)-1] {
		frames = append(frames, strings.TrimSuffix(segment, "\r"))
	}
	return frames
}

// Pending returns the buffered partial frame, for diagnostics.
func (r *FrameReader) Pending() string {
	return r.partial.String()
}

package jsonrpc

import (
	"reflect"
	"testing"
)

func TestFrameReaderFeed(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []string
		want    [][]string
		pending string
	}{
		{
			name:   "single complete frame",
			chunks: []string{"hello\n"},
			want:   [][]string{{"hello"}},
		},
		{
			name:   "frame split across chunks",
			chunks: []string{"hel", "lo\nwor", "ld\n"},
			want:   [][]string{nil, {"hello"}, {"world"}},
		},
		{
			name:   "several frames in one chunk",
			chunks: []string{"a\nb\nc\n"},
			want:   [][]string{{"a", "b", "c"}},
		},
		{
			name:    "trailing partial retained",
			chunks:  []string{"first\nsecond"},
			want:    [][]string{{"first"}},
			pending: "second",
		},
		{
			name:   "carriage returns stripped",
			chunks: []string{"one\r\ntwo\r\n"},
			want:   [][]string{{"one", "two"}},
		},
		{
			name:   "empty frames preserved",
			chunks: []string{"\n\nx\n"},
			want:   [][]string{{"", "", "x"}},
		},
		{
			name:   "chunk without delimiter emits nothing",
			chunks: []string{"no newline yet"},
			want:   [][]string{nil},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := NewFrameReader()
			for i, chunk := range test.chunks {
				got := r.Feed([]byte(chunk))
				if !reflect.DeepEqual(got, test.want[i]) {
					t.Errorf("Feed(%q) = %v, expected %v", chunk, got, test.want[i])
				}
			}
			if r.Pending() != test.pending {
				t.Errorf("Pending() = %q, expected %q", r.Pending(), test.pending)
			}
		})
	}
}

func TestFrameReaderEmptyChunk(t *testing.T) {
	r := NewFrameReader()
	if got := r.Feed(nil); got != nil {
		t.Errorf("Feed(nil) = %v, expected nil", got)
	}
}

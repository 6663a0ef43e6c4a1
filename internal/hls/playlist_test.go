package hls

import (
	"errors"
	"testing"
)

const mediaPlaylist = "#EXTM3U\r\n" +
	"#EXT-X-VERSION:3\r\n" +
	"#EXT-X-TARGETDURATION:10\r\n" +
	"#EXT-X-MEDIA-SEQUENCE:0\r\n" +
	"#EXTINF:10.0,\r\n" +
	"https://cdn.example.com/a/seg-0.flac\r\n" +
	"#EXTINF:10.0,\r\n" +
	"seg-1.flac\r\n" +
	"#EXTINF:4.2,\r\n" +
	"/b/seg-2.flac\r\n" +
	"#EXT-X-ENDLIST\r\n"

func TestParsePlaylist(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     []string
	}{
		{
			name:     "media playlist",
			manifest: mediaPlaylist,
			want: []string{
				"https://cdn.example.com/a/seg-0.flac",
				"https://cdn.example.com/hls/seg-1.flac",
				"https://cdn.example.com/b/seg-2.flac",
			},
		},
		{
			name:     "bare urls",
			manifest: "#EXTM3U\r\n#EXT-X-KEY:METHOD=NONE\r\nhttps://s.example.com/1\r\nhttps://s.example.com/2\r\n\r\n",
			want:     []string{"https://s.example.com/1", "https://s.example.com/2"},
		},
		{
			name:     "mixed extinf",
			manifest: "#EXTM3U\r\n#EXT-X-TARGETDURATION:10\r\n#EXTINF:10,\r\nseg1.ts\r\nseg2.ts\r\n#EXTINF:10,\r\nseg3.ts\r\n",
			want: []string{
				"https://cdn.example.com/hls/seg1.ts",
				"https://cdn.example.com/hls/seg2.ts",
				"https://cdn.example.com/hls/seg3.ts",
			},
		},
		{
			name:     "no header",
			manifest: "https://s.example.com/x\nhttps://s.example.com/y",
			want:     []string{"https://s.example.com/x", "https://s.example.com/y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlaylist(tt.manifest, "https://cdn.example.com/hls/index.m3u8")
			if err != nil {
				t.Fatalf("ParsePlaylist() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParsePlaylist() returned %d segments, want %d", len(got), len(tt.want))
			}
			for i, seg := range got {
				if seg.Index != i+1 {
					t.Errorf("segment %d has index %d", i, seg.Index)
				}
				if seg.URL != tt.want[i] {
					t.Errorf("segment %d URL = %q, want %q", i, seg.URL, tt.want[i])
				}
			}
		})
	}
}

func TestParsePlaylist_Empty(t *testing.T) {
	_, err := ParsePlaylist("#EXTM3U\r\n#EXT-X-ENDLIST\r\n", "https://cdn.example.com/index.m3u8")
	if !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("ParsePlaylist() error = %v, want ErrEmptyPlaylist", err)
	}
}

func TestParsePlaylist_Master(t *testing.T) {
	manifest := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1411000\nhr/index.m3u8\n"
	_, err := ParsePlaylist(manifest, "https://cdn.example.com/index.m3u8")
	if !errors.Is(err, ErrMasterPlaylist) {
		t.Errorf("ParsePlaylist() error = %v, want ErrMasterPlaylist", err)
	}
}

package codec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/discochess/codeassist/internal/codec"
	"github.com/discochess/codeassist/internal/codec/gzipcodec"
	"github.com/discochess/codeassist/internal/codec/lz4codec"
	"github.com/discochess/codeassist/internal/codec/noopcodec"
	"github.com/discochess/codeassist/internal/codec/zstdcodec"
)

func codecs() map[string]codec.Codec {
	return map[string]codec.Codec{
		"zstd": zstdcodec.New(),
		"gzip": gzipcodec.New(),
		"noop": noopcodec.New(),
		"lz4":  lz4codec.New(),
	}
}

func TestEncodeDecode(t *testing.T) {
	inputs := map[string][]byte{
		"empty":  {},
		"short":  []byte(`{"id":"abc"}`),
		"repeat": bytes.Repeat([]byte("session "), 5000),
	}
	for cname, c := range codecs() {
		for iname, in := range inputs {
			t.Run(cname+"/"+iname, func(t *testing.T) {
				enc, err := codec.Encode(c, in)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				got, err := codec.Decode(c, bytes.NewReader(enc))
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if !bytes.Equal(got, in) {
					t.Errorf("Decode(Encode(x)) differs: got %d bytes, want %d", len(got), len(in))
				}
			})
		}
	}
}

func TestEncode_Compresses(t *testing.T) {
	in := []byte(strings.Repeat("abcdefghij", 10000))
	for _, name := range []string{"zstd", "gzip", "lz4"} {
		enc, err := codec.Encode(codecs()[name], in)
		if err != nil {
			t.Fatalf("%s: Encode() error = %v", name, err)
		}
		if len(enc) >= len(in) {
			t.Errorf("%s: encoded %d bytes from %d", name, len(enc), len(in))
		}
	}
}

func TestDecode_InvalidData(t *testing.T) {
	if _, err := codec.Decode(gzipcodec.New(), strings.NewReader("not gzip")); err == nil {
		t.Error("Decode() expected error for invalid gzip data")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		codec codec.Codec
		want  string
	}{
		{zstdcodec.New(), "sessions/abc.json.zst"},
		{gzipcodec.New(), "sessions/abc.json.gz"},
		{noopcodec.New(), "sessions/abc.json"},
		{lz4codec.New(), "sessions/abc.json.lz4"},
	}
	for _, tt := range tests {
		if got := codec.FileName(tt.codec, "sessions/abc.json"); got != tt.want {
			t.Errorf("FileName() = %q, want %q", got, tt.want)
		}
	}
}

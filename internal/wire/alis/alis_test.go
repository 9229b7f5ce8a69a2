package alis

import (
	"bytes"
	"testing"
)

func TestLEB128Encoding(t *testing.T) {
	cases := []struct {
		in  uint64
		out []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xAC, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, c := range cases {
		got := EncodeLEB128(c.in)
		if !bytes.Equal(got, c.out) {
			t.Errorf("EncodeLEB128(%d) = % x, want % x", c.in, got, c.out)
		}
	}
}

func TestStringEncoding(t *testing.T) {
	cases := []struct {
		in  string
		out []byte
	}{
		{"", []byte{0x00}},
		{"a", []byte{0x01, 'a'}},
		{"hello", []byte{0x05, 'h', 'e', 'l', 'l', 'o'}},
	}
	for _, c := range cases {
		got := EncodeString(c.in)
		if !bytes.Equal(got, c.out) {
			t.Errorf("EncodeString(%q) = % x, want % x", c.in, got, c.out)
		}
	}
}

func TestColorParsing(t *testing.T) {
	ok := []struct {
		in  string
		out [3]byte
	}{
		{"#000000", [3]byte{0, 0, 0}},
		{"#FFFFFF", [3]byte{255, 255, 255}},
		{"#FF0000", [3]byte{255, 0, 0}},
		{"#00FF00", [3]byte{0, 255, 0}},
		{"#0000FF", [3]byte{0, 0, 255}},
		{"#123456", [3]byte{0x12, 0x34, 0x56}},
	}
	for _, c := range ok {
		got, err := ParseColor(c.in)
		if err != nil {
			t.Errorf("ParseColor(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.out {
			t.Errorf("ParseColor(%q) = %v, want %v", c.in, got, c.out)
		}
	}

	bad := []string{"#abc", "zzzzzz", ""}
	for _, in := range bad {
		if _, err := ParseColor(in); err == nil {
			t.Errorf("ParseColor(%q) expected error, got none", in)
		}
	}
}

func TestThemeNoneEncoding(t *testing.T) {
	got, err := EncodeTheme(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte{0x00}) {
		t.Errorf("EncodeTheme(nil) = % x, want [0x00]", got)
	}
}

func TestOutputEventEncoding(t *testing.T) {
	got := EncodeOutput(1, 1000, "hello")
	want := []byte{byte(TypeOutput), 0x01, 0xE8, 0x07, 0x05, 'h', 'e', 'l', 'l', 'o'}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeOutput = % x, want % x", got, want)
	}
}

func TestResizeEventEncoding(t *testing.T) {
	got := EncodeResize(2, 500, 80, 24)
	want := []byte{byte(TypeResize), 0x02, 0xF4, 0x03, 0x50, 0x18}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeResize = % x, want % x", got, want)
	}
}

func TestMarkerEventEncoding(t *testing.T) {
	got := EncodeMarker(3, 100, "chapter 1")
	want := append([]byte{byte(TypeMarker), 0x03, 0x64, 0x09}, []byte("chapter 1")...)
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeMarker = % x, want % x", got, want)
	}
}

func TestExitEventEncoding(t *testing.T) {
	got := EncodeExit(4, 200, 0)
	want := []byte{byte(TypeExit), 0x04, 0xC8, 0x01, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeExit = % x, want % x", got, want)
	}
}

func TestEOTEventEncoding(t *testing.T) {
	got := EncodeEOT(5, 300)
	want := []byte{byte(TypeEOT), 0x05, 0xAC, 0x02}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeEOT = % x, want % x", got, want)
	}
	if len(got) != 4 {
		t.Errorf("len(EncodeEOT) = %d, want 4", len(got))
	}
}

func TestInitEventEncoding(t *testing.T) {
	got, err := EncodeInit(0, 80, 24, nil, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{byte(TypeInit), 0x00, 0x00, 0x50, 0x18, 0x00, 0x04, 't', 'e', 's', 't'}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeInit = % x, want % x", got, want)
	}
}

package probe

import (
	"testing"

	"github.com/snapetech/skyclip/internal/assemble"
)

func tsPackets(n int) []byte {
	b := make([]byte, n*tsPacketSize)
	for i := 0; i < n; i++ {
		b[i*tsPacketSize] = 0x47
	}
	return b
}

func box(typ string) []byte {
	b := []byte{0, 0, 0, 16}
	b = append(b, typ...)
	return append(b, "iso6mp41"...)
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Container
	}{
		{"ts", tsPackets(3), ContainerTS},
		{"tsShort", []byte{0x47, 0x40, 0x00, 0x10}, ContainerTS},
		{"ftyp", box("ftyp"), ContainerFMP4},
		{"styp", box("styp"), ContainerFMP4},
		{"moof", box("moof"), ContainerFMP4},
		{"brokenSync", append([]byte{0x47}, make([]byte, 300)...), ContainerUnknown},
		{"empty", nil, ContainerUnknown},
		{"text", []byte("#EXTM3U\n"), ContainerUnknown},
	}
	for _, tt := range tests {
		got := Sniff(tt.data)
		if got.Container != tt.want {
			t.Errorf("Sniff(%s).Container = %v, want %v", tt.name, got.Container, tt.want)
		}
		if got.MIME == "" {
			t.Errorf("Sniff(%s).MIME is empty", tt.name)
		}
	}
}

func TestContainer_Format(t *testing.T) {
	if f, ok := ContainerTS.Format(); !ok || f != assemble.FormatTS {
		t.Errorf("ts Format() = %v, %v", f, ok)
	}
	if f, ok := ContainerFMP4.Format(); !ok || f != assemble.FormatMP4 {
		t.Errorf("fmp4 Format() = %v, %v", f, ok)
	}
	if _, ok := ContainerUnknown.Format(); ok {
		t.Error("unknown container has a format")
	}
	if ContainerUnknown.String() != "unknown" {
		t.Errorf("String() = %q", ContainerUnknown.String())
	}
}

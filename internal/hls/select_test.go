package hls

import (
	"errors"
	"testing"
)

func TestSelectBestVariant(t *testing.T) {
	tests := []struct {
		name     string
		variants []VariantStream
		wantURI  string
		wantErr  error
	}{
		{"empty", nil, "", ErrNoVariant},
		{"all zero", []VariantStream{{URI: "a"}, {URI: "b"}}, "", ErrNoVariant},
		{"single", []VariantStream{{Bandwidth: 1, URI: "a"}}, "a", nil},
		{"max wins", []VariantStream{{Bandwidth: 5, URI: "a"}, {Bandwidth: 9, URI: "b"}, {Bandwidth: 7, URI: "c"}}, "b", nil},
		{"first wins tie", []VariantStream{{Bandwidth: 9, URI: "a"}, {Bandwidth: 9, URI: "b"}}, "a", nil},
		{"tie after lower", []VariantStream{{Bandwidth: 1, URI: "a"}, {Bandwidth: 9, URI: "b"}, {Bandwidth: 9, URI: "c"}}, "b", nil},
		{"zero skipped", []VariantStream{{Bandwidth: 0, URI: "a"}, {Bandwidth: 3, URI: "b"}}, "b", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectBestVariant(tt.variants)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got.URI != tt.wantURI {
				t.Errorf("URI = %q, want %q", got.URI, tt.wantURI)
			}
		})
	}
}

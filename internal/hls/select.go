package hls

import "errors"

// ErrNoVariant is returned when a master playlist offers no usable variant.
var ErrNoVariant = errors.New("hls: master playlist has no variant with a bandwidth above zero")

// SelectBestVariant returns the variant with the highest bandwidth. Comparison is
// strict, so the earliest declared variant wins a tie. Variants with bandwidth 0
// (missing or malformed attribute) are never chosen.
func SelectBestVariant(variants []VariantStream) (VariantStream, error) {
	var best VariantStream
	found := false
	for _, v := range variants {
		if v.Bandwidth > best.Bandwidth {
			best = v
			found = true
		}
	}
	if !found {
		return VariantStream{}, ErrNoVariant
	}
	return best, nil
}

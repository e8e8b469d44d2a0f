package domain

import "strconv"

// FormatRupiah renders whole rupiah with dot thousand separators: "Rp 40.000".
func FormatRupiah(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-Rp " + string(out)
	}
	return "Rp " + string(out)
}

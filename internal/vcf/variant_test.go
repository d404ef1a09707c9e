package vcf

import "testing"

func TestVariant_IsSNV(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		alt  string
		want bool
	}{
		{"A to G", "A", "G", true},
		{"G to C (KRAS G12C)", "G", "C", true},
		{"deletion", "AT", "A", false},
		{"insertion", "A", "AT", false},
		{"MNV", "AT", "GC", false},
		{"multi-allelic", "A", "C,T", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Ref: tt.ref, Alt: tt.alt}
			if got := v.IsSNV(); got != tt.want {
				t.Errorf("IsSNV() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariant_InfoString(t *testing.T) {
	v := &Variant{Info: map[string]interface{}{
		"allele_id": "10",
		"SOMATIC":   true,
		"DP":        42,
	}}

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"allele_id", "10", true},
		{"SOMATIC", "", true},
		{"DP", "42", true},
		{"gold_stars", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := v.InfoString(tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("InfoString(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestVariant_Location(t *testing.T) {
	v := &Variant{Chrom: "12", Pos: 25245350, Ref: "C", Alt: "A"}
	if got := v.Location(); got != "12:25245350 C>A" {
		t.Errorf("Location() = %q", got)
	}
}

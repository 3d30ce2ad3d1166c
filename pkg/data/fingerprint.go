package data

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FingerprintOptions sizes the hashed SMILES fingerprint.
type FingerprintOptions struct {
	Bits   int `yaml:"bits" json:"bits"`
	Radius int `yaml:"radius" json:"radius"`
}

// DefaultFingerprint matches the common 1024-bit, radius-2 circular setting.
func DefaultFingerprint() FingerprintOptions {
	return FingerprintOptions{Bits: 1024, Radius: 2}
}

// Fingerprint hashes every run of 1..Radius+1 consecutive SMILES tokens into
// a Bits-long 0/1 vector.
func Fingerprint(smiles string, opts FingerprintOptions) []float64 {
	if opts.Bits <= 0 {
		opts = DefaultFingerprint()
	}
	fp := make([]float64, opts.Bits)
	toks := TokenizeSMILES(smiles)
	var sb strings.Builder
	for i := range toks {
		sb.Reset()
		for l := 0; l <= opts.Radius && i+l < len(toks); l++ {
			if l > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(toks[i+l])
			h := xxhash.Sum64String(sb.String())
			fp[h%uint64(opts.Bits)] = 1
		}
	}
	return fp
}

// TokenizeSMILES splits a SMILES string into atoms, bonds, ring closures
// and branch markers. Bracket atoms are kept whole.
func TokenizeSMILES(s string) []string {
	var toks []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				toks = append(toks, s[i:])
				return toks
			}
			toks = append(toks, s[i:i+j+1])
			i += j + 1
		case c == '%' && i+2 < len(s):
			toks = append(toks, s[i:i+3])
			i += 3
		case (c == 'C' && i+1 < len(s) && s[i+1] == 'l') || (c == 'B' && i+1 < len(s) && s[i+1] == 'r'):
			toks = append(toks, s[i:i+2])
			i += 2
		case c == ' ' || c == '\t':
			i++
		default:
			toks = append(toks, s[i:i+1])
			i++
		}
	}
	return toks
}

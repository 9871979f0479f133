package scheme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/katzenpost/hpqc/nike"
	"github.com/katzenpost/hpqc/nike/x25519"
	"github.com/katzenpost/hpqc/rand"

	"github.com/smallyu/go-csidh/internal/params"
)

// X25519Hybrid combines the isogeny exchange over ps with X25519.
func X25519Hybrid(ps *params.Params) *Hybrid {
	return NewHybrid("CSIDH-"+ps.Name+"-X25519", x25519.Scheme(rand.Reader), NewScheme(ps, nil))
}

// Secp256k1Hybrid combines the isogeny exchange over ps with secp256k1.
func Secp256k1Hybrid(ps *params.Params) *Hybrid {
	return NewHybrid("CSIDH-"+ps.Name+"-SECP256K1", Secp256k1Scheme(nil), NewScheme(ps, nil))
}

func allSchemes() []nike.Scheme {
	out := []nike.Scheme{
		x25519.Scheme(rand.Reader),
		Secp256k1Scheme(nil),
		Edwards25519Scheme(nil),
	}
	for _, name := range params.Names() {
		ps, _ := params.ByName(name)
		out = append(out, NewScheme(ps, nil), X25519Hybrid(ps), Secp256k1Hybrid(ps))
	}
	return out
}

// ByName returns the scheme with the given name, ignoring case.
func ByName(name string) (nike.Scheme, error) {
	for _, s := range allSchemes() {
		if strings.EqualFold(s.Name(), name) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("scheme: unknown scheme %q", name)
}

// Names lists the available schemes.
func Names() []string {
	var names []string
	for _, s := range allSchemes() {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}

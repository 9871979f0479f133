package params

import (
	"fmt"
	"math/big"
	"sort"
)

const (
	NameToy419     = "toy419"
	NameToy1021019 = "toy1021019"
	NameDKS512     = "dks512"
)

func mustInt(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("params: bad constant " + s)
	}
	return n
}

func mustNew(name string, p, a, b, trace *big.Int, primes []Prime) *Params {
	ps, err := New(name, p, a, b, trace, primes, 0)
	if err != nil {
		panic(err)
	}
	return ps
}

// Toy419 is a supersingular set over p = 4*3*5*7 - 1 = 419 starting from
// y^2 = x^3 + x. All three radical primes walk in both directions.
func Toy419() *Params {
	return mustNew(NameToy419, big.NewInt(419), big.NewInt(0), big.NewInt(1), big.NewInt(0), []Prime{
		{L: 3, Kind: Radical, LowerBound: 5, UpperBound: 5, Backward: true},
		{L: 5, Kind: Radical, LowerBound: 5, UpperBound: 5, Backward: true},
		{L: 7, Kind: Radical, LowerBound: 5, UpperBound: 5, Backward: true},
	})
}

// Toy1021019 is a supersingular set over p = 4*3*5*7*11*13*17 - 1 mixing
// radical and Velu steps.
func Toy1021019() *Params {
	return mustNew(NameToy1021019, big.NewInt(1021019), big.NewInt(0), big.NewInt(1), big.NewInt(0), []Prime{
		{L: 3, Kind: Radical, LowerBound: 4, UpperBound: 4, Backward: true},
		{L: 5, Kind: Radical, LowerBound: 4, UpperBound: 4, Backward: true},
		{L: 7, Kind: Radical, LowerBound: 4, UpperBound: 4, Backward: true},
		{L: 11, Kind: Velu, LowerBound: 2, UpperBound: 2, Backward: true},
		{L: 13, Kind: Velu, LowerBound: 2, UpperBound: 2, Backward: true},
		{L: 17, Kind: Velu, LowerBound: 2, UpperBound: 2, Backward: true},
	})
}

// DKS512 is the 512-bit ordinary curve of the original proposal. The primes
// are the ones dividing both p+1-t and p+1+t (both directions) plus 523 and
// 821, which only divide p+1-t.
func DKS512() *Params {
	p := mustInt("12037340738208845034383383978222801137092029451270197923071397735408251586669938291587857560356890516069961904754171956588530344066457839297755929645858769")
	a := mustInt("10861338504649280383859950140772947007703646408372831934324660566888732797778932142488253565145603672591944602210571423767689240032829444439469242521864171")
	t := mustInt("-147189550172528104900422131912266898599387555512924231762107728432541952979290")
	return mustNew(NameDKS512, p, a, big.NewInt(1), t, []Prime{
		{L: 3, Kind: Radical, LowerBound: 1000, UpperBound: 1000, Backward: true},
		{L: 5, Kind: Radical, LowerBound: 1000, UpperBound: 1000, Backward: true},
		{L: 7, Kind: Radical, LowerBound: 1000, UpperBound: 1000, Backward: true},
		{L: 11, Kind: Velu, LowerBound: 100, UpperBound: 100, Backward: true},
		{L: 13, Kind: Velu, LowerBound: 100, UpperBound: 100, Backward: true},
		{L: 17, Kind: Velu, LowerBound: 100, UpperBound: 100, Backward: true},
		{L: 103, Kind: Velu, LowerBound: 100, UpperBound: 100, Backward: true},
		{L: 523, Kind: Velu, UpperBound: 100},
		{L: 821, Kind: Velu, UpperBound: 100},
	})
}

var builtins = map[string]func() *Params{
	NameToy419:     Toy419,
	NameToy1021019: Toy1021019,
	NameDKS512:     DKS512,
}

// ByName returns a built-in parameter set.
func ByName(name string) (*Params, error) {
	ctor, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParams, name)
	}
	return ctor(), nil
}

// Names lists the built-in parameter sets.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

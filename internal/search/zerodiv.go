package search

import (
	"fmt"
	"math/big"

	"github.com/zkfuzz/zkfuzz/internal/concrete"
	"github.com/zkfuzz/zkfuzz/internal/field"
	"github.com/zkfuzz/zkfuzz/internal/symbolic"
)

// attemptZeroDiv tries to steer one division site's denominator - or,
// failing that, its numerator - to zero by solving its polynomial
// decomposition for the site's target input variable. The target is left
// out of the assignment the coefficients are evaluated against, so a
// decomposition that still mentions it resolves through its coefficient
// expressions rather than the candidate's current draw. Solutions are
// cached per resolved (c0, c1, c2) triple, since distinct candidates
// routinely reduce a site to the same equation. Only one randomly chosen
// site is tried; returns in unchanged if neither of its polynomials is
// solvable against in's current bindings.
func (d *Driver) attemptZeroDiv(in Inputs) Inputs {
	sites := d.zeroDivSites()
	if len(sites) == 0 {
		return in
	}
	idx := sites[d.RNG.Intn(len(sites))]
	info := d.Trace[idx].ZeroDiv
	if info == nil {
		return in
	}

	assignment := concrete.NewAssignment()
	in.Each(func(k symbolic.Name, v symbolic.Value) {
		if !k.Equal(info.Target) {
			assignment.Set(k, v)
		}
	})
	if solved, ok := d.solveForTarget(info.Denominator, assignment); ok {
		out := in.Clone()
		out.Set(info.Target, solved)
		return out
	}
	if solved, ok := d.solveForTarget(info.Numerator, assignment); ok {
		out := in.Clone()
		out.Set(info.Target, solved)
		return out
	}
	return in
}

// solveForTarget evaluates a polynomial's three coefficient expressions
// against assignment (every free variable but the target must already be
// bound) and solves c0 + c1*t + c2*t^2 === 0 for t.
func (d *Driver) solveForTarget(coeffs symbolic.PolyCoeffs, assignment concrete.Assignment) (symbolic.Value, bool) {
	c0, ok0 := resolveCoeff(d.Modulus, coeffs[0], assignment)
	c1, ok1 := resolveCoeff(d.Modulus, coeffs[1], assignment)
	c2, ok2 := resolveCoeff(d.Modulus, coeffs[2], assignment)
	if !ok0 || !ok1 || !ok2 {
		return symbolic.Value{}, false
	}

	key := fmt.Sprintf("%s|%s|%s", c0.Text(10), c1.Text(10), c2.Text(10))
	if cached, hit := d.zeroDivCache[key]; hit {
		if cached == nil {
			return symbolic.Value{}, false
		}
		return symbolic.Int(cached), true
	}
	if d.zeroDivCache == nil {
		d.zeroDivCache = make(map[string]*big.Int)
	}

	x, ok := field.SolveQuadratic(c0, c1, c2, d.Modulus)
	if !ok {
		d.zeroDivCache[key] = nil
		return symbolic.Value{}, false
	}
	d.zeroDivCache[key] = x
	return symbolic.Int(x), true
}

func resolveCoeff(p *big.Int, v symbolic.Value, assignment concrete.Assignment) (*big.Int, bool) {
	r, ok := concrete.Evaluate(p, v, assignment)
	if !ok {
		return nil, false
	}
	switch {
	case r.IsConstInt():
		return r.Int, true
	case r.IsConstBool():
		return field.FromBool(r.Bool), true
	default:
		return nil, false
	}
}

package field

import "math/big"

// ModSqrt returns a square root of a modulo the odd prime p, or false if a is
// a quadratic non-residue. Uses the p = 3 (mod 4) shortcut (a^((p+1)/4)) when
// it applies and falls back to Tonelli-Shanks otherwise (the p = 17 and
// p = 101 fields of the test suite are both 1 mod 4 and take that path).
func ModSqrt(a, p *big.Int) (*big.Int, bool) {
	a = Reduce(a, p)
	if a.Sign() == 0 {
		return big.NewInt(0), true
	}
	if new(big.Int).Exp(a, new(big.Int).Rsh(new(big.Int).Sub(p, one), 1), p).Cmp(one) != 0 {
		return nil, false // Euler's criterion: non-residue
	}

	// p == 3 (mod 4) shortcut.
	mod4 := new(big.Int).Mod(p, big.NewInt(4))
	if mod4.Cmp(big.NewInt(3)) == 0 {
		exp := new(big.Int).Rsh(new(big.Int).Add(p, one), 2)
		return new(big.Int).Exp(a, exp, p), true
	}

	return tonelliShanks(a, p)
}

func tonelliShanks(a, p *big.Int) (*big.Int, bool) {
	// Factor p-1 = q * 2^s with q odd.
	q := new(big.Int).Sub(p, one)
	s := 0
	for new(big.Int).Mod(q, two).Sign() == 0 {
		q.Div(q, two)
		s++
	}

	// Find a quadratic non-residue z.
	z := big.NewInt(2)
	for {
		if new(big.Int).Exp(z, new(big.Int).Rsh(new(big.Int).Sub(p, one), 1), p).Cmp(new(big.Int).Sub(p, one)) == 0 {
			break
		}
		z.Add(z, one)
	}

	m := s
	c := new(big.Int).Exp(z, q, p)
	t := new(big.Int).Exp(a, q, p)
	rExp := new(big.Int).Rsh(new(big.Int).Add(q, one), 1)
	r := new(big.Int).Exp(a, rExp, p)

	for {
		if t.Cmp(one) == 0 {
			return r, true
		}
		// Find least i, 0 < i < m, such that t^(2^i) == 1.
		i := 0
		tt := new(big.Int).Set(t)
		for tt.Cmp(one) != 0 {
			tt = new(big.Int).Exp(tt, two, p)
			i++
			if i == m {
				return nil, false
			}
		}
		bExp := new(big.Int).Lsh(one, uint(m-i-1))
		b := new(big.Int).Exp(c, bExp, p)
		m = i
		c = new(big.Int).Mul(b, b)
		c.Mod(c, p)
		t.Mul(t, c)
		t.Mod(t, p)
		r.Mul(r, b)
		r.Mod(r, p)
	}
}

// SolveQuadratic solves c0 + c1*x + c2*x^2 === 0 (mod p) for x, following the
// same case split the mutation driver's zero-division attempt relies on:
//
//	a == b == 0: solvable (trivially, any x) only if c == 0.
//	a == 0: linear, x = -c/b.
//	else: x = (-b +/- sqrt(b^2 - 4ac)) / 2a, picking the first root whose
//	      discriminant is a residue (the "+" root).
//
// c0, c1, c2 name the coefficients constant-first: c0 + c1*x + c2*x*x.
func SolveQuadratic(c0, c1, c2, p *big.Int) (*big.Int, bool) {
	a := Reduce(c2, p)
	b := Reduce(c1, p)
	c := Reduce(c0, p)

	if a.Sign() == 0 && b.Sign() == 0 {
		if c.Sign() == 0 {
			return big.NewInt(0), true
		}
		return nil, false
	}
	if a.Sign() == 0 {
		binv := new(big.Int).ModInverse(b, p)
		x := new(big.Int).Mul(new(big.Int).Neg(c), binv)
		return Reduce(x, p), true
	}

	// discriminant = b^2 - 4ac (mod p)
	disc := new(big.Int).Mul(b, b)
	four_ac := new(big.Int).Mul(big.NewInt(4), new(big.Int).Mul(a, c))
	disc.Sub(disc, four_ac)
	disc = Reduce(disc, p)

	sqrtDisc, ok := ModSqrt(disc, p)
	if !ok {
		return nil, false
	}

	twoA := new(big.Int).Mul(two, a)
	twoAInv := new(big.Int).ModInverse(twoA, p)

	num := new(big.Int).Add(new(big.Int).Neg(b), sqrtDisc)
	x := new(big.Int).Mul(num, twoAInv)
	return Reduce(x, p), true
}

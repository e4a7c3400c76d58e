package comember

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// intersectionMatrix builds the square co-membership matrix over the
// given label order: cell (i,j) is the number of ASes present at both
// exchanges, so the diagonal is each exchange's member count.
func intersectionMatrix(m Memberships) *mat.Dense {
	n := len(m.Order)
	out := mat.NewDense(n, n, nil)
	for i, li := range m.Order {
		a := m.Sets[li]
		out.Set(i, i, float64(len(a)))
		for j := i + 1; j < n; j++ {
			c := float64(intersectionSize(a, m.Sets[m.Order[j]]))
			out.Set(i, j, c)
			out.Set(j, i, c)
		}
	}
	return out
}

func intersectionSize(a, b ASNSet) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for asn := range a {
		if _, ok := b[asn]; ok {
			n++
		}
	}
	return n
}

// normalizeRows divides each row by its diagonal, turning counts into
// the fraction of exchange i's members also present at exchange j. The
// result is asymmetric; the diagonal becomes exactly 1.
//
// A zero diagonal cannot happen after pruning (floor of 5 members); if
// it does the matrix is corrupt and we panic rather than emit NaNs.
func normalizeRows(m *mat.Dense) *mat.Dense {
	n, _ := m.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d := m.At(i, i)
		if d == 0 {
			panic(fmt.Sprintf("comember: zero member count at row %d after pruning", i))
		}
		for j := 0; j < n; j++ {
			out.Set(i, j, m.At(i, j)/d)
		}
		out.Set(i, i, 1.0)
	}
	return out
}

// permuteMatrix applies the same index permutation to both axes: row
// and column k of the result are row and column perm[k] of the input.
func permuteMatrix(m *mat.Dense, perm []int) *mat.Dense {
	n := len(perm)
	out := mat.NewDense(n, n, nil)
	for i, pi := range perm {
		for j, pj := range perm {
			out.Set(i, j, m.At(pi, pj))
		}
	}
	return out
}

package reconcile

import (
	"testing"

	. "github.com/onsi/gomega"
)

// TestWeightConstantsSumToOne pins spec.md §4.G's two weighting formulas to
// always total 1.0, so a future edit to one constant can't silently skew
// overall_percent.
func TestWeightConstantsSumToOne(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(lineWeightNoBlocks + functionWeightNoBlocks).To(BeNumerically("~", 1.0, 1e-9))
	g.Expect(lineWeightWithBlocks + functionWeightWithBlocks + blockWeightWithBlocks).To(BeNumerically("~", 1.0, 1e-9))
}

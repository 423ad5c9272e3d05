package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/discochess/codeassist/benchmark/simulation"
)

func TestMannWhitneyU(t *testing.T) {
	tests := []struct {
		name       string
		a, b       []float64
		wantSignif bool
	}{
		{"identical", []float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5}, false},
		{"separated", []float64{1, 2, 3, 4, 5}, []float64{10, 11, 12, 13, 14}, true},
		{"overlapping", []float64{3, 4, 5, 6, 7}, []float64{4, 5, 6, 7, 8}, false},
		{"empty", nil, []float64{1, 2, 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MannWhitneyU(tt.a, tt.b)
			if res.Significant != tt.wantSignif {
				t.Errorf("Significant = %v, want %v (p=%f)", res.Significant, tt.wantSignif, res.PValue)
			}
		})
	}
}

func TestComputeEffectSize(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want string
	}{
		{"large", []float64{1, 2, 3, 4, 5}, []float64{10, 11, 12, 13, 14}, "large"},
		{"negligible", []float64{5, 5, 5, 5, 5}, []float64{5.1, 5, 4.9, 5, 5}, "negligible"},
		{"too small", []float64{1}, []float64{2, 3}, "undefined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ComputeEffectSize(tt.a, tt.b)
			if res.Interpretation != tt.want {
				t.Errorf("Interpretation = %s, want %s (d=%f)", res.Interpretation, tt.want, res.CohensD)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5})
	if d.N != 10 || d.Mean != 5.5 || d.Min != 1 || d.Max != 10 {
		t.Errorf("Describe() = %+v", d)
	}
	if d.P95 != 10 {
		t.Errorf("P95 = %f, want 10", d.P95)
	}

	if one := Describe([]float64{3}); one.StdDev != 0 {
		t.Errorf("single-sample StdDev = %f, want 0", one.StdDev)
	}
	if empty := Describe(nil); empty.N != 0 {
		t.Errorf("empty N = %d, want 0", empty.N)
	}
}

func TestBootstrapConfidenceInterval(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{6, 7, 8, 9, 10}

	res := BootstrapConfidenceInterval(a, b, 1000, 0.95)
	if math.Abs(res.MeanDiff+5) > 1e-9 {
		t.Errorf("MeanDiff = %f, want -5", res.MeanDiff)
	}
	if res.LowerBound > res.MeanDiff || res.UpperBound < res.MeanDiff {
		t.Errorf("CI [%f, %f] does not contain %f", res.LowerBound, res.UpperBound, res.MeanDiff)
	}

	again := BootstrapConfidenceInterval(a, b, 1000, 0.95)
	if *again != *res {
		t.Errorf("bootstrap not reproducible: %+v != %+v", again, res)
	}
}

func TestCompare(t *testing.T) {
	slow := &simulation.Result{Name: "uncached", Latencies: []float64{20, 21, 22, 20, 21, 23, 22, 20}}
	fast := &simulation.Result{Name: "cached", Latencies: []float64{1, 2, 1, 1, 2, 1, 1, 2}}

	c := Compare(slow, fast, 500, 0.95)
	if !c.Faster() {
		t.Errorf("Faster() = false, want true (p=%f)", c.MannWhitney.PValue)
	}
	if c.Speedup < 10 {
		t.Errorf("Speedup = %f, want > 10", c.Speedup)
	}
	if s := c.Summary(); !strings.Contains(s, "uncached vs cached") {
		t.Errorf("Summary() = %q", s)
	}
}

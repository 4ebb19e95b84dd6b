package bbch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/phenosim/internal/crop"
)

func specFor(t *testing.T, name string) *crop.Spec {
	t.Helper()
	table, err := crop.Default()
	require.NoError(t, err)
	spec, err := table.Lookup(name)
	require.NoError(t, err)
	return spec
}

func TestClassifyEndpoints(t *testing.T) {
	for _, name := range []string{"cereals", "rice", "maize", "cotton"} {
		c := ForCrop(specFor(t, name))
		assert.Equal(t, "00", c.Classify(0.0), name)
		assert.Equal(t, "99", c.Classify(2.5), name)
		assert.Equal(t, "99", c.Classify(2.2), name)
	}
}

func TestClassifyCerealBreakpoints(t *testing.T) {
	c := ForCrop(specFor(t, "cereals"))
	cases := map[float64]string{
		0.005: "00",
		0.01:  "01",
		0.095: "10",
		0.32:  "21",
		0.99:  "59",
		1.0:   "61",
		1.85:  "87",
		1.999: "89",
		2.0:   "92",
		2.15:  "97",
	}
	for stage, want := range cases {
		assert.Equal(t, want, c.Classify(stage), "stage %.3f", stage)
	}
}

func TestClassifierIsCropSpecific(t *testing.T) {
	cereals := ForCrop(specFor(t, "cereals"))
	cotton := ForCrop(specFor(t, "cotton"))
	assert.Equal(t, "31", cereals.Classify(0.62))
	assert.Equal(t, "51", cotton.Classify(0.62+0.1))
	assert.NotEqual(t, cereals.Classify(0.97), cotton.Classify(0.97))
}

func TestClassifyIsMonotonicInStage(t *testing.T) {
	for _, name := range []string{"cereals", "rice", "maize", "cotton"} {
		c := ForCrop(specFor(t, name))
		prev := c.Classify(0)
		for stage := 0.0; stage <= 2.5; stage += 0.005 {
			code := c.Classify(stage)
			assert.GreaterOrEqual(t, CompareCodes(code, prev), 0, "%s at %.3f: %s after %s", name, stage, code, prev)
			prev = code
		}
	}
}

func TestCompareCodes(t *testing.T) {
	assert.Equal(t, -1, CompareCodes("9", "10"))
	assert.Equal(t, 1, CompareCodes("10", "09"))
	assert.Equal(t, 0, CompareCodes("07", "7"))
	assert.Equal(t, -1, CompareCodes("10a", "9"), "non-numeric falls back to string order")
}

func TestCatalogSortsNumerically(t *testing.T) {
	cat := NewCatalog("test", []crop.StageEntry{
		{Code: "10"}, {Code: "9"}, {Code: "100"}, {Code: "01"},
	})
	var codes []string
	for _, e := range cat.Entries() {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{"01", "9", "10", "100"}, codes)
}

func TestCatalogFallsBackToStringOrder(t *testing.T) {
	cat := NewCatalog("test", []crop.StageEntry{
		{Code: "10"}, {Code: "9"}, {Code: "10b"}, {Code: "01"},
	})
	var codes []string
	for _, e := range cat.Entries() {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{"01", "10", "10b", "9"}, codes)
}

func TestCatalogLookup(t *testing.T) {
	cat := CatalogFor(specFor(t, "cereals"))
	e, err := cat.Lookup("65")
	require.NoError(t, err)
	assert.Equal(t, crop.CategoryFlowering, e.Category)

	_, err = cat.Lookup("66")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStageLookupMiss))
}

func TestNeighbors(t *testing.T) {
	cat := CatalogFor(specFor(t, "cereals"))
	codes := func(es []crop.StageEntry) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.Code)
		}
		return out
	}

	assert.Equal(t, []string{"09", "10"}, codes(cat.Neighbors("11", 2, Before)))
	assert.Equal(t, []string{"12", "13", "14"}, codes(cat.Neighbors("11", 3, After)))
	assert.Equal(t, []string{"00", "01"}, codes(cat.Neighbors("03", 5, Before)))
	assert.Equal(t, []string{"97", "99"}, codes(cat.Neighbors("92", 5, After)))
	assert.Empty(t, cat.Neighbors("00", 3, Before))
	assert.Empty(t, cat.Neighbors("99", 3, After))
	assert.Empty(t, cat.Neighbors("50", 0, After))

	// Codes absent from the catalog still split it by value.
	assert.Equal(t, []string{"51", "59"}, codes(cat.Neighbors("50", 2, After)))
	assert.Equal(t, []string{"41", "45"}, codes(cat.Neighbors("50", 2, Before)))
}

func TestEstimateBoundedByCatalog(t *testing.T) {
	cat := CatalogFor(specFor(t, "cereals"))
	assert.Equal(t, "00", cat.Estimate(0, 160).Code)
	assert.Equal(t, "99", cat.Estimate(1000, 160).Code)
	assert.Equal(t, "00", cat.Estimate(-5, 160).Code)
	mid := cat.Estimate(80, 160)
	assert.Equal(t, cat.Entries()[cat.Len()/2].Code, mid.Code)
}

func TestTrackerNeverRegresses(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, "21", tr.Reconcile("cereals", "21"))
	assert.Equal(t, "31", tr.Reconcile("cereals", "31"))
	assert.Equal(t, "31", tr.Reconcile("cereals", "25"))
	assert.Equal(t, "31", tr.Reconcile("cereals", "9"))

	high, ok := tr.Highest("cereals")
	require.True(t, ok)
	assert.Equal(t, "31", high)

	// Crops are tracked independently.
	assert.Equal(t, "10", tr.Reconcile("maize", "10"))
}

func TestTrackerResetClearsMemory(t *testing.T) {
	tr := NewTracker()
	tr.Reconcile("cereals", "65")
	tr.Reconcile("maize", "39")

	tr.Reset("cereals")
	assert.Equal(t, "12", tr.Reconcile("cereals", "12"))
	assert.Equal(t, "39", tr.Reconcile("maize", "14"))

	tr.ResetAll()
	_, ok := tr.Highest("maize")
	assert.False(t, ok)
	assert.Equal(t, "14", tr.Reconcile("maize", "14"))
}

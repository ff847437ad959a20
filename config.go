package relstore

// Configuration knobs from §6. PageSize is a var rather than a const
// because tests exercise small pages to force multi-page scans and
// evictions; production code should leave it at its default.
var (
	// PageSize is the fixed size, in bytes, of every page in a heap file.
	PageSize = 4096

	// DefaultPages is the default BufferPool capacity, in pages.
	DefaultPages = 50

	// IOCostPerPage is the assumed cost (in an abstract unit) of reading
	// one page from disk, used by TableStats.EstimateScanCost.
	IOCostPerPage = 1000.0

	// NumHistBins is the default number of equi-width buckets built for
	// each column's histogram. Must stay >= 100 for selectivity estimates
	// to be meaningfully precise.
	NumHistBins = 100
)

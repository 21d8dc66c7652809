package fonts

// MaxVariants caps every catalog.
const MaxVariants = 40

// Generate returns the ordered, duplicate-free variants of text for category.
// The result never holds empty strings or more than MaxVariants entries, and
// the same input always yields the same output.
//
// Persian results never contain ASCII letters: any rendering that would is
// dropped, so mixed-script input loses every variant carrying its Latin part.
func Generate(text string, category Category) []string {
	c := newCollector(MaxVariants)
	switch category {
	case Numeric:
		numericVariants(text, c)
	case Persian:
		c.reject = hasLatinLetter
		persianVariants(text, c)
	default:
		latinVariants(text, c)
	}
	return c.out
}

// Render classifies text and generates its catalog.
func Render(text string) (Category, []string) {
	category := Classify(text)
	return category, Generate(text, category)
}

type collector struct {
	limit  int
	seen   map[string]struct{}
	out    []string
	reject func(string) bool
}

func newCollector(limit int) *collector {
	return &collector{limit: limit, seen: make(map[string]struct{}, limit)}
}

// add appends v unless it is empty, rejected or already present. It reports
// whether more entries are accepted.
func (c *collector) add(v string) bool {
	if len(c.out) >= c.limit {
		return false
	}
	if v == "" || (c.reject != nil && c.reject(v)) {
		return true
	}
	if _, dup := c.seen[v]; dup {
		return true
	}
	c.seen[v] = struct{}{}
	c.out = append(c.out, v)
	return len(c.out) < c.limit
}

package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pcstore/internal/model"
	"pcstore/internal/taxonomy"
)

// CategoryKind selects which specifications are shown for a product
type CategoryKind int

const (
	KindGeneric CategoryKind = iota
	KindCPU
	KindRAM
	KindMonitor
	KindKeyboard
	KindMouse
	KindMicrophone
	KindWebcam
)

type specField struct {
	key   string
	label string
}

var kindFields = map[CategoryKind][]specField{
	KindCPU: {
		{"cores", "Cores"},
		{"threads", "Threads"},
		{"base_clock", "Base Clock"},
		{"boost_clock", "Boost Clock"},
		{"socket", "Socket"},
	},
	KindRAM: {
		{"capacity", "Capacity"},
		{"type", "Type"},
		{"speed", "Speed"},
		{"latency", "Latency"},
	},
	KindMonitor: {
		{"size", "Size"},
		{"resolution", "Resolution"},
		{"refresh_rate", "Refresh Rate"},
		{"panel", "Panel"},
	},
	KindKeyboard: {
		{"type", "Type"},
		{"switches", "Switches"},
		{"layout", "Layout"},
		{"connection", "Connection"},
		{"purpose", "Purpose"},
	},
	KindMouse: {
		{"sensor", "Sensor"},
		{"dpi", "DPI"},
		{"connection", "Connection"},
		{"purpose", "Purpose"},
	},
	KindMicrophone: {
		{"type", "Type"},
		{"polar_pattern", "Polar Pattern"},
		{"connection", "Connection"},
	},
	KindWebcam: {
		{"resolution", "Resolution"},
		{"fps", "FPS"},
		{"connection", "Connection"},
	},
}

var kindByKey = map[string]CategoryKind{
	"cpu":             KindCPU,
	"ram":             KindRAM,
	keyMonitors:       KindMonitor,
	keyMonitor32Plus:  KindMonitor,
	keyMonitor27:      KindMonitor,
	keyMonitor24:      KindMonitor,
	keyMonitor21Minus: KindMonitor,
	"keyboard":        KindKeyboard,
	"mouse":           KindMouse,
	"microphone":      KindMicrophone,
	"webcam":          KindWebcam,
}

var (
	productHeadingRe = regexp.MustCompile(`^### Product (\d+): \*\*(.*)\*\*$`)
	productIDRe      = regexp.MustCompile(`^- ID: (.*)$`)
	productRefRe     = regexp.MustCompile(`(?i)\bproduct\s*#?\s*(\d+)`)
)

// ResultFormatter renders retrieved products as a numbered list
type ResultFormatter struct {
	taxonomy *taxonomy.Map
}

// NewResultFormatter creates a formatter that resolves kinds through tax
func NewResultFormatter(tax *taxonomy.Map) *ResultFormatter {
	return &ResultFormatter{taxonomy: tax}
}

// Kind resolves the display kind of a product from its category ids
func (f *ResultFormatter) Kind(p model.Product) CategoryKind {
	if f.taxonomy == nil {
		return KindGeneric
	}
	for _, id := range []string{p.SubcategoryID, p.CategoryID} {
		if id == "" {
			continue
		}
		if key, ok := f.taxonomy.KeyForCategory(id); ok {
			if kind, ok := kindByKey[key]; ok {
				return kind
			}
		}
	}
	return KindGeneric
}

// Format numbers products 1..N in the order given. The numbering is bound to
// the product id printed in each block and must survive any later rewrite.
func (f *ResultFormatter) Format(products []model.Product) string {
	blocks := make([]string, 0, len(products))
	for i, p := range products {
		blocks = append(blocks, f.formatProduct(i+1, p))
	}
	return strings.Join(blocks, "\n\n")
}

func (f *ResultFormatter) formatProduct(n int, p model.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Product %d: **%s**\n", n, singleLine(p.Name))
	fmt.Fprintf(&b, "- ID: %s\n", singleLine(p.ID))
	fmt.Fprintf(&b, "- Brand: %s\n", orNA(singleLine(p.Brand)))
	fmt.Fprintf(&b, "- Category: %s\n", orNA(singleLine(p.CategoryPath)))
	fmt.Fprintf(&b, "- Price: %.2f PLN\n", p.Price)
	b.WriteString("- Specifications:")

	lines := f.specLines(p)
	if len(lines) == 0 {
		b.WriteString(" N/A")
	}
	for _, line := range lines {
		b.WriteString("\n  - ")
		b.WriteString(line)
	}
	return b.String()
}

// specLines picks the kind's fields that are present. A product carrying none
// of them is shown with all its specifications.
func (f *ResultFormatter) specLines(p model.Product) []string {
	var lines []string
	for _, field := range kindFields[f.Kind(p)] {
		if v, ok := specValue(p.Specifications, field.key); ok && strings.TrimSpace(v) != "" {
			lines = append(lines, field.label+": "+singleLine(v))
		}
	}
	if len(lines) > 0 {
		return lines
	}

	keys := make([]string, 0, len(p.Specifications))
	for k := range p.Specifications {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, singleLine(k)+": "+singleLine(p.Specifications[k]))
	}
	return lines
}

// singleLine collapses runs of whitespace, newlines included, to one space.
// Catalog text must not break the one-line heading and id layout.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// VerifyNumbering checks that text numbers exactly the given products 1..N,
// each number bound to the same product id
func VerifyNumbering(text string, products []model.Product) error {
	lines := strings.Split(text, "\n")
	next := 1
	for i := 0; i < len(lines); i++ {
		m := productHeadingRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n != next {
			return fmt.Errorf("product %d out of sequence, expected %d", n, next)
		}
		if n > len(products) {
			return fmt.Errorf("product %d has no retrieved product", n)
		}
		if i+1 >= len(lines) {
			return fmt.Errorf("product %d has no id line", n)
		}
		id := productIDRe.FindStringSubmatch(strings.TrimSpace(lines[i+1]))
		if id == nil {
			return fmt.Errorf("product %d has no id line", n)
		}
		if want := singleLine(products[n-1].ID); id[1] != want {
			return fmt.Errorf("product %d bound to %q, expected %q", n, id[1], want)
		}
		next++
	}
	if next-1 != len(products) {
		return fmt.Errorf("numbered %d products, expected %d", next-1, len(products))
	}
	return nil
}

// OutOfRangeReferences returns "Product N" references in text whose number
// is not in 1..count
func OutOfRangeReferences(text string, count int) []int {
	var out []int
	for _, m := range productRefRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n < 1 || n > count {
			out = append(out, n)
		}
	}
	return out
}

package service

import (
	"reflect"
	"strings"
	"testing"

	"pcstore/internal/model"
	"pcstore/internal/taxonomy"
)

func formatterProducts() []model.Product {
	return []model.Product{
		{
			ID:            "cpu-1",
			Name:          "AMD Ryzen 7 7800X3D",
			Brand:         "AMD",
			Price:         1799,
			CategoryID:    "cat-components",
			SubcategoryID: "sub-processor",
			CategoryPath:  "Computer Components > Processor",
			Specifications: model.Specifications{
				"Cores":       "8",
				"Threads":     "16",
				"Socket":      "AM5",
				"Boost Clock": "5.0 GHz",
				"TDP":         "120 W",
			},
		},
		{
			ID:            "mon-1",
			Name:          "Dell S2721DGF",
			Brand:         "Dell",
			Price:         1299.5,
			CategoryID:    "cat-monitors",
			SubcategoryID: "sub-monitors-27",
			Specifications: model.Specifications{
				"resolution":   "2560x1440",
				"refresh_rate": "165 Hz",
				"panel":        "IPS",
			},
		},
		{
			ID:            "gpu-1",
			Name:          "MSI RTX 4070",
			Brand:         "MSI",
			Price:         2899,
			SubcategoryID: "sub-graphics-cards",
			Specifications: model.Specifications{
				"vram":   "12 GB",
				"boost":  "2475 MHz",
				"length": "242 mm",
			},
		},
	}
}

func TestResultFormatter_Format(t *testing.T) {
	f := NewResultFormatter(taxonomy.Default())
	out := f.Format(formatterProducts())

	want := `### Product 1: **AMD Ryzen 7 7800X3D**
- ID: cpu-1
- Brand: AMD
- Category: Computer Components > Processor
- Price: 1799.00 PLN
- Specifications:
  - Cores: 8
  - Threads: 16
  - Boost Clock: 5.0 GHz
  - Socket: AM5

### Product 2: **Dell S2721DGF**
- ID: mon-1
- Brand: Dell
- Category: N/A
- Price: 1299.50 PLN
- Specifications:
  - Resolution: 2560x1440
  - Refresh Rate: 165 Hz
  - Panel: IPS

### Product 3: **MSI RTX 4070**
- ID: gpu-1
- Brand: MSI
- Category: N/A
- Price: 2899.00 PLN
- Specifications:
  - boost: 2475 MHz
  - length: 242 mm
  - vram: 12 GB`

	if out != want {
		t.Errorf("Format() =\n%s\n\nwant\n%s", out, want)
	}
}

func TestResultFormatter_Kind(t *testing.T) {
	f := NewResultFormatter(taxonomy.Default())

	tests := []struct {
		name string
		p    model.Product
		want CategoryKind
	}{
		{name: "cpu", p: model.Product{SubcategoryID: "sub-processor"}, want: KindCPU},
		{name: "ram", p: model.Product{SubcategoryID: "sub-ram"}, want: KindRAM},
		{name: "monitor tier", p: model.Product{SubcategoryID: "sub-monitors-32-plus"}, want: KindMonitor},
		{name: "monitor parent only", p: model.Product{CategoryID: "cat-monitors"}, want: KindMonitor},
		{name: "keyboard", p: model.Product{SubcategoryID: "sub-keyboards"}, want: KindKeyboard},
		{name: "mouse", p: model.Product{SubcategoryID: "sub-mice"}, want: KindMouse},
		{name: "microphone", p: model.Product{SubcategoryID: "sub-microphones"}, want: KindMicrophone},
		{name: "webcam", p: model.Product{SubcategoryID: "sub-webcams"}, want: KindWebcam},
		{name: "speakers", p: model.Product{SubcategoryID: "sub-speakers", CategoryID: "cat-peripherals"}, want: KindGeneric},
		{name: "unknown", p: model.Product{SubcategoryID: "sub-cables"}, want: KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Kind(tt.p); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultFormatter_KindFieldsMissing(t *testing.T) {
	f := NewResultFormatter(taxonomy.Default())
	p := model.Product{
		ID:             "kb-1",
		Name:           "Keyboard",
		SubcategoryID:  "sub-keyboards",
		Specifications: model.Specifications{"Color": "Black"},
	}

	out := f.Format([]model.Product{p})
	if !strings.Contains(out, "  - Color: Black") {
		t.Errorf("expected generic dump, got:\n%s", out)
	}

	out = f.Format([]model.Product{{ID: "x", Name: "Bare"}})
	if !strings.Contains(out, "- Specifications: N/A") {
		t.Errorf("expected N/A specifications, got:\n%s", out)
	}
}

func TestResultFormatter_MultilineCatalogText(t *testing.T) {
	f := NewResultFormatter(taxonomy.Default())
	products := []model.Product{{
		ID:             " mon-1\n",
		Name:           "Dell S2721DGF\n27in",
		Brand:          "Dell\r\n",
		CategoryPath:   "Monitors >\n27\"",
		SubcategoryID:  "sub-monitors-27",
		Specifications: model.Specifications{"resolution": "2560x1440\n(QHD)"},
	}}

	out := f.Format(products)
	for _, want := range []string{
		"### Product 1: **Dell S2721DGF 27in**\n- ID: mon-1\n",
		"- Brand: Dell\n",
		"- Category: Monitors > 27\"\n",
		"2560x1440 (QHD)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if err := VerifyNumbering(out, products); err != nil {
		t.Errorf("VerifyNumbering() = %v", err)
	}
}

func TestVerifyNumbering(t *testing.T) {
	f := NewResultFormatter(taxonomy.Default())
	products := formatterProducts()
	text := f.Format(products)

	if err := VerifyNumbering(text, products); err != nil {
		t.Fatalf("VerifyNumbering(formatted) = %v", err)
	}

	swapped := []model.Product{products[1], products[0], products[2]}
	tests := []struct {
		name     string
		text     string
		products []model.Product
	}{
		{name: "permuted products", text: text, products: swapped},
		{name: "filtered list", text: f.Format(products[:2]), products: products},
		{name: "renumbered", text: strings.Replace(text, "### Product 2:", "### Product 4:", 1), products: products},
		{name: "id removed", text: strings.Replace(text, "- ID: mon-1\n", "", 1), products: products},
		{name: "empty text", text: "", products: products},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyNumbering(tt.text, tt.products); err == nil {
				t.Error("expected numbering error")
			}
		})
	}

	if err := VerifyNumbering("", nil); err != nil {
		t.Errorf("empty list = %v, want nil", err)
	}
}

func TestOutOfRangeReferences(t *testing.T) {
	reply := "Product 1 is the best pick. product #3 is cheaper, but Product 7 does not exist and Product 0 neither."
	got := OutOfRangeReferences(reply, 3)
	if want := []int{7, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("OutOfRangeReferences() = %v, want %v", got, want)
	}
}

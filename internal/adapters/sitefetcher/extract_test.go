package sitefetcher

import (
	"strings"
	"testing"

	"property-harvester-service/internal/core/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailPageHTML = `<html><body>
	<h1 class="title">  Shitet banesa 3 dhomëshe në qendër  </h1>
	<div class="price-new"></div>
	<div class="price">95,000 €</div>
	<span class="address">Rr. Agim Ramadani, Prishtinë</span>
	<img class="photo" src="/img/1.jpg"/>
	<table class="specs">
		<tr><td>Sipërfaqja:</td><td>78 m2</td></tr>
		<tr><td>dhoma</td><td>3</td></tr>
		<tr><td colspan="2">broken row</td></tr>
	</table>
</body></html>`

func detailDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

// Попытки перебираются по порядку: пустой .price-new проигрывает .price
func TestExtractRecord_FallbackChain(t *testing.T) {
	source := domain.ListingSource{
		Fields: []domain.FieldSpec{
			{
				Name: "price",
				Attempts: []domain.ExtractRule{
					{Selector: ".price-new"},
					{Selector: ".price"},
				},
				Required: true,
			},
		},
	}

	record, err := extractRecord(detailDoc(t, detailPageHTML), source, "https://site.example/item/1")

	require.NoError(t, err)
	assert.Equal(t, "95,000 €", record.Values["price"])
}

func TestExtractRecord_OptionalFieldGetsDefault(t *testing.T) {
	source := domain.ListingSource{
		Fields: []domain.FieldSpec{
			{
				Name:     "floor",
				Attempts: []domain.ExtractRule{{Selector: ".floor"}},
				Default:  "N/A",
			},
		},
	}

	record, err := extractRecord(detailDoc(t, detailPageHTML), source, "https://site.example/item/1")

	require.NoError(t, err)
	assert.Equal(t, "N/A", record.Values["floor"])
}

func TestExtractRecord_MissingRequiredFieldFailsRecord(t *testing.T) {
	source := domain.ListingSource{
		Fields: []domain.FieldSpec{
			{
				Name:     "price",
				Attempts: []domain.ExtractRule{{Selector: ".does-not-exist"}},
				Required: true,
			},
		},
	}

	_, err := extractRecord(detailDoc(t, detailPageHTML), source, "https://site.example/item/1")

	var recErr *domain.RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "price", recErr.Field)
	assert.Equal(t, "https://site.example/item/1", recErr.URL)
}

func TestExtractRecord_AttrAndTransform(t *testing.T) {
	source := domain.ListingSource{
		Fields: []domain.FieldSpec{
			{
				Name:      "title",
				Attempts:  []domain.ExtractRule{{Selector: "h1.title"}},
				Transform: domain.TransformCollapse,
				Required:  true,
			},
			{
				Name:     "photo",
				Attempts: []domain.ExtractRule{{Selector: "img.photo", Attr: "src"}},
			},
		},
	}

	record, err := extractRecord(detailDoc(t, detailPageHTML), source, "https://site.example/item/1")

	require.NoError(t, err)
	assert.Equal(t, "Shitet banesa 3 dhomëshe në qendër", record.Values["title"])
	assert.Equal(t, "/img/1.jpg", record.Values["photo"])
}

func TestExtractRecord_LabelRowsTable(t *testing.T) {
	source := domain.ListingSource{
		Tables: []domain.TableSpec{
			{Name: "specs", Selector: "table.specs", Layout: domain.LayoutLabelRows},
		},
	}

	record, err := extractRecord(detailDoc(t, detailPageHTML), source, "https://site.example/item/1")

	require.NoError(t, err)
	assert.Equal(t, "78 m2", record.Characteristics["Sipërfaqja"])
	assert.Equal(t, "3", record.Characteristics["Dhoma"])
	assert.Equal(t, []string{"Sipërfaqja", "Dhoma"}, record.CharacteristicOrder)
}

func TestExtractRecord_HeaderRowTable(t *testing.T) {
	html := `<html><body><table class="grid">
		<tr><th>Rooms</th><th>Area</th></tr>
		<tr><td>2</td><td>54 m2</td></tr>
	</table></body></html>`

	source := domain.ListingSource{
		Tables: []domain.TableSpec{
			{Name: "grid", Selector: "table.grid", Layout: domain.LayoutHeaderRow},
		},
	}

	record, err := extractRecord(detailDoc(t, html), source, "https://site.example/item/2")

	require.NoError(t, err)
	assert.Equal(t, "2", record.Characteristics["Rooms"])
	assert.Equal(t, "54 m2", record.Characteristics["Area"])
}

func TestExtractRecord_DeriveFromCharacteristic(t *testing.T) {
	source := domain.ListingSource{
		Tables: []domain.TableSpec{
			{Name: "specs", Selector: "table.specs", Layout: domain.LayoutLabelRows},
		},
		Derived: []domain.DeriveRule{
			{
				Name:              "area",
				Kind:              domain.DeriveCharacteristic,
				CharacteristicKey: "Sipërfaqja",
				Default:           "N/A",
			},
			{
				Name:              "parking",
				Kind:              domain.DeriveCharacteristic,
				CharacteristicKey: "Parkingu",
				Default:           "N/A",
			},
		},
	}

	record, err := extractRecord(detailDoc(t, detailPageHTML), source, "https://site.example/item/1")

	require.NoError(t, err)
	assert.Equal(t, "78 m2", record.Values["area"])
	assert.Equal(t, "N/A", record.Values["parking"])
}

func TestExtractRecord_DeriveFromKeyword(t *testing.T) {
	source := domain.ListingSource{
		Fields: []domain.FieldSpec{
			{Name: "title", Attempts: []domain.ExtractRule{{Selector: "h1.title"}}, Transform: domain.TransformCollapse},
		},
		Derived: []domain.DeriveRule{
			{
				Name:        "property_type",
				Kind:        domain.DeriveKeyword,
				SourceField: "title",
				Keywords: map[string]string{
					"banesa":  "apartment",
					"shtëpia": "house",
					"lokali":  "commercial",
				},
				Default: "other",
			},
		},
	}

	record, err := extractRecord(detailDoc(t, detailPageHTML), source, "https://site.example/item/1")

	require.NoError(t, err)
	assert.Equal(t, "apartment", record.Values["property_type"])
}

func TestExtractRecord_TransactionHint(t *testing.T) {
	source := domain.ListingSource{TransactionHint: "sale"}

	record, err := extractRecord(detailDoc(t, detailPageHTML), source, "https://site.example/item/1")

	require.NoError(t, err)
	assert.Equal(t, "sale", record.Values["transaction_type"])
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "Sipërfaqja", normalizeLabel("  sipërfaqja: "))
	assert.Equal(t, "Viti i ndërtimit", normalizeLabel("viti   i\nndërtimit"))
	assert.Equal(t, "", normalizeLabel("  :"))
}

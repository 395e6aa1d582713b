// Package extract turns one parsed LIDO record into the values stored per artifact:
// measurements, the family label and the subject tags.
//
// Every function here is pure; the Vocabulary is built once at startup and
// never mutated.
package extract

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cognicore/sealmeta/pkg/sealmeta/internalerr"
	"github.com/cognicore/sealmeta/pkg/sealmeta/xmldoc"
)

const (
	// LIDONamespace is the default namespace of the record vocabulary.
	LIDONamespace = "http://www.lido-schema.org"

	// Width and Height are the dimension keys every Measurements value carries.
	Width  = "width"
	Height = "height"

	// Diameter labels a measurement that sets both width and height.
	Diameter = "diameter"

	// NotAvailable is the unit of the sentinel measurement.
	NotAvailable = "N/A"
)

// Missing is the sentinel for a dimension absent from the source document.
var Missing = Measurement{Value: -1, Unit: NotAvailable}

// UnitPolicy decides which unit is stored for an artifact.
type UnitPolicy string

const (
	// UnitFromWidth always stores width's unit, even when width is Missing.
	UnitFromWidth UnitPolicy = "width"
	// UnitFallback stores height's unit when width's unit is NotAvailable.
	UnitFallback UnitPolicy = "fallback"
)

// Valid reports whether p names a known policy.
func (p UnitPolicy) Valid() bool {
	return p == UnitFromWidth || p == UnitFallback
}

// Vocabulary is the read-only parsing configuration.
type Vocabulary struct {
	Namespace     string         // namespace of all structural elements
	LangNamespace string         // namespace of the language attribute
	TypeLanguage  string         // language of the measurement type label
	FamilySuffix  string         // token removed from the family label
	TagAnnotation *regexp.Regexp // annotation removed from tag terms
	UnitPolicy    UnitPolicy
}

// DefaultVocabulary returns the vocabulary for LIDO seal records.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Namespace:     LIDONamespace,
		LangNamespace: xmldoc.XMLNamespace,
		TypeLanguage:  "en",
		FamilySuffix:  "Siegel",
		TagAnnotation: regexp.MustCompile(` <.*>`),
		UnitPolicy:    UnitFromWidth,
	}
}

// Measurement is one value with its unit of measure.
type Measurement struct {
	Value float64
	Unit  string
}

// Measurements maps a dimension name to its measurement.
type Measurements map[string]Measurement

// Width returns the width measurement, or Missing.
func (m Measurements) Width() Measurement { return m.get(Width) }

// Height returns the height measurement, or Missing.
func (m Measurements) Height() Measurement { return m.get(Height) }

func (m Measurements) get(key string) Measurement {
	if v, ok := m[key]; ok {
		return v
	}
	return Missing
}

// Record is the normalized projection of one document.
type Record struct {
	Family       string
	Width        Measurement
	Height       Measurement
	Unit         string
	Tags         []string
	Measurements Measurements
}

// Extractor applies a Vocabulary to parsed documents.
type Extractor struct {
	vocab  Vocabulary
	suffix *regexp.Regexp
}

// New creates an extractor. A nil TagAnnotation or empty UnitPolicy falls
// back to the defaults.
func New(vocab Vocabulary) *Extractor {
	def := DefaultVocabulary()
	if vocab.TagAnnotation == nil {
		vocab.TagAnnotation = def.TagAnnotation
	}
	if vocab.UnitPolicy == "" {
		vocab.UnitPolicy = def.UnitPolicy
	}
	if vocab.LangNamespace == "" {
		vocab.LangNamespace = def.LangNamespace
	}
	ex := &Extractor{vocab: vocab}
	if vocab.FamilySuffix != "" {
		ex.suffix = regexp.MustCompile("(?i)" + regexp.QuoteMeta(vocab.FamilySuffix))
	}
	return ex
}

func (e *Extractor) name(local string) xml.Name {
	return xml.Name{Space: e.vocab.Namespace, Local: local}
}

// Extract runs all projections over doc and resolves the stored unit.
func (e *Extractor) Extract(doc *xmldoc.Node) (Record, error) {
	measurements, err := e.Measurements(doc)
	if err != nil {
		return Record{}, err
	}
	family, err := e.Family(doc)
	if err != nil {
		return Record{}, err
	}
	tags, err := e.Tags(doc)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Family:       family,
		Width:        measurements.Width(),
		Height:       measurements.Height(),
		Tags:         tags,
		Measurements: measurements,
	}
	rec.Unit = e.unit(rec.Width, rec.Height)
	return rec, nil
}

func (e *Extractor) unit(width, height Measurement) string {
	if e.vocab.UnitPolicy == UnitFallback && width.Unit == NotAvailable {
		return height.Unit
	}
	return width.Unit
}

// Measurements reads every measurement group in document order. A diameter
// populates width and height with the same pair; later groups overwrite
// earlier ones. Width and height are always present in the result.
func (e *Extractor) Measurements(doc *xmldoc.Node) (Measurements, error) {
	out := make(Measurements)

	for _, group := range doc.Descendants(e.name("objectMeasurements")) {
		valueNode := group.Find(e.name("measurementValue"))
		if valueNode == nil {
			return nil, missing("measurementValue")
		}
		unitNode := group.Find(e.name("measurementUnit"))
		if unitNode == nil {
			return nil, missing("measurementUnit")
		}
		typeNode := group.FindWhere(e.name("measurementType"), e.hasLanguage)
		if typeNode == nil {
			return nil, missing("measurementType")
		}

		raw := strings.TrimSpace(valueNode.Text())
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ExtractionError{
				Field:   "measurementValue",
				Message: fmt.Sprintf("%q is not a number", raw),
				Err:     internalerr.ErrMalformedValue,
			}
		}

		m := Measurement{Value: value, Unit: unitNode.Text()}
		if label := typeNode.Text(); label == Diameter {
			out[Width] = m
			out[Height] = m
		} else {
			out[label] = m
		}
	}

	for _, dim := range []string{Width, Height} {
		if _, ok := out[dim]; !ok {
			out[dim] = Missing
		}
	}
	return out, nil
}

func (e *Extractor) hasLanguage(n *xmldoc.Node) bool {
	lang, ok := n.Attr(e.vocab.LangNamespace, "lang")
	return ok && lang == e.vocab.TypeLanguage
}

// Family returns the classification label with the suffix token removed.
func (e *Extractor) Family(doc *xmldoc.Node) (string, error) {
	node := doc.Find(e.name("appellationValue"))
	if node == nil {
		return "", missing("appellationValue")
	}
	return e.StripFamily(node.Text()), nil
}

// StripFamily removes every occurrence of the suffix token, ignoring case, and
// trims whitespace. Removal repeats until no occurrence is left, so the result
// is a fixpoint: StripFamily(StripFamily(s)) == StripFamily(s).
func (e *Extractor) StripFamily(label string) string {
	if e.suffix != nil {
		for e.suffix.MatchString(label) {
			label = e.suffix.ReplaceAllString(label, "")
		}
	}
	return strings.TrimSpace(label)
}

// Tags returns the subject terms in document order with annotations removed.
// Duplicates are kept.
func (e *Extractor) Tags(doc *xmldoc.Node) ([]string, error) {
	terms := doc.DescendantsWithin(e.name("subjectSet"), e.name("term"))
	tags := make([]string, 0, len(terms))
	for _, term := range terms {
		if !term.HasText() {
			return nil, &ExtractionError{
				Field:   "term",
				Message: "subject term has no text",
				Err:     internalerr.ErrMissingNode,
			}
		}
		tags = append(tags, e.StripTag(term.Text()))
	}
	return tags, nil
}

// StripTag removes the annotation suffix from a subject term.
func (e *Extractor) StripTag(term string) string {
	return e.vocab.TagAnnotation.ReplaceAllString(term, "")
}

func missing(field string) *ExtractionError {
	return &ExtractionError{
		Field:   field,
		Message: "required node not found",
		Err:     internalerr.ErrMissingNode,
	}
}

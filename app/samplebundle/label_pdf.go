package samplebundle

import (
	"bytes"
	"fmt"
	"os"
	"unicode"

	"github.com/jung-kurt/gofpdf"
)

const (
	labelWidth  = 100.0
	labelHeight = 60.0
	labelFont   = "labelfont"
)

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isRTL(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hebrew, unicode.Arabic) {
			return true
		}
	}
	return false
}

// rtlText prepares s for gofpdf's RTL mode, which mirrors the whole string.
// Runs of left-to-right characters (numbers, latin words) are mirrored here
// first so they come out readable.
func rtlText(s string) string {
	runes := []rune(s)
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) || unicode.In(runes[i], unicode.Hebrew, unicode.Arabic) {
			i++
			continue
		}
		j := i
		for j < len(runes) && !unicode.IsSpace(runes[j]) && !unicode.In(runes[j], unicode.Hebrew, unicode.Arabic) {
			j++
		}
		for a, b := i, j-1; a < b; a, b = a+1, b-1 {
			runes[a], runes[b] = runes[b], runes[a]
		}
		i = j
	}
	return string(runes)
}

func newLabel(sample *Sample, fontPath string) (*gofpdf.Fpdf, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: labelWidth, Ht: labelHeight},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 0)

	unicodeFont := fontPath != ""
	if unicodeFont {
		font, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("loading label font: %w", err)
		}
		pdf.AddUTF8FontFromBytes(labelFont, "", font)
	}
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 22)
	pdf.Text(5, 14, sample.InternalId)

	pdf.SetFont("Arial", "I", 10)
	pdf.Text(5, 21, sample.Pathogen)

	pdf.SetFont("Arial", "", 9)
	y := 28.0
	lines := []string{
		"Date: " + sample.Date.Format("02/01/2006"),
		fmt.Sprintf("GPS: %.4f, %.4f", sample.Lat, sample.Lng),
	}
	for _, line := range lines {
		pdf.Text(5, y, line)
		y += 5
	}

	hebrew := []string{sample.Lab, sample.Region, sample.Crop, sample.Municipality}
	if unicodeFont {
		pdf.SetFont(labelFont, "", 9)
	}
	for _, text := range hebrew {
		if text == "" || (!unicodeFont && !isASCII(text)) {
			continue
		}
		if isRTL(text) {
			// x is the right edge in RTL mode
			pdf.RTL()
			pdf.Text(labelWidth-5, y, rtlText(text))
			pdf.LTR()
		} else {
			pdf.Text(5, y, text)
		}
		y += 5
		if y > labelHeight-3 {
			break
		}
	}

	pdf.SetLineWidth(0.3)
	pdf.Rect(2, 2, labelWidth-4, labelHeight-4, "D")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("rendering label for %s: %w", sample.InternalId, err)
	}
	return pdf, nil
}

// RenderLabel prints the sticker for a sample tube. Without a UTF-8 font
// (server.pdf_font_path) only ASCII fields are printed.
func RenderLabel(sample *Sample, fontPath string) ([]byte, error) {
	pdf, err := newLabel(sample, fontPath)
	if err != nil {
		return nil, err
	}
	buf := bytes.Buffer{}
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func LabelFilename(sample *Sample) string {
	return fmt.Sprintf("label_%s.pdf", sample.InternalId)
}

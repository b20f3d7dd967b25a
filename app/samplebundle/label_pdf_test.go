package samplebundle

import (
	"bytes"
	"encoding/binary"
	"os"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlab_backend/app/catalog"
	"onlab_backend/app/core"
)

func labelSample() *Sample {
	return &Sample{
		InternalId:    "B-0012",
		Pathogen:      "Botrytis cinerea",
		Date:          core.ParseNullTime("2024-03-01T08:00:00Z"),
		Lat:           30.6592,
		Lng:           35.242,
		Region:        "ערבה",
		Crop:          "פלפל",
		Lab:           "תחנת עדן - נדב ניצן",
		CollectorName: "דני <admin>",
		Priority:      "דחוף",
		Status:        StatusSent,
	}
}

func TestRenderLabel(t *testing.T) {
	data, err := RenderLabel(labelSample(), "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Equal(t, "label_B-0012.pdf", LabelFilename(labelSample()))
}

const labelTestFont = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"

func requireFont(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(labelTestFont); err != nil {
		t.Skipf("no unicode font at %s", labelTestFont)
	}
}

// pdfText is how gofpdf writes s with a UTF-8 font: UTF-16BE code units.
func pdfText(s string) []byte {
	out := []byte{}
	for _, unit := range utf16.Encode([]rune(s)) {
		out = binary.BigEndian.AppendUint16(out, unit)
	}
	return out
}

func TestRtlText(t *testing.T) {
	assert.Equal(t, "מלפפון", rtlText("מלפפון"))
	assert.Equal(t, "קיבוץ 21", rtlText("קיבוץ 12"))
	assert.Equal(t, "תחנת עדן - נדב ניצן", rtlText("תחנת עדן - נדב ניצן"))
	assert.Equal(t, "חלקה 3A", rtlText("חלקה A3"))
	assert.True(t, isRTL("ערבה"))
	assert.False(t, isRTL("Lab 3"))
}

func TestRenderLabel_UnicodeFont(t *testing.T) {
	requireFont(t)
	sample := labelSample()
	sample.Crop = "מלפפון"
	sample.Municipality = "קיבוץ 12"

	withFont, err := RenderLabel(sample, labelTestFont)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(withFont, []byte("%PDF")))
	asciiOnly, err := RenderLabel(sample, "")
	require.NoError(t, err)
	assert.Greater(t, len(withFont), len(asciiOnly), "font is embedded")

	pdf, err := newLabel(sample, labelTestFont)
	require.NoError(t, err)
	pdf.SetCompression(false)
	buf := bytes.Buffer{}
	require.NoError(t, pdf.Output(&buf))
	content := buf.Bytes()

	assert.True(t, bytes.Contains(content, pdfText("ןופפלמ")), "crop in visual order")
	assert.False(t, bytes.Contains(content, pdfText("מלפפון")), "crop not in logical order")
	assert.True(t, bytes.Contains(content, pdfText("12 ץוביק")), "digits stay left to right")
	assert.True(t, bytes.Contains(content, []byte("(B-0012)")))
}

func TestRenderLabel_MissingFont(t *testing.T) {
	_, err := RenderLabel(labelSample(), "/nonexistent/font.ttf")
	assert.Error(t, err)
}

func TestNewSampleMail(t *testing.T) {
	cat := catalog.Default()
	sample := labelSample()

	mail := NewSampleMail(sample, cat, []string{"lab@example.org"}, []byte("%PDF-1.3"))
	assert.Equal(t, []string{"lab@example.org"}, mail.To)
	assert.Equal(t, "ON-LAB-IL: דגימה חדשה B-0012", mail.Subject)
	assert.True(t, strings.HasPrefix(mail.Body, `<div dir="rtl">`))
	assert.Contains(t, mail.Body, "B-0012")
	assert.Contains(t, mail.Body, "נשלחה")
	assert.Contains(t, mail.Body, "דני &lt;admin&gt;")
	assert.NotContains(t, mail.Body, "יישוב")
	require.Len(t, mail.Attachments, 1)
	assert.Equal(t, "label_B-0012.pdf", mail.Attachments[0].Name)

	mail = NewSampleMail(sample, cat, []string{"lab@example.org"}, nil)
	assert.Empty(t, mail.Attachments)
}

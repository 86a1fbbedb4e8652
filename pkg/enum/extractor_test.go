package enum

import (
	"archive/zip"
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPAN = "4111111111111111"

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedKeys(files) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestExtractText_XLSX(t *testing.T) {
	content := buildZip(t, map[string]string{
		"xl/sharedStrings.xml": `<sst><si><t>Card</t></si><si><r><t>4111</t></r><r><t>111111111111</t></r></si></sst>`,
		"xl/worksheets/sheet1.xml": `<worksheet><sheetData><row><c><v>0</v></c><c><v>1</v></c></row></sheetData></worksheet>`,
		"xl/styles.xml":        `<styleSheet><numFmts><numFmt formatCode="4111111111111111"/></numFmts></styleSheet>`,
	})

	results, err := ExtractText("book.xlsx", content, ExtractLimits{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "xl/sharedStrings.xml", results[0].Name)
	assert.Equal(t, "Card\n"+testPAN, string(results[0].Content))
	assert.Equal(t, "xl/worksheets/sheet1.xml", results[1].Name)
	assert.Equal(t, "0\n1", string(results[1].Content))
}

func TestExtractText_DOCX(t *testing.T) {
	doc := `<w:document xmlns:w="w"><w:body>` +
		`<w:p><w:r><w:t>Card: 4111 </w:t></w:r><w:r><w:t>1111 1111 1111</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>second</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	content := buildZip(t, map[string]string{"word/document.xml": doc})

	results, err := ExtractText("letter.DOCX", content, ExtractLimits{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "word/document.xml", results[0].Name)
	assert.Equal(t, "Card: 4111 1111 1111 1111\nsecond", string(results[0].Content))
}

func TestExtractText_Zip(t *testing.T) {
	content := buildZip(t, map[string]string{
		"dir/a.txt": testPAN,
		"b.bin":     "\x00" + testPAN,
		"empty.txt": "",
	})

	results, err := ExtractText("x.zip", content, ExtractLimits{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b.bin", results[0].Name)
	assert.Equal(t, "\x00"+testPAN, string(results[0].Content))
	assert.Equal(t, "dir/a.txt", results[1].Name)
}

func TestExtractText_Limits(t *testing.T) {
	content := buildZip(t, map[string]string{
		"a.txt": "short",
		"b.txt": strings.Repeat("x", 100),
		"c.txt": "tiny",
	})

	t.Run("MaxMemberSize", func(t *testing.T) {
		results, err := ExtractText("x.zip", content, ExtractLimits{MaxMemberSize: 10})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a.txt", results[0].Name)
		assert.Equal(t, "c.txt", results[1].Name)
	})

	t.Run("MaxMembers", func(t *testing.T) {
		results, err := ExtractText("x.zip", content, ExtractLimits{MaxMembers: 1})
		require.NoError(t, err)
		require.Len(t, results, 1)
	})

	t.Run("MaxTotalSize", func(t *testing.T) {
		results, err := ExtractText("x.zip", content, ExtractLimits{MaxTotalSize: 50})
		require.NoError(t, err)
		assert.Len(t, results, 2, "stops after the member that crosses the budget")
	})
}

func TestExtractText_Invalid(t *testing.T) {
	for _, name := range []string{"x.zip", "x.xlsx", "x.docx", "x.7z", "x.pdf"} {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractText(name, []byte("definitely not an archive"), ExtractLimits{})
			assert.Error(t, err)
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := ExtractText("notes.txt", []byte("plain"), ExtractLimits{})
	assert.Error(t, err)
}

func TestGetExtension(t *testing.T) {
	assert.Equal(t, ".xlsx", getExtension("/a/Book.XLSX"))
	assert.Equal(t, ".gz", getExtension("a.tar.gz"))
	assert.Equal(t, "", getExtension("Makefile"))
}

func TestShouldExtract(t *testing.T) {
	tests := []struct {
		setting string
		path    string
		want    bool
	}{
		{"", "a.zip", false},
		{"all", "a.zip", true},
		{"all", "a.txt", false},
		{"zip,pdf", "a.PDF", true},
		{"zip, pdf", "a.pdf", true},
		{"zip", "a.7z", false},
		{"7z", "a.7z", true},
	}
	for _, tt := range tests {
		t.Run(tt.setting+"/"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldExtract(Config{ExtractArchives: tt.setting}, tt.path))
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"multiple spaces", "Hello    World", "Hello World"},
		{"leading and trailing spaces", "  Hello World  ", "Hello World"},
		{"newlines and tabs", "Hello\n\tWorld", "Hello World"},
		{"non-printable", "4111\x01" + "111111111111", testPAN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanText(tt.input))
		})
	}
}

package enum

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/bodgit/sevenzip"
	"github.com/ledongthuc/pdf"
)

// ExtractedContent represents text extracted from a document or archive member.
type ExtractedContent struct {
	Name    string // path within the archive (e.g., "xl/sharedStrings.xml")
	Content []byte // extracted content
}

// ExtractLimits bounds the work done for one archive.
type ExtractLimits struct {
	// MaxArchiveSize is the largest file read for extraction. Larger files
	// are scanned as raw bytes.
	MaxArchiveSize int64

	// MaxMemberSize skips members whose content exceeds it.
	MaxMemberSize int64

	// MaxMembers stops after this many members.
	MaxMembers int

	// MaxTotalSize stops once this many bytes have been extracted.
	MaxTotalSize int64
}

// DefaultExtractLimits returns the limits used when none are configured.
func DefaultExtractLimits() ExtractLimits {
	return ExtractLimits{
		MaxArchiveSize: 256 << 20,
		MaxMemberSize:  64 << 20,
		MaxMembers:     10000,
		MaxTotalSize:   512 << 20,
	}
}

func (l ExtractLimits) withDefaults() ExtractLimits {
	d := DefaultExtractLimits()
	if l.MaxArchiveSize <= 0 {
		l.MaxArchiveSize = d.MaxArchiveSize
	}
	if l.MaxMemberSize <= 0 {
		l.MaxMemberSize = d.MaxMemberSize
	}
	if l.MaxMembers <= 0 {
		l.MaxMembers = d.MaxMembers
	}
	if l.MaxTotalSize <= 0 {
		l.MaxTotalSize = d.MaxTotalSize
	}
	return l
}

// extractable lists the extensions ExtractText understands.
var extractable = []string{"xlsx", "docx", "pdf", "zip", "7z"}

// ExtractText extracts scannable content from supported files.
// Office documents and PDFs yield their text; zip and 7z archives yield the
// raw bytes of each member.
func ExtractText(path string, content []byte, limits ExtractLimits) ([]ExtractedContent, error) {
	limits = limits.withDefaults()

	switch getExtension(path) {
	case ".xlsx":
		return extractXLSX(content, limits)
	case ".docx":
		return extractDOCX(content, limits)
	case ".pdf":
		return extractPDF(content)
	case ".zip":
		return extractZip(content, limits)
	case ".7z":
		return extract7z(content, limits)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", getExtension(path))
	}
}

// IsExtractable reports whether ExtractText supports the file's extension.
func IsExtractable(path string) bool {
	ext := strings.TrimPrefix(getExtension(path), ".")
	for _, e := range extractable {
		if e == ext {
			return true
		}
	}
	return false
}

// getExtension returns the lowercased last extension, including the dot.
func getExtension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// shouldExtract checks if a file type should be extracted based on config.
func shouldExtract(config Config, path string) bool {
	if config.ExtractArchives == "" || !IsExtractable(path) {
		return false
	}
	if config.ExtractArchives == "all" {
		return true
	}
	ext := strings.TrimPrefix(getExtension(path), ".")
	for _, t := range strings.Split(strings.ToLower(config.ExtractArchives), ",") {
		if strings.TrimSpace(t) == ext {
			return true
		}
	}
	return false
}

// budget tracks member count and total bytes across one archive.
type budget struct {
	limits  ExtractLimits
	members int
	total   int64
}

func (b *budget) exhausted() bool {
	return b.members >= b.limits.MaxMembers || b.total >= b.limits.MaxTotalSize
}

// read reads a member, reporting false when it exceeds the member limit.
func (b *budget) read(r io.Reader) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, b.limits.MaxMemberSize+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > b.limits.MaxMemberSize {
		return nil, false, nil
	}
	b.members++
	b.total += int64(len(data))
	return data, true, nil
}

func openZip(content []byte) (*zip.Reader, error) {
	return zip.NewReader(bytes.NewReader(content), int64(len(content)))
}

// extractXLSX extracts text from Excel files (xlsx format).
func extractXLSX(content []byte, limits ExtractLimits) ([]ExtractedContent, error) {
	zipReader, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx as zip: %w", err)
	}

	b := &budget{limits: limits}
	var results []ExtractedContent
	for _, file := range zipReader.File {
		if b.exhausted() {
			break
		}

		var breaks map[string]bool
		switch {
		case file.Name == "xl/sharedStrings.xml":
			breaks = map[string]bool{"si": true}
		case strings.HasPrefix(file.Name, "xl/worksheets/sheet") && strings.HasSuffix(file.Name, ".xml"):
			breaks = map[string]bool{"c": true, "row": true}
		default:
			continue
		}

		data, ok := readZipMember(file, b)
		if !ok {
			continue
		}
		if text := extractXMLText(data, breaks); len(text) > 0 {
			results = append(results, ExtractedContent{Name: file.Name, Content: []byte(text)})
		}
	}

	return results, nil
}

// extractDOCX extracts text from Word documents (docx format).
func extractDOCX(content []byte, limits ExtractLimits) ([]ExtractedContent, error) {
	zipReader, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx as zip: %w", err)
	}

	b := &budget{limits: limits}
	var results []ExtractedContent
	for _, file := range zipReader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		data, ok := readZipMember(file, b)
		if !ok {
			continue
		}
		// Runs inside one paragraph are joined without a separator so a
		// number split across formatting runs stays contiguous.
		if text := extractXMLText(data, map[string]bool{"p": true, "tab": true, "br": true}); len(text) > 0 {
			results = append(results, ExtractedContent{Name: file.Name, Content: []byte(text)})
		}
	}

	return results, nil
}

// extractZip yields every regular member of a zip archive.
func extractZip(content []byte, limits ExtractLimits) ([]ExtractedContent, error) {
	zipReader, err := openZip(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	b := &budget{limits: limits}
	var results []ExtractedContent
	for _, file := range zipReader.File {
		if b.exhausted() {
			break
		}
		if file.FileInfo().IsDir() || file.UncompressedSize64 == 0 {
			continue
		}
		data, ok := readZipMember(file, b)
		if !ok {
			continue
		}
		results = append(results, ExtractedContent{Name: file.Name, Content: data})
	}
	return results, nil
}

func readZipMember(file *zip.File, b *budget) ([]byte, bool) {
	rc, err := file.Open()
	if err != nil {
		return nil, false
	}
	defer rc.Close()
	data, ok, err := b.read(rc)
	if err != nil {
		return nil, false
	}
	return data, ok
}

// extract7z yields every regular member of a 7-Zip archive.
func extract7z(content []byte, limits ExtractLimits) ([]ExtractedContent, error) {
	r, err := sevenzip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z: %w", err)
	}

	b := &budget{limits: limits}
	var results []ExtractedContent
	for _, f := range r.File {
		if b.exhausted() {
			break
		}
		if f.FileInfo().IsDir() || f.UncompressedSize == 0 {
			continue
		}
		if f.UncompressedSize > uint64(limits.MaxMemberSize) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, ok, err := b.read(rc)
		rc.Close()
		if err != nil || !ok {
			continue
		}
		results = append(results, ExtractedContent{Name: f.Name, Content: data})
	}
	return results, nil
}

// extractPDF extracts text from PDF files using ledongthuc/pdf.
func extractPDF(content []byte) (results []ExtractedContent, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var text strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		text.WriteString(pageText)
		text.WriteString("\n")
	}

	extracted := text.String()
	if len(strings.TrimSpace(extracted)) == 0 {
		return nil, nil
	}

	return []ExtractedContent{{Name: "content", Content: []byte(extracted)}}, nil
}

// extractXMLText collects the text nodes of an XML document. Text inside one
// element is concatenated; closing any element named in breaks starts a new
// line.
func extractXMLText(data []byte, breaks map[string]bool) string {
	var raw strings.Builder
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.CharData:
			raw.Write(t)
		case xml.EndElement:
			if breaks[t.Name.Local] {
				raw.WriteByte('\n')
			}
		}
	}

	var lines []string
	for _, line := range strings.Split(raw.String(), "\n") {
		if cleaned := cleanText(line); cleaned != "" {
			lines = append(lines, cleaned)
		}
	}
	return strings.Join(lines, "\n")
}

// cleanText removes extra whitespace and non-printable characters.
func cleanText(s string) string {
	var result strings.Builder
	lastSpace := false

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace {
				result.WriteRune(' ')
				lastSpace = true
			}
		} else if unicode.IsPrint(r) {
			result.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(result.String())
}

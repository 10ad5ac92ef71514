// Package normalize converts uploaded artifacts of different media types
// into a single plain-text blob suitable for chunking and embedding.
package normalize

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"lumina-rag/internal/models"
)

// VisionModel describes an image in text form given raw bytes and an
// instruction.
type VisionModel interface {
	Describe(ctx context.Context, data []byte, mimeType, instruction string) (string, error)
}

type Normalizer struct {
	vision VisionModel
	logger *zerolog.Logger
}

func New(vision VisionModel, logger *zerolog.Logger) *Normalizer {
	return &Normalizer{vision: vision, logger: logger}
}

// Normalize converts file bytes into one plain-text blob. Unrecognized or
// empty content yields an empty string, which callers treat as "nothing to
// index" rather than an error. A vision failure never fails the call: the
// image is represented by a placeholder naming the file and the error.
// Structured documents that cannot be opened (corrupt PDF, DOCX, ...)
// return an error, which fails the upload.
func (n *Normalizer) Normalize(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	if strings.HasPrefix(mimeType, "image/") {
		return n.normalizeImage(ctx, filename, mimeType, data), nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return normalizePDF(data)
	case ".docx":
		return normalizeDOCX(data)
	case ".pptx":
		return normalizePPTX(data)
	case ".xlsx":
		return normalizeXLSX(data)
	case ".ods":
		return normalizeODS(data)
	case ".md", ".markdown":
		return normalizeMarkdown(data), nil
	default:
		return normalizeText(data), nil
	}
}

// normalizeImage runs OCR and layout description through the vision
// capability, degrading to a placeholder blob on failure so the file is
// always indexable.
func (n *Normalizer) normalizeImage(ctx context.Context, filename, mimeType string, data []byte) string {
	description, err := n.vision.Describe(ctx, data, mimeType, models.VisionInstruction)
	if err != nil {
		n.logger.Warn().Err(err).Str("filename", filename).Msg("vision call failed, indexing placeholder")
		description = fmt.Sprintf("[Image %s: Vision processing skipped due to error: %v]", filename, err)
	}
	return fmt.Sprintf("Filename: %s\nImage Content (OCR/Vision):\n%s", filename, description)
}

func normalizePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var blob strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || pageText == "" {
			continue
		}
		blob.WriteString(strings.ReplaceAll(pageText, "\x00", ""))
	}
	return blob.String(), nil
}

func normalizeDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	content := extractTextFromXML(r.Editable().GetContent(), "<w:t")
	var blob strings.Builder
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		blob.WriteString(p)
		blob.WriteString("\n")
	}
	return blob.String(), nil
}

func normalizePPTX(data []byte) (string, error) {
	f, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pptx: %w", err)
	}

	var blob strings.Builder
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		slideXML, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideText := extractTextFromXML(string(slideXML), "<a:t")
		if strings.TrimSpace(slideText) != "" {
			blob.WriteString(slideText)
			blob.WriteString("\n")
		}
	}
	return blob.String(), nil
}

func normalizeXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}

	var blob strings.Builder
	for _, sheet := range f.Sheets {
		blob.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				blob.WriteString(cell.String() + "\t")
			}
			blob.WriteString("\n")
		}
	}
	return blob.String(), nil
}

func normalizeODS(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var blob strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		blob.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				blob.WriteString(cell + "\t")
			}
			blob.WriteString("\n")
		}
	}
	return blob.String(), nil
}

// normalizeText decodes raw bytes as UTF-8, discarding undecodable byte
// sequences rather than failing.
func normalizeText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

// extractTextFromXML pulls the character runs out of OOXML markup. openTag
// is the run element prefix without the closing bracket ("<w:t" for
// documents, "<a:t" for slides) so runs with attributes still match.
func extractTextFromXML(xmlContent, openTag string) string {
	closeTag := "</" + openTag[1:] + ">"
	var text strings.Builder
	parts := strings.Split(xmlContent, openTag)
	for i, part := range parts {
		if i == 0 {
			continue
		}
		// The prefix also splits on longer tag names like <w:tbl> and
		// <w:tab/>; a real run element continues with either '>' or an
		// attribute list.
		if part == "" || (part[0] != '>' && part[0] != ' ') {
			continue
		}
		startIdx := strings.Index(part, ">")
		if startIdx < 0 {
			continue
		}
		if startIdx > 0 && part[startIdx-1] == '/' { // self-closing empty run
			continue
		}
		endIdx := strings.Index(part, closeTag)
		if endIdx > startIdx {
			text.WriteString(part[startIdx+1:endIdx] + " ")
		}
	}
	return text.String()
}

// package formatter renders favorites and playlist entries to export formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
)

// Format names accepted by [Render].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the supported export formats.
func Formats() []string {
	return []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}
}

// ParseFormat normalizes a user supplied format name ("md" and "text" are accepted aliases).
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatText, "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidFlag, s, strings.Join(Formats(), ", "))
}

// CollectionExport is one collection as of ExportedAt.
type CollectionExport struct {
	Collection models.Collection `json:"collection"`
	Title      string            `json:"title"`
	ExportedAt time.Time         `json:"exported_at"`
	Entries    []models.Entry    `json:"entries"`
}

func NewCollectionExport(c models.Collection, entries []models.Entry) *CollectionExport {
	if entries == nil {
		entries = []models.Entry{}
	}
	return &CollectionExport{
		Collection: c,
		Title:      c.Label(),
		ExportedAt: time.Now().UTC(),
		Entries:    entries,
	}
}

// Render dispatches to the exporter for format.
func Render(export *CollectionExport, format string) ([]byte, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	switch f {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export, "")
	case FormatText:
		return ExportToText(export)
	default:
		return shared.MarshalJSON(export, true)
	}
}

// ExportToCSV converts a CollectionExport to CSV format with columns: Position, ID, ItemID, Title, Singer, Genre, SongURL, ImgURL
func ExportToCSV(export *CollectionExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "ItemID", "Title", "Singer", "Genre", "SongURL", "ImgURL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, e := range export.Entries {
		record := []string{
			strconv.Itoa(i + 1),
			e.ID.String(),
			e.ItemID.String(),
			e.Title,
			e.Singer,
			e.Genre,
			e.SongURL,
			e.ImgURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a numbered song list, with an optional cover image reference.
func ExportToMarkdown(export *CollectionExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	fmt.Fprintf(&buf, "**Songs**: %d\n", len(export.Entries))
	fmt.Fprintf(&buf, "**Exported**: %s\n\n", export.ExportedAt.Format(time.RFC3339))

	buf.WriteString("## Songs\n\n")
	for i, e := range export.Entries {
		genre := ""
		if e.Genre != "" {
			genre = fmt.Sprintf(" _%s_", e.Genre)
		}
		if e.SongURL != "" {
			fmt.Fprintf(&buf, "%d. %s - [%s](%s)%s\n", i+1, e.Singer, e.Title, e.SongURL, genre)
		} else {
			fmt.Fprintf(&buf, "%d. %s - %s%s\n", i+1, e.Singer, e.Title, genre)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders a plain numbered list.
func ExportToText(export *CollectionExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", export.Title)
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(export.Entries))

	for i, e := range export.Entries {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, e.Singer, e.Title)
	}

	return buf.Bytes(), nil
}

// DownloadImage fetches artwork with client (defaults to a 30s timeout client).
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult names the files written by [WriteCSVExport].
type CSVExportResult struct {
	EntriesFile  string
	MetadataFile string
}

type exportMetadata struct {
	Collection models.Collection `json:"collection"`
	Title      string            `json:"title"`
	ExportedAt time.Time         `json:"exported_at"`
	Count      int               `json:"count"`
}

// WriteCSVExport writes <base>_entries.csv and <base>_metadata.json. base defaults to the collection name.
func WriteCSVExport(export *CollectionExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = string(export.Collection)
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	entriesFile := baseFilepath + "_entries.csv"
	if err := os.WriteFile(entriesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := shared.MarshalJSON(exportMetadata{
		Collection: export.Collection,
		Title:      export.Title,
		ExportedAt: export.ExportedAt,
		Count:      len(export.Entries),
	}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{EntriesFile: entriesFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult names the directory and files written by [WriteMarkdownExport].
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// MarkdownOpts controls cover art for [WriteMarkdownExport]; a failed download is reported through Warn and skipped.
type MarkdownOpts struct {
	ImageURL string
	Client   *http.Client
	Warn     func(msg string, kv ...any)
}

// WriteMarkdownExport writes README.md (and cover.jpg when an image URL is given) into outputDir.
func WriteMarkdownExport(ctx context.Context, export *CollectionExport, outputDir string, opts MarkdownOpts) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = string(export.Collection)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}
	warn := opts.Warn
	if warn == nil {
		warn = func(string, ...any) {}
	}

	var coverImageFilename string
	if opts.ImageURL != "" {
		imageData, err := DownloadImage(ctx, opts.Client, opts.ImageURL)
		if err != nil {
			warn("failed to download cover image", "url", opts.ImageURL, "error", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				warn("failed to save cover image", "path", coverImagePath, "error", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteTextExport writes the plain list to path (default <collection>.txt).
func WriteTextExport(export *CollectionExport, path string) (string, error) {
	if path == "" {
		path = string(export.Collection) + ".txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the indented export to path (default <collection>.json).
func WriteJSONExport(export *CollectionExport, path string) (string, error) {
	if path == "" {
		path = string(export.Collection) + ".json"
	}

	data, err := shared.MarshalJSON(export, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// ManifestEntry is one line of an export manifest.
type ManifestEntry struct {
	Collection models.Collection `json:"collection"`
	Count      int               `json:"count"`
	Status     string            `json:"status"`
	Files      []string          `json:"files,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Manifest summarizes a multi-collection export.
type Manifest struct {
	Format     string          `json:"format"`
	ExportedAt time.Time       `json:"exported_at"`
	Successful int             `json:"successful_exports"`
	Failed     int             `json:"failed_exports"`
	Entries    []ManifestEntry `json:"collections"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/mathagent/models"
	"github.com/pluja/pocketbase"
	"github.com/tmc/langchaingo/documentloaders"
	"gopkg.in/yaml.v3"
)

func NewPocketbaseExporter(baseURL string, client *pocketbase.Client, collection, expand, questionFields, answerFields, files string) *PocketbaseExporter {
	return &PocketbaseExporter{
		baseURL:        baseURL,
		client:         client,
		collection:     collection,
		expand:         expand,
		questionFields: splitFields(questionFields),
		answerFields:   splitFields(answerFields),
		files:          splitFields(files),
		httpClient:     http.DefaultClient,
		PageSize:       10,
		Error:          nil,
	}
}

type PocketbaseExporter struct {
	// baseURL for downloading files, e.g. http://localhost:8090
	baseURL        string
	client         *pocketbase.Client
	collection     string
	expand         string
	questionFields []string
	answerFields   []string
	files          []string
	httpClient     *http.Client
	PageSize       int
	Error          error
}

func (p *PocketbaseExporter) Export(ctx context.Context) iter.Seq[ExportedDocument] {
	var page int
	return func(yield func(ExportedDocument) bool) {
		for {
			if ctx.Err() != nil {
				return
			}
			if p.Error != nil {
				return
			}
			page++
			response, err := p.client.List(p.collection, pocketbase.ParamsList{
				Page:   page,
				Size:   p.PageSize,
				Sort:   "-created",
				Expand: p.expand,
			})
			if err != nil {
				p.Error = err
				return
			}
			if len(response.Items) == 0 {
				return
			}
			for _, item := range response.Items {
				if !yield(p.createDocument(ctx, item)) {
					return
				}
			}
		}
	}
}

// useItemOrDefault returns the first non-empty string found at keys.
func useItemOrDefault(item map[string]any, keys []string, defaultValue string) string {
	for _, key := range keys {
		if value, ok := item[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return defaultValue
}

type ExportedDocument struct {
	ID       string
	Document models.Document
}

// createDocument maps a record to a question and answer. When no answer field
// is present, the remaining fields are rendered as YAML and used as the answer.
func (p *PocketbaseExporter) createDocument(ctx context.Context, item map[string]any) (ed ExportedDocument) {
	ed.ID, _ = item["id"].(string)
	ed.Document.Source = useItemOrDefault(item, []string{"url", "source"}, fmt.Sprintf("%s/%s", url.PathEscape(p.collection), url.PathEscape(ed.ID)))
	recursivelyApplyExpandedFields(item)
	ed.Document.Question = useItemOrDefault(item, p.questionFields, "")
	ed.Document.Answer = useItemOrDefault(item, p.answerFields, "")

	var fileNames []any
	for _, fileFieldName := range p.files {
		if names, ok := item[fileFieldName].([]any); ok {
			fileNames = append(fileNames, names...)
		}
	}

	if ed.Document.Answer == "" {
		for _, key := range concat(p.questionFields, p.files, []string{"url", "source"}) {
			delete(item, key)
		}
		recursivelyRemoveKeys(item, []string{"id", "collectionId", "collectionName", "created", "updated"})
		if len(item) > 0 {
			sb := new(strings.Builder)
			_ = yaml.NewEncoder(sb).Encode(item)
			ed.Document.Answer = strings.TrimSpace(sb.String())
		}
	}

	var sb strings.Builder
	sb.WriteString(ed.Document.Answer)
	for _, fileName := range fileNames {
		if ctx.Err() != nil {
			return
		}
		fileName, ok := fileName.(string)
		if !ok {
			p.Error = fmt.Errorf("file name is not a string")
			continue
		}
		if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
			continue
		}
		fileText, err := p.getPDFText(ctx, p.collection, ed.ID, fileName)
		if err != nil {
			p.Error = fmt.Errorf("failed to get file text: %w", err)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(fileText))
	}
	ed.Document.Answer = sb.String()

	return
}

func concat(s ...[]string) (op []string) {
	for _, v := range s {
		op = append(op, v...)
	}
	return op
}

func (p *PocketbaseExporter) getPDFText(ctx context.Context, collection, id, filename string) (string, error) {
	downloadURL, err := createURL(p.baseURL, "api", "files", collection, id, filename)
	if err != nil {
		return "", fmt.Errorf("failed to create download URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: unexpected status %d", resp.StatusCode)
	}

	pdfFile, err := os.CreateTemp("", "mathagent-import-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer pdfFile.Close()
	defer os.Remove(pdfFile.Name())

	fileSize, err := io.Copy(pdfFile, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	pdf := documentloaders.NewPDF(pdfFile, fileSize)
	docs, err := pdf.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load PDF: %w", err)
	}

	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(doc.PageContent)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func createURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse baseURL: %w", err)
	}
	u.Path = strings.Join(pathSegments, "/")
	return u.String(), nil
}

func applyExpandedFields(data map[string]any) (changed bool) {
	for key, value := range data {
		if key == "expand" {
			expandMap, ok := value.(map[string]any)
			if !ok {
				continue
			}

			// Replace relation IDs with the expanded records.
			for parentKey := range data {
				if parentKey == "expand" {
					continue
				}
				if expandedValue, found := expandMap[parentKey]; found {
					data[parentKey] = expandedValue
					changed = true
				}
			}

			delete(data, "expand")
			changed = true
		} else if nestedMap, ok := value.(map[string]any); ok {
			if applyExpandedFields(nestedMap) {
				changed = true
			}
		} else if nestedSlice, ok := value.([]any); ok {
			for _, item := range nestedSlice {
				if itemMap, isMap := item.(map[string]any); isMap {
					if applyExpandedFields(itemMap) {
						changed = true
					}
				}
			}
		}
	}

	return changed
}

func recursivelyApplyExpandedFields(data map[string]any) {
	for {
		if changesMade := applyExpandedFields(data); !changesMade {
			return
		}
	}
}

func recursivelyRemoveKeys(item any, keys []string) {
	switch item := item.(type) {
	case map[string]any:
		for _, key := range keys {
			delete(item, key)
		}
		var emptyKeys []string
		for k, v := range item {
			switch v := v.(type) {
			case map[string]any:
				if len(v) == 0 {
					emptyKeys = append(emptyKeys, k)
				}
			case []any:
				if len(v) == 0 {
					emptyKeys = append(emptyKeys, k)
				}
			case string:
				if v == "" {
					emptyKeys = append(emptyKeys, k)
				}
			}
			recursivelyRemoveKeys(v, keys)
		}
		for _, key := range emptyKeys {
			delete(item, key)
		}
	case []any:
		for _, value := range item {
			recursivelyRemoveKeys(value, keys)
		}
	}
}

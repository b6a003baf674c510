package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/a-h/mathagent/generate"
	"github.com/a-h/mathagent/kb"
	"github.com/a-h/mathagent/models"
	"github.com/google/go-cmp/cmp"
)

func TestCreateURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		paths    []string
		expected string
	}{
		{
			name:     "if no paths are provided, the base URL is used",
			baseURL:  "http://localhost",
			paths:    nil,
			expected: "http://localhost",
		},
		{
			name:     "base URLs with trailing slashes are supported",
			baseURL:  "http://localhost/",
			paths:    []string{"a"},
			expected: "http://localhost/a",
		},
		{
			name:     "spaces are URL path encoded",
			baseURL:  "http://localhost",
			paths:    []string{"file 1.txt"},
			expected: "http://localhost/file%201.txt",
		},
		{
			name:     "multiple paths are supported",
			baseURL:  "http://localhost",
			paths:    []string{"a", "b", "c.txt"},
			expected: "http://localhost/a/b/c.txt",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual, err := createURL(test.baseURL, test.paths...)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if actual != test.expected {
				t.Errorf("expected %q, got %q", test.expected, actual)
			}
		})
	}
}

func TestCreateURLError(t *testing.T) {
	baseURL := "://"
	paths := []string{"a", "b", "c.txt"}
	actual, err := createURL(baseURL, paths...)
	if err == nil {
		t.Errorf("expected error, got nil, %q", actual)
	}
}

func TestCreateDocument(t *testing.T) {
	tests := []struct {
		name     string
		item     map[string]any
		expected ExportedDocument
	}{
		{
			name: "question and answer fields are used",
			item: map[string]any{
				"id":       "abc",
				"question": " Solve 2x = 8 ",
				"answer":   "x = 4",
			},
			expected: ExportedDocument{
				ID:       "abc",
				Document: models.Document{Source: "problems/abc", Question: "Solve 2x = 8", Answer: "x = 4"},
			},
		},
		{
			name: "fallback fields are used in order",
			item: map[string]any{
				"id":       "abc",
				"url":      "https://example.com/problems/abc",
				"title":    "Solve 2x = 8",
				"solution": "Divide both sides by 2: x = 4",
			},
			expected: ExportedDocument{
				ID:       "abc",
				Document: models.Document{Source: "https://example.com/problems/abc", Question: "Solve 2x = 8", Answer: "Divide both sides by 2: x = 4"},
			},
		},
		{
			name: "remaining fields become the answer when no answer field exists",
			item: map[string]any{
				"id":       "abc",
				"created":  "2024-01-01",
				"question": "Solve 2x = 8",
				"working":  "2x / 2 = 8 / 2",
				"result":   "x = 4",
				"notes":    "",
			},
			expected: ExportedDocument{
				ID:       "abc",
				Document: models.Document{Source: "problems/abc", Question: "Solve 2x = 8", Answer: "result: x = 4\nworking: 2x / 2 = 8 / 2"},
			},
		},
		{
			name: "expanded relations are used",
			item: map[string]any{
				"id":       "abc",
				"question": "Solve 2x = 8",
				"topic":    "rel1",
				"expand": map[string]any{
					"topic": map[string]any{"name": "algebra"},
				},
			},
			expected: ExportedDocument{
				ID:       "abc",
				Document: models.Document{Source: "problems/abc", Question: "Solve 2x = 8", Answer: "topic:\n    name: algebra"},
			},
		},
		{
			name: "non-PDF files are ignored",
			item: map[string]any{
				"id":          "abc",
				"question":    "Solve 2x = 8",
				"answer":      "x = 4",
				"attachments": []any{"diagram.png"},
			},
			expected: ExportedDocument{
				ID:       "abc",
				Document: models.Document{Source: "problems/abc", Question: "Solve 2x = 8", Answer: "x = 4"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPocketbaseExporter("http://localhost:8090", nil, "problems", "", "question,title,name", "answer,solution", "attachments")
			actual := p.createDocument(context.Background(), tt.item)
			if p.Error != nil {
				t.Fatalf("unexpected error: %v", p.Error)
			}
			if diff := cmp.Diff(tt.expected, actual); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestSplitFields(t *testing.T) {
	actual := splitFields(" question, ,title,")
	if diff := cmp.Diff([]string{"question", "title"}, actual); diff != "" {
		t.Error(diff)
	}
	if actual := splitFields(""); actual != nil {
		t.Errorf("expected nil, got %v", actual)
	}
}

func TestLoadCSVFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "jee_math.csv")
	if err := os.WriteFile(name, []byte("Solve 2x = 8,x = 4\nmissing answer,\n"), 0o600); err != nil {
		t.Fatalf("failed to write CSV: %v", err)
	}
	records, err := loadCSVFile(slog.New(slog.NewJSONHandler(io.Discard, nil)), name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []kb.Record{{Source: "jee_math.csv#1", Question: "Solve 2x = 8", Answer: "x = 4"}}
	if diff := cmp.Diff(expected, records); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff(models.Document{Source: "jee_math.csv#1", Question: "Solve 2x = 8", Answer: "x = 4"}, recordToDocument(records[0])); diff != "" {
		t.Error(diff)
	}
}

func TestModeOrDefault(t *testing.T) {
	dir := t.TempDir()
	write := func(name, contents string) string {
		fn := filepath.Join(dir, name)
		if err := os.WriteFile(fn, []byte(contents), 0o600); err != nil {
			t.Fatalf("failed to write prompt: %v", err)
		}
		return fn
	}

	t.Run("an empty file name returns the default", func(t *testing.T) {
		m, err := modeOrDefault("", generate.Web)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Prompt("q", "c") != generate.Web.Prompt("q", "c") {
			t.Error("expected the default web prompt")
		}
	})
	t.Run("a file overrides the template", func(t *testing.T) {
		m, err := modeOrDefault(write("web.txt", "Results: %[2]s Question: %[1]s"), generate.Web)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual := m.Prompt("q", "c"); actual != "Results: c Question: q" {
			t.Errorf("unexpected prompt %q", actual)
		}
		if m.Name != generate.Web.Name {
			t.Errorf("expected name %q, got %q", generate.Web.Name, m.Name)
		}
	})
	t.Run("templates without the question are rejected", func(t *testing.T) {
		if _, err := modeOrDefault(write("bad.txt", "no question here"), generate.Web); err == nil {
			t.Error("expected error, got nil")
		}
	})
	t.Run("grounded templates must keep the context", func(t *testing.T) {
		for _, def := range []generate.Mode{generate.Knowledge, generate.Web} {
			if _, err := modeOrDefault(write(def.Name+".txt", "Question: %[1]s"), def); err == nil {
				t.Errorf("%s: expected error, got nil", def.Name)
			}
		}
	})
	t.Run("the no-answer template may omit the context", func(t *testing.T) {
		m, err := modeOrDefault(write("no-answer.txt", "Question: %[1]s"), generate.NoAnswer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual := m.Prompt("q", ""); actual != "Question: q" {
			t.Errorf("unexpected prompt %q", actual)
		}
	})
	t.Run("missing files are an error", func(t *testing.T) {
		if _, err := modeOrDefault(filepath.Join(dir, "missing.txt"), generate.Web); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

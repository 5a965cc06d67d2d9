// Package extractor asks a language model for the concepts of a course document.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/revise/internal/model"
)

var (
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("extractor: empty response")
	// ErrInvalidJSON is returned when no JSON payload can be decoded from the answer.
	ErrInvalidJSON = errors.New("extractor: invalid JSON in response")
	// ErrUnknownProvider is returned by NewClient for an unsupported provider.
	ErrUnknownProvider = errors.New("extractor: unknown provider")
)

// Client sends one system+user prompt pair and returns the raw answer.
type Client interface {
	Request(ctx context.Context, system, prompt string) (string, error)
}

// Extractor turns document text into concepts.
type Extractor struct {
	client   Client
	maxChars int
}

// New builds an extractor. Content longer than maxChars runes is truncated.
func New(client Client, maxChars int) *Extractor {
	return &Extractor{client: client, maxChars: maxChars}
}

const systemPrompt = `Tu es un expert pédagogique qui prépare des candidats au brevet fédéral.
Tu extrais les concepts clés d'un support de cours et tu réponds uniquement en JSON valide.`

const promptTemplate = `Analyse le document "%s" (module %s) et extrais les concepts importants pour l'examen.

Réponds avec un objet JSON de la forme :
{"concepts": [{
  "name": "nom court du concept",
  "description": "explication en une ou deux phrases",
  "category": "thème",
  "importance": "critical | high | medium | low",
  "prerequisites": ["noms d'autres concepts à connaître avant"],
  "keywords": ["mots-clés"],
  "page_references": ["pages ou sections"],
  "exam_relevant": true
}]}

Document :
---
%s
---`

// Extract returns the concepts of doc with ids "<filename>_<index>".
func (e *Extractor) Extract(ctx context.Context, doc model.Document) ([]model.Concept, error) {
	if doc.ExtractErr != nil {
		return nil, fmt.Errorf("no text for %s: %w", doc.Filename, doc.ExtractErr)
	}
	module := doc.Module
	if module == "" {
		module = "non précisé"
	}
	prompt := fmt.Sprintf(promptTemplate, doc.Filename, module, truncateRunes(doc.Content, e.maxChars))
	raw, err := e.client.Request(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("concept extraction failed for %s: %w", doc.Filename, err)
	}
	concepts, err := ParseConcepts(raw)
	if err != nil {
		return nil, fmt.Errorf("concept extraction failed for %s: %w", doc.Filename, err)
	}
	out := make([]model.Concept, 0, len(concepts))
	for _, c := range concepts {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		c.ID = fmt.Sprintf("%s_%d", doc.Filename, len(out))
		c.SourceDocument = doc.Filename
		if c.Module == "" {
			c.Module = doc.Module
		}
		if c.Importance == "" {
			c.Importance = model.ImportanceMedium
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseConcepts decodes a model answer. It accepts an object with a
// "concepts" list or a bare list, optionally wrapped in a code fence or prose.
func ParseConcepts(raw string) ([]model.Concept, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return nil, ErrEmptyResponse
	}
	payload = stripCodeFence(payload)
	if concepts, ok := decodeConcepts(payload); ok {
		return concepts, nil
	}

	obj, list := strings.Index(payload, "{"), strings.Index(payload, "[")
	candidates := []string{enclosed(payload, "{", "}"), enclosed(payload, "[", "]")}
	if list >= 0 && (obj < 0 || list < obj) {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if concepts, ok := decodeConcepts(c); ok {
			return concepts, nil
		}
	}
	return nil, ErrInvalidJSON
}

func decodeConcepts(payload string) ([]model.Concept, bool) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &wrapped); err == nil {
		inner, ok := wrapped["concepts"]
		if !ok {
			return nil, false
		}
		var concepts []model.Concept
		if err := json.Unmarshal(inner, &concepts); err != nil {
			return nil, false
		}
		return concepts, true
	}
	var list []model.Concept
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		return nil, false
	}
	return list, true
}

func enclosed(s, open, closing string) string {
	start, end := strings.Index(s, open), strings.LastIndex(s, closing)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

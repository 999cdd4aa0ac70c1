// Package extract turns a loaded page into structured data.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/FranksOps/hnscrape/internal/browser"
	"github.com/PuerkitoBio/goquery"
)

// Extractor pulls data out of the page's current document.
type Extractor interface {
	Extract(ctx context.Context, page browser.Page) (any, error)
}

// Func adapts an ordinary function to Extractor.
type Func func(ctx context.Context, page browser.Page) (any, error)

// Extract calls f.
func (f Func) Extract(ctx context.Context, page browser.Page) (any, error) {
	return f(ctx, page)
}

// Script evaluates a JavaScript function definition in the page and returns
// its JSON value untouched.
type Script string

// Extract evaluates the script and returns its result as json.RawMessage.
func (s Script) Extract(ctx context.Context, page browser.Page) (any, error) {
	if strings.TrimSpace(string(s)) == "" {
		return nil, &browser.ExtractionError{Err: errors.New("empty script")}
	}
	var raw json.RawMessage
	if err := page.Evaluate(ctx, string(s), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DefaultScript returns the document title and URL.
const DefaultScript Script = `() => ({ title: document.title, url: location.href })`

// Selector queries the serialized document with a CSS selector. With Attr
// set it collects that attribute from every match, skipping elements that
// lack it; otherwise it collects trimmed text.
type Selector struct {
	CSS  string
	Attr string
}

// Extract runs FromHTML over the page's serialized document.
func (s Selector) Extract(ctx context.Context, page browser.Page) (any, error) {
	if s.CSS == "" {
		return nil, &browser.ExtractionError{Err: errors.New("empty selector")}
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return s.FromHTML(html)
}

// FromHTML applies the selector to an HTML document.
func (s Selector) FromHTML(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &browser.ExtractionError{Err: err}
	}

	values := []string{}
	doc.Find(s.CSS).Each(func(_ int, sel *goquery.Selection) {
		if s.Attr != "" {
			if v, ok := sel.Attr(s.Attr); ok {
				values = append(values, v)
			}
			return
		}
		values = append(values, strings.TrimSpace(sel.Text()))
	})
	return values, nil
}

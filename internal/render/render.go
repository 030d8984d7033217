// Package render merges a record into a text template.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/mesh-intelligence/lookup/pkg/types"
)

// FeaturesKey is the template field holding the feature list.
const FeaturesKey = "features"

var funcs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"money": func(v any) string { return fmt.Sprintf("%.2f", toFloat(v)) },
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	default:
		return 0
	}
}

// Data returns the template data for rec: each field under its column name,
// and features under FeaturesKey. A column named features is shadowed.
func Data(rec *types.Record, features []string) map[string]any {
	data := make(map[string]any)
	if rec != nil {
		data = rec.Map()
	}
	if features == nil {
		features = []string{}
	}
	data[FeaturesKey] = features
	return data
}

// Parse compiles a template. References to missing fields fail at
// execution instead of rendering "<no value>".
func Parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return t, nil
}

// Render executes text against rec and features, writing the result to w.
func Render(w io.Writer, text string, rec *types.Record, features []string) error {
	t, err := Parse("record", text)
	if err != nil {
		return err
	}
	if err := t.Execute(w, Data(rec, features)); err != nil {
		return fmt.Errorf("rendering template: %w", err)
	}
	return nil
}

// RenderFile reads the template at path and renders it like Render.
func RenderFile(w io.Writer, path string, rec *types.Record, features []string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}
	t, err := Parse(filepath.Base(path), string(text))
	if err != nil {
		return err
	}
	if err := t.Execute(w, Data(rec, features)); err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return nil
}

package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"text/template"
)

//go:embed library
var builtin embed.FS

// LoadFromDirectory loads prompts and schemas into the global registry,
// overriding built-ins with the same ID.
// Expected structure:
//
//	baseDir/
//	  prompts/
//	    dpr/
//	      narrative.json
//	  schemas/
//	    dpr_content.json
func LoadFromDirectory(baseDir string) error {
	if _, err := os.Stat(baseDir); err != nil {
		return fmt.Errorf("prompt directory not found: %w", err)
	}
	registry := Get()
	if err := loadFS(registry, os.DirFS(baseDir), "."); err != nil {
		return err
	}
	fmt.Printf("[prompt.Loader] Loaded %d prompts from %s\n", registry.Count(), baseDir)
	return nil
}

func loadFS(r *Registry, fsys fs.FS, root string) error {
	promptDir := path.Join(root, "prompts")
	if err := loadPrompts(r, fsys, promptDir); err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	if err := loadSchemas(r, fsys, path.Join(root, "schemas")); err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	return nil
}

// loadPrompts walks the prompts directory for .json templates
func loadPrompts(r *Registry, fsys fs.FS, dir string) error {
	if _, err := fs.Stat(fsys, dir); err != nil {
		return nil
	}

	return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		var pt PromptTemplate
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", p, err)
		}
		if pt.ID == "" {
			pt.ID = generateIDFromPath(p, dir)
		}
		if pt.Category == "" {
			pt.Category = detectCategory(p, dir)
		}
		if _, err := template.New(pt.ID).Parse(pt.UserPromptTmpl); err != nil {
			return fmt.Errorf("invalid template in %s: %w", p, err)
		}

		return r.Register(&pt)
	})
}

// loadSchemas registers each schema file under its base name
func loadSchemas(r *Registry, fsys fs.FS, dir string) error {
	if _, err := fs.Stat(fsys, dir); err != nil {
		return nil
	}

	return fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read schema %s: %w", p, err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("schema %s is not valid JSON", p)
		}

		baseName := strings.TrimSuffix(path.Base(p), ".json")
		return r.RegisterSchema(&ResponseSchema{
			ID:         baseName,
			Name:       baseName,
			JSONSchema: string(data),
		})
	})
}

// generateIDFromPath creates a prompt ID from the file path
// e.g. "prompts/dpr/narrative.json" -> "dpr.narrative"
func generateIDFromPath(p string, baseDir string) string {
	rel := strings.TrimPrefix(strings.TrimPrefix(p, baseDir), "/")
	rel = strings.TrimSuffix(rel, ".json")
	return strings.ReplaceAll(rel, "/", ".")
}

// detectCategory extracts the category from the folder structure
func detectCategory(p string, baseDir string) string {
	rel := strings.TrimPrefix(strings.TrimPrefix(p, baseDir), "/")
	parts := strings.Split(rel, "/")
	if len(parts) > 1 {
		return parts[0]
	}
	return "default"
}

// RenderUserPrompt executes the user prompt template with the given context
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	for _, v := range pt.Variables {
		if _, ok := ctx.Variables[v.Name]; ok {
			continue
		}
		if v.Required {
			return "", fmt.Errorf("prompt %s: missing required variable %s", pt.ID, v.Name)
		}
		if v.Type == "string" || v.Type == "" {
			ctx.Variables[v.Name] = v.Default
		} else {
			ctx.Variables[v.Name] = nil
		}
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

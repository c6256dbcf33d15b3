// Package templates supplies the read-only form templates describing
// Vietnamese business-registration dossiers. Templates load from YAML
// files when a directory is configured, otherwise the built-in set is
// used.
package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

type Repository struct {
	templates map[string]*core.FormTemplate
	order     []string
}

// NewRepository loads all *.yaml/*.yml files from dir. An empty dir, a
// missing directory, or a directory with no template files falls back
// to the built-in templates.
func NewRepository(dir string, logger *zap.Logger) (*Repository, error) {
	repo := &Repository{templates: make(map[string]*core.FormTemplate)}

	if dir != "" {
		loaded, err := repo.loadDir(dir, logger)
		if err != nil {
			return nil, err
		}
		if loaded > 0 {
			logger.Info("form templates loaded", zap.String("dir", dir), zap.Int("count", loaded))
			return repo, nil
		}
		logger.Warn("no template files found, using built-in templates", zap.String("dir", dir))
	}

	for _, tmpl := range Builtin() {
		repo.add(tmpl)
	}
	return repo, nil
}

func (r *Repository) loadDir(dir string, logger *zap.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read templates dir %s: %w", dir, err)
	}

	// Stable order: lexical file name order defines List order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	loaded := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return 0, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		var tmpl core.FormTemplate
		if err := yaml.Unmarshal(data, &tmpl); err != nil {
			return 0, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		if tmpl.Name == "" || len(tmpl.Fields) == 0 {
			logger.Warn("skipping template without name or fields", zap.String("file", name))
			continue
		}
		r.add(&tmpl)
		loaded++
	}
	return loaded, nil
}

func (r *Repository) add(tmpl *core.FormTemplate) {
	if _, exists := r.templates[tmpl.Name]; !exists {
		r.order = append(r.order, tmpl.Name)
	}
	r.templates[tmpl.Name] = tmpl
}

func (r *Repository) Get(name string) (*core.FormTemplate, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrTemplateNotFound, name)
	}
	return tmpl, nil
}

func (r *Repository) List() []*core.FormTemplate {
	out := make([]*core.FormTemplate, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.templates[name])
	}
	return out
}

package mail

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/flatcms/accounts/internal/storage"
	"github.com/flatcms/accounts/internal/store"
)

//go:embed templates/*.yaml
var builtin embed.FS

const templatesRoot = "emails"

// Template is an email document with separate subject and content. Content
// is Markdown.
type Template struct {
	Subject string `yaml:"subject"`
	Content string `yaml:"content"`
}

// Templates loads email templates from emails/<name>.yaml in the record
// store, falling back to the built-in set.
type Templates struct {
	storage *storage.Storage
}

func NewTemplates(s *storage.Storage) *Templates {
	return &Templates{storage: s}
}

func (t *Templates) Load(ctx context.Context, name string) (Template, error) {
	key, err := storage.Join(templatesRoot, name+".yaml")
	if err != nil {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	data, err := t.storage.Read(ctx, key)
	if errors.Is(err, storage.ErrNotExist) {
		data, err = builtin.ReadFile("templates/" + name + ".yaml")
		if errors.Is(err, fs.ErrNotExist) {
			return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
		}
	}
	if err != nil {
		return Template{}, err
	}

	var tpl Template
	if err := store.Decode(data, &tpl); err != nil {
		return Template{}, fmt.Errorf("email template %q: %w", name, err)
	}
	return tpl, nil
}

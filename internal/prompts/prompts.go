// Package prompts serves the MCP prompt catalog. Prompts are declared in an
// embedded YAML file and rendered with text/template.
package prompts

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"gitingest-mcp/server/internal/apperr"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Argument describes one prompt argument.
type Argument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Prompt is a catalog entry.
type Prompt struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Arguments   []Argument `yaml:"arguments"`
	Template    string     `yaml:"template"`

	tmpl *template.Template
}

// Message is one rendered prompt message.
type Message struct {
	Role string
	Text string
}

// Rendered is a prompt together with its messages for a set of arguments.
type Rendered struct {
	Prompt   Prompt
	Messages []Message
}

// templateData is the value templates are executed against.
type templateData struct {
	URL   string
	Focus string
	Args  map[string]string
}

type catalogFile struct {
	Prompts []Prompt `yaml:"prompts"`
}

// Catalog holds prompts in declaration order.
type Catalog struct {
	prompts []Prompt
	index   map[string]int
}

// Default loads the embedded catalog.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// Load parses a YAML catalog and compiles its templates.
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse prompt catalog")
	}

	c := &Catalog{index: make(map[string]int, len(file.Prompts))}
	for _, p := range file.Prompts {
		if p.Name == "" {
			return nil, errors.New("prompt catalog: entry without a name")
		}
		if _, dup := c.index[p.Name]; dup {
			return nil, errors.Errorf("prompt catalog: duplicate prompt %q", p.Name)
		}
		tmpl, err := template.New(p.Name).Option("missingkey=zero").Parse(p.Template)
		if err != nil {
			return nil, errors.Wrapf(err, "prompt %q", p.Name)
		}
		p.tmpl = tmpl
		c.index[p.Name] = len(c.prompts)
		c.prompts = append(c.prompts, p)
	}
	return c, nil
}

// List returns the catalog entries.
func (c *Catalog) List() []Prompt {
	out := make([]Prompt, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// Get renders the named prompt. Arguments are optional at render time; an
// absent url or focus is left out of the text.
func (c *Catalog) Get(name string, args map[string]any) (*Rendered, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, apperr.UnknownPrompt(name)
	}
	p := c.prompts[i]

	data := templateData{Args: make(map[string]string, len(args))}
	for k, v := range args {
		if s, ok := v.(string); ok {
			data.Args[k] = strings.TrimSpace(s)
		}
	}
	data.URL = data.Args["url"]
	data.Focus = data.Args["focus"]

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "render prompt %q", name)
	}
	return &Rendered{
		Prompt:   p,
		Messages: []Message{{Role: "user", Text: buf.String()}},
	}, nil
}

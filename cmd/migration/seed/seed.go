package seed

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"surveys/config"
	"surveys/internal/logger"
	. "surveys/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed templates.yaml
var defaultTemplates []byte

type seedFile struct {
	Templates []seedTemplate `yaml:"templates"`
}

type seedTemplate struct {
	Name           string    `yaml:"name"`
	Description    string    `yaml:"description"`
	BaseFields     yaml.Node `yaml:"baseFields"`
	SpecificFields yaml.Node `yaml:"specificFields"`
}

// Seed creates the bundled example templates that are not already present.
func Seed(db *gorm.DB, config config.Config, log logger.Logger) error {
	return SeedFrom(db, bytes.NewReader(defaultTemplates), log)
}

func SeedFile(db *gorm.DB, path string, log logger.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return log.Err("failed to open seed file", err, "path", path)
	}
	defer file.Close()

	return SeedFrom(db, file, log)
}

func SeedFrom(db *gorm.DB, r io.Reader, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding survey templates")

	templates, err := LoadTemplates(r)
	if err != nil {
		return log.Err("failed to load seed templates", err)
	}

	for _, template := range templates {
		var existing SurveyTemplate
		if err := db.First(&existing, "name = ?", template.Name).Error; err == nil {
			log.Info("Template already exists", "template", template.Name)
			continue
		}
		log.Info("Seeding template", "template", template.Name)
		if err := db.Create(template).Error; err != nil {
			return log.Err("failed to create template", err, "template", template.Name)
		}
	}

	return nil
}

// LoadTemplates decodes a YAML seed document. Field order in the YAML is the
// field order of the resulting trees.
func LoadTemplates(r io.Reader) ([]*SurveyTemplate, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed yaml: %w", err)
	}

	templates := make([]*SurveyTemplate, 0, len(file.Templates))
	for i, entry := range file.Templates {
		base, err := decodeTree(&entry.BaseFields)
		if err != nil {
			return nil, fmt.Errorf("template %d (%s) baseFields: %w", i+1, entry.Name, err)
		}
		specific, err := decodeTree(&entry.SpecificFields)
		if err != nil {
			return nil, fmt.Errorf("template %d (%s) specificFields: %w", i+1, entry.Name, err)
		}

		template := NewSurveyTemplate(entry.Name, entry.Description, *base, *specific)
		if err := template.Validate(); err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i+1, entry.Name, err)
		}
		templates = append(templates, template)
	}

	return templates, nil
}

func decodeTree(node *yaml.Node) (*FieldTree, error) {
	tree := NewFieldTree()
	if node.Kind == 0 {
		return tree, nil
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, node); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(buf.Bytes(), tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// writeJSON renders node as JSON without going through a map, so mapping keys
// keep their document order.
func writeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, node.Content[0])
	case yaml.AliasNode:
		return writeJSON(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		buf.Write(encoded)
	default:
		return fmt.Errorf("line %d: unsupported yaml node", node.Line)
	}
	return nil
}

package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// GraphLoader reads a decision graph from a single YAML or JSON file.
//
// Two layouts are accepted. The flat layout lists nodes by id:
//
//	root: q1
//	nodes:
//	  - {id: q1, question: "Discharge?", yes: q2, no: d2}
//	  - {id: d2, diagnosis: "No abnormality"}
//	recommendations:
//	  - {keywords: [conjunctivitis], medication: ["..."]}
//
// The tree layout nests answers, with leaves holding the diagnosis text:
//
//	{"text": "Discharge?", "yes": {"text": "Pain?", ...}, "no": {"text": "No abnormality"}}
//
// Tree node ids are derived from the answer path ("root", "root/yes", "root/yes/no") unless
// a node sets "id". A tree may be wrapped as {"tree": {...}, "recommendations": [...]}.
type GraphLoader struct {
	Path string
}

// NewGraphLoader creates a loader for path.
func NewGraphLoader(path string) *GraphLoader {
	return &GraphLoader{Path: path}
}

type flatDocument struct {
	Root            string                  `mapstructure:"root"`
	Nodes           []domain.DecisionNode   `mapstructure:"nodes"`
	Recommendations []domain.Recommendation `mapstructure:"recommendations"`
	Tree            map[string]any          `mapstructure:"tree"`
}

// Load implements ports.GraphLoader.
func (l *GraphLoader) Load(ctx context.Context) (*ports.GraphDefinition, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported graph file extension: %s", filepath.Ext(l.Path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse graph file %s: %w", l.Path, err)
	}
	return DecodeDefinition(raw)
}

// DecodeDefinition converts a generic document into a graph definition.
func DecodeDefinition(raw map[string]any) (*ports.GraphDefinition, error) {
	if raw == nil {
		return nil, fmt.Errorf("empty graph document")
	}
	if _, isTree := raw["text"]; isTree {
		return decodeTree(raw, nil)
	}

	var doc flatDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}

	if doc.Tree != nil {
		return decodeTree(doc.Tree, doc.Recommendations)
	}
	return &ports.GraphDefinition{
		Root:            doc.Root,
		Nodes:           doc.Nodes,
		Recommendations: doc.Recommendations,
	}, nil
}

type treeNode struct {
	ID   string         `mapstructure:"id"`
	Text string         `mapstructure:"text"`
	Yes  map[string]any `mapstructure:"yes"`
	No   map[string]any `mapstructure:"no"`
}

func decodeTree(raw map[string]any, recs []domain.Recommendation) (*ports.GraphDefinition, error) {
	def := &ports.GraphDefinition{Recommendations: recs}

	var walk func(raw map[string]any, path string) (string, error)
	walk = func(raw map[string]any, path string) (string, error) {
		var tn treeNode
		if err := mapstructure.Decode(raw, &tn); err != nil {
			return "", fmt.Errorf("tree node %s: %w", path, err)
		}
		id := tn.ID
		if id == "" {
			id = path
		}

		node := domain.DecisionNode{ID: id}
		if tn.Yes == nil && tn.No == nil {
			node.Diagnosis = tn.Text
			def.Nodes = append(def.Nodes, node)
			return id, nil
		}

		node.Question = tn.Text
		idx := len(def.Nodes)
		def.Nodes = append(def.Nodes, node)

		if tn.Yes != nil {
			yes, err := walk(tn.Yes, id+"/yes")
			if err != nil {
				return "", err
			}
			def.Nodes[idx].Yes = yes
		}
		if tn.No != nil {
			no, err := walk(tn.No, id+"/no")
			if err != nil {
				return "", err
			}
			def.Nodes[idx].No = no
		}
		return id, nil
	}

	root, err := walk(raw, "root")
	if err != nil {
		return nil, err
	}
	def.Root = root
	return def, nil
}

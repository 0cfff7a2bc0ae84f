package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

// DefaultRoot is the entry node used when no document is flagged as root.
const DefaultRoot = "start"

// Loader reads a decision graph from a Loam vault: one markdown document per node.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
	root string
}

// Option configures a Loader.
type Option func(*Loader)

// WithRoot forces the entry node id.
func WithRoot(id string) Option {
	return func(l *Loader) {
		l.root = id
	}
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata], opts ...Option) *Loader {
	l := &Loader{Repo: repo}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open initializes a read-only Loam repository at path.
func Open(path string, opts ...Option) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numeric frontmatter consistent across JSON and YAML documents.
	// The graph is never written, so the vault is opened read-only.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[NodeMetadata](repo), opts...), nil
}

// Load implements ports.GraphLoader.
func (l *Loader) Load(ctx context.Context) (*ports.GraphDefinition, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		// Use the ID from metadata if available, otherwise filename ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		// Collision Detection
		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)

	def := &ports.GraphDefinition{Root: l.root}
	var flagged []string
	for _, id := range ids {
		doc, err := l.Repo.Get(ctx, trimExtension(seen[id]))
		if err != nil {
			return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
		}
		meta := doc.Data

		question := strings.TrimSpace(meta.Question)
		if question == "" && meta.Diagnosis == "" {
			question = strings.TrimSpace(doc.Content)
		}
		def.Nodes = append(def.Nodes, domain.DecisionNode{
			ID:        id,
			Question:  question,
			Yes:       trimExtension(meta.Yes),
			No:        trimExtension(meta.No),
			Diagnosis: strings.TrimSpace(meta.Diagnosis),
		})

		if meta.Root {
			flagged = append(flagged, id)
		}
		if meta.Advice != nil && meta.Diagnosis != "" {
			rec := *meta.Advice
			if len(rec.Keywords) == 0 {
				rec.Keywords = []string{meta.Diagnosis}
			}
			def.Recommendations = append(def.Recommendations, rec)
		}
	}

	if def.Root == "" {
		switch len(flagged) {
		case 0:
			def.Root = DefaultRoot
		case 1:
			def.Root = flagged[0]
		default:
			return nil, fmt.Errorf("multiple root nodes: %s", strings.Join(flagged, ", "))
		}
	}
	return def, nil
}

func trimExtension(id string) string {
	if id == "" {
		return ""
	}
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

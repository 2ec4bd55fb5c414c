// Package parser turns FHIR definition records into a resolved type graph.
//
// Every top-level resource becomes one task. A task builds its types from
// scratch each time it runs; when it needs a type that is not registered yet
// it stops with WaitingOn(url) and is retried once that url appears. Nothing
// a task builds is visible to other tasks until the task finishes and its
// types are committed, so a half-built type is never observed.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"fhirgen/internal/definitions"
	"fhirgen/internal/dispatch"
	"fhirgen/internal/model"
)

// Config configures a Parser.
type Config struct {
	// BaseURL prefixes relative type codes: <BaseURL>/StructureDefinition/<code>.
	// It must not end with a slash.
	BaseURL string
	// Mappings renames requested urls before lookup.
	Mappings map[string]string
	// LateBinding lets property candidate types that are not registered yet
	// be bound after every resource is built instead of suspending the task.
	// Base definitions always suspend. This admits reference cycles between
	// types, such as Element.extension and Extension's base.
	LateBinding bool
}

// Parser parses definition records. A Parser may be reused; each call to
// Parse starts from an empty registry.
type Parser struct {
	baseURL     string
	mappings    map[string]string
	lateBinding bool
	log         zerolog.Logger
	table       *dispatch.Table[definitions.NodeKind, *task, definitions.Node]
}

// New creates a new Parser.
func New(cfg Config, log zerolog.Logger) (*Parser, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: empty base url", ErrConfig)
	}
	if strings.HasSuffix(cfg.BaseURL, "/") {
		return nil, fmt.Errorf("%w: base url %q ends with a slash", ErrConfig, cfg.BaseURL)
	}

	mappings := make(map[string]string, len(cfg.Mappings))
	for k, v := range cfg.Mappings {
		mappings[k] = v
	}

	p := &Parser{
		baseURL:     cfg.BaseURL,
		mappings:    mappings,
		lateBinding: cfg.LateBinding,
		log:         log,
	}

	p.table = dispatch.New[definitions.NodeKind, *task](definitions.Node.NodeKind).
		Handle(definitions.KindStructureDefinition, visitStructureDefinition).
		Handle(definitions.KindResource, visitResource).
		Handle(definitions.KindElementDefinition, visitElementDefinition).
		Handle(definitions.KindTypeRef, visitTypeRef)

	return p, nil
}

// typeURL returns the url a type code refers to.
func (p *Parser) typeURL(code string) string {
	if strings.HasPrefix(code, "http://") || strings.HasPrefix(code, "https://") {
		return code
	}
	return p.baseURL + "/StructureDefinition/" + code
}

// alias applies the rename table.
func (p *Parser) alias(url string) string {
	if mapped, ok := p.mappings[url]; ok {
		return mapped
	}
	return url
}

// registry is the state of one Parse call. It is only mutated between task
// steps.
type registry struct {
	resolved map[string]*model.Type
	keys     map[model.Key]bool
	types    []*model.Type
	links    []link
}

// link is a late-bound candidate slot.
type link struct {
	resource string
	owner    *model.Type
	property int
	slot     int
	url      string
}

// Parse builds the type graph for resources. Bundles are expanded into their
// entries. The run either returns the complete Output or an error and no
// Output.
func (p *Parser) Parse(resources []definitions.Resource) (*model.Output, error) {
	reg := &registry{
		resolved: make(map[string]*model.Type),
		keys:     make(map[model.Key]bool),
	}

	var tasks []*task
	for _, r := range resources {
		for _, res := range definitions.Flatten(r) {
			tasks = append(tasks, &task{parser: p, reg: reg, resource: res})
		}
	}

	for round := 1; len(tasks) > 0; round++ {
		progress := false
		next := make([]*task, 0, len(tasks))

		for _, t := range tasks {
			if t.waiting != "" {
				if _, ok := reg.resolved[t.waiting]; !ok {
					next = append(next, t)
					continue
				}
			}
			progress = true

			err := t.run()
			var pending *pendingError
			switch {
			case errors.As(err, &pending):
				t.waiting = pending.url
				next = append(next, t)
			case err != nil:
				return nil, err
			default:
				if err := reg.commit(t); err != nil {
					return nil, err
				}
				p.log.Debug().
					Str("resource", t.resource.ResourceID()).
					Int("types", len(t.built)).
					Msg("resource resolved")
			}
		}

		p.log.Debug().
			Int("round", round).
			Int("waiting", len(next)).
			Int("resolved", len(reg.resolved)).
			Msg("scheduling round")

		if !progress {
			return nil, stalled(next)
		}
		tasks = next
	}

	if err := reg.bind(); err != nil {
		return nil, err
	}

	return &model.Output{Types: reg.types}, nil
}

// commit appends the types built by t and registers the named ones.
func (r *registry) commit(t *task) error {
	for _, typ := range t.built {
		if r.keys[typ.Key()] {
			return t.contract("", fmt.Sprintf("type %s (%s) built twice", typ.Name, typ.URL))
		}
		if !typ.Inline {
			if prev, ok := r.resolved[typ.URL]; ok {
				return t.contract("", fmt.Sprintf("url %s already registered by %s", typ.URL, prev.Name))
			}
		}

		r.keys[typ.Key()] = true
		r.types = append(r.types, typ)
		if !typ.Inline {
			r.resolved[typ.URL] = typ
		}
	}

	r.links = append(r.links, t.links...)
	return nil
}

// bind fills every late-bound candidate slot.
func (r *registry) bind() error {
	var missing []Unresolved
	for _, l := range r.links {
		typ, ok := r.resolved[l.url]
		if !ok {
			missing = append(missing, Unresolved{Resource: l.resource, URL: l.url})
			continue
		}
		l.owner.Properties[l.property].Types[l.slot] = typ
	}

	if len(missing) > 0 {
		return &UnresolvedError{Refs: missing}
	}
	return nil
}

func stalled(tasks []*task) error {
	refs := make([]Unresolved, 0, len(tasks))
	for _, t := range tasks {
		refs = append(refs, Unresolved{Resource: t.resource.ResourceID(), URL: t.waiting})
	}
	return &UnresolvedError{Refs: refs}
}

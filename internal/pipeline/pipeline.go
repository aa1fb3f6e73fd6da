// Package pipeline orchestrates profile resolution, mapping validation,
// template rendering and format conversion for one configured map.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"postergen/internal/common/config"
	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
	"postergen/internal/datasource"
	"postergen/internal/poster"
	"postergen/internal/profile"
	"postergen/internal/profile/cache"
)

// Pipeline steps, in order. A failure in resolving or validating is
// terminal; rendering and converting failures are scoped per job.
const (
	stepResolving  = "resolving"
	stepValidating = "validating"
	stepRendering  = "rendering"
	stepConverting = "converting"
	stepDone       = "done"
)

// Output describes one written poster file.
type Output struct {
	Template string
	Format   string
	Path     string
}

// Result reports one pipeline invocation.
type Result struct {
	RunID     string
	CaseID    string
	FromCache bool
	Outputs   []Output
	Failures  []apperrors.Failure
}

// Failed reports whether any per-job failure occurred.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

type Pipeline struct {
	cfg       *config.Config
	mapper    *profile.Mapper
	cache     *cache.Cache
	handler   datasource.Handler
	converter poster.Converter
	logger    logger.Logger
}

// New wires a pipeline from configuration: mapping invariants are checked
// and the handler name is resolved through the registry before anything
// touches the network.
func New(cfg *config.Config, converter poster.Converter, log logger.Logger) (*Pipeline, error) {
	mapper, err := profile.NewMapper(cfg)
	if err != nil {
		return nil, err
	}
	keyColumn, err := mapper.KeyColumn()
	if err != nil {
		return nil, err
	}

	handler, err := datasource.New(cfg.DataSource.Provider.Handler, datasource.Options{
		Source:     cfg.DataSource,
		Page:       cfg.DataSource.Sheet.PageName,
		HeaderRow:  cfg.DataSource.Sheet.ColumnNamesRow,
		KeyColumn:  keyColumn,
		FieldCount: mapper.FieldCount(),
	}, log)
	if err != nil {
		return nil, err
	}
	return NewWithHandler(cfg, handler, converter, log)
}

// NewWithHandler wires a pipeline around an existing handler. Tests inject
// fakes here.
func NewWithHandler(cfg *config.Config, handler datasource.Handler, converter poster.Converter, log logger.Logger) (*Pipeline, error) {
	mapper, err := profile.NewMapper(cfg)
	if err != nil {
		return nil, err
	}
	profileCache, err := cache.New(cfg.Profile.CacheDir, log)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		mapper:    mapper,
		cache:     profileCache,
		handler:   handler,
		converter: converter,
		logger:    log,
	}, nil
}

// Run processes one case identifier end to end. Terminal errors (unknown
// case, broken mapping) are returned; per-(template, format) failures are
// collected in the result and do not stop remaining work.
func (p *Pipeline) Run(ctx context.Context, caseID string) (*Result, error) {
	runID := uuid.NewString()
	log := p.logger.WithFields(map[string]interface{}{
		"runId":  runID,
		"caseId": caseID,
	})
	result := &Result{RunID: runID, CaseID: caseID}

	// Resolving: cache lookup, then handler fetch on a miss. Failed
	// fetches are never cached.
	log.Info("resolving profile", map[string]interface{}{"step": stepResolving})
	rec, fromCache, err := p.resolve(ctx, caseID, log)
	if err != nil {
		return nil, err
	}
	result.FromCache = fromCache

	// Validating: templates and mapping, before any output I/O.
	log.Info("validating mapping", map[string]interface{}{"step": stepValidating})
	collector := apperrors.NewCollector(log)
	templates, err := p.loadTemplates(collector)
	if err != nil {
		return nil, err
	}
	table, err := p.mapper.DerivePlaceholders(rec)
	if err != nil {
		return nil, err
	}

	// Rendering and converting, one template at a time.
	if err := os.MkdirAll(p.cfg.Output.Folder, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}
	for _, tpl := range templates {
		log.Info("rendering template", map[string]interface{}{
			"step":     stepRendering,
			"template": tpl.Key,
		})
		filled := []byte(tpl.Render(table))

		for _, format := range p.cfg.Output.Formats {
			scope := tpl.Key + "/" + format
			data, err := p.converter.Convert(ctx, filled, format)
			if err != nil {
				collector.Add(scope, err)
				continue
			}
			path := p.outputPath(caseID, tpl.Key, format)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				collector.Add(scope, apperrors.NewConversionFailedError(format, err))
				continue
			}
			log.Info("poster written", map[string]interface{}{
				"step":   stepConverting,
				"output": path,
			})
			result.Outputs = append(result.Outputs, Output{
				Template: tpl.Key,
				Format:   format,
				Path:     path,
			})
		}
	}

	result.Failures = collector.Failures()
	if !collector.Empty() {
		log.Warn("run finished with failures", map[string]interface{}{
			"step":     stepDone,
			"outputs":  len(result.Outputs),
			"failures": collector.Summary(),
		})
		return result, nil
	}
	log.Info("run finished", map[string]interface{}{
		"step":    stepDone,
		"outputs": len(result.Outputs),
	})
	return result, nil
}

// resolve returns the profile record for the case identifier. Cache lookup
// always precedes the backend; on a hit the handler is not invoked at all.
func (p *Pipeline) resolve(ctx context.Context, caseID string, log logger.Logger) (profile.Record, bool, error) {
	rec, hit, err := p.cache.Get(caseID)
	if err != nil {
		return nil, false, err
	}
	if hit {
		log.Info("profile found in cache", nil)
		return rec, true, nil
	}

	// The field list must line up with the backend's header row.
	names, err := p.handler.ListColumnNames(ctx, p.cfg.DataSource.Sheet.PageName, p.cfg.DataSource.Sheet.ColumnNamesRow)
	if err != nil {
		return nil, false, err
	}
	if len(names) != p.mapper.FieldCount() {
		return nil, false, apperrors.NewSchemaMismatchError(p.mapper.FieldCount(), len(names))
	}

	row, err := p.handler.FetchRecord(ctx, caseID)
	if err != nil {
		return nil, false, err
	}
	rec, err = p.mapper.BuildRecord(row)
	if err != nil {
		return nil, false, err
	}
	if _, err := p.mapper.CaseID(rec); err != nil {
		return nil, false, err
	}
	if err := p.cache.Put(caseID, rec); err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// loadTemplates reads every configured template in key order. A template
// that fails to load is recorded as a per-template failure and skipped; the
// unused-mapping-entry check only runs when every template loaded, since a
// missing template could hide the drift it would prove.
func (p *Pipeline) loadTemplates(collector *apperrors.Collector) ([]*poster.Template, error) {
	keys := make([]string, 0, len(p.cfg.Templates))
	for key := range p.cfg.Templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	templates := make([]*poster.Template, 0, len(keys))
	tokens := make(map[string][]string, len(keys))
	allLoaded := true
	for _, key := range keys {
		tpl, err := poster.Load(key, p.cfg.Templates[key])
		if err != nil {
			collector.Add(key, err)
			allLoaded = false
			continue
		}
		templates = append(templates, tpl)
		tokens[key] = tpl.Tokens
	}
	if len(templates) == 0 {
		return nil, apperrors.NewRenderFailedError("all", fmt.Errorf("no configured template could be loaded"))
	}

	if allLoaded {
		if err := p.mapper.Validate(tokens); err != nil {
			return nil, err
		}
	} else {
		p.logger.Warn("skipping unused-placeholder check, not all templates loaded", nil)
	}
	return templates, nil
}

func (p *Pipeline) outputPath(caseID, templateKey, format string) string {
	name := fmt.Sprintf("%s%s-poster-%s.%s", p.cfg.Output.FilePrefix, caseID, templateKey, format)
	return filepath.Join(p.cfg.Output.Folder, name)
}

// ==========================
// Inspection operations
// ==========================

// These call the handler directly and never touch the cache or the mapping
// layer.

func (p *Pipeline) ListPages(ctx context.Context) ([]string, error) {
	return p.handler.ListPages(ctx)
}

func (p *Pipeline) ListColumnNames(ctx context.Context) ([]string, error) {
	return p.handler.ListColumnNames(ctx, p.cfg.DataSource.Sheet.PageName, p.cfg.DataSource.Sheet.ColumnNamesRow)
}

func (p *Pipeline) ListColumnValues(ctx context.Context, columnIndex int) ([]string, error) {
	return p.handler.ListColumnValues(ctx, p.cfg.DataSource.Sheet.PageName, columnIndex)
}

// Close releases backend resources for handlers that hold any.
func (p *Pipeline) Close() error {
	if closer, ok := p.handler.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

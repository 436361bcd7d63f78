package sink

import (
	"context"
	"errors"

	"property-harvester-service/internal/core/domain"
	"property-harvester-service/internal/core/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MultiSink раздает каждую запись нескольким sink-ам.
// Flush пытается выгрузить во все, даже если часть упала.
type MultiSink struct {
	sinks []port.RecordSinkPort
}

func NewMultiSink(sinks ...port.RecordSinkPort) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Append(record *domain.Record) {
	for _, s := range m.sinks {
		s.Append(record)
	}
}

func (m *MultiSink) Count() int {
	if len(m.sinks) == 0 {
		return 0
	}
	return m.sinks[0].Count()
}

func (m *MultiSink) Flush(ctx context.Context) ([]string, error) {
	var artifacts []string
	var errs []error
	for _, s := range m.sinks {
		paths, err := s.Flush(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		artifacts = append(artifacts, paths...)
	}
	return artifacts, errors.Join(errs...)
}

// Factory создает sink-и для прогонов. Excel артефакт создается всегда,
// PostgreSQL подключается, если приложению передан пул.
type Factory struct {
	outputDir string
	pool      *pgxpool.Pool
}

func NewFactory(outputDir string, pool *pgxpool.Pool) *Factory {
	return &Factory{outputDir: outputDir, pool: pool}
}

func (f *Factory) NewSink(source domain.ListingSource) port.RecordSinkPort {
	excel := NewExcelSinkAdapter(f.outputDir, source)
	if f.pool == nil {
		return excel
	}

	pg, err := NewPostgresSinkAdapter(f.pool, source)
	if err != nil {
		return excel
	}
	return NewMultiSink(excel, pg)
}

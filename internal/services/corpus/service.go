package corpus

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
)

// Service runs the aggregate, merge and write steps that turn staged pages
// into category corpus files.
type Service struct {
	aggregator *Aggregator
	logger     arbor.ILogger
}

// BuildResult summarizes one corpus build
type BuildResult struct {
	DocumentsWritten  int
	DocumentsExcluded int
	Path              string
}

func NewService(pages interfaces.PageStorage, maxGap int, logger arbor.ILogger) *Service {
	return &Service{
		aggregator: NewAggregator(pages, maxGap, logger),
		logger:     logger,
	}
}

// BuildCategory assembles and writes the corpus file for one category
func (s *Service) BuildCategory(ctx context.Context, category models.Category, outputDir string) (*BuildResult, error) {
	aggregated, err := s.aggregator.AggregateCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(aggregated.Documents) == 0 {
		return nil, fmt.Errorf("no valid documents to write for category %s", category)
	}

	for _, doc := range aggregated.Documents {
		doc.MergedText = MergeDocument(doc)
	}

	path, err := WriteCorpus(outputDir, category, aggregated.Documents)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("category", string(category)).
		Str("path", path).
		Int("documents", len(aggregated.Documents)).
		Msg("Corpus written")

	return &BuildResult{
		DocumentsWritten:  len(aggregated.Documents),
		DocumentsExcluded: aggregated.DocumentsExcluded,
		Path:              path,
	}, nil
}

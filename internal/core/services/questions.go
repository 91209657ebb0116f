package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/feeder/internal/core/domain"
	"github.com/custodia-labs/feeder/internal/core/ports/driven"
	"github.com/custodia-labs/feeder/internal/logger"
)

// questionNamespace scopes question record IDs.
var questionNamespace = uuid.MustParse("6f1c2b0e-3d4a-5e8f-9a7b-2c1d0e9f8a6b")

// QuestionID returns the stable ID of a question generated from a record.
func QuestionID(documentID, question string) string {
	return uuid.NewSHA1(questionNamespace, []byte(documentID+"|"+question)).String()
}

// SweepResult summarises a question sweep.
type SweepResult struct {
	// Documents is the number of records read from the primary index.
	Documents int

	// Questions is the number of question records written.
	Questions int

	// Failures is the number of records the generator failed on.
	Failures int
}

// QuestionSweep reads an index page by page, generates questions for each
// record and writes them to the questions index. Each parent record is
// updated with the questions generated for it.
type QuestionSweep struct {
	cfg       Config
	store     driven.DocumentStore
	generator driven.QuestionGenerator
}

// NewQuestionSweep creates a sweep over store using generator.
func NewQuestionSweep(cfg Config, store driven.DocumentStore, generator driven.QuestionGenerator) *QuestionSweep {
	return &QuestionSweep{
		cfg:       cfg.withDefaults(),
		store:     store,
		generator: generator,
	}
}

// Run sweeps target. Generation failures are logged and counted; store
// failures abort the sweep.
func (q *QuestionSweep) Run(ctx context.Context, target domain.IndexTarget) (SweepResult, error) {
	var res SweepResult
	if q.generator == nil {
		return res, domain.ErrQuestionGeneratorUnavailable
	}

	logger.Info("Generating questions for %s with %s", target.Name, q.generator.ModelName())

	questions := NewBatchWriter(q.store, target.QuestionsIndex(), q.cfg.QuestionBatchSize, q.cfg.Retry)
	parents := NewBatchWriter(q.store, target.Name, q.cfg.QuestionBatchSize, q.cfg.Retry)

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := q.store.ListDocuments(ctx, target.Name, afterID, q.cfg.PageSize)
		if err != nil {
			return res, fmt.Errorf("list %s: %w", target.Name, err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			rec := page[i]
			res.Documents++

			generated, err := q.generator.Generate(ctx, rec.Content)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failures++
				logger.Warn("Question generation failed for %q: %v", excerpt(rec.Content), err)
				continue
			}

			added := 0
			for _, question := range normaliseQuestions(generated) {
				questions.Add(questionRecord(rec, question))
				added++
				if err := questions.MaybeFlush(ctx); err != nil {
					return res, err
				}
			}
			res.Questions += added
			if added == 0 {
				continue
			}

			parent := rec.Clone()
			parent.GeneratedQuestions = mergeQuestions(rec.GeneratedQuestions, generated)
			parents.Add(parent)
			if err := parents.MaybeFlush(ctx); err != nil {
				return res, err
			}
		}

		afterID = page[len(page)-1].ID
		if len(page) < q.cfg.PageSize {
			break
		}
	}

	if err := questions.Finalize(ctx); err != nil {
		return res, err
	}
	if err := parents.Finalize(ctx); err != nil {
		return res, err
	}

	res.Questions = questions.Written()
	logger.Info("Generated %d questions from %d records (%d failures)", res.Questions, res.Documents, res.Failures)
	return res, nil
}

// questionRecord builds the record stored in the questions index.
func questionRecord(parent domain.Record, question string) domain.Record {
	return domain.Record{
		ID:          QuestionID(parent.ID, question),
		Content:     question,
		Title:       parent.Title,
		ContentType: domain.ContentTypeText,
		Meta: domain.Meta{
			Name:       parent.Meta.Name,
			Category:   parent.Meta.Category,
			DocumentID: parent.ID,
		},
		SourcePath: parent.SourcePath,
		CreatedAt:  now(),
	}
}

// normaliseQuestions trims questions and drops blanks and duplicates.
func normaliseQuestions(questions []string) []string {
	seen := make(map[string]struct{}, len(questions))
	out := make([]string, 0, len(questions))
	for _, question := range questions {
		question = strings.TrimSpace(question)
		if question == "" {
			continue
		}
		if _, ok := seen[question]; ok {
			continue
		}
		seen[question] = struct{}{}
		out = append(out, question)
	}
	return out
}

// mergeQuestions appends generated questions not already present.
func mergeQuestions(existing, generated []string) []string {
	merged := append([]string(nil), existing...)
	return normaliseQuestions(append(merged, generated...))
}

package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/assembler"
	"github.com/ternarybob/respondeo/internal/services/category"
	"github.com/ternarybob/respondeo/internal/services/consistency"
	"github.com/ternarybob/respondeo/internal/services/docgen"
	"github.com/ternarybob/respondeo/internal/services/extractor"
	"github.com/ternarybob/respondeo/internal/services/publisher"
	"github.com/ternarybob/respondeo/internal/services/retrieval"
	"github.com/ternarybob/respondeo/internal/services/synthesis"
)

// DocumentTitle heads every generated response document.
const DocumentTitle = "Due Diligence Questionnaire Responses"

const cancelledNote = "Batch was cancelled before this question resolved."

// Runner orchestrates one questionnaire batch end to end: extraction,
// category routing, then a bounded worker pool that retrieves,
// assembles and synthesizes per question, then document assembly and
// publishing. Conditional sub-questions run in the same task as their
// parent, after the parent resolves.
type Runner struct {
	extractor   *extractor.Service
	router      *category.Router
	retrieval   *retrieval.Client
	context     *assembler.Assembler
	synthesizer *synthesis.Synthesizer
	documents   *docgen.Assembler
	publisher   *publisher.Publisher
	progress    interfaces.ProgressSink

	concurrency int
	similarity  float64
	logger      arbor.ILogger
}

// NewRunner wires the pipeline from configuration and its external
// collaborators.
func NewRunner(
	cfg *common.Config,
	search interfaces.SearchService,
	llm interfaces.LLMService,
	artifacts interfaces.ArtifactStorage,
	progress interfaces.ProgressSink,
	logger arbor.ILogger,
) *Runner {
	concurrency := cfg.Pipeline.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	docAssembler := docgen.NewAssembler(logger)
	return &Runner{
		extractor:   extractor.NewService(logger),
		router:      category.NewRouter(cfg.Categories, logger),
		retrieval:   retrieval.NewClient(search, cfg, logger),
		context:     assembler.New(cfg.Pipeline.ContextBudget),
		synthesizer: synthesis.NewSynthesizer(llm, cfg, logger),
		documents:   docAssembler,
		publisher:   publisher.NewPublisher(artifacts, docAssembler, docgen.NewPDFRenderer(logger), logger),
		progress:    progress,
		concurrency: concurrency,
		similarity:  cfg.Pipeline.SimilarityThreshold,
		logger:      logger,
	}
}

// task pairs a top-level question with its conditional children.
type task struct {
	parent   *models.Question
	children []*models.Question
}

// RunBatch processes one questionnaire payload. Per-question failures
// degrade to unanswerable records with a batch warning; extraction and
// assembly failures abort the batch. A publish failure returns the
// result with the document retained alongside the error.
func (r *Runner) RunBatch(ctx context.Context, payload []byte, format string) (*models.BatchResult, error) {
	batchID := common.NewBatchID()
	started := time.Now()

	questions, err := r.extractor.Extract(payload, format)
	if err != nil {
		r.logger.Error().Err(err).Str("batch_id", batchID).Msg("Questionnaire extraction failed")
		return nil, err
	}
	r.router.Route(questions)

	r.logger.Info().
		Str("batch_id", batchID).
		Int("questions", len(questions)).
		Msg("Batch extraction completed")
	r.publishProgress(interfaces.ProgressEvent{
		BatchID: batchID,
		Stage:   "extracted",
		Total:   len(questions),
	})

	tasks := buildTasks(questions)
	tracker := consistency.NewTracker(r.similarity, r.logger)

	state := &batchState{
		answers: make(map[string]*models.AnswerRecord, len(questions)),
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency)
	for _, t := range tasks {
		// Cancellation stops new tasks; in-flight tasks run to
		// completion so resolved groups stay consistent.
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(t task) {
			defer wg.Done()
			defer func() { <-sem }()
			r.runTask(ctx, batchID, tracker, state, t, len(questions))
		}(t)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		r.logger.Warn().Str("batch_id", batchID).Msg("Batch cancelled")
		return nil, err
	}

	doc, err := r.documents.Build(DocumentTitle, questions, state.snapshot())
	if err != nil {
		r.logger.Error().Err(err).Str("batch_id", batchID).Msg("Document assembly failed")
		return nil, err
	}
	doc.Warnings = state.warningList()
	r.publishProgress(interfaces.ProgressEvent{
		BatchID:   batchID,
		Stage:     "assembled",
		Completed: len(questions),
		Total:     len(questions),
	})

	result := &models.BatchResult{
		BatchID:  batchID,
		Document: doc,
		Statuses: statuses(doc),
		Warnings: doc.Warnings,
	}

	ref, err := r.publisher.Publish(ctx, doc)
	if err != nil {
		r.logger.Error().Err(err).Str("batch_id", batchID).Msg("Publishing failed; document retained for retry")
		return result, err
	}
	result.DocumentRef = ref

	r.logger.Info().
		Str("batch_id", batchID).
		Str("document_ref", ref).
		Dur("duration", time.Since(started)).
		Msg("Batch completed")
	r.publishProgress(interfaces.ProgressEvent{
		BatchID:   batchID,
		Stage:     "published",
		Completed: len(questions),
		Total:     len(questions),
		Message:   ref,
	})
	return result, nil
}

// Publish re-attempts artifact delivery for a retained document.
func (r *Runner) Publish(ctx context.Context, doc *models.ResponseDocument) (string, error) {
	return r.publisher.Publish(ctx, doc)
}

// runTask resolves one top-level question and then its conditional
// children sequentially, each child seeing the parent's final record.
func (r *Runner) runTask(ctx context.Context, batchID string, tracker *consistency.Tracker, state *batchState, t task, total int) {
	parentRecord := r.resolveTopLevel(ctx, tracker, state, t.parent)
	state.put(t.parent.ID, parentRecord)
	r.questionDone(batchID, state, t.parent.ID, parentRecord.Status, total)

	for _, child := range t.children {
		record, err := r.synthesizer.Synthesize(ctx, &synthesis.Request{
			Question:       child,
			Evidence:       r.retrieveContext(ctx, state, child),
			ParentQuestion: t.parent,
			ParentAnswer:   parentRecord,
		})
		if err != nil {
			state.warn(err.Error())
		}
		state.put(child.ID, record)
		r.questionDone(batchID, state, child.ID, record.Status, total)
	}
}

// resolveTopLevel runs the claim-or-wait consistency protocol. The
// representative synthesizes and resolves the group; members wait and
// copy.
func (r *Runner) resolveTopLevel(ctx context.Context, tracker *consistency.Tracker, state *batchState, q *models.Question) *models.AnswerRecord {
	group, isRepresentative := tracker.Claim(q)
	if !isRepresentative {
		record, err := tracker.Wait(ctx, group, q.ID)
		if err != nil {
			state.warn(err.Error())
			return models.NewUnanswerable(q.ID, cancelledNote)
		}
		return record
	}

	record, err := r.synthesizer.Synthesize(ctx, &synthesis.Request{
		Question: q,
		Evidence: r.retrieveContext(ctx, state, q),
	})
	if err != nil {
		state.warn(err.Error())
	}
	tracker.Resolve(group, record)
	return record
}

// retrieveContext fetches and budgets evidence for one question. A
// retrieval failure yields an empty context and a batch warning, which
// downstream synthesis resolves as unanswerable or declined.
func (r *Runner) retrieveContext(ctx context.Context, state *batchState, q *models.Question) *assembler.Context {
	snippets, err := r.retrieval.Retrieve(ctx, q)
	if err != nil {
		state.warn(err.Error())
		return r.context.Assemble(nil)
	}
	return r.context.Assemble(snippets)
}

func (r *Runner) questionDone(batchID string, state *batchState, questionID string, status models.AnswerStatus, total int) {
	r.publishProgress(interfaces.ProgressEvent{
		BatchID:    batchID,
		Stage:      "question_done",
		QuestionID: questionID,
		Status:     status,
		Completed:  state.count(),
		Total:      total,
	})
}

func (r *Runner) publishProgress(event interfaces.ProgressEvent) {
	if r.progress != nil {
		r.progress.Publish(event)
	}
}

// buildTasks groups conditional children under their parent while
// preserving extraction order of top-level questions.
func buildTasks(questions []models.Question) []task {
	byParent := make(map[string][]*models.Question)
	for i := range questions {
		q := &questions[i]
		if q.ParentID != "" {
			byParent[q.ParentID] = append(byParent[q.ParentID], q)
		}
	}

	tasks := make([]task, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ParentID != "" {
			continue
		}
		tasks = append(tasks, task{parent: q, children: byParent[q.ID]})
	}
	return tasks
}

// statuses flattens the assembled document into per-question outcome
// rows, in document order.
func statuses(doc *models.ResponseDocument) []models.QuestionStatus {
	out := make([]models.QuestionStatus, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		out = append(out, models.QuestionStatus{
			QuestionID: entry.Question.ID,
			OrderIndex: entry.Question.OrderIndex,
			Text:       entry.Question.Text,
			Category:   entry.Question.Category,
			Status:     entry.Answer.Status,
			Note:       entry.Answer.Note,
		})
	}
	return out
}

// batchState is the mutex-guarded shared state of one batch run.
type batchState struct {
	mu       sync.Mutex
	answers  map[string]*models.AnswerRecord
	warnings []string
}

func (s *batchState) put(questionID string, record *models.AnswerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[questionID] = record
}

func (s *batchState) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *batchState) warn(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, message)
}

func (s *batchState) snapshot() map[string]*models.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*models.AnswerRecord, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

func (s *batchState) warningList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

// Package quiz turns extracted candidate words into short multiple-choice
// sequences and reports each answer back to the scheduler.
package quiz

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/japaniel/vocabloom/pkg/dictionary"
	"github.com/japaniel/vocabloom/pkg/extract"
	"github.com/japaniel/vocabloom/pkg/srs"
)

// Scheduler ranks words and records review outcomes; *srs.Scheduler satisfies it.
type Scheduler interface {
	PrioritizeWords(ctx context.Context, candidates []string, language string, count int) ([]string, error)
	ProcessReview(ctx context.Context, word, language string, performance float64) (srs.WordRecord, error)
}

// Dictionary supplies correct answers and distractors; *dictionary.Gateway satisfies it.
type Dictionary interface {
	GetWordData(ctx context.Context, word, language, sourceLanguage string) dictionary.Entry
	Vocabulary(ctx context.Context, language string) []string
}

// Quota gates and counts quizzes per day; *usage.Governor satisfies it.
type Quota interface {
	CanStartQuiz() bool
	RecordQuiz(ctx context.Context)
}

// Config tunes a Controller. Zero values produce defaults.
type Config struct {
	MaxQuestions       int // zero → 5
	MaxSessionsPerPage int // zero → 3; negative → unlimited
	Distractors        int // zero → 3
	Rand               *rand.Rand
	OnComplete         func(Result)
}

// Question is the payload shown for one item.
type Question struct {
	SequenceID string   `json:"sequence_id"`
	Index      int      `json:"index"`
	Total      int      `json:"total"`
	Word       string   `json:"word"`
	Sentence   string   `json:"sentence"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
}

// Feedback answers one Question. Result is set on the last answer only.
type Feedback struct {
	Correct       bool    `json:"correct"`
	Selected      string  `json:"selected"`
	CorrectAnswer string  `json:"correct_answer"`
	Explanation   string  `json:"explanation"`
	Result        *Result `json:"result,omitempty"`
}

// Result summarizes a finished sequence.
type Result struct {
	SequenceID      string  `json:"sequence_id"`
	CorrectCount    int     `json:"correct_count"`
	Total           int     `json:"total"`
	ScorePercentage float64 `json:"score_percentage"`
}

// Item is one question of a sequence.
type Item struct {
	Word     string
	Sentence string
	Answer   string
	Options  []string
	Node     *html.Node // where the word was found; not owned
}

// Sequence is the active batch of questions.
type Sequence struct {
	ID           string
	Items        []Item
	CurrentIndex int
	CorrectCount int
	StartedAt    time.Time
}

// Controller runs one quiz sequence at a time for one page. It is safe for
// concurrent use; the state doubles as the re-entrancy guard.
type Controller struct {
	cfg   Config
	sched Scheduler
	dict  Dictionary
	quota Quota
	log   logrus.FieldLogger

	mu       sync.Mutex
	state    State
	seq      *Sequence
	gen      uint64 // bumped on every reset so stale Starts can tell
	sessions int
	language string
}

// NewController wires a Controller. quota may be nil.
func NewController(cfg Config, sched Scheduler, dict Dictionary, quota Quota, log logrus.FieldLogger) (*Controller, error) {
	if sched == nil || dict == nil {
		return nil, fmt.Errorf("quiz: scheduler and dictionary are required")
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 5
	}
	if cfg.MaxSessionsPerPage == 0 {
		cfg.MaxSessionsPerPage = 3
	}
	if cfg.Distractors <= 0 {
		cfg.Distractors = 3
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Controller{cfg: cfg, sched: sched, dict: dict, quota: quota, log: log}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a sequence is in progress.
func (c *Controller) Active() bool {
	return c.State() != Idle
}

// NewPage resets the per-page session counter and drops any sequence.
func (c *Controller) NewPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.sessions = 0
}

// Start builds a sequence of up to MaxQuestions items from candidates and
// presents the first question. Words are translated from sourceLanguage
// into language.
func (c *Controller) Start(ctx context.Context, candidates []extract.Candidate, language, sourceLanguage string) (Question, error) {
	c.mu.Lock()
	switch {
	case c.state != Idle:
		c.mu.Unlock()
		return Question{}, ErrSequenceActive
	case c.cfg.MaxSessionsPerPage > 0 && c.sessions >= c.cfg.MaxSessionsPerPage:
		c.mu.Unlock()
		return Question{}, ErrSessionCap
	case c.quota != nil && !c.quota.CanStartQuiz():
		c.mu.Unlock()
		return Question{}, ErrDailyQuota
	}
	byWord := make(map[string]extract.Candidate, len(candidates))
	var words []string
	for _, cand := range candidates {
		w := srs.NormalizeWord(cand.Word)
		if w == "" {
			continue
		}
		if _, dup := byWord[w]; !dup {
			byWord[w] = cand
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		c.mu.Unlock()
		return Question{}, ErrNoCandidates
	}
	c.state = SequenceActive
	gen := c.gen
	c.mu.Unlock()

	items, err := c.buildItems(ctx, words, byWord, language, sourceLanguage)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != SequenceActive {
		// Dismissed while building.
		return Question{}, ErrStateViolation
	}
	if err != nil || len(items) == 0 {
		c.resetLocked()
		if err == nil {
			err = ErrNoCandidates
		}
		return Question{}, err
	}

	c.seq = &Sequence{ID: uuid.NewString(), Items: items, StartedAt: time.Now()}
	c.sessions++
	c.language = language
	c.state = QuestionPresented
	c.log.WithFields(logrus.Fields{"sequence": c.seq.ID, "questions": len(items), "language": language}).Info("quiz started")
	return c.questionLocked(), nil
}

func (c *Controller) buildItems(ctx context.Context, words []string, byWord map[string]extract.Candidate, language, sourceLanguage string) ([]Item, error) {
	picked, err := c.sched.PrioritizeWords(ctx, words, language, c.cfg.MaxQuestions)
	if err != nil {
		return nil, fmt.Errorf("prioritize candidates: %w", err)
	}

	items := make([]Item, 0, len(picked))
	var answers []string
	for _, w := range picked {
		cand := byWord[w]
		answer := cand.Translation
		if answer == "" {
			answer = c.dict.GetWordData(ctx, w, language, sourceLanguage).Primary()
		}
		items = append(items, Item{Word: w, Sentence: cand.Sentence, Answer: answer, Node: cand.Node})
		answers = append(answers, answer)
	}

	// Other items' answers back up a thin vocabulary.
	pool := append(append([]string(nil), c.dict.Vocabulary(ctx, language)...), answers...)
	c.mu.Lock()
	for i := range items {
		items[i].Options = buildOptions(c.cfg.Rand, items[i].Answer, pool, c.cfg.Distractors)
	}
	c.mu.Unlock()
	return items, nil
}

// Current returns the question being presented, if any.
func (c *Controller) Current() (Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != QuestionPresented {
		return Question{}, false
	}
	return c.questionLocked(), true
}

// Answer grades selected against the presented question and records the
// review. The last answer completes the sequence and returns to Idle.
func (c *Controller) Answer(ctx context.Context, selected string) (Feedback, error) {
	c.mu.Lock()
	if c.state != QuestionPresented {
		c.mu.Unlock()
		return Feedback{}, ErrStateViolation
	}
	seq := c.seq
	item := seq.Items[seq.CurrentIndex]
	correct := normalizeAnswer(selected) == normalizeAnswer(item.Answer)
	if correct {
		seq.CorrectCount++
	}
	seq.CurrentIndex++
	c.state = QuestionAnswered

	fb := Feedback{
		Correct:       correct,
		Selected:      selected,
		CorrectAnswer: item.Answer,
		Explanation:   explain(item, selected, correct),
	}
	var result *Result
	if seq.CurrentIndex == len(seq.Items) {
		c.state = SequenceComplete
		result = &Result{
			SequenceID:      seq.ID,
			CorrectCount:    seq.CorrectCount,
			Total:           len(seq.Items),
			ScorePercentage: math.Round(float64(seq.CorrectCount) * 100 / float64(len(seq.Items))),
		}
		fb.Result = result
		// Counted before Idle so a concurrent Start sees the spent quota.
		if c.quota != nil {
			c.quota.RecordQuiz(ctx)
		}
		c.resetLocked()
	}
	language := c.language
	c.mu.Unlock()

	performance := 0.0
	if correct {
		performance = 1.0
	}
	if _, err := c.sched.ProcessReview(ctx, item.Word, language, performance); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"word": item.Word, "language": language}).Warn("failed to record review")
	}

	if result != nil {
		c.log.WithFields(logrus.Fields{"sequence": result.SequenceID, "score": result.ScorePercentage}).Info("quiz complete")
		if c.cfg.OnComplete != nil {
			c.cfg.OnComplete(*result)
		}
	}
	return fb, nil
}

// Next presents the following question after an answer.
func (c *Controller) Next() (Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != QuestionAnswered {
		return Question{}, ErrStateViolation
	}
	c.state = QuestionPresented
	return c.questionLocked(), nil
}

// Dismiss abandons the active sequence without recording the unanswered
// item. It reports whether there was anything to dismiss.
func (c *Controller) Dismiss() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle {
		return false
	}
	if c.seq != nil {
		c.log.WithField("sequence", c.seq.ID).Debug("quiz dismissed")
	}
	c.resetLocked()
	return true
}

func (c *Controller) resetLocked() {
	c.state = Idle
	c.seq = nil
	c.gen++
}

func (c *Controller) questionLocked() Question {
	item := c.seq.Items[c.seq.CurrentIndex]
	return Question{
		SequenceID: c.seq.ID,
		Index:      c.seq.CurrentIndex,
		Total:      len(c.seq.Items),
		Word:       item.Word,
		Sentence:   item.Sentence,
		Prompt:     fmt.Sprintf("What does %q mean?", item.Word),
		Options:    append([]string(nil), item.Options...),
	}
}

func explain(item Item, selected string, correct bool) string {
	if correct {
		return fmt.Sprintf("Correct: %q means %q.", item.Word, item.Answer)
	}
	return fmt.Sprintf("%q means %q, not %q.", item.Word, item.Answer, selected)
}

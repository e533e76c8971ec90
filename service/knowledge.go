package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zukunftch/zukunft.com/changelog"
	"github.com/zukunftch/zukunft.com/sandbox"
	"github.com/zukunftch/zukunft.com/term"
)

// opLogger tags every operation log line with a request id so concurrent
// callers can be told apart in the output.
func (s *Service) opLogger(op string, user sandbox.User) *slog.Logger {
	return s.logger.With("request_id", uuid.NewString(), "op", op, "user_id", user.ID)
}

func (s *Service) recordSave(table string, start time.Time, res sandbox.SaveResult, err error) {
	if err != nil {
		return
	}
	s.metricsReg.Metrics.RecordSave(table, res.Outcome.String(), time.Since(start))
}

// GetWord loads a word as the given user sees it.
func (s *Service) GetWord(ctx context.Context, user sandbox.User, id int64) (*sandbox.Word, error) {
	return s.resolver.LoadWord(ctx, user, id)
}

// GetWordByName resolves a word name to an id through the name cache, then
// loads the word. A cache hit still goes to the store for the row itself;
// only the name lookup is saved.
func (s *Service) GetWordByName(ctx context.Context, user sandbox.User, name string) (*sandbox.Word, error) {
	if id, ok := s.nameCache.Get(name); ok {
		w, err := s.resolver.LoadWord(ctx, user, id)
		if err == nil {
			return w, nil
		}
		// The cached id went stale; fall through to the store lookup.
		s.nameCache.Delete(name)
	}
	w, err := s.resolver.LoadWordByName(ctx, user, name)
	if err != nil {
		return nil, err
	}
	_ = s.nameCache.Set(name, w.ID())
	return w, nil
}

// SaveWord writes a word through the sandbox rules and records the outcome.
// The snapshot is the word as loaded before editing; nil skips the
// concurrent-change check.
func (s *Service) SaveWord(ctx context.Context, user sandbox.User, w, snapshot *sandbox.Word) (sandbox.SaveResult, error) {
	log := s.opLogger("save_word", user)
	start := time.Now()

	res, err := s.resolver.SaveWord(ctx, user, w, snapshot)
	s.recordSave(sandbox.TableWords, start, res, err)
	if err != nil {
		log.Warn("word save failed", "error", err)
		return res, err
	}

	s.nameCache.Delete(w.WordName)
	if snapshot != nil && snapshot.WordName != w.WordName {
		s.nameCache.Delete(snapshot.WordName)
	}
	log.Info("word saved", "word_id", res.ID, "outcome", res.Outcome.String())
	return res, nil
}

// ExcludeWord hides a word: for the owner the shared row, for everyone else
// only their own view.
func (s *Service) ExcludeWord(ctx context.Context, user sandbox.User, id int64) (sandbox.SaveResult, error) {
	w, err := s.resolver.LoadWord(ctx, user, id)
	if err != nil {
		return sandbox.SaveResult{}, err
	}
	res, err := s.resolver.Exclude(ctx, user, w)
	if err == nil {
		s.nameCache.Delete(w.WordName)
	}
	return res, err
}

// GetTriple loads a triple in forward orientation as the user sees it.
func (s *Service) GetTriple(ctx context.Context, user sandbox.User, id int64) (*sandbox.Triple, error) {
	return s.resolver.LoadTriple(ctx, user, id)
}

// SaveTriple writes a triple. Identity changes may merge into an existing
// triple, rewrite in place, or fork, depending on ownership and usage.
func (s *Service) SaveTriple(ctx context.Context, user sandbox.User, tr, snapshot *sandbox.Triple) (sandbox.SaveResult, error) {
	log := s.opLogger("save_triple", user)
	start := time.Now()

	res, err := s.resolver.SaveTriple(ctx, user, tr, snapshot)
	s.recordSave(sandbox.TableTriples, start, res, err)
	if err != nil {
		log.Warn("triple save failed", "error", err)
		return res, err
	}
	log.Info("triple saved",
		"triple_id", res.ID,
		"outcome", res.Outcome.String(),
		"from", tr.From, "verb", tr.VerbID, "to", tr.To)
	return res, nil
}

// ExcludeTriple hides a triple for the user, or for everyone when the owner
// excludes an undiverged triple.
func (s *Service) ExcludeTriple(ctx context.Context, user sandbox.User, id int64) (sandbox.SaveResult, error) {
	tr, err := s.resolver.LoadTriple(ctx, user, id)
	if err != nil {
		return sandbox.SaveResult{}, err
	}
	return s.resolver.Exclude(ctx, user, tr)
}

// GetFormula loads a formula as the user sees it.
func (s *Service) GetFormula(ctx context.Context, user sandbox.User, id int64) (*sandbox.Formula, error) {
	return s.resolver.LoadFormula(ctx, user, id)
}

// SaveFormula writes a formula through the sandbox rules.
func (s *Service) SaveFormula(ctx context.Context, user sandbox.User, f, snapshot *sandbox.Formula) (sandbox.SaveResult, error) {
	log := s.opLogger("save_formula", user)
	start := time.Now()

	res, err := s.resolver.SaveFormula(ctx, user, f, snapshot)
	s.recordSave(sandbox.TableFormulas, start, res, err)
	if err != nil {
		log.Warn("formula save failed", "error", err)
		return res, err
	}
	log.Info("formula saved", "formula_id", res.ID, "outcome", res.Outcome.String())
	return res, nil
}

// GetValue loads a value as the user sees it.
func (s *Service) GetValue(ctx context.Context, user sandbox.User, id int64) (*sandbox.Value, error) {
	return s.resolver.LoadValue(ctx, user, id)
}

// SaveValue writes a value through the sandbox rules.
func (s *Service) SaveValue(ctx context.Context, user sandbox.User, v, snapshot *sandbox.Value) (sandbox.SaveResult, error) {
	log := s.opLogger("save_value", user)
	start := time.Now()

	res, err := s.resolver.SaveValue(ctx, user, v, snapshot)
	s.recordSave(sandbox.TableValues, start, res, err)
	if err != nil {
		log.Warn("value save failed", "error", err)
		return res, err
	}
	log.Info("value saved", "value_id", res.ID, "outcome", res.Outcome.String())
	return res, nil
}

// Are returns the is-a closure of the seed phrases, seeds included.
func (s *Service) Are(ctx context.Context, seeds []term.PhraseID) ([]term.PhraseID, error) {
	return s.engine.Are(ctx, seeds)
}

// Contains returns the is-part-of closure of the seed phrases, seeds
// included.
func (s *Service) Contains(ctx context.Context, seeds []term.PhraseID) ([]term.PhraseID, error) {
	return s.engine.Contains(ctx, seeds)
}

// AreAndContains returns the combined is-a / is-part-of fixed point.
func (s *Service) AreAndContains(ctx context.Context, seeds []term.PhraseID) ([]term.PhraseID, error) {
	return s.engine.AreAndContains(ctx, seeds)
}

// Differentiators returns the phrases that can contain the seeds, one hop
// up the can-contain relation.
func (s *Service) Differentiators(ctx context.Context, seeds []term.PhraseID) ([]term.PhraseID, error) {
	return s.engine.Differentiators(ctx, seeds)
}

// GetTerm resolves a unified term id to the word, triple, formula or verb
// it addresses, as the user sees it.
func (s *Service) GetTerm(ctx context.Context, user sandbox.User, id term.TermID) (*sandbox.Term, error) {
	return s.resolver.LoadTerm(ctx, user, id)
}

// FindTerm resolves a name across all term kinds, word first.
func (s *Service) FindTerm(ctx context.Context, user sandbox.User, name string) (*sandbox.Term, error) {
	return s.resolver.FindTermByName(ctx, user, name)
}

// ChangesFor returns the change trail of one row, oldest first.
func (s *Service) ChangesFor(ctx context.Context, table string, rowID int64) ([]changelog.Entry, error) {
	return s.reader.ByRow(ctx, table, rowID)
}

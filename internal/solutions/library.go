// Package solutions resolves (problem, outcome category) pairs to concrete
// solution artifacts laid out on disk as <dir>/<problem>/<category>.<ext>.
package solutions

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/judgefire/judgefire/internal/simulation"
)

// Library indexes solution artifacts by problem and outcome category. The
// language of an artifact is derived from its file extension via the
// configured extension map.
type Library struct {
	byProblem map[string]map[string][]string
	langByExt map[string]string
	problems  []string
}

// Load scans dir for problem directories and indexes their artifacts. Files
// are named <category>.<ext>; several artifacts per category are allowed
// (e.g. "wa.py", "wa.variant.py" both map to category "wa"). Hidden files are
// skipped. Listings are sorted, so the index is deterministic.
func Load(dir string, langByExt map[string]string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("solutions: read %s: %w", dir, err)
	}

	lib := &Library{
		byProblem: make(map[string]map[string][]string),
		langByExt: langByExt,
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		problemID := entry.Name()
		problemDir := filepath.Join(dir, problemID)
		files, err := os.ReadDir(problemDir)
		if err != nil {
			return nil, fmt.Errorf("solutions: read %s: %w", problemDir, err)
		}
		categories := make(map[string][]string)
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			category := strings.SplitN(name, ".", 2)[0]
			categories[category] = append(categories[category], filepath.Join(problemDir, name))
		}
		if len(categories) == 0 {
			continue
		}
		lib.byProblem[problemID] = categories
		lib.problems = append(lib.problems, problemID)
	}
	sort.Strings(lib.problems)

	if len(lib.problems) == 0 {
		return nil, fmt.Errorf("solutions: no artifacts found under %s", dir)
	}
	logrus.Infof("loaded solution artifacts for %d problems", len(lib.problems))
	return lib, nil
}

// Problems returns the ids of problems with at least one artifact, sorted.
func (l *Library) Problems() []string {
	return append([]string(nil), l.problems...)
}

// HasProblem reports whether any artifact exists for the problem.
func (l *Library) HasProblem(problemID string) bool {
	_, ok := l.byProblem[problemID]
	return ok
}

// Resolve picks an artifact for the given problem and category, drawing from
// rnd when several match. It reports false, without consuming a draw, when
// the category has no artifacts; it also reports false when the chosen file
// has an extension outside the language map.
func (l *Library) Resolve(problemID, category string, rnd *rand.Rand) (simulation.Artifact, bool) {
	files := l.byProblem[problemID][category]
	if len(files) == 0 {
		return simulation.Artifact{}, false
	}
	path := files[rnd.Intn(len(files))]
	lang, ok := l.langByExt[filepath.Ext(path)]
	if !ok {
		logrus.Warnf("unknown language extension %q for %s", filepath.Ext(path), path)
		return simulation.Artifact{}, false
	}
	return simulation.Artifact{Path: path, LanguageID: lang}, true
}

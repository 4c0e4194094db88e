package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// CycleError reports a symbolic link loop discovered while walking a tree.
type CycleError struct {
	Root string
	Path string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("symlink cycle at %q while walking %q", e.Path, e.Root)
}

// Walk enumerates every regular file below root as slash-separated paths
// relative to root. Nothing is filtered here: selection is entirely the rule
// engine's job. Directories reached by their real path are always
// enumerated; directory symlinks are followed at most once across all links
// to the same target, and a link leading back into the chain of directories
// currently being walked is a *CycleError. Result order is deterministic:
// depth-first over lexically sorted directory entries.
func Walk(root string) ([]string, error) {
	real, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, err
	}

	w := &walker{root: root, seen: map[string]struct{}{real: {}}}
	if err := w.walkDir(root, "", []string{real}); err != nil {
		return nil, err
	}
	return w.files, nil
}

type walker struct {
	root  string
	files []string
	seen  map[string]struct{} // canonical paths of directories already enumerated
}

func (w *walker) walkDir(dir, rel string, chain []string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		childPath := filepath.Join(dir, e.Name())
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}

		mode := e.Type()
		link := mode&fs.ModeSymlink != 0
		if link {
			fi, err := os.Stat(childPath)
			if os.IsNotExist(err) {
				continue // dangling link, nothing to package
			} else if err != nil {
				return err
			}
			mode = fi.Mode()
		}

		switch {
		case mode.IsDir():
			if err := w.enter(childPath, childRel, chain, link); err != nil {
				return err
			}
		case mode.IsRegular():
			w.files = append(w.files, childRel)
		}
	}
	return nil
}

// enter descends into a directory. The seen set suppresses re-enumeration
// through links only: a directory reached by its real path is always walked,
// so no file under the root ever goes missing because a link to its parent
// sorted earlier.
func (w *walker) enter(dir, rel string, chain []string, link bool) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if slices.Contains(chain, real) {
		return &CycleError{Root: w.root, Path: dir}
	}
	if link {
		if _, ok := w.seen[real]; ok {
			return nil // target already enumerated through an earlier link
		}
	}
	w.seen[real] = struct{}{}
	return w.walkDir(dir, rel, append(chain, real))
}
